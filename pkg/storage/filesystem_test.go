package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestArchiveSaveWritesUnderBaseDir(t *testing.T) {
	archive, err := NewArchive(t.TempDir())
	require.NoError(t, err)

	path, err := archive.Save("roster-class-1.csv", []byte("a,b,c\n"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(archive.Dir(), "roster-class-1.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "a,b,c\n", string(data))
}

func TestArchiveSaveStripsDirectoryTraversal(t *testing.T) {
	archive, err := NewArchive(t.TempDir())
	require.NoError(t, err)

	path, err := archive.Save("../escape.csv", []byte("x"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(archive.Dir(), "escape.csv"), path)
}

func TestArchiveSweepRemovesExpiredFiles(t *testing.T) {
	archive, err := NewArchive(t.TempDir())
	require.NoError(t, err)

	oldPath, err := archive.Save("old.csv", []byte("old"))
	require.NoError(t, err)
	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, stale, stale))

	freshPath, err := archive.Save("fresh.csv", []byte("fresh"))
	require.NoError(t, err)

	removed, err := archive.Sweep(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = os.Stat(oldPath)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(freshPath)
	require.NoError(t, err)
}
