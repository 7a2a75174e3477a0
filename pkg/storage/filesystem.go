// Package storage archives generated export files on local disk.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Archive keeps copies of rendered exports under a base directory.
type Archive struct {
	dir string
}

// NewArchive ensures the archive directory exists and returns a handle.
func NewArchive(dir string) (*Archive, error) {
	if dir == "" {
		dir = "./exports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &Archive{dir: dir}, nil
}

// Save writes the file under the archive directory and returns its full path.
func (a *Archive) Save(name string, data []byte) (string, error) {
	path := filepath.Join(a.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write archive file: %w", err)
	}
	return path, nil
}

// Sweep deletes archived files older than the retention window and reports how
// many were removed.
func (a *Archive) Sweep(retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	removed := 0

	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return 0, fmt.Errorf("read archive directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return removed, err
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(a.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove archived file: %w", err)
		}
		removed++
	}
	return removed, nil
}

// Dir returns the archive base directory.
func (a *Archive) Dir() string {
	return a.dir
}
