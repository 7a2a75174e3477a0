package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sekolahku/sekolahku-api/internal/models"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
)

type settingRepoStub struct {
	settings map[string]*models.Setting
	reads    int
}

func newSettingRepoStub() *settingRepoStub {
	return &settingRepoStub{settings: map[string]*models.Setting{}}
}

func (r *settingRepoStub) Get(ctx context.Context, key string) (*models.Setting, error) {
	r.reads++
	if s, ok := r.settings[key]; ok {
		copy := *s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *settingRepoStub) List(ctx context.Context) ([]models.Setting, error) {
	var result []models.Setting
	for _, s := range r.settings {
		result = append(result, *s)
	}
	return result, nil
}

func (r *settingRepoStub) Upsert(ctx context.Context, setting *models.Setting) error {
	r.settings[setting.Key] = setting
	return nil
}

type settingsCacheStub struct {
	entries     map[string][]byte
	invalidated []string
}

func newSettingsCacheStub() *settingsCacheStub {
	return &settingsCacheStub{entries: map[string][]byte{}}
}

func (c *settingsCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *settingsCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *settingsCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.invalidated = append(c.invalidated, pattern)
	delete(c.entries, pattern)
	return nil
}

func TestSettingGetReadsThroughCache(t *testing.T) {
	repo := newSettingRepoStub()
	repo.settings["school.name"] = &models.Setting{Key: "school.name", Value: json.RawMessage(`"SMA 1"`)}
	cache := newSettingsCacheStub()
	svc := NewSettingService(repo, cache, time.Minute, nil)

	first, err := svc.Get(context.Background(), "school.name")
	require.NoError(t, err)
	require.Equal(t, 1, repo.reads)

	second, err := svc.Get(context.Background(), "school.name")
	require.NoError(t, err)
	require.Equal(t, 1, repo.reads, "second read must be served from cache")
	require.Equal(t, first.Key, second.Key)
}

func TestSettingSetInvalidatesCache(t *testing.T) {
	repo := newSettingRepoStub()
	repo.settings["school.name"] = &models.Setting{Key: "school.name", Value: json.RawMessage(`"SMA 1"`)}
	cache := newSettingsCacheStub()
	svc := NewSettingService(repo, cache, time.Minute, nil)

	_, err := svc.Get(context.Background(), "school.name")
	require.NoError(t, err)

	_, err = svc.Set(context.Background(), "school.name", json.RawMessage(`"SMA 2"`), "admin-1")
	require.NoError(t, err)
	require.Contains(t, cache.invalidated, "settings:school.name")

	updated, err := svc.Get(context.Background(), "school.name")
	require.NoError(t, err)
	require.JSONEq(t, `"SMA 2"`, string(updated.Value))
}

func TestSettingSetRejectsInvalidJSON(t *testing.T) {
	svc := NewSettingService(newSettingRepoStub(), nil, time.Minute, nil)

	_, err := svc.Set(context.Background(), "school.name", json.RawMessage(`{broken`), "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSettingGetMissing(t *testing.T) {
	svc := NewSettingService(newSettingRepoStub(), nil, time.Minute, nil)

	_, err := svc.Get(context.Background(), "nope")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
