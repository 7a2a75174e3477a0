package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sekolahku/sekolahku-api/internal/models"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
)

type settingRepository interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	List(ctx context.Context) ([]models.Setting, error)
	Upsert(ctx context.Context, setting *models.Setting) error
}

type settingsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const settingCachePrefix = "settings:"

// SettingService serves tenant configuration with a Redis read-through cache.
type SettingService struct {
	repo   settingRepository
	cache  settingsCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewSettingService constructs the service.
func NewSettingService(repo settingRepository, cache settingsCache, ttl time.Duration, logger *zap.Logger) *SettingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SettingService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Get returns one setting, served from cache when warm.
func (s *SettingService) Get(ctx context.Context, key string) (*models.Setting, error) {
	if s.cache != nil {
		var cached models.Setting
		if err := s.cache.Get(ctx, settingCachePrefix+key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("settings cache read failed", zap.Error(err))
		}
	}
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "setting not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load setting")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, settingCachePrefix+key, setting, s.ttl); err != nil {
			s.logger.Warn("settings cache write failed", zap.Error(err))
		}
	}
	return setting, nil
}

// List returns every setting straight from the database.
func (s *SettingService) List(ctx context.Context) ([]models.Setting, error) {
	settings, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list settings")
	}
	return settings, nil
}

// Set writes a setting and invalidates its cached copy.
func (s *SettingService) Set(ctx context.Context, key string, value json.RawMessage, updatedBy string) (*models.Setting, error) {
	if !json.Valid(value) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "value must be valid JSON")
	}
	setting := &models.Setting{Key: key, Value: value}
	if updatedBy != "" {
		setting.UpdatedBy = &updatedBy
	}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store setting")
	}
	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, settingCachePrefix+key); err != nil {
			s.logger.Warn("settings cache invalidation failed", zap.Error(err))
		}
	}
	return setting, nil
}
