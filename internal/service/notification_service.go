package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sekolahku/sekolahku-api/internal/models"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
)

type notificationRepository interface {
	ListForUser(ctx context.Context, filter models.NotificationFilter) ([]models.NotificationView, int, error)
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	Create(ctx context.Context, notification *models.Notification) error
	MarkRead(ctx context.Context, notificationID, userID string) error
	CountUnread(ctx context.Context, filter models.NotificationFilter) (int, error)
	Delete(ctx context.Context, id string) error
}

type notificationCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const unreadCachePrefix = "notifications:unread:"

// CreateNotificationRequest holds payload for publishing notifications.
type CreateNotificationRequest struct {
	Title         string     `json:"title" validate:"required"`
	Body          string     `json:"body" validate:"required"`
	Audience      string     `json:"audience" validate:"required"`
	TargetClassID *string    `json:"target_class_id"`
	ExpiresAt     *time.Time `json:"expires_at"`
}

// NotificationService publishes and delivers in-app notifications. Unread
// badge counts are served from a short-lived cache.
type NotificationService struct {
	repo      notificationRepository
	cache     notificationCache
	unreadTTL time.Duration
	logger    *zap.Logger
}

// NewNotificationService constructs the service. A nil cache disables unread
// count caching.
func NewNotificationService(repo notificationRepository, cache notificationCache, unreadTTL time.Duration, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if unreadTTL <= 0 {
		unreadTTL = time.Minute
	}
	return &NotificationService{repo: repo, cache: cache, unreadTTL: unreadTTL, logger: logger}
}

// ListForUser returns notifications visible to the actor.
func (s *NotificationService) ListForUser(ctx context.Context, filter models.NotificationFilter) ([]models.NotificationView, *models.Pagination, error) {
	notifications, total, err := s.repo.ListForUser(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return notifications, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Publish stores a new notification.
func (s *NotificationService) Publish(ctx context.Context, req CreateNotificationRequest, creatorID string) (*models.Notification, error) {
	audience := models.NotificationAudience(req.Audience)
	if !audience.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "audience must be ALL, TEACHERS, STUDENTS or CLASS")
	}
	if audience == models.NotificationAudienceClass && (req.TargetClassID == nil || *req.TargetClassID == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target class is required for a CLASS audience")
	}
	notification := &models.Notification{
		Title:         req.Title,
		Body:          req.Body,
		Audience:      audience,
		TargetClassID: req.TargetClassID,
		CreatedBy:     creatorID,
		ExpiresAt:     req.ExpiresAt,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish notification")
	}
	s.invalidateUnread(ctx, unreadCachePrefix+"*")
	return notification, nil
}

// MarkRead flags a notification as read for the actor.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID string) error {
	if _, err := s.repo.FindByID(ctx, notificationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification")
	}
	if err := s.repo.MarkRead(ctx, notificationID, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	s.invalidateUnread(ctx, unreadCachePrefix+userID)
	return nil
}

// UnreadCount returns the actor's unread badge count, served from cache when
// warm.
func (s *NotificationService) UnreadCount(ctx context.Context, filter models.NotificationFilter) (int, error) {
	cacheKey := unreadCachePrefix + filter.UserID
	if s.cache != nil && filter.UserID != "" {
		var cached int
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("unread count cache read failed", zap.Error(err))
		}
	}

	count, err := s.repo.CountUnread(ctx, filter)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread notifications")
	}
	if s.cache != nil && filter.UserID != "" {
		if err := s.cache.Set(ctx, cacheKey, count, s.unreadTTL); err != nil {
			s.logger.Warn("unread count cache write failed", zap.Error(err))
		}
	}
	return count, nil
}

func (s *NotificationService) invalidateUnread(ctx context.Context, pattern string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("unread count cache invalidation failed", zap.Error(err))
	}
}

// Delete removes a notification.
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notification")
	}
	s.invalidateUnread(ctx, unreadCachePrefix+"*")
	return nil
}
