package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sekolahku/sekolahku-api/internal/models"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
)

type notifRepoStub struct {
	notifications map[string]*models.Notification
	unread        int
	countCalls    int
	marked        []string
}

func newNotifRepoStub() *notifRepoStub {
	return &notifRepoStub{notifications: map[string]*models.Notification{}}
}

func (r *notifRepoStub) ListForUser(ctx context.Context, filter models.NotificationFilter) ([]models.NotificationView, int, error) {
	return nil, 0, nil
}

func (r *notifRepoStub) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	if n, ok := r.notifications[id]; ok {
		return n, nil
	}
	return nil, sql.ErrNoRows
}

func (r *notifRepoStub) Create(ctx context.Context, notification *models.Notification) error {
	notification.ID = "notif-1"
	r.notifications[notification.ID] = notification
	return nil
}

func (r *notifRepoStub) MarkRead(ctx context.Context, notificationID, userID string) error {
	r.marked = append(r.marked, notificationID+":"+userID)
	return nil
}

func (r *notifRepoStub) CountUnread(ctx context.Context, filter models.NotificationFilter) (int, error) {
	r.countCalls++
	return r.unread, nil
}

func (r *notifRepoStub) Delete(ctx context.Context, id string) error {
	delete(r.notifications, id)
	return nil
}

type notifCacheStub struct {
	entries     map[string][]byte
	invalidated []string
}

func newNotifCacheStub() *notifCacheStub {
	return &notifCacheStub{entries: map[string][]byte{}}
}

func (c *notifCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *notifCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *notifCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.invalidated = append(c.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

func TestUnreadCountReadsThroughCache(t *testing.T) {
	repo := newNotifRepoStub()
	repo.unread = 3
	cache := newNotifCacheStub()
	svc := NewNotificationService(repo, cache, time.Minute, nil)

	filter := models.NotificationFilter{UserID: "user-1", Role: models.RoleTeacher}

	count, err := svc.UnreadCount(context.Background(), filter)
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.Equal(t, 1, repo.countCalls)

	repo.unread = 5
	count, err = svc.UnreadCount(context.Background(), filter)
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.Equal(t, 1, repo.countCalls)
}

func TestMarkReadInvalidatesUnreadCache(t *testing.T) {
	repo := newNotifRepoStub()
	repo.unread = 2
	repo.notifications["notif-1"] = &models.Notification{ID: "notif-1"}
	cache := newNotifCacheStub()
	svc := NewNotificationService(repo, cache, time.Minute, nil)

	filter := models.NotificationFilter{UserID: "user-1"}
	_, err := svc.UnreadCount(context.Background(), filter)
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(context.Background(), "notif-1", "user-1"))
	require.Contains(t, cache.invalidated, "notifications:unread:user-1")

	repo.unread = 1
	count, err := svc.UnreadCount(context.Background(), filter)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestPublishRejectsClassAudienceWithoutTarget(t *testing.T) {
	svc := NewNotificationService(newNotifRepoStub(), nil, time.Minute, nil)

	_, err := svc.Publish(context.Background(), CreateNotificationRequest{
		Title:    "Exam schedule",
		Body:     "See attached dates",
		Audience: string(models.NotificationAudienceClass),
	}, "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestMarkReadUnknownNotification(t *testing.T) {
	svc := NewNotificationService(newNotifRepoStub(), nil, time.Minute, nil)

	err := svc.MarkRead(context.Background(), "missing", "user-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
