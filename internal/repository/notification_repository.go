package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sekolahku/sekolahku-api/internal/models"
)

// NotificationRepository provides persistence for in-app notifications and
// per-user read state.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// ListForUser returns notifications visible to the user with their read flag.
func (r *NotificationRepository) ListForUser(ctx context.Context, filter models.NotificationFilter) ([]models.NotificationView, int, error) {
	base := `FROM notifications n
LEFT JOIN notification_reads nr ON nr.notification_id = n.id AND nr.user_id = $1`
	where := []string{"(n.expires_at IS NULL OR n.expires_at > NOW())"}
	args := []interface{}{filter.UserID}

	audiences := map[string]struct{}{string(models.NotificationAudienceAll): {}}
	switch filter.Role {
	case models.RoleTeacher:
		audiences[string(models.NotificationAudienceTeachers)] = struct{}{}
	case models.RoleStudent:
		audiences[string(models.NotificationAudienceStudents)] = struct{}{}
	case models.RoleAdmin, models.RoleSuperAdmin:
		audiences[string(models.NotificationAudienceTeachers)] = struct{}{}
		audiences[string(models.NotificationAudienceStudents)] = struct{}{}
		audiences[string(models.NotificationAudienceClass)] = struct{}{}
	}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("(n.audience <> 'CLASS' OR n.target_class_id = $%d)", len(args)+1))
		args = append(args, filter.ClassID)
		audiences[string(models.NotificationAudienceClass)] = struct{}{}
	}
	values := make([]string, 0, len(audiences))
	for v := range audiences {
		values = append(values, v)
	}
	where = append(where, fmt.Sprintf("n.audience = ANY($%d)", len(args)+1))
	args = append(args, pq.Array(values))

	if filter.UnreadOnly {
		where = append(where, "nr.read_at IS NULL")
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT n.id, n.title, n.body, n.audience, n.target_class_id, n.created_by, n.created_at, n.expires_at, nr.read_at
%s WHERE %s
ORDER BY n.created_at DESC
LIMIT %d OFFSET %d`, base, whereClause, size, offset)
	var notifications []models.NotificationView
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return notifications, total, nil
}

// FindByID returns a notification by identifier.
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	const query = `SELECT id, title, body, audience, target_class_id, created_by, created_at, expires_at FROM notifications WHERE id = $1`
	var notification models.Notification
	if err := r.db.GetContext(ctx, &notification, query, id); err != nil {
		return nil, err
	}
	return &notification, nil
}

// Create inserts a new notification.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO notifications (id, title, body, audience, target_class_id, created_by, created_at, expires_at)
VALUES (:id, :title, :body, :audience, :target_class_id, :created_by, :created_at, :expires_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// MarkRead records that the user has read the notification. Re-reading is a
// no-op.
func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID, userID string) error {
	const query = `INSERT INTO notification_reads (notification_id, user_id, read_at)
VALUES ($1, $2, $3)
ON CONFLICT (notification_id, user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, notificationID, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// CountUnread returns the number of visible unread notifications for a user.
func (r *NotificationRepository) CountUnread(ctx context.Context, filter models.NotificationFilter) (int, error) {
	filter.UnreadOnly = true
	filter.Page = 1
	filter.PageSize = 1
	_, total, err := r.ListForUser(ctx, filter)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Delete removes a notification and its read markers.
func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}
