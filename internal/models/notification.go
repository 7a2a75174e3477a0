package models

import "time"

// NotificationAudience defines who can see a notification.
type NotificationAudience string

const (
	NotificationAudienceAll      NotificationAudience = "ALL"
	NotificationAudienceTeachers NotificationAudience = "TEACHERS"
	NotificationAudienceStudents NotificationAudience = "STUDENTS"
	NotificationAudienceClass    NotificationAudience = "CLASS"
)

// Valid reports whether the audience is a supported value.
func (a NotificationAudience) Valid() bool {
	switch a {
	case NotificationAudienceAll, NotificationAudienceTeachers, NotificationAudienceStudents, NotificationAudienceClass:
		return true
	default:
		return false
	}
}

// Notification represents a persisted in-app notification row.
type Notification struct {
	ID            string               `db:"id" json:"id"`
	Title         string               `db:"title" json:"title"`
	Body          string               `db:"body" json:"body"`
	Audience      NotificationAudience `db:"audience" json:"audience"`
	TargetClassID *string              `db:"target_class_id" json:"target_class_id,omitempty"`
	CreatedBy     string               `db:"created_by" json:"created_by"`
	CreatedAt     time.Time            `db:"created_at" json:"created_at"`
	ExpiresAt     *time.Time           `db:"expires_at" json:"expires_at,omitempty"`
}

// NotificationView is a notification with the per-user read flag resolved.
type NotificationView struct {
	Notification
	ReadAt *time.Time `db:"read_at" json:"read_at,omitempty"`
}

// NotificationFilter selects notifications visible to a user.
type NotificationFilter struct {
	Role       UserRole
	UserID     string
	ClassID    string
	UnreadOnly bool
	Page       int
	PageSize   int
}
