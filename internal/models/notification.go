package models

import "time"

// NotificationType classifies inbox entries.
type NotificationType string

const (
	NotificationKRSApproved NotificationType = "KRS_APPROVED"
	NotificationKRSPending  NotificationType = "KRS_PENDING"
)

// Notification is an entry in a user's in-app inbox.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Read      bool             `db:"is_read" json:"is_read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
