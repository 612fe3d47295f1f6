package models

import (
	"time"
)

// NotificationType identifies why a notification was raised
type NotificationType string

const (
	// NotificationTypeReply is raised when someone replies to a user's comment
	NotificationTypeReply NotificationType = "reply"
)

// Notification represents a message for a single recipient.
// CommentID references the reply, not the comment that was replied to.
type Notification struct {
	ID          string           `json:"id" db:"id"`
	Type        NotificationType `json:"type" db:"type"`
	IsRead      bool             `json:"is_read" db:"is_read"`
	RecipientID string           `json:"recipient_id" db:"recipient_id"`
	CommentID   string           `json:"comment_id" db:"comment_id"`
	Comment     *Comment         `json:"comment,omitempty" db:"-"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// UnreadCountResponse is the API response for the unread badge
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}
