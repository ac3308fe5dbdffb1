package model

import (
	"time"
)

// Notification types
const (
	NotificationTypeInvitationAccepted = "invitation_accepted"
	NotificationTypeInvitationRejected = "invitation_rejected"
	NotificationTypeCommentReply       = "comment_reply"
)

// Message is what gets shown to a user: local notification or push.
type Message struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Notification is a delivered message kept in the user's inbox.
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"-"` // Recipient
	Type      string    `db:"type" json:"type"`
	SubjectID *string   `db:"subject_id" json:"subject_id,omitempty"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NotificationListResponse is the inbox response.
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unread_count"`
}

// MarkReadRequest is the request body for marking notifications as read.
// An empty list marks everything read.
type MarkReadRequest struct {
	NotificationIDs []int64 `json:"notification_ids"`
}
