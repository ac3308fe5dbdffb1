package repository

import (
	"context"
	"time"

	"arthub/internal/model"
)

type CommentRepository interface {
	// GetSnapshot returns the raw comments subtree of a subject (nil if none).
	GetSnapshot(ctx context.Context, subjectID string) (map[string]any, error)
	// Create pushes node under the root list, or under the replies of the
	// comment at parentPath, and returns the new id.
	Create(ctx context.Context, subjectID string, parentPath []string, node map[string]any) (string, error)
}

type CounterRepository interface {
	// Increment adds delta in a transaction, clamping at zero, and returns the committed value.
	Increment(ctx context.Context, key model.CounterKey, delta int64) (int64, error)
	Get(ctx context.Context, key model.CounterKey) (int64, error)
	GetAll(ctx context.Context, subjectID string) (map[string]int64, error)
	Set(ctx context.Context, key model.CounterKey, value int64) error
	// SetMember flips a user's flag and reports whether it changed.
	SetMember(ctx context.Context, key model.CounterKey, userID string, active bool) (changed bool, err error)
	IsMember(ctx context.Context, key model.CounterKey, userID string) (bool, error)
	CountMembers(ctx context.Context, key model.CounterKey) (int64, error)
}

type InvitationRepository interface {
	// Create stores a pending invitation unless one exists; the stored one is returned.
	Create(ctx context.Context, eventID, artistID string) (inv *model.Invitation, created bool, err error)
	UpdateStatus(ctx context.Context, eventID, artistID string, status model.InvitationStatus) (*model.Invitation, error)
	Get(ctx context.Context, eventID, artistID string) (*model.Invitation, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Invitation, error)
	ListByArtist(ctx context.Context, artistID string) ([]model.Invitation, error)
	// Watch calls fn with every invitation whenever the tree changes.
	Watch(ctx context.Context, interval time.Duration, fn func(ctx context.Context, invitations []model.Invitation) error) error
}

type AccountRepository interface {
	Get(ctx context.Context, userID string) (*model.Account, error)
	Save(ctx context.Context, account *model.Account) error
	FindByName(ctx context.Context, name string) (*model.Account, error)
	// GetLegacy reads userID's record in one of the pre-accounts role tables.
	GetLegacy(ctx context.Context, table, userID string) (record map[string]any, found bool, err error)
}

type ChatRepository interface {
	ChatIDs(ctx context.Context, userID string) ([]string, error)
	Messages(ctx context.Context, chatID string) (map[string]model.ChatMessage, error)
}

type DeviceTokenRepository interface {
	// Upsert creates or updates a device token for a user
	Upsert(ctx context.Context, userID, token, platform string) error
	// GetByUserID returns all device tokens for a user
	GetByUserID(ctx context.Context, userID string) ([]model.DeviceToken, error)
	// Delete removes a device token
	Delete(ctx context.Context, userID, token string) error
}

type NotificationRepository interface {
	// Create inserts a delivered notification into the inbox
	Create(ctx context.Context, n *model.Notification) error
	// List returns the newest notifications and how many of them are unread
	List(ctx context.Context, userID string, limit int) ([]model.Notification, int, error)
	// MarkAsRead marks specific notifications as read
	MarkAsRead(ctx context.Context, userID string, notificationIDs []int64) error
	// MarkAllAsRead marks all notifications for a user as read
	MarkAllAsRead(ctx context.Context, userID string) error
	// GetUnreadCount returns the count of unread notifications
	GetUnreadCount(ctx context.Context, userID string) (int, error)
}
