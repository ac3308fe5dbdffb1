package service

import (
	"context"
	"log"

	"arthub/internal/model"
	"arthub/internal/repository"
)

// PushSender delivers one message to a batch of device tokens and returns
// the tokens the provider reported as no longer registered.
type PushSender interface {
	SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string) (stale []string, err error)
}

// NotificationService records delivered messages in the inbox and pushes
// them to the recipient's devices.
type NotificationService struct {
	notifRepo repository.NotificationRepository // nil when Postgres is not configured
	tokenRepo repository.DeviceTokenRepository
	fcm       PushSender // nil if push not configured
	expo      PushSender
}

func NewNotificationService(
	notifRepo repository.NotificationRepository,
	tokenRepo repository.DeviceTokenRepository,
	fcm PushSender,
	expo PushSender,
) *NotificationService {
	return &NotificationService{
		notifRepo: notifRepo,
		tokenRepo: tokenRepo,
		fcm:       fcm,
		expo:      expo,
	}
}

// Deliver stores msg in userID's inbox and pushes it to every registered
// device. Push failures are logged, never returned: the inbox entry is the
// durable record.
func (s *NotificationService) Deliver(ctx context.Context, userID, notifType string, subjectID *string, msg model.Message) error {
	if s.notifRepo != nil {
		n := &model.Notification{
			UserID:    userID,
			Type:      notifType,
			SubjectID: subjectID,
			Title:     msg.Title,
			Body:      msg.Body,
		}
		if err := s.notifRepo.Create(ctx, n); err != nil {
			return err
		}
	}

	s.push(ctx, userID, msg)
	return nil
}

func (s *NotificationService) push(ctx context.Context, userID string, msg model.Message) {
	if s.tokenRepo == nil || (s.fcm == nil && s.expo == nil) {
		return
	}

	tokens, err := s.tokenRepo.GetByUserID(ctx, userID)
	if err != nil {
		log.Printf("[NotificationService] Failed to get device tokens for user %s: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	var fcmTokens, expoTokens []string
	for _, t := range tokens {
		if model.IsExpoToken(t.Token) {
			expoTokens = append(expoTokens, t.Token)
		} else {
			fcmTokens = append(fcmTokens, t.Token)
		}
	}

	s.sendVia(ctx, "fcm", s.fcm, userID, fcmTokens, msg)
	s.sendVia(ctx, "expo", s.expo, userID, expoTokens, msg)
}

func (s *NotificationService) sendVia(ctx context.Context, name string, sender PushSender, userID string, tokens []string, msg model.Message) {
	if sender == nil || len(tokens) == 0 {
		return
	}
	stale, err := sender.SendToTokens(ctx, tokens, msg.Title, msg.Body, msg.Data)
	if err != nil {
		log.Printf("[NotificationService] Failed to send %s push to user %s: %v", name, userID, err)
		return
	}
	for _, token := range stale {
		if err := s.tokenRepo.Delete(ctx, userID, token); err != nil {
			log.Printf("[NotificationService] Failed to drop stale token for user %s: %v", userID, err)
		}
	}
}

// GetNotifications returns the newest inbox entries for a user.
func (s *NotificationService) GetNotifications(ctx context.Context, userID string, limit int) (*model.NotificationListResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}
	if s.notifRepo == nil {
		return &model.NotificationListResponse{Notifications: []model.Notification{}}, nil
	}

	notifications, unread, err := s.notifRepo.List(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return &model.NotificationListResponse{
		Notifications: notifications,
		UnreadCount:   unread,
	}, nil
}

// MarkAsRead marks specific notifications as read; an empty list marks all.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID string, notificationIDs []int64) error {
	if s.notifRepo == nil {
		return nil
	}
	if len(notificationIDs) == 0 {
		return s.notifRepo.MarkAllAsRead(ctx, userID)
	}
	return s.notifRepo.MarkAsRead(ctx, userID, notificationIDs)
}

// GetUnreadCount returns the number of unread notifications (for badge display).
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	if s.notifRepo == nil {
		return 0, nil
	}
	return s.notifRepo.GetUnreadCount(ctx, userID)
}

// RegisterDeviceToken stores or refreshes a device's push token.
func (s *NotificationService) RegisterDeviceToken(ctx context.Context, userID, token, platform string) error {
	if token == "" {
		return model.ErrTokenRequired
	}
	if platform == "" {
		platform = model.PlatformAndroid
		if model.IsExpoToken(token) {
			platform = model.PlatformExpo
		}
	}
	return s.tokenRepo.Upsert(ctx, userID, token, platform)
}

// RemoveDeviceToken removes a device token (e.g., on logout).
func (s *NotificationService) RemoveDeviceToken(ctx context.Context, userID, token string) error {
	if token == "" {
		return model.ErrTokenRequired
	}
	return s.tokenRepo.Delete(ctx, userID, token)
}
