package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"arthub/internal/model"
	"arthub/internal/queue"
)

// Deliverer records a notification and pushes it to the recipient's devices.
// This abstracts the notification service so workers don't depend on it directly.
type Deliverer interface {
	Deliver(ctx context.Context, userID, notifType string, subjectID *string, msg model.Message) error
}

// CopyFunc picks the notification for an invitation transition. ok is false
// when the transition should not notify anyone.
type CopyFunc func(change model.StatusChanged) (notifType string, msg model.Message, ok bool)

// replyPreviewLength bounds the reply text shown in the push body.
const replyPreviewLength = 80

// Handler processes notification events from the queue.
type Handler struct {
	deliverer  Deliverer
	statusCopy CopyFunc
}

// NewHandler creates a new event handler.
func NewHandler(deliverer Deliverer, statusCopy CopyFunc) *Handler {
	return &Handler{
		deliverer:  deliverer,
		statusCopy: statusCopy,
	}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.Event) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventInvitationStatusChanged:
		err = h.handleInvitationStatusChanged(ctx, event)
	case queue.EventCommentReplied:
		err = h.handleCommentReplied(ctx, event)
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s duration=%v err=%v",
			event.Type, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s duration=%v", event.Type, time.Since(startTime))
	return nil
}

// handleInvitationStatusChanged tells the artist their application was decided.
func (h *Handler) handleInvitationStatusChanged(ctx context.Context, event queue.Event) error {
	log.Printf("[Worker] InvitationStatusChanged: event=%s artist=%s %s->%s",
		event.SubjectID, event.RecipientID, event.From, event.To)

	change := model.StatusChanged{
		SubjectID: event.SubjectID,
		ArtistID:  event.RecipientID,
		From:      model.InvitationStatus(event.From),
		To:        model.InvitationStatus(event.To),
	}
	notifType, msg, ok := h.statusCopy(change)
	if !ok {
		log.Printf("[Worker] InvitationStatusChanged: no notification for status=%s", change.To)
		return nil
	}

	subjectID := event.SubjectID
	if err := h.deliverer.Deliver(ctx, event.RecipientID, notifType, &subjectID, msg); err != nil {
		return fmt.Errorf("deliver invitation notification: %w", err)
	}

	log.Printf("[Worker] InvitationStatusChanged DONE: notified artist=%s", event.RecipientID)
	return nil
}

// handleCommentReplied notifies the author of the parent comment.
func (h *Handler) handleCommentReplied(ctx context.Context, event queue.Event) error {
	log.Printf("[Worker] CommentReplied: subject=%s comment=%s actor=%s recipient=%s",
		event.SubjectID, event.CommentID, event.ActorID, event.RecipientID)

	// Don't notify yourself
	if event.RecipientID == "" || event.ActorID == event.RecipientID {
		return nil
	}

	msg := model.Message{
		Title: "New reply",
		Body:  preview(event.Text, replyPreviewLength),
		Data: map[string]string{
			"type":       model.NotificationTypeCommentReply,
			"subject_id": event.SubjectID,
			"comment_id": event.CommentID,
		},
	}
	subjectID := event.SubjectID
	if err := h.deliverer.Deliver(ctx, event.RecipientID, model.NotificationTypeCommentReply, &subjectID, msg); err != nil {
		return fmt.Errorf("deliver reply notification: %w", err)
	}

	log.Printf("[Worker] CommentReplied DONE: notified user=%s", event.RecipientID)
	return nil
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
