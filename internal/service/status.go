package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"arthub/internal/cache"
	"arthub/internal/model"
	"arthub/internal/queue"
)

// StatusSink receives every detected invitation transition.
type StatusSink interface {
	StatusChanged(ctx context.Context, change model.StatusChanged) error
}

// StatusCoordinator owns the last observed status of every invitation. All
// watchers route observations through one coordinator so a transition seen
// by two of them fires once.
//
// The first observation of an invitation only seeds the cache: nothing is
// emitted for state that existed before anyone was watching.
type StatusCoordinator struct {
	mu    sync.Mutex
	cache cache.StatusCache
	sink  StatusSink
}

func NewStatusCoordinator(statusCache cache.StatusCache, sink StatusSink) *StatusCoordinator {
	return &StatusCoordinator{cache: statusCache, sink: sink}
}

// Observe records status for (artistID, eventID) and returns the emitted
// change, or nil when nothing changed or this was the first observation.
//
// The sink runs before the cache is updated: if it fails the next
// observation emits again.
func (c *StatusCoordinator) Observe(ctx context.Context, artistID, eventID string, status model.InvitationStatus) (*model.StatusChanged, error) {
	if !status.Valid() {
		log.Printf("[StatusCoordinator] Ignoring malformed status %q for artist=%s event=%s", status, artistID, eventID)
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	last, err := c.cache.Get(ctx, artistID, eventID)
	if err != nil {
		return nil, fmt.Errorf("read observed status: %w", err)
	}
	if last == status {
		return nil, nil
	}

	if last == model.StatusUnknown {
		if err := c.cache.Set(ctx, artistID, eventID, status); err != nil {
			return nil, fmt.Errorf("seed observed status: %w", err)
		}
		return nil, nil
	}

	change := model.StatusChanged{SubjectID: eventID, ArtistID: artistID, From: last, To: status}
	if err := c.sink.StatusChanged(ctx, change); err != nil {
		return nil, fmt.Errorf("emit status change: %w", err)
	}
	if err := c.cache.Set(ctx, artistID, eventID, status); err != nil {
		return &change, fmt.Errorf("record observed status: %w", err)
	}

	log.Printf("[StatusCoordinator] artist=%s event=%s %s -> %s", artistID, eventID, last, status)
	return &change, nil
}

// ObserveAll feeds a batch of invitations through Observe. A failed
// observation is logged and the rest of the batch still runs; the first
// error is returned.
func (c *StatusCoordinator) ObserveAll(ctx context.Context, invitations []model.Invitation) ([]model.StatusChanged, error) {
	changes := make([]model.StatusChanged, 0)
	var firstErr error
	for _, inv := range invitations {
		change, err := c.Observe(ctx, inv.ArtistID, inv.EventID, inv.Status)
		if err != nil {
			log.Printf("[StatusCoordinator] Observe FAILED artist=%s event=%s: %v", inv.ArtistID, inv.EventID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
		if change != nil {
			changes = append(changes, *change)
		}
	}
	return changes, firstErr
}

// NotificationCopy selects what the artist is told about a transition.
// Only decisions notify; ok is false for anything else.
func NotificationCopy(change model.StatusChanged) (notifType string, msg model.Message, ok bool) {
	data := map[string]string{
		"event_id": change.SubjectID,
		"status":   string(change.To),
	}
	switch change.To {
	case model.StatusAccepted:
		data["type"] = model.NotificationTypeInvitationAccepted
		return model.NotificationTypeInvitationAccepted, model.Message{
			Title: "Congratulations!",
			Body:  "Your application was accepted. Your artwork will be part of the event.",
			Data:  data,
		}, true
	case model.StatusRejected:
		data["type"] = model.NotificationTypeInvitationRejected
		return model.NotificationTypeInvitationRejected, model.Message{
			Title: "Application update",
			Body:  "Unfortunately your application was not accepted this time.",
			Data:  data,
		}, true
	}
	return "", model.Message{}, false
}

// Deliverer records and pushes a notification to one user.
type Deliverer interface {
	Deliver(ctx context.Context, userID, notifType string, subjectID *string, msg model.Message) error
}

// DeliverySink notifies the artist in-process.
type DeliverySink struct {
	deliverer Deliverer
}

func NewDeliverySink(deliverer Deliverer) *DeliverySink {
	return &DeliverySink{deliverer: deliverer}
}

func (s *DeliverySink) StatusChanged(ctx context.Context, change model.StatusChanged) error {
	notifType, msg, ok := NotificationCopy(change)
	if !ok {
		return nil
	}
	subjectID := change.SubjectID
	return s.deliverer.Deliver(ctx, change.ArtistID, notifType, &subjectID, msg)
}

// QueueSink hands transitions to the notification workers.
type QueueSink struct {
	publisher queue.Publisher
}

func NewQueueSink(publisher queue.Publisher) *QueueSink {
	return &QueueSink{publisher: publisher}
}

func (s *QueueSink) StatusChanged(ctx context.Context, change model.StatusChanged) error {
	event := queue.NewInvitationStatusChangedEvent(change.SubjectID, change.ArtistID, string(change.From), string(change.To))
	_, err := s.publisher.Publish(ctx, queue.StreamEvents, event)
	return err
}
