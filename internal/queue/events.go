package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the notification stream
const (
	EventInvitationStatusChanged = "invitation_status_changed"
	EventCommentReplied          = "comment_replied"
)

// Stream names
const (
	StreamEvents = "stream:arthub"
)

// Consumer group name for notification workers
const (
	ConsumerGroupNotify = "notify_workers"
)

// Event is published to the notification stream. Fields not used by a
// type are left empty.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // Unix seconds

	// SubjectID is the event id for invitation changes and the commented
	// subject for replies.
	SubjectID string `json:"subject_id"`

	// RecipientID is who gets notified: the artist, or the parent comment's author.
	RecipientID string `json:"recipient_id"`

	// Invitation status changes
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// Replies
	ActorID   string `json:"actor_id,omitempty"`
	CommentID string `json:"comment_id,omitempty"`
	Text      string `json:"text,omitempty"`
}

// NewInvitationStatusChangedEvent creates an event for an observed
// transition of an artist's invitation.
func NewInvitationStatusChangedEvent(eventID, artistID, from, to string) Event {
	return Event{
		Type:        EventInvitationStatusChanged,
		Timestamp:   time.Now().Unix(),
		SubjectID:   eventID,
		RecipientID: artistID,
		From:        from,
		To:          to,
	}
}

// NewCommentRepliedEvent creates an event for a reply to someone's comment.
func NewCommentRepliedEvent(subjectID, parentAuthorID, actorID, commentID, text string) Event {
	return Event{
		Type:        EventCommentReplied,
		Timestamp:   time.Now().Unix(),
		SubjectID:   subjectID,
		RecipientID: parentAuthorID,
		ActorID:     actorID,
		CommentID:   commentID,
		Text:        text,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e Event) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseEvent parses an Event from Redis stream message values.
func ParseEvent(values map[string]interface{}) (Event, error) {
	data, ok := values["data"].(string)
	if !ok {
		return Event{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
