package queue

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher defines the interface for publishing events to a stream.
type Publisher interface {
	// Publish adds an event to the specified stream.
	// Returns the message ID assigned by Redis.
	Publish(ctx context.Context, stream string, event Event) (messageID string, err error)
}

// RedisPublisher implements Publisher using Redis Streams.
type RedisPublisher struct {
	client *redis.Client
}

// NewPublisher creates a new Publisher backed by Redis Streams.
func NewPublisher(client *redis.Client) Publisher {
	return &RedisPublisher{client: client}
}

// Publish adds an event to the stream using XADD with an auto-generated id.
func (p *RedisPublisher) Publish(ctx context.Context, stream string, event Event) (string, error) {
	startTime := time.Now()

	values, err := event.ToMap()
	if err != nil {
		log.Printf("[Publisher] Publish FAILED: stream=%s type=%s err=%v", stream, event.Type, err)
		return "", fmt.Errorf("serialize event: %w", err)
	}

	messageID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
	if err != nil {
		log.Printf("[Publisher] Publish FAILED: stream=%s type=%s err=%v", stream, event.Type, err)
		return "", fmt.Errorf("xadd to stream: %w", err)
	}

	log.Printf("[Publisher] Publish OK: stream=%s type=%s msgID=%s duration=%v",
		stream, event.Type, messageID, time.Since(startTime))

	switch event.Type {
	case EventInvitationStatusChanged:
		log.Printf("[Publisher]   -> event=%s artist=%s %s->%s", event.SubjectID, event.RecipientID, event.From, event.To)
	case EventCommentReplied:
		log.Printf("[Publisher]   -> subject=%s comment=%s recipient=%s", event.SubjectID, event.CommentID, event.RecipientID)
	}

	return messageID, nil
}

// InlinePublisher hands events straight to a handler in the caller's
// goroutine. Used when Redis is not configured.
type InlinePublisher struct {
	handle func(ctx context.Context, event Event) error
	seq    atomic.Int64
}

// NewInlinePublisher creates a Publisher that calls handle for every event.
func NewInlinePublisher(handle func(ctx context.Context, event Event) error) *InlinePublisher {
	return &InlinePublisher{handle: handle}
}

func (p *InlinePublisher) Publish(ctx context.Context, stream string, event Event) (string, error) {
	id := "inline-" + strconv.FormatInt(p.seq.Add(1), 10)
	if err := p.handle(ctx, event); err != nil {
		log.Printf("[Publisher] Inline handle FAILED: stream=%s type=%s err=%v", stream, event.Type, err)
		return "", err
	}
	return id, nil
}
