package queue

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is one stream entry. Err is set when the entry could not be
// decoded; such entries are still handed out so they can be acknowledged
// instead of sitting in the pending list forever.
type Message struct {
	ID    string // e.g. "1702000000000-0"
	Event Event
	Err   error
}

// Consumer reads events as a member of a consumer group.
type Consumer interface {
	// EnsureGroup creates the group (and the stream) if missing.
	EnsureGroup(ctx context.Context, stream, group string) error

	// Read returns entries never delivered to any consumer.
	// count: max entries per call
	// block: how long to wait for new entries (0 = forever)
	Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error)

	// ReadPending returns entries delivered to consumer but never acknowledged.
	// Called at startup to recover work that was in flight when a worker died.
	ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error)

	// Ack removes entries from the group's pending entries list (PEL).
	Ack(ctx context.Context, stream, group string, messageIDs ...string) error

	// Pending counts the group's unacknowledged entries.
	Pending(ctx context.Context, stream, group string) (int64, error)
}

// RedisConsumer implements Consumer on Redis Streams.
type RedisConsumer struct {
	client *redis.Client
}

func NewConsumer(client *redis.Client) Consumer {
	return &RedisConsumer{client: client}
}

// EnsureGroup starts new groups at "0" so events published before the first
// worker came up are still delivered.
func (c *RedisConsumer) EnsureGroup(ctx context.Context, stream, group string) error {
	// XGROUP CREATE stream group 0 MKSTREAM
	// "0" = deliver from the start of the stream
	// MKSTREAM = create the stream if nothing was published yet
	err := c.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	switch {
	case err == nil:
		log.Printf("[Consumer] EnsureGroup OK: stream=%s group=%s (created)", stream, group)
		return nil
	case strings.HasPrefix(err.Error(), "BUSYGROUP"):
		// Group already exists; its last-delivered id is kept.
		log.Printf("[Consumer] EnsureGroup: stream=%s group=%s (already exists)", stream, group)
		return nil
	default:
		log.Printf("[Consumer] EnsureGroup FAILED: stream=%s group=%s err=%v", stream, group, err)
		return fmt.Errorf("create consumer group %s: %w", group, err)
	}
}

// Read uses XREADGROUP with ">", which hands out only entries no consumer in
// the group has seen and moves them into this consumer's PEL.
func (c *RedisConsumer) Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error) {
	return c.readGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	})
}

// ReadPending uses XREADGROUP with "0" instead of ">": Redis then replays this
// consumer's own PEL from the beginning rather than new entries.
func (c *RedisConsumer) ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error) {
	return c.readGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, "0"},
		Count:    count,
		Block:    -1, // omit BLOCK; history reads never wait
	})
}

// readGroup runs XREADGROUP GROUP group consumer [COUNT n] [BLOCK ms] STREAMS stream id.
func (c *RedisConsumer) readGroup(ctx context.Context, args *redis.XReadGroupArgs) ([]Message, error) {
	startTime := time.Now()

	streams, err := c.client.XReadGroup(ctx, args).Result()
	if err == redis.Nil {
		// BLOCK timed out, or the PEL is empty
		return nil, nil
	}
	if err != nil {
		log.Printf("[Consumer] Read FAILED: stream=%s id=%s consumer=%s err=%v", args.Streams[0], args.Streams[1], args.Consumer, err)
		return nil, fmt.Errorf("xreadgroup %s (%s): %w", args.Streams[0], args.Streams[1], err)
	}

	var messages []Message
	for _, s := range streams {
		for _, entry := range s.Messages {
			event, err := ParseEvent(entry.Values)
			if err != nil {
				// Still returned so the worker can XACK it.
				log.Printf("[Consumer] Parse error: msgID=%s err=%v", entry.ID, err)
				err = fmt.Errorf("entry %s: %w", entry.ID, err)
			}
			messages = append(messages, Message{ID: entry.ID, Event: event, Err: err})
		}
	}

	if len(messages) > 0 {
		log.Printf("[Consumer] Read OK: stream=%s id=%s consumer=%s count=%d duration=%v",
			args.Streams[0], args.Streams[1], args.Consumer, len(messages), time.Since(startTime))
	}
	return messages, nil
}

func (c *RedisConsumer) Ack(ctx context.Context, stream, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	// XACK stream group id [id ...]; acked counts ids that were still pending.
	acked, err := c.client.XAck(ctx, stream, group, messageIDs...).Result()
	if err != nil {
		log.Printf("[Consumer] Ack FAILED: stream=%s group=%s ids=%v err=%v", stream, group, messageIDs, err)
		return fmt.Errorf("xack %v: %w", messageIDs, err)
	}
	log.Printf("[Consumer] Ack OK: stream=%s group=%s acked=%d", stream, group, acked)
	return nil
}

// Pending reads the XPENDING summary; Count covers every consumer in the group.
func (c *RedisConsumer) Pending(ctx context.Context, stream, group string) (int64, error) {
	info, err := c.client.XPending(ctx, stream, group).Result()
	if err != nil {
		return 0, fmt.Errorf("xpending: %w", err)
	}
	return info.Count, nil
}
