package cache

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"arthub/internal/model"
)

const (
	// StatusCachePrefix is the key prefix for an artist's last observed statuses
	StatusCachePrefix = "invitation:last:"

	// StatusCacheTTL bounds how long an idle artist's cache is kept (90 days).
	// An expired cache only means the next observation is treated as the first.
	StatusCacheTTL = 90 * 24 * time.Hour
)

// StatusCache remembers the last invitation status observed per event for
// each artist. It only exists to detect transitions and is never shown to
// anyone.
type StatusCache interface {
	// Get returns StatusUnknown when nothing was observed yet.
	Get(ctx context.Context, artistID, eventID string) (model.InvitationStatus, error)

	// Set records status as the last observed one and refreshes the TTL.
	Set(ctx context.Context, artistID, eventID string, status model.InvitationStatus) error

	// All returns every event's last observed status for an artist.
	All(ctx context.Context, artistID string) (map[string]model.InvitationStatus, error)
}

// RedisStatusCache stores one hash per artist: field = event id, value = status.
type RedisStatusCache struct {
	client *redis.Client
}

// NewStatusCache creates a StatusCache backed by Redis hashes.
func NewStatusCache(client *redis.Client) StatusCache {
	return &RedisStatusCache{client: client}
}

func statusKey(artistID string) string {
	return StatusCachePrefix + artistID
}

func (c *RedisStatusCache) Get(ctx context.Context, artistID, eventID string) (model.InvitationStatus, error) {
	value, err := c.client.HGet(ctx, statusKey(artistID), eventID).Result()
	if err == redis.Nil {
		return model.StatusUnknown, nil
	}
	if err != nil {
		log.Printf("[StatusCache] Get FAILED: artist=%s event=%s err=%v", artistID, eventID, err)
		return model.StatusUnknown, fmt.Errorf("hget: %w", err)
	}
	return model.InvitationStatus(value), nil
}

// Set uses a pipeline: HSET + EXPIRE (refresh TTL).
func (c *RedisStatusCache) Set(ctx context.Context, artistID, eventID string, status model.InvitationStatus) error {
	key := statusKey(artistID)

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, eventID, string(status))
	pipe.Expire(ctx, key, StatusCacheTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[StatusCache] Set FAILED: artist=%s event=%s status=%s err=%v", artistID, eventID, status, err)
		return fmt.Errorf("pipeline exec: %w", err)
	}
	return nil
}

func (c *RedisStatusCache) All(ctx context.Context, artistID string) (map[string]model.InvitationStatus, error) {
	values, err := c.client.HGetAll(ctx, statusKey(artistID)).Result()
	if err != nil {
		log.Printf("[StatusCache] All FAILED: artist=%s err=%v", artistID, err)
		return nil, fmt.Errorf("hgetall: %w", err)
	}
	out := make(map[string]model.InvitationStatus, len(values))
	for eventID, v := range values {
		out[eventID] = model.InvitationStatus(v)
	}
	return out, nil
}

// MemoryStatusCache keeps statuses in process memory. Used when Redis is
// not configured; the cache is lost on restart.
type MemoryStatusCache struct {
	mu       sync.RWMutex
	byArtist map[string]map[string]model.InvitationStatus
}

func NewMemoryStatusCache() *MemoryStatusCache {
	return &MemoryStatusCache{byArtist: make(map[string]map[string]model.InvitationStatus)}
}

func (c *MemoryStatusCache) Get(_ context.Context, artistID, eventID string) (model.InvitationStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byArtist[artistID][eventID], nil
}

func (c *MemoryStatusCache) Set(_ context.Context, artistID, eventID string, status model.InvitationStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	events, ok := c.byArtist[artistID]
	if !ok {
		events = make(map[string]model.InvitationStatus)
		c.byArtist[artistID] = events
	}
	events[eventID] = status
	return nil
}

func (c *MemoryStatusCache) All(_ context.Context, artistID string) (map[string]model.InvitationStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]model.InvitationStatus, len(c.byArtist[artistID]))
	for k, v := range c.byArtist[artistID] {
		out[k] = v
	}
	return out, nil
}
