package repository

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"arthub/internal/model"
	"arthub/internal/store"
)

const (
	countersRoot = "counters"
	membersRoot  = "members"
)

type counterRepository struct {
	store store.Store
}

func NewCounterRepository(s store.Store) CounterRepository {
	return &counterRepository{store: s}
}

// Dotted counter names nest in the store: "rsvp.attending" lives at
// counters/{subject}/rsvp/attending, since keys cannot contain dots.
func namePath(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

func counterPath(key model.CounterKey) string {
	return store.Join(countersRoot, key.SubjectID, namePath(key.Name))
}

func memberSetPath(key model.CounterKey) string {
	return store.Join(membersRoot, key.SubjectID, namePath(key.Name))
}

// asCount coerces a stored counter value. Anything that is not a finite
// number is treated as malformed and counts as zero.
func asCount(v any) (int64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

// Increment runs a compare-and-set transaction on the counter node.
func (r *counterRepository) Increment(ctx context.Context, key model.CounterKey, delta int64) (int64, error) {
	path := counterPath(key)

	node, err := r.store.Transaction(ctx, path, func(current store.Node) (any, error) {
		var raw any
		if err := current.Unmarshal(&raw); err != nil {
			return nil, fmt.Errorf("decode counter: %w", err)
		}
		if _, nested := raw.(map[string]any); nested {
			// Resetting would wipe every counter below this node.
			return nil, fmt.Errorf("%w: %s", model.ErrCounterNested, path)
		}
		value, ok := asCount(raw)
		if !ok {
			log.Printf("[CounterRepository] Malformed counter at %s: %v, resetting", path, raw)
		}
		next := value + delta
		if next < 0 {
			next = 0
		}
		return next, nil
	})
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}

	var committed int64
	if err := node.Unmarshal(&committed); err != nil {
		return 0, fmt.Errorf("decode committed counter: %w", err)
	}
	return committed, nil
}

func (r *counterRepository) Get(ctx context.Context, key model.CounterKey) (int64, error) {
	var raw any
	if err := r.store.Get(ctx, counterPath(key), &raw); err != nil {
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	value, _ := asCount(raw)
	if value < 0 {
		value = 0
	}
	return value, nil
}

// GetAll flattens counters/{subject} back into dotted names.
func (r *counterRepository) GetAll(ctx context.Context, subjectID string) (map[string]int64, error) {
	var raw map[string]any
	if err := r.store.Get(ctx, store.Join(countersRoot, subjectID), &raw); err != nil {
		return nil, fmt.Errorf("get counters: %w", err)
	}
	out := make(map[string]int64)
	flattenCounters("", raw, out)
	return out, nil
}

func flattenCounters(prefix string, node map[string]any, out map[string]int64) {
	for k, v := range node {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flattenCounters(name, child, out)
			continue
		}
		if value, ok := asCount(v); ok && value >= 0 {
			out[name] = value
		}
	}
}

func (r *counterRepository) Set(ctx context.Context, key model.CounterKey, value int64) error {
	if value < 0 {
		value = 0
	}
	if err := r.store.Set(ctx, counterPath(key), value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// SetMember flips members/{subject}/{name}/{user} in a transaction so two
// concurrent likes by the same user are seen as one change.
func (r *counterRepository) SetMember(ctx context.Context, key model.CounterKey, userID string, active bool) (bool, error) {
	path := store.Join(memberSetPath(key), userID)

	var changed bool
	_, err := r.store.Transaction(ctx, path, func(current store.Node) (any, error) {
		var was bool
		if err := current.Unmarshal(&was); err != nil {
			was = false
		}
		changed = was != active
		if !active {
			return nil, nil
		}
		return true, nil
	})
	if err != nil {
		return false, fmt.Errorf("set member %s/%s: %w", key, userID, err)
	}
	return changed, nil
}

func (r *counterRepository) IsMember(ctx context.Context, key model.CounterKey, userID string) (bool, error) {
	var active bool
	if err := r.store.Get(ctx, store.Join(memberSetPath(key), userID), &active); err != nil {
		return false, fmt.Errorf("get member %s/%s: %w", key, userID, err)
	}
	return active, nil
}

func (r *counterRepository) CountMembers(ctx context.Context, key model.CounterKey) (int64, error) {
	var members map[string]any
	if err := r.store.Get(ctx, memberSetPath(key), &members); err != nil {
		return 0, fmt.Errorf("get members %s: %w", key, err)
	}
	var n int64
	for _, v := range members {
		if v == true {
			n++
		}
	}
	return n, nil
}
