// Package store is the narrow view of the realtime database the rest of the
// service depends on: read a subtree, write a value, run an optimistic
// transaction at a path and poll a subtree for changes.
package store

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrTransient wraps network/availability failures and transactions that
	// exhausted their retries. Callers surface it; nothing retries it.
	ErrTransient = errors.New("store unavailable")

	// ErrTxnExhausted is joined with ErrTransient when optimistic retries run out.
	ErrTxnExhausted = errors.New("transaction aborted after failed retries")
)

// DefaultTxnRetries matches the Firebase Admin SDK retry budget.
const DefaultTxnRetries = 25

// ServerTimestamp is the placeholder the database replaces with its own clock
// at write time.
var ServerTimestamp = map[string]any{".sv": "timestamp"}

// Node is the current value handed to a transaction function.
type Node interface {
	Unmarshal(v any) error
}

// UpdateFn computes the new value of a node from its current value. Returning
// an error aborts the transaction and the error is passed through unchanged.
type UpdateFn func(current Node) (any, error)

// Store is implemented by the Firebase Realtime Database client and by Memory.
//
// Reads of an absent path leave v untouched.
type Store interface {
	Get(ctx context.Context, path string, v any) error
	GetWithETag(ctx context.Context, path string, v any) (string, error)
	GetIfChanged(ctx context.Context, path, etag string, v any) (changed bool, newETag string, err error)
	Set(ctx context.Context, path string, v any) error
	Update(ctx context.Context, path string, fields map[string]any) error
	Push(ctx context.Context, path string, v any) (key string, err error)
	Delete(ctx context.Context, path string) error
	Transaction(ctx context.Context, path string, fn UpdateFn) (Node, error)
	QueryEqual(ctx context.Context, path, child string, value any, v any) error
}

// Join builds a slash separated path, ignoring empty segments.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// IsTransient reports whether err came from the store being unavailable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
