package store

import (
	"context"
	"log"
	"time"
)

// DefaultPollInterval is used when Watch is given a non-positive interval.
const DefaultPollInterval = 5 * time.Second

// Watch subscribes to the subtree at path by polling with ETags. onChange
// receives the first snapshot and then every snapshot that differs from the
// previous one. Read failures are logged and retried on the next tick.
// Watch returns when ctx is done or onChange returns an error.
func Watch(ctx context.Context, s Store, path string, interval time.Duration, onChange func(ctx context.Context, snapshot map[string]any) error) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	etag := ""
	for {
		var snapshot map[string]any
		changed, next, err := s.GetIfChanged(ctx, path, etag, &snapshot)
		switch {
		case err != nil:
			log.Printf("[Watch] Poll FAILED: path=%s err=%v", path, err)
		case changed:
			etag = next
			if err := onChange(ctx, snapshot); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
