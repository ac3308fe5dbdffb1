package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"arthub/internal/model"
	"arthub/internal/store"
)

const deviceTokensRoot = "deviceTokens"

type deviceTokenRepository struct {
	store store.Store
}

func NewDeviceTokenRepository(s store.Store) DeviceTokenRepository {
	return &deviceTokenRepository{store: s}
}

// Upsert creates or updates a device token for a user.
func (r *deviceTokenRepository) Upsert(ctx context.Context, userID, token, platform string) error {
	rec := model.DeviceToken{Token: token, Platform: platform, UpdatedAt: time.Now().UnixMilli()}
	if err := r.store.Set(ctx, store.Join(deviceTokensRoot, userID, model.TokenKey(token)), rec); err != nil {
		return fmt.Errorf("upsert device token: %w", err)
	}
	return nil
}

// GetByUserID returns all device tokens for a user, most recently refreshed first.
func (r *deviceTokenRepository) GetByUserID(ctx context.Context, userID string) ([]model.DeviceToken, error) {
	var byKey map[string]model.DeviceToken
	if err := r.store.Get(ctx, store.Join(deviceTokensRoot, userID), &byKey); err != nil {
		return nil, fmt.Errorf("get device tokens: %w", err)
	}
	tokens := make([]model.DeviceToken, 0, len(byKey))
	for _, t := range byKey {
		if t.Token != "" {
			tokens = append(tokens, t)
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].UpdatedAt > tokens[j].UpdatedAt })
	return tokens, nil
}

// Delete removes a device token.
func (r *deviceTokenRepository) Delete(ctx context.Context, userID, token string) error {
	if err := r.store.Delete(ctx, store.Join(deviceTokensRoot, userID, model.TokenKey(token))); err != nil {
		return fmt.Errorf("delete device token: %w", err)
	}
	return nil
}
