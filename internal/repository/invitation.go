package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"arthub/internal/model"
	"arthub/internal/store"
)

const invitationsRoot = "invitations"

type invitationRepository struct {
	store store.Store
}

func NewInvitationRepository(s store.Store) InvitationRepository {
	return &invitationRepository{store: s}
}

// invitationRecord is the stored shape at invitations/{eventId}/{artistId}.
type invitationRecord struct {
	Status    model.InvitationStatus `json:"status"`
	UpdatedAt any                    `json:"updatedAt,omitempty"`
}

func invitationPath(eventID, artistID string) string {
	return store.Join(invitationsRoot, eventID, artistID)
}

func toInvitation(eventID, artistID string, rec invitationRecord) model.Invitation {
	updated, _ := asCount(rec.UpdatedAt)
	return model.Invitation{
		EventID:   eventID,
		ArtistID:  artistID,
		Status:    rec.Status,
		UpdatedAt: updated,
	}
}

// Create writes a pending invitation only if the slot is empty.
func (r *invitationRepository) Create(ctx context.Context, eventID, artistID string) (*model.Invitation, bool, error) {
	var created bool
	node, err := r.store.Transaction(ctx, invitationPath(eventID, artistID), func(current store.Node) (any, error) {
		var rec invitationRecord
		if err := current.Unmarshal(&rec); err == nil && rec.Status != model.StatusUnknown {
			created = false
			return rec, nil
		}
		created = true
		return invitationRecord{Status: model.StatusPending, UpdatedAt: store.ServerTimestamp}, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("create invitation: %w", err)
	}

	var rec invitationRecord
	if err := node.Unmarshal(&rec); err != nil {
		return nil, false, fmt.Errorf("decode invitation: %w", err)
	}
	inv := toInvitation(eventID, artistID, rec)
	return &inv, created, nil
}

var errNoInvitation = errors.New("no invitation")

// UpdateStatus changes an existing invitation's status.
func (r *invitationRepository) UpdateStatus(ctx context.Context, eventID, artistID string, status model.InvitationStatus) (*model.Invitation, error) {
	node, err := r.store.Transaction(ctx, invitationPath(eventID, artistID), func(current store.Node) (any, error) {
		var rec invitationRecord
		if err := current.Unmarshal(&rec); err != nil || rec.Status == model.StatusUnknown {
			return nil, errNoInvitation
		}
		rec.Status = status
		rec.UpdatedAt = store.ServerTimestamp
		return rec, nil
	})
	if errors.Is(err, errNoInvitation) {
		return nil, model.ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update invitation: %w", err)
	}

	var rec invitationRecord
	if err := node.Unmarshal(&rec); err != nil {
		return nil, fmt.Errorf("decode invitation: %w", err)
	}
	inv := toInvitation(eventID, artistID, rec)
	return &inv, nil
}

func (r *invitationRepository) Get(ctx context.Context, eventID, artistID string) (*model.Invitation, error) {
	var rec invitationRecord
	if err := r.store.Get(ctx, invitationPath(eventID, artistID), &rec); err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	if rec.Status == model.StatusUnknown {
		return nil, model.ErrInvitationNotFound
	}
	inv := toInvitation(eventID, artistID, rec)
	return &inv, nil
}

func (r *invitationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Invitation, error) {
	var byArtist map[string]any
	if err := r.store.Get(ctx, store.Join(invitationsRoot, eventID), &byArtist); err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return InvitationsFromSnapshot(map[string]any{eventID: byArtist}), nil
}

// ListByArtist scans the whole tree; invitations are keyed by event first.
func (r *invitationRepository) ListByArtist(ctx context.Context, artistID string) ([]model.Invitation, error) {
	var snapshot map[string]any
	if err := r.store.Get(ctx, invitationsRoot, &snapshot); err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return filterArtist(InvitationsFromSnapshot(snapshot), artistID), nil
}

func (r *invitationRepository) Watch(ctx context.Context, interval time.Duration, fn func(ctx context.Context, invitations []model.Invitation) error) error {
	return store.Watch(ctx, r.store, invitationsRoot, interval, func(ctx context.Context, snapshot map[string]any) error {
		return fn(ctx, InvitationsFromSnapshot(snapshot))
	})
}

func filterArtist(all []model.Invitation, artistID string) []model.Invitation {
	out := make([]model.Invitation, 0)
	for _, inv := range all {
		if inv.ArtistID == artistID {
			out = append(out, inv)
		}
	}
	return out
}

// InvitationsFromSnapshot flattens invitations/{eventId}/{artistId} into a
// list ordered by event then artist. Records without a status are skipped.
func InvitationsFromSnapshot(snapshot map[string]any) []model.Invitation {
	out := make([]model.Invitation, 0)
	for eventID, raw := range snapshot {
		byArtist, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for artistID, rawRec := range byArtist {
			rec, ok := rawRec.(map[string]any)
			if !ok {
				continue
			}
			status, _ := rec["status"].(string)
			if status == "" {
				continue
			}
			updated, _ := asCount(rec["updatedAt"])
			out = append(out, model.Invitation{
				EventID:   eventID,
				ArtistID:  artistID,
				Status:    model.InvitationStatus(status),
				UpdatedAt: updated,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventID != out[j].EventID {
			return out[i].EventID < out[j].EventID
		}
		return out[i].ArtistID < out[j].ArtistID
	})
	return out
}
