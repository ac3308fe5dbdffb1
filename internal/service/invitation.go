package service

import (
	"context"
	"log"
	"time"

	"arthub/internal/model"
	"arthub/internal/repository"
)

// InvitationService manages artist applications to events and watches
// their status for decisions.
type InvitationService struct {
	invRepo      repository.InvitationRepository
	coordinator  *StatusCoordinator
	pollInterval time.Duration
}

func NewInvitationService(invRepo repository.InvitationRepository, coordinator *StatusCoordinator, pollInterval time.Duration) *InvitationService {
	return &InvitationService{
		invRepo:      invRepo,
		coordinator:  coordinator,
		pollInterval: pollInterval,
	}
}

// Apply creates a pending invitation. Applying twice keeps the existing
// invitation and its status; created reports whether a new one was made.
func (s *InvitationService) Apply(ctx context.Context, eventID, artistID string) (*model.Invitation, bool, error) {
	if eventID == "" || artistID == "" {
		return nil, false, model.ErrSubjectRequired
	}

	inv, created, err := s.invRepo.Create(ctx, eventID, artistID)
	if err != nil {
		return nil, false, err
	}
	if created {
		log.Printf("[InvitationService] Artist %s applied to event %s", artistID, eventID)
	}
	return inv, created, nil
}

// Decide records an admin's accept/reject on an existing invitation.
func (s *InvitationService) Decide(ctx context.Context, eventID, artistID string, status model.InvitationStatus) (*model.Invitation, error) {
	if status != model.StatusAccepted && status != model.StatusRejected {
		return nil, model.ErrInvalidStatus
	}
	if eventID == "" || artistID == "" {
		return nil, model.ErrSubjectRequired
	}

	inv, err := s.invRepo.UpdateStatus(ctx, eventID, artistID, status)
	if err != nil {
		return nil, err
	}
	log.Printf("[InvitationService] Invitation event=%s artist=%s set to %s", eventID, artistID, status)
	return inv, nil
}

func (s *InvitationService) ListForArtist(ctx context.Context, artistID string) ([]model.Invitation, error) {
	return s.invRepo.ListByArtist(ctx, artistID)
}

func (s *InvitationService) ListForEvent(ctx context.Context, eventID string) ([]model.Invitation, error) {
	if eventID == "" {
		return nil, model.ErrSubjectRequired
	}
	return s.invRepo.ListByEvent(ctx, eventID)
}

// CheckOnce reads the artist's invitations a single time and reports the
// transitions since the last observation.
func (s *InvitationService) CheckOnce(ctx context.Context, artistID string) ([]model.StatusChanged, error) {
	invitations, err := s.invRepo.ListByArtist(ctx, artistID)
	if err != nil {
		return nil, err
	}
	return s.coordinator.ObserveAll(ctx, invitations)
}

// Watch keeps observing one artist's invitations until ctx is done.
func (s *InvitationService) Watch(ctx context.Context, artistID string) error {
	return s.watch(ctx, func(inv model.Invitation) bool { return inv.ArtistID == artistID })
}

// WatchAll keeps observing every invitation until ctx is done. The server
// runs it in the background so decisions notify artists who are offline.
func (s *InvitationService) WatchAll(ctx context.Context) error {
	return s.watch(ctx, func(model.Invitation) bool { return true })
}

func (s *InvitationService) watch(ctx context.Context, keep func(model.Invitation) bool) error {
	return s.invRepo.Watch(ctx, s.pollInterval, func(ctx context.Context, invitations []model.Invitation) error {
		selected := make([]model.Invitation, 0, len(invitations))
		for _, inv := range invitations {
			if keep(inv) {
				selected = append(selected, inv)
			}
		}
		// Failures are retried by the next change; the watch keeps running.
		if _, err := s.coordinator.ObserveAll(ctx, selected); err != nil {
			log.Printf("[InvitationService] Watch observe FAILED: %v", err)
		}
		return nil
	})
}
