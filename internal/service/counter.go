package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"arthub/internal/model"
	"arthub/internal/repository"
)

// CounterService maintains interaction counters. Every counter name uses
// exactly one mechanism: names registered as membership counters change only
// through SetMembership, everything else through IncrementCounter.
type CounterService struct {
	counterRepo repository.CounterRepository
	membership  map[string]bool
}

// NewCounterService registers the given counter names as membership counters.
func NewCounterService(counterRepo repository.CounterRepository, membership ...string) *CounterService {
	m := make(map[string]bool, len(membership))
	for _, name := range membership {
		m[name] = true
	}
	return &CounterService{counterRepo: counterRepo, membership: m}
}

// IsMembershipCounter reports whether name is maintained by membership toggles.
func (s *CounterService) IsMembershipCounter(name string) bool {
	return s.membership[name]
}

// overlapsMembership reports whether name shares a store node with a
// membership counter: "rsvp" is the parent of "rsvp.attending", and
// "likes.x" would live inside "likes".
func (s *CounterService) overlapsMembership(name string) bool {
	for m := range s.membership {
		if strings.HasPrefix(m, name+".") || strings.HasPrefix(name, m+".") {
			return true
		}
	}
	return false
}

// IncrementCounter atomically adds delta to a raw counter and returns the
// committed value. The value never goes below zero.
func (s *CounterService) IncrementCounter(ctx context.Context, key model.CounterKey, delta int64) (int64, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}
	if s.membership[key.Name] || s.overlapsMembership(key.Name) {
		return 0, fmt.Errorf("%w: %s", model.ErrMembershipCounter, key)
	}
	// A dotted raw name nests under another counter's node, e.g. "views.today"
	// would turn counters/{s}/views into a map.
	if strings.Contains(key.Name, ".") {
		return 0, fmt.Errorf("%w: raw counter %q cannot be nested", model.ErrInvalidCounterKey, key.Name)
	}

	value, err := s.counterRepo.Increment(ctx, key, delta)
	if err != nil {
		log.Printf("[CounterService] Increment %s by %d FAILED: %v", key, delta, err)
		return 0, err
	}
	return value, nil
}

// CounterValue reads the current value of a counter.
func (s *CounterService) CounterValue(ctx context.Context, key model.CounterKey) (int64, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}
	return s.counterRepo.Get(ctx, key)
}

// Counts returns every counter of a subject, by name.
func (s *CounterService) Counts(ctx context.Context, subjectID string) (*model.SubjectCounters, error) {
	if subjectID == "" {
		return nil, model.ErrSubjectRequired
	}
	counters, err := s.counterRepo.GetAll(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return &model.SubjectCounters{SubjectID: subjectID, Counters: counters}, nil
}

// SetMembership marks userID as a member (or not) of a membership counter and
// moves the counter by one only when the membership actually changed, so a
// double like counts once. If the counter write fails the flag is put back.
func (s *CounterService) SetMembership(ctx context.Context, key model.CounterKey, userID string, active bool) (*model.MembershipResponse, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if !s.membership[key.Name] {
		return nil, fmt.Errorf("%w: %s", model.ErrNotMembership, key.Name)
	}

	changed, err := s.counterRepo.SetMember(ctx, key, userID, active)
	if err != nil {
		return nil, err
	}

	resp := &model.MembershipResponse{Counter: key.String(), Active: active, Changed: changed}
	if !changed {
		count, err := s.counterRepo.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		resp.Count = count
		return resp, nil
	}

	delta := int64(1)
	if !active {
		delta = -1
	}
	count, err := s.counterRepo.Increment(ctx, key, delta)
	if err != nil {
		log.Printf("[CounterService] Counter %s failed after member flip, reverting user=%s: %v", key, userID, err)
		if _, revertErr := s.counterRepo.SetMember(ctx, key, userID, !active); revertErr != nil {
			log.Printf("[CounterService] Revert FAILED for %s user=%s, needs reconcile: %v", key, userID, revertErr)
			return nil, errors.Join(err, revertErr)
		}
		return nil, err
	}

	log.Printf("[CounterService] User %s set %s active=%t, count=%d", userID, key, active, count)
	resp.Count = count
	return resp, nil
}

// IsMember reports whether userID is currently counted in a membership counter.
func (s *CounterService) IsMember(ctx context.Context, key model.CounterKey, userID string) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}
	if !s.membership[key.Name] {
		return false, fmt.Errorf("%w: %s", model.ErrNotMembership, key.Name)
	}
	return s.counterRepo.IsMember(ctx, key, userID)
}

// Reconcile recomputes a membership counter from its member flags and
// stores the result.
func (s *CounterService) Reconcile(ctx context.Context, key model.CounterKey) (int64, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}
	if !s.membership[key.Name] {
		return 0, fmt.Errorf("%w: %s", model.ErrNotMembership, key.Name)
	}

	count, err := s.counterRepo.CountMembers(ctx, key)
	if err != nil {
		return 0, err
	}
	if err := s.counterRepo.Set(ctx, key, count); err != nil {
		return 0, err
	}
	log.Printf("[CounterService] Reconciled %s to %d", key, count)
	return count, nil
}
