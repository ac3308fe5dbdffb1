package model

import (
	"errors"
	"fmt"
	"strings"
)

// Counter names used by the interaction endpoints.
const (
	CounterLikes         = "likes"
	CounterInterested    = "interested"
	CounterRSVPAttending = "rsvp.attending"
)

// MembershipCounters are counted from per-user flags; every change goes
// through a membership toggle, never a raw increment.
var MembershipCounters = []string{CounterLikes, CounterInterested, CounterRSVPAttending}

// CounterKey identifies one counter on one subject.
type CounterKey struct {
	Name      string
	SubjectID string
}

// String renders the key as "<name>/<subjectId>", e.g. "likes/a1".
func (k CounterKey) String() string {
	return k.Name + "/" + k.SubjectID
}

// ParseCounterKey parses "<name>/<subjectId>".
func ParseCounterKey(s string) (CounterKey, error) {
	name, subject, ok := strings.Cut(s, "/")
	if !ok || name == "" || subject == "" || strings.Contains(subject, "/") {
		return CounterKey{}, fmt.Errorf("%w: %q", ErrInvalidCounterKey, s)
	}
	return CounterKey{Name: name, SubjectID: subject}, nil
}

// Validate rejects keys that cannot be used as store path segments.
func (k CounterKey) Validate() error {
	if k.Name == "" || k.SubjectID == "" ||
		strings.ContainsAny(k.Name, "/#$[]") || strings.ContainsAny(k.SubjectID, "/#$[]") {
		return fmt.Errorf("%w: %q", ErrInvalidCounterKey, k.String())
	}
	return nil
}

// CounterResponse is returned by counter reads and mutations.
type CounterResponse struct {
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

// IncrementRequest is the request body for a raw counter increment.
type IncrementRequest struct {
	Delta int64 `json:"delta"`
}

// MembershipResponse reports a user's membership after a toggle.
type MembershipResponse struct {
	Counter string `json:"counter"`
	Active  bool   `json:"active"`
	Changed bool   `json:"changed"`
	Count   int64  `json:"count"`
}

// SubjectCounters maps counter name to value for one subject.
type SubjectCounters struct {
	SubjectID string           `json:"subject_id"`
	Counters  map[string]int64 `json:"counters"`
}

// Counter errors
var (
	ErrInvalidCounterKey = errors.New("invalid counter key")
	ErrMembershipCounter = errors.New("counter is maintained by membership toggles")
	ErrNotMembership     = errors.New("counter has no membership set")
	ErrUnknownCounter    = errors.New("unknown counter")
	ErrCounterNested     = errors.New("counter node holds nested counters")
)
