package model

import (
	"errors"
)

// InvitationStatus is an artist's standing for an event.
type InvitationStatus string

const (
	StatusUnknown  InvitationStatus = ""
	StatusPending  InvitationStatus = "pending"
	StatusAccepted InvitationStatus = "accepted"
	StatusRejected InvitationStatus = "rejected"
)

// Valid reports whether s is a status that may be stored.
func (s InvitationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// String returns "unknown" for the zero status.
func (s InvitationStatus) String() string {
	if s == StatusUnknown {
		return "unknown"
	}
	return string(s)
}

// Invitation is one (event, artist) record at invitations/{eventId}/{artistId}.
type Invitation struct {
	EventID   string           `json:"event_id"`
	ArtistID  string           `json:"artist_id"`
	Status    InvitationStatus `json:"status"`
	UpdatedAt int64            `json:"updated_at,omitempty"`
}

// StatusChanged is emitted once per observed transition of an invitation.
type StatusChanged struct {
	SubjectID string           `json:"subject_id"` // event id
	ArtistID  string           `json:"artist_id"`
	From      InvitationStatus `json:"from"`
	To        InvitationStatus `json:"to"`
}

// DecideInvitationRequest is the admin request body for accept/reject.
type DecideInvitationRequest struct {
	Status InvitationStatus `json:"status"`
}

// InvitationListResponse lists invitations.
type InvitationListResponse struct {
	Invitations []Invitation `json:"invitations"`
}

// CheckInvitationsResponse reports the transitions found by a one-off check.
type CheckInvitationsResponse struct {
	Changes []StatusChanged `json:"changes"`
}

// Invitation errors
var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvalidStatus      = errors.New("invalid invitation status")
)
