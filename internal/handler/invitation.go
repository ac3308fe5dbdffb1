package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"arthub/internal/httputil"
	"arthub/internal/model"
	"arthub/internal/service"
	"arthub/internal/store"
	"arthub/internal/transport/http/middleware"
)

type InvitationHandler struct {
	invitationService *service.InvitationService
}

func NewInvitationHandler(invitationService *service.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

// Apply handles POST /events/{id}/invitations
// The calling artist applies to perform at the event.
func (h *InvitationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	eventID := chi.URLParam(r, "id")

	inv, created, err := h.invitationService.Apply(r.Context(), eventID, identity.UserID)
	if err != nil {
		writeInvitationError(w, "Apply", eventID, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, inv)
}

// Decide handles PUT /events/{id}/invitations/{artist} (admin only)
func (h *InvitationHandler) Decide(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	artistID := chi.URLParam(r, "artist")

	var req model.DecideInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	inv, err := h.invitationService.Decide(r.Context(), eventID, artistID, req.Status)
	if err != nil {
		writeInvitationError(w, "Decide", eventID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inv)
}

// ListForEvent handles GET /events/{id}/invitations (admin only)
func (h *InvitationHandler) ListForEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	invitations, err := h.invitationService.ListForEvent(r.Context(), eventID)
	if err != nil {
		writeInvitationError(w, "List event invitations", eventID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.InvitationListResponse{Invitations: invitations})
}

// ListMine handles GET /me/invitations
func (h *InvitationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	invitations, err := h.invitationService.ListForArtist(r.Context(), identity.UserID)
	if err != nil {
		writeInvitationError(w, "List my invitations", identity.UserID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.InvitationListResponse{Invitations: invitations})
}

// CheckMine handles POST /me/invitations/check
// Compares the caller's invitations with the last observed statuses and
// returns the transitions; each one is notified exactly once.
func (h *InvitationHandler) CheckMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	changes, err := h.invitationService.CheckOnce(r.Context(), identity.UserID)
	if err != nil {
		writeInvitationError(w, "Check invitations", identity.UserID, err)
		return
	}
	if changes == nil {
		changes = []model.StatusChanged{}
	}
	httputil.WriteJSON(w, http.StatusOK, model.CheckInvitationsResponse{Changes: changes})
}

func writeInvitationError(w http.ResponseWriter, op, subject string, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidStatus):
		httputil.WriteBadRequest(w, "Status must be accepted or rejected")
	case errors.Is(err, model.ErrSubjectRequired):
		httputil.WriteBadRequest(w, "Event and artist are required")
	case errors.Is(err, model.ErrInvitationNotFound):
		httputil.WriteNotFound(w, "Invitation not found")
	case store.IsTransient(err):
		httputil.WriteServiceUnavailable(w, "Invitations are temporarily unavailable, please try again")
	default:
		log.Printf("[ERROR] %s handler: subject=%s err=%v", op, subject, err)
		httputil.WriteInternalError(w, "Failed to process invitation")
	}
}
