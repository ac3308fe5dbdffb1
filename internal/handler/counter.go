package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"arthub/internal/httputil"
	"arthub/internal/model"
	"arthub/internal/service"
	"arthub/internal/store"
	"arthub/internal/transport/http/middleware"
)

type CounterHandler struct {
	counterService *service.CounterService
}

func NewCounterHandler(counterService *service.CounterService) *CounterHandler {
	return &CounterHandler{counterService: counterService}
}

// List handles GET /subjects/{id}/counters
func (h *CounterHandler) List(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "id")

	counts, err := h.counterService.Counts(r.Context(), subjectID)
	if err != nil {
		h.writeError(w, "List counters", subjectID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, counts)
}

// Increment handles POST /counters/{name}/{subject}/increment.
// An empty body increments by one.
func (h *CounterHandler) Increment(w http.ResponseWriter, r *http.Request) {
	key := model.CounterKey{Name: chi.URLParam(r, "name"), SubjectID: chi.URLParam(r, "subject")}

	req := model.IncrementRequest{Delta: 1}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Delta == 0 {
		httputil.WriteBadRequest(w, "delta must not be zero")
		return
	}

	value, err := h.counterService.IncrementCounter(r.Context(), key, req.Delta)
	if err != nil {
		h.writeError(w, "Increment counter", key.String(), err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.CounterResponse{Key: key.String(), Value: value})
}

// Member handles GET /subjects/{id}/members/{name}
func (h *CounterHandler) Member(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	key := model.CounterKey{Name: chi.URLParam(r, "name"), SubjectID: chi.URLParam(r, "id")}

	active, err := h.counterService.IsMember(r.Context(), key, identity.UserID)
	if err != nil {
		h.writeError(w, "Get membership", key.String(), err)
		return
	}
	count, err := h.counterService.CounterValue(r.Context(), key)
	if err != nil {
		h.writeError(w, "Get membership", key.String(), err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.MembershipResponse{Counter: key.String(), Active: active, Count: count})
}

// Join handles PUT /subjects/{id}/members/{name} (like, interested, attending)
func (h *CounterHandler) Join(w http.ResponseWriter, r *http.Request) {
	h.setMembership(w, r, true)
}

// Leave handles DELETE /subjects/{id}/members/{name}
func (h *CounterHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.setMembership(w, r, false)
}

func (h *CounterHandler) setMembership(w http.ResponseWriter, r *http.Request, active bool) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	key := model.CounterKey{Name: chi.URLParam(r, "name"), SubjectID: chi.URLParam(r, "id")}

	res, err := h.counterService.SetMembership(r.Context(), key, identity.UserID, active)
	if err != nil {
		h.writeError(w, "Set membership", key.String(), err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// Reconcile handles POST /counters/{name}/{subject}/reconcile (admin only).
// Recounts a membership counter from its member flags.
func (h *CounterHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	key := model.CounterKey{Name: chi.URLParam(r, "name"), SubjectID: chi.URLParam(r, "subject")}

	value, err := h.counterService.Reconcile(r.Context(), key)
	if err != nil {
		h.writeError(w, "Reconcile counter", key.String(), err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.CounterResponse{Key: key.String(), Value: value})
}

func (h *CounterHandler) writeError(w http.ResponseWriter, op, key string, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidCounterKey), errors.Is(err, model.ErrSubjectRequired):
		httputil.WriteBadRequest(w, "Invalid counter")
	case errors.Is(err, model.ErrMembershipCounter), errors.Is(err, model.ErrCounterNested):
		httputil.WriteConflict(w, "This counter changes through membership only")
	case errors.Is(err, model.ErrNotMembership):
		httputil.WriteNotFound(w, "Counter has no members")
	case store.IsTransient(err):
		httputil.WriteServiceUnavailable(w, "Counters are temporarily unavailable, please try again")
	default:
		log.Printf("[ERROR] %s handler: key=%s err=%v", op, key, err)
		httputil.WriteInternalError(w, "Failed to update counter")
	}
}
