package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"arthub/internal/httputil"
	"arthub/internal/model"
	"arthub/internal/service"
	"arthub/internal/transport/http/middleware"
)

// NotificationHandler serves the caller's notification inbox and the device
// tokens push delivery fans out to. Every route requires authentication.
type NotificationHandler struct {
	notifService *service.NotificationService
}

func NewNotificationHandler(notifService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notifService: notifService,
	}
}

// List handles GET /notifications
// Query params: limit (default 20, capped at 50 by the service)
// Returns newest first, with the caller's unread count.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	limit := 20 // default
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			httputil.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	notifications, err := h.notifService.GetNotifications(r.Context(), identity.UserID, limit)
	if err != nil {
		log.Printf("[ERROR] List notifications: user=%s err=%v", identity.UserID, err)
		httputil.WriteInternalError(w, "Failed to get notifications")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, notifications)
}

// MarkRead handles PATCH /notifications/read
// Body: {"notification_ids": [1, 2]}
// Marks the listed notifications as read, or all of them when the list is
// empty or the body is missing. Ids owned by other users are ignored.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := h.notifService.MarkAsRead(r.Context(), identity.UserID, req.NotificationIDs); err != nil {
		log.Printf("[ERROR] Mark notifications read: user=%s err=%v", identity.UserID, err)
		httputil.WriteInternalError(w, "Failed to mark notifications as read")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Notifications marked as read",
	})
}

// GetUnreadCount handles GET /notifications/unread-count
// Returns {"unread_count": n}; clients poll this for the badge.
func (h *NotificationHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	count, err := h.notifService.GetUnreadCount(r.Context(), identity.UserID)
	if err != nil {
		log.Printf("[ERROR] Get unread count: user=%s err=%v", identity.UserID, err)
		httputil.WriteInternalError(w, "Failed to get unread count")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]int{
		"unread_count": count,
	})
}

// RegisterToken handles POST /notifications/devices
// Body: {"token": "...", "platform": "android"}
// Re-registering a known token refreshes its timestamp.
func (h *NotificationHandler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	err := h.notifService.RegisterDeviceToken(r.Context(), identity.UserID, req.Token, req.Platform)
	if err != nil {
		if errors.Is(err, model.ErrTokenRequired) {
			httputil.WriteBadRequest(w, "token is required")
			return
		}
		log.Printf("[ERROR] Register device token: user=%s err=%v", identity.UserID, err)
		httputil.WriteInternalError(w, "Failed to register device token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Device token registered",
	})
}

// RemoveToken handles DELETE /notifications/devices
// Body: {"token": "..."}
// Removes a device token (e.g., on logout). Unknown tokens are not an error.
func (h *NotificationHandler) RemoveToken(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	err := h.notifService.RemoveDeviceToken(r.Context(), identity.UserID, req.Token)
	if err != nil {
		if errors.Is(err, model.ErrTokenRequired) {
			httputil.WriteBadRequest(w, "token is required")
			return
		}
		log.Printf("[ERROR] Remove device token: user=%s err=%v", identity.UserID, err)
		httputil.WriteInternalError(w, "Failed to remove device token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Device token removed",
	})
}
