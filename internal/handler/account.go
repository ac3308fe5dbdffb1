package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"arthub/internal/httputil"
	"arthub/internal/model"
	"arthub/internal/service"
	"arthub/internal/store"
	"arthub/internal/transport/http/middleware"
)

type AccountHandler struct {
	accountService *service.AccountService
	chatService    *service.ChatService
}

func NewAccountHandler(accountService *service.AccountService, chatService *service.ChatService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		chatService:    chatService,
	}
}

// Me handles GET /me
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	account, err := h.accountService.Account(r.Context(), identity)
	if err != nil {
		writeAccountError(w, identity.UserID, err)
		return
	}
	account.ID = identity.UserID

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"user_id": account.ID,
		"role":    account.Role,
		"email":   account.Email,
		"name":    account.Name,
	})
}

// Role handles GET /me/role
func (h *AccountHandler) Role(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	role, err := h.accountService.Role(r.Context(), identity)
	if err != nil {
		writeAccountError(w, identity.UserID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.RoleResponse{UserID: identity.UserID, Role: role})
}

// Unread handles GET /me/unread
// Returns unread chat messages across all of the caller's chats.
func (h *AccountHandler) Unread(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	res, err := h.chatService.UnreadCount(r.Context(), identity.UserID)
	if err != nil {
		if store.IsTransient(err) {
			httputil.WriteServiceUnavailable(w, "Chats are temporarily unavailable")
			return
		}
		log.Printf("[ERROR] Unread count handler: user=%s err=%v", identity.UserID, err)
		httputil.WriteInternalError(w, "Failed to count unread messages")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// Search handles GET /accounts/search?name=
func (h *AccountHandler) Search(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	account, err := h.accountService.FindByName(r.Context(), name)
	if err != nil {
		writeAccountError(w, name, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"user_id": account.ID,
		"role":    account.Role,
		"name":    account.Name,
	})
}

func writeAccountError(w http.ResponseWriter, subject string, err error) {
	switch {
	case errors.Is(err, model.ErrAccountNotFound):
		httputil.WriteNotFound(w, "Account not found")
	case store.IsTransient(err):
		httputil.WriteServiceUnavailable(w, "Accounts are temporarily unavailable")
	default:
		log.Printf("[ERROR] Account handler: subject=%s err=%v", subject, err)
		httputil.WriteInternalError(w, "Failed to get account")
	}
}
