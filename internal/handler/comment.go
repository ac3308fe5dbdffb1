package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"arthub/internal/httputil"
	"arthub/internal/model"
	"arthub/internal/service"
	"arthub/internal/store"
	"arthub/internal/transport/http/middleware"
)

type CommentHandler struct {
	commentService *service.CommentService
}

func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// List handles GET /subjects/{id}/comments
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "id")

	res, err := h.commentService.List(r.Context(), subjectID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrSubjectRequired):
			httputil.WriteBadRequest(w, "Subject id is required")
		case store.IsTransient(err):
			httputil.WriteServiceUnavailable(w, "Comments are temporarily unavailable")
		default:
			log.Printf("[ERROR] List comments handler: subject=%s err=%v", subjectID, err)
			httputil.WriteInternalError(w, "Failed to get comments")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// Create handles POST /subjects/{id}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, nil)
}

// Reply handles POST /subjects/{id}/comments/{commentPath}/replies.
// commentPath is the chain of comment ids from the root, joined by '.'.
func (h *CommentHandler) Reply(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "commentPath")
	parentPath := strings.Split(raw, ".")
	for _, id := range parentPath {
		if id == "" {
			httputil.WriteBadRequest(w, "Invalid comment path")
			return
		}
	}
	h.create(w, r, parentPath)
}

func (h *CommentHandler) create(w http.ResponseWriter, r *http.Request, parentPath []string) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	subjectID := chi.URLParam(r, "id")

	var req model.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	var (
		comment *model.Comment
		err     error
	)
	if parentPath == nil {
		comment, err = h.commentService.Add(r.Context(), subjectID, identity, req)
	} else {
		comment, err = h.commentService.Reply(r.Context(), subjectID, parentPath, identity, req)
	}
	if err != nil {
		switch {
		case errors.Is(err, model.ErrContentRequired):
			httputil.WriteBadRequest(w, "Comment content is required")
		case errors.Is(err, model.ErrContentTooLong):
			httputil.WriteBadRequest(w, "Comment content is too long")
		case errors.Is(err, model.ErrSubjectRequired):
			httputil.WriteBadRequest(w, "Subject id is required")
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Comment not found")
		case store.IsTransient(err):
			httputil.WriteServiceUnavailable(w, "Could not post your comment right now, please try again")
		default:
			log.Printf("[ERROR] Create comment handler: subject=%s user=%s err=%v", subjectID, identity.UserID, err)
			httputil.WriteInternalError(w, "Failed to create comment")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, comment)
}
