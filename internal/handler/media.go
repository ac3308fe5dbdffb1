package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"arthub/internal/httputil"
	"arthub/internal/model"
	"arthub/internal/service"
	"arthub/internal/transport/http/middleware"
)

type MediaHandler struct {
	mediaService *service.MediaService // nil when no bucket is configured
}

func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// UploadArtwork handles POST /media/artworks (multipart, field "file").
// The image is resized server-side before it is stored.
func (h *MediaHandler) UploadArtwork(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	if h.mediaService == nil {
		httputil.WriteServiceUnavailable(w, "Media uploads are not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, model.MaxArtworkSizeBytes+1<<20)
	if err := r.ParseMultipartForm(model.MaxArtworkSizeBytes); err != nil {
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Image exceeds 10MB limit")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "file is required")
		return
	}
	defer file.Close()

	res, err := h.mediaService.UploadArtwork(r.Context(), identity.UserID, file, header)
	if err != nil {
		writeMediaError(w, identity.UserID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

// PresignArtworkUpload handles POST /media/artworks/presign
// Returns a presigned URL for uploading an artwork directly to R2.
func (h *MediaHandler) PresignArtworkUpload(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	if h.mediaService == nil {
		httputil.WriteServiceUnavailable(w, "Media uploads are not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB is plenty for JSON
	var req model.PresignArtworkUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	req.ContentType = strings.TrimSpace(req.ContentType)
	if req.ContentType == "" {
		httputil.WriteBadRequest(w, "content_type is required")
		return
	}

	res, err := h.mediaService.PresignArtworkUpload(r.Context(), identity.UserID, req)
	if err != nil {
		writeMediaError(w, identity.UserID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func writeMediaError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, model.ErrFileTooLarge):
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Image exceeds 10MB limit")
	case errors.Is(err, model.ErrInvalidImageType):
		httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
	default:
		log.Printf("[ERROR] Media handler: user=%s err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to store artwork")
	}
}
