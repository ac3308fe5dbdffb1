package model

import "errors"

const (
	MaxArtworkSizeBytes  = 10 * 1024 * 1024 // 10MB
	ArtworkMaxDimension  = 1600
	ArtworkFolder        = "artworks"
	ArtworkExt           = ".jpg"
	ArtworkJPEGQuality   = 85
	ArtworkCacheControl  = "public, max-age=31536000" // 1 year
	PresignExpirySeconds = 900
)

// Supported image content types for upload validation
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
	ContentTypeWebP = "image/webp"
)

var allowedImageTypes = map[string]string{
	ContentTypeJPEG: ".jpg",
	ContentTypePNG:  ".png",
	ContentTypeGIF:  ".gif",
	ContentTypeWebP: ".webp",
}

// Error codes for HTTP responses
const (
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidImageType = "INVALID_IMAGE_TYPE"
)

// Domain errors for media operations
var (
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidImageType = errors.New("invalid image type")
	ErrStorageDisabled  = errors.New("media storage not configured")
)

// UploadResult is where an uploaded artwork image ended up.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// PresignArtworkUploadRequest asks for a direct-upload URL.
type PresignArtworkUploadRequest struct {
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
}

// PresignArtworkUploadResponse returns upload details for direct uploads.
// The client PUTs bytes to UploadURL and stores PublicURL on the artwork.
type PresignArtworkUploadResponse struct {
	UploadURL  string `json:"upload_url"`
	PublicURL  string `json:"public_url"`
	Key        string `json:"key"`
	ExpiresInS int    `json:"expires_in"`
}

// IsAllowedImageType reports if the provided content type is supported
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}

// ExtensionFor returns the object extension for an allowed content type.
func ExtensionFor(contentType string) string {
	return allowedImageTypes[contentType]
}
