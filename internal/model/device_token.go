package model

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// DeviceToken is a registered push target, stored at
// deviceTokens/{userId}/{tokenKey}. Supports multiple devices per user.
type DeviceToken struct {
	Token     string `json:"token"`
	Platform  string `json:"platform"` // "ios", "android", "expo"
	UpdatedAt int64  `json:"updatedAt"`
}

// RegisterTokenRequest is the request body for registering a device token.
type RegisterTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// Platform constants
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformExpo    = "expo"
)

// IsExpoToken reports whether token must be sent through Expo Push rather than FCM.
func IsExpoToken(token string) bool {
	return strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")
}

// TokenKey derives a store-safe key from a raw token; raw FCM tokens contain
// characters that are not allowed in database paths.
func TokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

var ErrTokenRequired = errors.New("device token is required")
