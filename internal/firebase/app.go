// Package firebase builds the single Admin SDK app shared by the realtime
// database store, token verification and FCM.
package firebase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	fb "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"arthub/internal/config"
)

var ErrNotConfigured = errors.New("firebase not configured")

// Configured reports whether cfg carries service account credentials.
func Configured(cfg *config.Config) bool {
	return cfg.FirebaseProjectID != "" && cfg.FirebaseClientEmail != "" && cfg.FirebasePrivateKey != ""
}

// NewApp initializes the Admin SDK from the service account fields in cfg.
//
// The private key in .env has literal "\n" sequences; the SDK expects real
// newlines in the PEM block.
func NewApp(ctx context.Context, cfg *config.Config) (*fb.App, error) {
	if !Configured(cfg) {
		return nil, ErrNotConfigured
	}

	privateKey := strings.ReplaceAll(cfg.FirebasePrivateKey, "\\n", "\n")
	credsJSON := fmt.Sprintf(`{
		"type": "service_account",
		"project_id": %q,
		"private_key": %q,
		"client_email": %q,
		"token_uri": "https://oauth2.googleapis.com/token"
	}`, cfg.FirebaseProjectID, privateKey, cfg.FirebaseClientEmail)

	appCfg := &fb.Config{
		ProjectID:   cfg.FirebaseProjectID,
		DatabaseURL: cfg.FirebaseDatabaseURL,
	}
	app, err := fb.NewApp(ctx, appCfg, option.WithCredentialsJSON([]byte(credsJSON)))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	log.Printf("[Firebase] Initialized for project: %s", cfg.FirebaseProjectID)
	return app, nil
}
