package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"arthub/internal/httputil"
	"arthub/internal/model"
	"arthub/internal/store"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// IdentityKey is the context key for the authenticated caller
	IdentityKey contextKey = "identity"
)

// ErrTokenExpired is returned by verifiers for well-formed but expired tokens.
var ErrTokenExpired = errors.New("token expired")

// TokenVerifier turns a bearer token into the caller's identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (model.Identity, error)
}

// AuthMiddleware creates a middleware that validates bearer tokens.
// Checks Authorization header first (for mobile), then falls back to cookie (for web)
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				httputil.WriteUnauthorized(w, "Missing authentication token")
				return
			}

			identity, err := verifier.Verify(r.Context(), tokenString)
			if err != nil {
				if errors.Is(err, ErrTokenExpired) {
					httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Access token has expired")
					return
				}
				httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid authentication token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func bearerToken(r *http.Request) string {
	// Expected format: "Bearer <token>"
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// WithIdentity stores identity in ctx the way AuthMiddleware does.
func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetIdentityFromContext extracts the caller from the request context
func GetIdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(model.Identity)
	return identity, ok && identity.UserID != ""
}

// RoleResolver looks up the caller's role.
type RoleResolver interface {
	Role(ctx context.Context, identity model.Identity) (model.Role, error)
}

// RequireRole lets the request through only if the caller has one of roles.
// Must run after AuthMiddleware.
func RequireRole(resolver RoleResolver, roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := GetIdentityFromContext(r.Context())
			if !ok {
				httputil.WriteUnauthorized(w, "Authentication required")
				return
			}

			role, err := resolver.Role(r.Context(), identity)
			switch {
			case errors.Is(err, model.ErrAccountNotFound):
				httputil.WriteForbidden(w, "No role assigned to this account")
				return
			case store.IsTransient(err):
				httputil.WriteServiceUnavailable(w, "Could not verify your role right now, please try again")
				return
			case err != nil:
				log.Printf("[ERROR] RequireRole: user=%s err=%v", identity.UserID, err)
				httputil.WriteInternalError(w, "Failed to verify role")
				return
			}

			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			httputil.WriteForbidden(w, "This action requires the "+string(roles[0])+" role")
		})
	}
}

// OptionalAuthMiddleware attaches the caller's identity when a valid token is
// present and lets anonymous requests through untouched.
func OptionalAuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}
			identity, err := verifier.Verify(r.Context(), tokenString)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}
