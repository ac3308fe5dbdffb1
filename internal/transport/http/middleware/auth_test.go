package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"arthub/internal/model"
	"arthub/internal/store"
)

func okHandler(t *testing.T, wantUser string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := GetIdentityFromContext(r.Context())
		if !ok || identity.UserID != wantUser {
			t.Errorf("identity = %+v, %v; want %s", identity, ok, wantUser)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthMiddleware_JWT(t *testing.T) {
	verifier := NewJWTVerifier("test-secret")
	valid, _ := verifier.Sign(DevClaims{
		Email: "ana@arthub.test",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ana",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	expired, _ := verifier.Sign(DevClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ana",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	foreign, _ := NewJWTVerifier("other").Sign(DevClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "ana"}})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid", "Bearer " + valid, http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized},
		{"not bearer", "Basic " + valid, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			AuthMiddleware(verifier)(okHandler(t, "ana")).ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestJWTVerifier_ExpiredMapsToErrTokenExpired(t *testing.T) {
	verifier := NewJWTVerifier("s")
	token, _ := verifier.Sign(DevClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "ana",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	if _, err := verifier.Verify(context.Background(), token); err != ErrTokenExpired {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

type roleFunc func(ctx context.Context, identity model.Identity) (model.Role, error)

func (f roleFunc) Role(ctx context.Context, identity model.Identity) (model.Role, error) {
	return f(ctx, identity)
}

func TestRequireRole(t *testing.T) {
	roles := map[string]model.Role{"boss": model.RoleAdmin, "ana": model.RoleArtist}
	resolver := roleFunc(func(ctx context.Context, identity model.Identity) (model.Role, error) {
		if identity.UserID == "flaky" {
			return "", store.ErrTransient
		}
		role, ok := roles[identity.UserID]
		if !ok {
			return "", model.ErrAccountNotFound
		}
		return role, nil
	})

	tests := []struct {
		user       string
		wantStatus int
	}{
		{"boss", http.StatusNoContent},
		{"ana", http.StatusForbidden},
		{"ghost", http.StatusForbidden},
		{"flaky", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/events/e1/invitations/ana", nil)
			req = req.WithContext(WithIdentity(req.Context(), model.Identity{UserID: tt.user}))
			rec := httptest.NewRecorder()
			RequireRole(resolver, model.RoleAdmin)(okHandler(t, tt.user)).ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
