package middleware

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"

	"arthub/internal/model"
)

// FirebaseVerifier checks Firebase Auth ID tokens issued to the mobile apps.
type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(client *auth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (model.Identity, error) {
	t, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		if auth.IsIDTokenExpired(err) {
			return model.Identity{}, ErrTokenExpired
		}
		return model.Identity{}, fmt.Errorf("verify id token: %w", err)
	}
	email, _ := t.Claims["email"].(string)
	return model.Identity{UserID: t.UID, Email: email}, nil
}

// JWTVerifier accepts HS256 tokens signed with a shared secret, for local
// development against the in-memory store. The subject claim is the user id.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// DevClaims are the claims JWTVerifier reads.
type DevClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func (v *JWTVerifier) Verify(ctx context.Context, token string) (model.Identity, error) {
	var claims DevClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Identity{}, ErrTokenExpired
		}
		return model.Identity{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return model.Identity{}, errors.New("token has no subject")
	}
	return model.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// Sign issues a dev token; used by tests and local tooling.
func (v *JWTVerifier) Sign(claims DevClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
