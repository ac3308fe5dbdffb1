package model

import (
	"errors"
)

// Role decides which surfaces an account may use.
type Role string

const (
	RoleUnknown Role = ""
	RoleAdmin   Role = "admin"
	RoleArtist  Role = "artist"
	RoleVisitor Role = "visitor"
)

// Account is the unified record at accounts/{uid}.
type Account struct {
	ID    string `json:"-"`
	Role  Role   `json:"role"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Identity is the caller as established by the auth middleware.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// RoleResponse is returned by GET /me/role.
type RoleResponse struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// Legacy role tables that predate accounts/, in precedence order.
const (
	LegacyAdminTable   = "admin"
	LegacyArtistTable  = "users"
	LegacyVisitorTable = "visitors"
)

// Token error codes
const (
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
)

// Account errors
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrForbiddenRole   = errors.New("role not permitted")
)
