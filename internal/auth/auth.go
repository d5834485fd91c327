package auth

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidCredentials is returned for any authentication failure so callers
// cannot tell missing users from wrong passwords.
var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"

	MethodPassword = "password"
)

type Principal struct {
	UserID int64
	Email  string
	Role   string // "admin" or "viewer"; empty for self-service identities
	Method string // "password" now; "oidc" later

	// IdentityID links the principal to a managed identity, when one exists.
	// Self-service decisions key off it.
	IdentityID string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// User is a console user account.
type User struct {
	ID           int64
	Email        string
	Role         string
	PasswordHash string
	IsActive     bool
	// IdentityID links the console user to a managed identity, when set.
	IdentityID  string
	CreatedAt   time.Time
	LastLoginAt *time.Time
	LastLoginIP string
}
