// Package identity holds the managed identities and their local credentials.
package identity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/open-idm/open-idm/internal/apperr"
	"github.com/open-idm/open-idm/internal/auth"
)

// Identity is one managed person or service identity.
type Identity struct {
	ID          uuid.UUID
	Username    string
	DisplayName string
	Disabled    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store is the persistence contract for identities and their credentials.
type Store interface {
	GetIdentity(ctx context.Context, id uuid.UUID) (Identity, error)
	GetIdentityByUsername(ctx context.Context, username string) (Identity, error)
	InsertIdentity(ctx context.Context, ident Identity) error
	// GetCredentialHash returns the stored argon2id hash, or NotFoundError
	// when the identity has no local credential yet.
	GetCredentialHash(ctx context.Context, identityID uuid.UUID) (string, error)
	SetCredentialHash(ctx context.Context, identityID uuid.UUID, hash string) error
}

// Service registers and resolves managed identities.
type Service struct {
	store Store
}

// NewService creates an identity service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateInput registers one managed identity.
type CreateInput struct {
	Username    string
	DisplayName string
}

// Create registers a managed identity. Usernames are unique
// case-insensitively.
func (s *Service) Create(ctx context.Context, in CreateInput) (Identity, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return Identity{}, apperr.Invalid("username", "is required")
	}
	if _, err := s.store.GetIdentityByUsername(ctx, username); err == nil {
		return Identity{}, apperr.Conflict("identity", "username "+username+" is already taken")
	} else if !apperr.IsNotFound(err) {
		return Identity{}, err
	}

	now := time.Now().UTC()
	ident := Identity{
		ID:          uuid.New(),
		Username:    username,
		DisplayName: strings.TrimSpace(in.DisplayName),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.InsertIdentity(ctx, ident); err != nil {
		return Identity{}, err
	}
	return ident, nil
}

// Get returns one managed identity.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Identity, error) {
	return s.store.GetIdentity(ctx, id)
}

// Credentials verifies and rotates local identity passwords. Only the argon2id
// hash is ever at rest.
type Credentials struct {
	store Store
}

// NewCredentials creates a credential manager over the given store.
func NewCredentials(store Store) *Credentials {
	return &Credentials{store: store}
}

// Verify checks a plaintext password against the stored credential. A
// mismatch is a field-level validation failure so callers can fail fast before
// touching any remote target.
func (c *Credentials) Verify(ctx context.Context, identityID uuid.UUID, password string) error {
	hash, err := c.store.GetCredentialHash(ctx, identityID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return apperr.Invalid("oldPassword", "does not match")
		}
		return err
	}
	ok, err := auth.ComparePassword(password, hash)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Invalid("oldPassword", "does not match")
	}
	return nil
}

// Set hashes and stores a new local password for the identity.
func (c *Credentials) Set(ctx context.Context, identityID uuid.UUID, password string) error {
	if strings.TrimSpace(password) == "" {
		return apperr.Invalid("newPassword", "is required")
	}
	if _, err := c.store.GetIdentity(ctx, identityID); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return c.store.SetCredentialHash(ctx, identityID, hash)
}
