package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/open-idm/open-idm/internal/identity"
)

const identityColumns = `id, username, display_name, disabled, created_at, updated_at`

func scanIdentity(row interface{ Scan(...any) error }) (identity.Identity, error) {
	var ident identity.Identity
	err := row.Scan(&ident.ID, &ident.Username, &ident.DisplayName, &ident.Disabled, &ident.CreatedAt, &ident.UpdatedAt)
	return ident, err
}

func (s *Store) GetIdentity(ctx context.Context, id uuid.UUID) (identity.Identity, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	ident, err := scanIdentity(row)
	if err != nil {
		return identity.Identity{}, translateErr(err, "identity", id.String())
	}
	return ident, nil
}

func (s *Store) GetIdentityByUsername(ctx context.Context, username string) (identity.Identity, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE lower(username) = lower($1)`, username)
	ident, err := scanIdentity(row)
	if err != nil {
		return identity.Identity{}, translateErr(err, "identity", username)
	}
	return ident, nil
}

func (s *Store) InsertIdentity(ctx context.Context, ident identity.Identity) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO identities (id, username, display_name, disabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ident.ID, ident.Username, ident.DisplayName, ident.Disabled, ident.CreatedAt, ident.UpdatedAt,
	)
	return translateErr(err, "identity", ident.Username)
}

func (s *Store) GetCredentialHash(ctx context.Context, identityID uuid.UUID) (string, error) {
	var hash string
	err := s.pool.QueryRow(ctx,
		`SELECT password_hash FROM identity_credentials WHERE identity_id = $1`,
		identityID,
	).Scan(&hash)
	if err != nil {
		return "", translateErr(err, "identity credential", identityID.String())
	}
	return hash, nil
}

func (s *Store) SetCredentialHash(ctx context.Context, identityID uuid.UUID, hash string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO identity_credentials (identity_id, password_hash, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (identity_id) DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = now()`,
		identityID, hash,
	)
	return err
}
