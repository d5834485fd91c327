package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/open-idm/open-idm/internal/accounts"
)

const accountColumns = `id, system_id, owner_type, owner_id, uid, in_protection,
	supports_password_change, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (accounts.Account, error) {
	var acct accounts.Account
	var ownerType string
	err := row.Scan(
		&acct.ID, &acct.SystemID, &ownerType, &acct.OwnerID, &acct.UID,
		&acct.InProtection, &acct.SupportsPasswordChange, &acct.CreatedAt, &acct.UpdatedAt,
	)
	acct.OwnerType = accounts.OwnerType(ownerType)
	return acct, err
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (accounts.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	acct, err := scanAccount(row)
	if err != nil {
		return accounts.Account{}, translateErr(err, "account", id.String())
	}
	return acct, nil
}

func (s *Store) ListAccountsForOwner(ctx context.Context, ownerType accounts.OwnerType, ownerID uuid.UUID, filter accounts.Filter) ([]accounts.Account, error) {
	where := []string{"owner_type = $1", "owner_id = $2"}
	args := []any{string(ownerType), ownerID}

	if filter.SystemID != uuid.Nil {
		args = append(args, filter.SystemID)
		where = append(where, fmt.Sprintf("system_id = $%d", len(args)))
	}
	if filter.SupportsPasswordChange != nil {
		args = append(args, *filter.SupportsPasswordChange)
		where = append(where, fmt.Sprintf("supports_password_change = $%d", len(args)))
	}
	if filter.InProtection != nil {
		args = append(args, *filter.InProtection)
		where = append(where, fmt.Sprintf("in_protection = $%d", len(args)))
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE `+strings.Join(where, " AND ")+` ORDER BY lower(uid)`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []accounts.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, rows.Err()
}

func (s *Store) InsertAccount(ctx context.Context, acct accounts.Account) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, system_id, owner_type, owner_id, uid, in_protection,
			supports_password_change, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		acct.ID, acct.SystemID, string(acct.OwnerType), acct.OwnerID, acct.UID,
		acct.InProtection, acct.SupportsPasswordChange, acct.CreatedAt, acct.UpdatedAt,
	)
	return translateErr(err, "account", acct.ID.String())
}

func (s *Store) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return translateErr(errNoRows(), "account", id.String())
	}
	return nil
}
