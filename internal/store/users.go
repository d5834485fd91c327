package store

import (
	"context"
	"strings"
	"time"

	"github.com/open-idm/open-idm/internal/auth"
)

const authUserColumns = `id, email, role, password_hash, is_active,
	COALESCE(identity_id::text, ''), created_at, last_login_at, COALESCE(last_login_ip, '')`

func scanAuthUser(row interface{ Scan(...any) error }) (auth.User, error) {
	var user auth.User
	err := row.Scan(
		&user.ID, &user.Email, &user.Role, &user.PasswordHash, &user.IsActive,
		&user.IdentityID, &user.CreatedAt, &user.LastLoginAt, &user.LastLoginIP,
	)
	return user, err
}

func (s *Store) GetAuthUser(ctx context.Context, id int64) (auth.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+authUserColumns+` FROM auth_users WHERE id = $1`, id)
	user, err := scanAuthUser(row)
	if err != nil {
		return auth.User{}, translateErr(err, "user", "")
	}
	return user, nil
}

func (s *Store) GetAuthUserByEmail(ctx context.Context, email string) (auth.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+authUserColumns+` FROM auth_users WHERE email = $1`,
		auth.NormalizeEmail(email),
	)
	user, err := scanAuthUser(row)
	if err != nil {
		return auth.User{}, translateErr(err, "user", email)
	}
	return user, nil
}

func (s *Store) CountAuthUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM auth_users`).Scan(&count)
	return count, err
}

func (s *Store) CountAuthAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM auth_users WHERE role = 'admin' AND is_active`).Scan(&count)
	return count, err
}

func (s *Store) CreateAuthUser(ctx context.Context, email, role, passwordHash string) (auth.User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO auth_users (email, role, password_hash, is_active, created_at)
		VALUES ($1, $2, $3, true, now())
		RETURNING `+authUserColumns,
		auth.NormalizeEmail(email), strings.ToLower(strings.TrimSpace(role)), passwordHash,
	)
	user, err := scanAuthUser(row)
	if err != nil {
		return auth.User{}, translateErr(err, "user", email)
	}
	return user, nil
}

func (s *Store) UpdateAuthUserLoginMeta(ctx context.Context, id int64, at time.Time, ip string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE auth_users SET last_login_at = $2, last_login_ip = $3 WHERE id = $1`,
		id, at, strings.TrimSpace(ip),
	)
	return err
}
