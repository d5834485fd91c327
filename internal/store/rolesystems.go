package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/open-idm/open-idm/internal/accounts"
	"github.com/open-idm/open-idm/internal/systems"
)

const roleSystemColumns = `id, role_id, system_id, object_class_id, entity_type, created_at`

func scanRoleSystem(row interface{ Scan(...any) error }) (accounts.RoleSystem, error) {
	var rs accounts.RoleSystem
	var entityType string
	err := row.Scan(&rs.ID, &rs.RoleID, &rs.SystemID, &rs.ObjectClassID, &entityType, &rs.CreatedAt)
	rs.EntityType = systems.EntityType(entityType)
	return rs, err
}

func (s *Store) GetRoleSystem(ctx context.Context, id uuid.UUID) (accounts.RoleSystem, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+roleSystemColumns+` FROM role_systems WHERE id = $1`, id)
	rs, err := scanRoleSystem(row)
	if err != nil {
		return accounts.RoleSystem{}, translateErr(err, "role system", id.String())
	}
	return rs, nil
}

func (s *Store) ListRoleSystems(ctx context.Context, filter accounts.RoleSystemFilter) ([]accounts.RoleSystem, error) {
	where := []string{"true"}
	args := []any{}
	if filter.RoleID != uuid.Nil {
		args = append(args, filter.RoleID)
		where = append(where, fmt.Sprintf("role_id = $%d", len(args)))
	}
	if filter.SystemID != uuid.Nil {
		args = append(args, filter.SystemID)
		where = append(where, fmt.Sprintf("system_id = $%d", len(args)))
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+roleSystemColumns+` FROM role_systems WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []accounts.RoleSystem
	for rows.Next() {
		rs, err := scanRoleSystem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

func (s *Store) RoleSystemExists(ctx context.Context, roleID, systemID, objectClassID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM role_systems WHERE role_id = $1 AND system_id = $2 AND object_class_id = $3)`,
		roleID, systemID, objectClassID,
	).Scan(&exists)
	return exists, err
}

func (s *Store) InsertRoleSystem(ctx context.Context, rs accounts.RoleSystem) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO role_systems (id, role_id, system_id, object_class_id, entity_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rs.ID, rs.RoleID, rs.SystemID, rs.ObjectClassID, string(rs.EntityType), rs.CreatedAt,
	)
	return translateErr(err, "role system", rs.ID.String())
}

func (s *Store) DeleteRoleSystem(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM role_systems WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return translateErr(errNoRows(), "role system", id.String())
	}
	return nil
}
