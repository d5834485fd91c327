package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/open-idm/open-idm/internal/schema"
)

const objectClassColumns = `id, system_id, name, auxiliary, container, created_at, updated_at`

func scanObjectClass(row interface{ Scan(...any) error }) (schema.ObjectClass, error) {
	var oc schema.ObjectClass
	err := row.Scan(&oc.ID, &oc.SystemID, &oc.Name, &oc.Auxiliary, &oc.Container, &oc.CreatedAt, &oc.UpdatedAt)
	return oc, err
}

func (s *Store) ListObjectClasses(ctx context.Context, systemID uuid.UUID) ([]schema.ObjectClass, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+objectClassColumns+` FROM object_classes WHERE system_id = $1 ORDER BY lower(name)`,
		systemID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schema.ObjectClass
	for rows.Next() {
		oc, err := scanObjectClass(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, oc)
	}
	return out, rows.Err()
}

func (s *Store) GetObjectClass(ctx context.Context, id uuid.UUID) (schema.ObjectClass, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+objectClassColumns+` FROM object_classes WHERE id = $1`, id)
	oc, err := scanObjectClass(row)
	if err != nil {
		return schema.ObjectClass{}, translateErr(err, "object class", id.String())
	}
	return oc, nil
}

func (s *Store) InsertObjectClass(ctx context.Context, oc schema.ObjectClass) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO object_classes (id, system_id, name, auxiliary, container, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		oc.ID, oc.SystemID, oc.Name, oc.Auxiliary, oc.Container, oc.CreatedAt, oc.UpdatedAt,
	)
	return translateErr(err, "object class", oc.ID.String())
}

func (s *Store) UpdateObjectClass(ctx context.Context, oc schema.ObjectClass) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE object_classes SET name = $2, auxiliary = $3, container = $4, updated_at = $5
		WHERE id = $1`,
		oc.ID, oc.Name, oc.Auxiliary, oc.Container, oc.UpdatedAt,
	)
	if err != nil {
		return translateErr(err, "object class", oc.ID.String())
	}
	if tag.RowsAffected() == 0 {
		return translateErr(errNoRows(), "object class", oc.ID.String())
	}
	return nil
}

func (s *Store) DeleteObjectClass(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM object_classes WHERE id = $1`, id)
	if err != nil {
		return translateErr(err, "object class", id.String())
	}
	if tag.RowsAffected() == 0 {
		return translateErr(errNoRows(), "object class", id.String())
	}
	return nil
}

// ReplaceObjectClasses swaps a system's entire schema set in one transaction.
func (s *Store) ReplaceObjectClasses(ctx context.Context, systemID uuid.UUID, classes []schema.ObjectClass) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		// Classes mapped by a role system block the replace; the FK
		// violation surfaces as a conflict.
		if _, err := tx.Exec(ctx, `DELETE FROM object_classes WHERE system_id = $1`, systemID); err != nil {
			return translateErr(err, "object class", systemID.String())
		}
		for _, oc := range classes {
			if _, err := tx.Exec(ctx, `
				INSERT INTO object_classes (id, system_id, name, auxiliary, container, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				oc.ID, systemID, oc.Name, oc.Auxiliary, oc.Container, oc.CreatedAt, oc.UpdatedAt,
			); err != nil {
				return translateErr(err, "object class", oc.ID.String())
			}
		}
		return nil
	})
}

func (s *Store) CountRoleSystemsForObjectClass(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM role_systems WHERE object_class_id = $1`, id).Scan(&count)
	return count, err
}
