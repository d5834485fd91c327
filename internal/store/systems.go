package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/open-idm/open-idm/internal/systems"
)

const systemColumns = `id, name, description, connector_kind, virtual, readonly, disabled,
	disabled_provisioning, queue, remote, blocked_create, blocked_update, blocked_delete,
	state, created_at, updated_at, deleted_at`

func scanSystem(row interface{ Scan(...any) error }) (systems.System, error) {
	var sys systems.System
	var state string
	err := row.Scan(
		&sys.ID, &sys.Name, &sys.Description, &sys.ConnectorKind, &sys.Virtual, &sys.Readonly,
		&sys.Disabled, &sys.DisabledProvisioning, &sys.Queue, &sys.Remote,
		&sys.Blocked.CreateOperation, &sys.Blocked.UpdateOperation, &sys.Blocked.DeleteOperation,
		&state, &sys.CreatedAt, &sys.UpdatedAt, &sys.DeletedAt,
	)
	sys.State = systems.State(state)
	return sys, err
}

func (s *Store) GetSystem(ctx context.Context, id uuid.UUID) (systems.System, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+systemColumns+` FROM systems WHERE id = $1 AND deleted_at IS NULL`, id)
	sys, err := scanSystem(row)
	if err != nil {
		return systems.System{}, translateErr(err, "system", id.String())
	}
	return sys, nil
}

func (s *Store) ListSystems(ctx context.Context, filter systems.ListFilter) ([]systems.System, int64, error) {
	where := []string{"deleted_at IS NULL"}
	args := []any{}

	if text := strings.TrimSpace(filter.Text); text != "" {
		args = append(args, "%"+strings.ToLower(text)+"%")
		where = append(where, fmt.Sprintf("lower(name) LIKE $%d", len(args)))
	}
	if filter.Virtual != nil {
		args = append(args, *filter.Virtual)
		where = append(where, fmt.Sprintf("virtual = $%d", len(args)))
	}
	if filter.Disabled != nil {
		args = append(args, *filter.Disabled)
		where = append(where, fmt.Sprintf("disabled = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM systems WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "lower(name)"
	switch strings.ToLower(strings.TrimSpace(filter.SortBy)) {
	case "created_at":
		order = "created_at"
	case "state":
		order = "state"
	}
	if filter.SortDesc {
		order += " DESC"
	}

	query := `SELECT ` + systemColumns + ` FROM systems WHERE ` + cond + ` ORDER BY ` + order
	if filter.PerPage > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, filter.PerPage)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, (page-1)*filter.PerPage)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []systems.System
	for rows.Next() {
		sys, err := scanSystem(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, sys)
	}
	return out, total, rows.Err()
}

func (s *Store) InsertSystem(ctx context.Context, sys systems.System) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO systems (id, name, description, connector_kind, virtual, readonly, disabled,
			disabled_provisioning, queue, remote, blocked_create, blocked_update, blocked_delete,
			state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		sys.ID, sys.Name, sys.Description, sys.ConnectorKind, sys.Virtual, sys.Readonly,
		sys.Disabled, sys.DisabledProvisioning, sys.Queue, sys.Remote,
		sys.Blocked.CreateOperation, sys.Blocked.UpdateOperation, sys.Blocked.DeleteOperation,
		string(sys.State), sys.CreatedAt, sys.UpdatedAt,
	)
	return translateErr(err, "system", sys.ID.String())
}

func (s *Store) UpdateSystem(ctx context.Context, sys systems.System) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE systems SET name = $2, description = $3, connector_kind = $4, virtual = $5,
			readonly = $6, disabled = $7, disabled_provisioning = $8, queue = $9, remote = $10,
			blocked_create = $11, blocked_update = $12, blocked_delete = $13, state = $14,
			updated_at = $15
		WHERE id = $1 AND deleted_at IS NULL`,
		sys.ID, sys.Name, sys.Description, sys.ConnectorKind, sys.Virtual, sys.Readonly,
		sys.Disabled, sys.DisabledProvisioning, sys.Queue, sys.Remote,
		sys.Blocked.CreateOperation, sys.Blocked.UpdateOperation, sys.Blocked.DeleteOperation,
		string(sys.State), sys.UpdatedAt,
	)
	if err != nil {
		return translateErr(err, "system", sys.ID.String())
	}
	if tag.RowsAffected() == 0 {
		return translateErr(errNoRows(), "system", sys.ID.String())
	}
	return nil
}

func (s *Store) SoftDeleteSystem(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE systems SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return translateErr(errNoRows(), "system", id.String())
	}
	return nil
}

func (s *Store) SystemNameExists(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM systems WHERE lower(name) = lower($1) AND id <> $2 AND deleted_at IS NULL)`,
		strings.TrimSpace(name), exclude,
	).Scan(&exists)
	return exists, err
}

func (s *Store) CountAccountsForSystem(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM accounts WHERE system_id = $1`, id).Scan(&count)
	return count, err
}

// CopyConfiguration copies every configuration facet of src onto dst in one
// transaction: the raw connector configuration and all form values.
func (s *Store) CopyConfiguration(ctx context.Context, src, dst uuid.UUID) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO system_connector_configs (system_id, config, updated_at)
			SELECT $2, config, now() FROM system_connector_configs WHERE system_id = $1
			ON CONFLICT (system_id) DO UPDATE SET config = EXCLUDED.config, updated_at = now()`,
			src, dst,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM system_form_values WHERE system_id = $1`, dst); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO system_form_values (system_id, kind, name, value)
			SELECT $2, kind, name, value FROM system_form_values WHERE system_id = $1`,
			src, dst,
		)
		return err
	})
}
