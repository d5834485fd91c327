package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/open-idm/open-idm/internal/connectors/configstore"
)

func (s *Store) GetFormDefinition(ctx context.Context, connectorKind string, kind configstore.ConfigKind) (configstore.FormDefinition, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT attributes FROM connector_form_definitions WHERE connector_kind = $1 AND kind = $2`,
		connectorKind, string(kind),
	).Scan(&raw)
	if err != nil {
		return configstore.FormDefinition{}, translateErr(err, "form definition", connectorKind+"/"+string(kind))
	}

	def := configstore.FormDefinition{ConnectorKind: connectorKind, Kind: kind}
	if err := json.Unmarshal(raw, &def.Attributes); err != nil {
		return configstore.FormDefinition{}, err
	}
	return def, nil
}

func (s *Store) ListFormValues(ctx context.Context, systemID uuid.UUID, kind configstore.ConfigKind) ([]configstore.FormValue, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, value FROM system_form_values WHERE system_id = $1 AND kind = $2 ORDER BY name`,
		systemID, string(kind),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []configstore.FormValue
	for rows.Next() {
		var v configstore.FormValue
		if err := rows.Scan(&v.Name, &v.Value); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) ReplaceFormValues(ctx context.Context, systemID uuid.UUID, kind configstore.ConfigKind, values []configstore.FormValue) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM system_form_values WHERE system_id = $1 AND kind = $2`,
			systemID, string(kind),
		); err != nil {
			return err
		}
		for _, v := range values {
			if _, err := tx.Exec(ctx,
				`INSERT INTO system_form_values (system_id, kind, name, value) VALUES ($1, $2, $3, $4)`,
				systemID, string(kind), v.Name, v.Value,
			); err != nil {
				return translateErr(err, "form value", v.Name)
			}
		}
		return nil
	})
}

// RawConnectorConfig returns the stored connector configuration for a system,
// or an empty document when none was saved yet.
func (s *Store) RawConnectorConfig(ctx context.Context, systemID uuid.UUID) ([]byte, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT config FROM system_connector_configs WHERE system_id = $1`,
		systemID,
	).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return []byte("{}"), nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []byte("{}"), nil
	}
	return raw, nil
}

func (s *Store) SaveConnectorConfig(ctx context.Context, systemID uuid.UUID, raw []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO system_connector_configs (system_id, config, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (system_id) DO UPDATE SET config = EXCLUDED.config, updated_at = now()`,
		systemID, raw,
	)
	return err
}

func (s *Store) UpsertFormDefinition(ctx context.Context, def configstore.FormDefinition) error {
	raw, err := json.Marshal(def.Attributes)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO connector_form_definitions (connector_kind, kind, attributes)
		VALUES ($1, $2, $3)
		ON CONFLICT (connector_kind, kind) DO UPDATE SET attributes = EXCLUDED.attributes`,
		def.ConnectorKind, string(def.Kind), raw,
	)
	return err
}
