package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/open-idm/open-idm/internal/apperr"
	"github.com/open-idm/open-idm/internal/systems"
)

// RoleSystemStore is the persistence contract for role-system mappings.
type RoleSystemStore interface {
	GetRoleSystem(ctx context.Context, id uuid.UUID) (RoleSystem, error)
	ListRoleSystems(ctx context.Context, filter RoleSystemFilter) ([]RoleSystem, error)
	// RoleSystemExists matches on the (role, system, object class) triple.
	RoleSystemExists(ctx context.Context, roleID, systemID, objectClassID uuid.UUID) (bool, error)
	InsertRoleSystem(ctx context.Context, rs RoleSystem) error
	DeleteRoleSystem(ctx context.Context, id uuid.UUID) error
}

// RoleSystems implements the role-system mapping registry.
type RoleSystems struct {
	store RoleSystemStore
}

// NewRoleSystems creates a role-system registry over the given store.
func NewRoleSystems(store RoleSystemStore) *RoleSystems {
	return &RoleSystems{store: store}
}

// Create registers a role-system mapping. The (role, system, object class)
// triple is unique; a duplicate reports a conflict and writes nothing.
func (r *RoleSystems) Create(ctx context.Context, roleID, systemID, objectClassID uuid.UUID, entityType systems.EntityType) (RoleSystem, error) {
	if roleID == uuid.Nil {
		return RoleSystem{}, apperr.Invalid("roleId", "is required")
	}
	if systemID == uuid.Nil {
		return RoleSystem{}, apperr.Invalid("systemId", "is required")
	}
	if objectClassID == uuid.Nil {
		return RoleSystem{}, apperr.Invalid("objectClassId", "is required")
	}
	if _, ok := systems.ParseEntityType(string(entityType)); !ok {
		return RoleSystem{}, apperr.Invalid("entityType", "unknown entity type "+string(entityType))
	}

	exists, err := r.store.RoleSystemExists(ctx, roleID, systemID, objectClassID)
	if err != nil {
		return RoleSystem{}, err
	}
	if exists {
		return RoleSystem{}, apperr.Conflict("role system", "mapping already exists for role, system, and object class")
	}

	rs := RoleSystem{
		ID:            uuid.New(),
		RoleID:        roleID,
		SystemID:      systemID,
		ObjectClassID: objectClassID,
		EntityType:    entityType,
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.store.InsertRoleSystem(ctx, rs); err != nil {
		return RoleSystem{}, err
	}
	return rs, nil
}

// List returns mappings matching the filter.
func (r *RoleSystems) List(ctx context.Context, filter RoleSystemFilter) ([]RoleSystem, error) {
	return r.store.ListRoleSystems(ctx, filter)
}

// Delete removes a mapping.
func (r *RoleSystems) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.store.GetRoleSystem(ctx, id); err != nil {
		return err
	}
	return r.store.DeleteRoleSystem(ctx, id)
}
