// Package accounts maps owner entities to the accounts they hold on target
// systems and drives password changes across them.
package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/open-idm/open-idm/internal/systems"
)

// OwnerType identifies the kind of entity an account belongs to.
type OwnerType string

const (
	OwnerTypeIdentity      OwnerType = "identity"
	OwnerTypeRole          OwnerType = "role"
	OwnerTypeRoleCatalogue OwnerType = "role_catalogue"
	OwnerTypeTree          OwnerType = "tree"
)

// ParseOwnerType normalizes and validates a raw owner type string.
func ParseOwnerType(raw string) (OwnerType, bool) {
	t := OwnerType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case OwnerTypeIdentity, OwnerTypeRole, OwnerTypeRoleCatalogue, OwnerTypeTree:
		return t, true
	}
	return t, false
}

// Account links an owner to one account on a target system.
type Account struct {
	ID                     uuid.UUID
	SystemID               uuid.UUID
	OwnerType              OwnerType
	OwnerID                uuid.UUID
	UID                    string // identifier of the account on the target
	InProtection           bool
	SupportsPasswordChange bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Filter narrows an account listing.
type Filter struct {
	SystemID               uuid.UUID
	SupportsPasswordChange *bool
	InProtection           *bool
}

// RoleSystem assigns a role to a system through one object class mapping.
type RoleSystem struct {
	ID            uuid.UUID
	RoleID        uuid.UUID
	SystemID      uuid.UUID
	ObjectClassID uuid.UUID
	EntityType    systems.EntityType
	CreatedAt     time.Time
}

// RoleSystemFilter narrows a role-system listing. Zero values match all.
type RoleSystemFilter struct {
	RoleID   uuid.UUID
	SystemID uuid.UUID
}
