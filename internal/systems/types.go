// Package systems owns target system definitions and coordinates the
// cross-cutting state transitions around them, including schema generation.
package systems

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// BlockedOperations holds the per-operation provisioning blocks of a system.
type BlockedOperations struct {
	CreateOperation bool `json:"createOperation"`
	UpdateOperation bool `json:"updateOperation"`
	DeleteOperation bool `json:"deleteOperation"`
}

// State is the structural lifecycle state of a system. The disabled and
// readonly flags are orthogonal and never change the structural state.
type State string

const (
	StateNew        State = "new"
	StateConfigured State = "configured"
	StateEnabled    State = "enabled"
)

var stateOrder = map[State]int{
	StateNew:        0,
	StateConfigured: 1,
	StateEnabled:    2,
}

// Valid reports whether s is a known structural state.
func (s State) Valid() bool {
	_, ok := stateOrder[s]
	return ok
}

// CanTransitionTo reports whether the structural state may move to next.
// Transitions only move forward one step at a time; staying put is allowed.
func (s State) CanTransitionTo(next State) bool {
	cur, ok := stateOrder[s]
	if !ok {
		return false
	}
	n, ok := stateOrder[next]
	if !ok {
		return false
	}
	return n == cur || n == cur+1
}

// System is a connected external target that can host accounts.
type System struct {
	ID                   uuid.UUID
	Name                 string
	Description          string
	ConnectorKind        string
	Virtual              bool
	Readonly             bool
	Disabled             bool
	DisabledProvisioning bool
	Queue                bool
	Remote               bool
	Blocked              BlockedOperations
	State                State
	CreatedAt            time.Time
	UpdatedAt            time.Time
	DeletedAt            *time.Time
}

// EffectiveBlockedOperations returns the blocked-operation flags as shown to
// callers: while provisioning is disabled on the system all three operations
// are forced blocked, whatever the stored flags say.
func (s System) EffectiveBlockedOperations() BlockedOperations {
	if s.DisabledProvisioning {
		return BlockedOperations{
			CreateOperation: true,
			UpdateOperation: true,
			DeleteOperation: true,
		}
	}
	return s.Blocked
}

// Active reports whether the system participates in active listings.
func (s System) Active() bool {
	return s.DeletedAt == nil
}

// EntityType identifies the owner entity kind a system mapping provisions.
type EntityType string

const (
	EntityTypeIdentity      EntityType = "identity"
	EntityTypeRole          EntityType = "role"
	EntityTypeTree          EntityType = "tree"
	EntityTypeRoleCatalogue EntityType = "role_catalogue"
	EntityTypeContract      EntityType = "contract"
)

type entityTypeInfo struct {
	Label string
	Level string
}

var entityTypeTable = map[EntityType]entityTypeInfo{
	EntityTypeIdentity:      {Label: "Identity", Level: "success"},
	EntityTypeRole:          {Label: "Role", Level: "primary"},
	EntityTypeTree:          {Label: "Tree", Level: "primary"},
	EntityTypeRoleCatalogue: {Label: "Role catalogue", Level: "primary"},
	EntityTypeContract:      {Label: "Contract", Level: "success"},
}

// ParseEntityType normalizes and validates a raw entity type string.
func ParseEntityType(raw string) (EntityType, bool) {
	t := EntityType(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := entityTypeTable[t]
	return t, ok
}

// Label returns the display label for the entity type.
func (t EntityType) Label() string {
	if info, ok := entityTypeTable[t]; ok {
		return info.Label
	}
	return string(t)
}

// Level returns the display severity level for the entity type.
func (t EntityType) Level() string {
	if info, ok := entityTypeTable[t]; ok {
		return info.Level
	}
	return "default"
}
