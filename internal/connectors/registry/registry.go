// Package registry holds the catalog of connector kinds and the outbound
// client contract they implement.
package registry

import (
	"fmt"
	"strings"
)

// Registry is the central registry for all connector definitions.
type Registry struct {
	definitions map[string]Definition
	order       []string // Display order
}

// NewRegistry creates a new connector registry.
func NewRegistry() *Registry {
	return &Registry{
		definitions: make(map[string]Definition),
		order:       make([]string, 0),
	}
}

// Register adds a connector definition to the registry.
func (r *Registry) Register(def Definition) error {
	kind := strings.ToLower(strings.TrimSpace(def.Kind()))
	if kind == "" {
		return fmt.Errorf("connector kind cannot be empty")
	}
	if _, exists := r.definitions[kind]; exists {
		return fmt.Errorf("connector kind %q already registered", kind)
	}
	r.definitions[kind] = def
	r.order = append(r.order, kind)
	return nil
}

// Get retrieves a connector definition by kind.
func (r *Registry) Get(kind string) (Definition, bool) {
	def, ok := r.definitions[strings.ToLower(strings.TrimSpace(kind))]
	return def, ok
}

// All returns all registered connector definitions in order.
func (r *Registry) All() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, kind := range r.order {
		defs = append(defs, r.definitions[kind])
	}
	return defs
}
