package configstore

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/open-idm/open-idm/internal/apperr"
)

// ConfigKind names one of the configuration facets a system carries.
type ConfigKind string

const (
	ConfigKindConnector        ConfigKind = "connector"
	ConfigKindPooling          ConfigKind = "pooling"
	ConfigKindOperationOptions ConfigKind = "operation_options"
)

// Valid reports whether k is a known configuration kind.
func (k ConfigKind) Valid() bool {
	switch k {
	case ConfigKindConnector, ConfigKindPooling, ConfigKindOperationOptions:
		return true
	}
	return false
}

// ParseConfigKind normalizes and validates a raw configuration kind string.
func ParseConfigKind(raw string) (ConfigKind, bool) {
	k := ConfigKind(strings.ToLower(strings.TrimSpace(raw)))
	return k, k.Valid()
}

// AttributeDefinition describes one settable attribute of a form definition.
type AttributeDefinition struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Secret   bool   `json:"secret"`
}

// FormDefinition is the attribute schema for one configuration facet of a
// connector kind.
type FormDefinition struct {
	ConnectorKind string                `json:"connectorKind"`
	Kind          ConfigKind            `json:"kind"`
	Attributes    []AttributeDefinition `json:"attributes"`
}

// Attribute looks up an attribute definition by name.
func (d FormDefinition) Attribute(name string) (AttributeDefinition, bool) {
	for _, attr := range d.Attributes {
		if strings.EqualFold(attr.Name, name) {
			return attr, true
		}
	}
	return AttributeDefinition{}, false
}

// FormValue is one persisted attribute value on a system.
type FormValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Configuration is a definition joined with the system's current values.
type Configuration struct {
	Definition FormDefinition `json:"definition"`
	Values     []FormValue    `json:"values"`
}

// MaskedValues returns the values with secret attributes masked for display.
func (c Configuration) MaskedValues() []FormValue {
	out := make([]FormValue, len(c.Values))
	for i, v := range c.Values {
		out[i] = v
		if attr, ok := c.Definition.Attribute(v.Name); ok && attr.Secret {
			out[i].Value = MaskSecret(v.Value)
		}
	}
	return out
}

// FormStore is the persistence contract for form definitions and values.
type FormStore interface {
	GetFormDefinition(ctx context.Context, connectorKind string, kind ConfigKind) (FormDefinition, error)
	ListFormValues(ctx context.Context, systemID uuid.UUID, kind ConfigKind) ([]FormValue, error)
	ReplaceFormValues(ctx context.Context, systemID uuid.UUID, kind ConfigKind, values []FormValue) error
}

// ConnectorConfigStore persists the typed connector configuration document
// the outbound hub reads.
type ConnectorConfigStore interface {
	RawConnectorConfig(ctx context.Context, systemID uuid.UUID) ([]byte, error)
	SaveConnectorConfig(ctx context.Context, systemID uuid.UUID, raw []byte) error
}

// Service reads and writes system configuration facets.
type Service struct {
	store            FormStore
	connectorConfigs ConnectorConfigStore
}

// NewService creates a configuration service over the given stores.
func NewService(store FormStore, connectorConfigs ConnectorConfigStore) *Service {
	return &Service{store: store, connectorConfigs: connectorConfigs}
}

// Fetch loads the definition and the system's values concurrently and joins
// them. Either read failing fails the whole call; a partial result is never
// returned.
func (s *Service) Fetch(ctx context.Context, systemID uuid.UUID, connectorKind string, kind ConfigKind) (Configuration, error) {
	if !kind.Valid() {
		return Configuration{}, apperr.Invalid("kind", "unknown configuration kind "+string(kind))
	}

	var (
		definition FormDefinition
		values     []FormValue
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		definition, err = s.store.GetFormDefinition(gctx, connectorKind, kind)
		return err
	})
	g.Go(func() error {
		var err error
		values, err = s.store.ListFormValues(gctx, systemID, kind)
		return err
	})
	if err := g.Wait(); err != nil {
		return Configuration{}, err
	}
	return Configuration{Definition: definition, Values: values}, nil
}

// Save validates the submitted values against the definition's attribute set,
// persists them, and returns the refetched result. Unknown attributes and
// missing required attributes are ValidationErrors; nothing is written on
// validation failure. For the connector facet the values are additionally
// folded into the typed configuration document the outbound hub reads, where
// a blank secret keeps the stored value instead of failing the required
// check.
func (s *Service) Save(ctx context.Context, systemID uuid.UUID, connectorKind string, kind ConfigKind, values []FormValue) (Configuration, error) {
	if !kind.Valid() {
		return Configuration{}, apperr.Invalid("kind", "unknown configuration kind "+string(kind))
	}

	definition, err := s.store.GetFormDefinition(ctx, connectorKind, kind)
	if err != nil {
		return Configuration{}, err
	}

	var storedRaw []byte
	stored := map[string]any{}
	if kind == ConfigKindConnector {
		storedRaw, err = s.connectorConfigs.RawConnectorConfig(ctx, systemID)
		if err != nil {
			return Configuration{}, err
		}
		if len(storedRaw) > 0 {
			if err := json.Unmarshal(storedRaw, &stored); err != nil {
				return Configuration{}, err
			}
		}
	}

	var fields []apperr.FieldError
	byName := make(map[string]string, len(values))
	for _, v := range values {
		name := strings.TrimSpace(v.Name)
		if name == "" {
			fields = append(fields, apperr.FieldError{Field: "name", Message: "is required"})
			continue
		}
		if _, ok := definition.Attribute(name); !ok {
			fields = append(fields, apperr.FieldError{Field: name, Message: "is not a known attribute"})
			continue
		}
		byName[strings.ToLower(name)] = v.Value
	}
	for _, attr := range definition.Attributes {
		if !attr.Required {
			continue
		}
		if strings.TrimSpace(byName[strings.ToLower(attr.Name)]) != "" {
			continue
		}
		if kind == ConfigKindConnector && attr.Secret && storedString(stored, attr.Name) != "" {
			continue
		}
		fields = append(fields, apperr.FieldError{Field: attr.Name, Message: "is required"})
	}
	if len(fields) > 0 {
		return Configuration{}, &apperr.ValidationError{Fields: fields}
	}

	if kind == ConfigKindConnector {
		merged, err := BuildConnectorConfig(connectorKind, storedRaw, values)
		if err != nil {
			return Configuration{}, err
		}
		if err := s.connectorConfigs.SaveConnectorConfig(ctx, systemID, merged); err != nil {
			return Configuration{}, err
		}
	}

	if err := s.store.ReplaceFormValues(ctx, systemID, kind, values); err != nil {
		return Configuration{}, err
	}
	return s.Fetch(ctx, systemID, connectorKind, kind)
}

func storedString(stored map[string]any, name string) string {
	v, _ := stored[strings.ToLower(strings.TrimSpace(name))].(string)
	return strings.TrimSpace(v)
}
