package connectors

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/open-idm/open-idm/internal/connectors/registry"
)

// ConnectorInfo describes one installed connector kind.
type ConnectorInfo struct {
	Kind        string `json:"kind"`
	DisplayName string `json:"displayName"`
	Framework   string `json:"framework"`
	FullName    string `json:"fullName"`
}

// Framework groups installed connectors by the framework they belong to.
type Framework struct {
	Name       string          `json:"name"`
	Connectors []ConnectorInfo `json:"connectors"`
}

// RemoteConnector is one connector reported by a remote connector server.
type RemoteConnector struct {
	Key         registry.Key `json:"key"`
	DisplayName string       `json:"displayName"`
	Version     string       `json:"version"`
}

// RemoteSource lists the connectors available on a system's remote server.
type RemoteSource interface {
	RemoteConnectors(ctx context.Context, systemID uuid.UUID) ([]RemoteConnector, error)
}

// Inventory caches the connector landscape: installed frameworks, supported
// connector types, and per-system remote connectors. Entries are populated at
// most once per process; changing the installed set requires a restart, so no
// TTL or invalidation exists. Concurrent first readers share one upstream
// fetch.
type Inventory struct {
	registry *registry.Registry
	remote   RemoteSource

	group singleflight.Group

	mu         sync.RWMutex
	frameworks []Framework
	types      []ConnectorInfo
	remotes    map[string][]RemoteConnector
}

// NewInventory creates an inventory over the registry and remote source.
func NewInventory(reg *registry.Registry, remote RemoteSource) *Inventory {
	return &Inventory{
		registry: reg,
		remote:   remote,
		remotes:  make(map[string][]RemoteConnector),
	}
}

// Frameworks returns the installed connector frameworks.
func (inv *Inventory) Frameworks(ctx context.Context) ([]Framework, error) {
	inv.mu.RLock()
	cached := inv.frameworks
	inv.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	v, err, _ := inv.group.Do("frameworks", func() (any, error) {
		inv.mu.RLock()
		cached := inv.frameworks
		inv.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		byName := make(map[string][]ConnectorInfo)
		for _, def := range inv.registry.All() {
			byName[def.Framework()] = append(byName[def.Framework()], connectorInfo(def))
		}
		names := make([]string, 0, len(byName))
		for name := range byName {
			names = append(names, name)
		}
		sort.Strings(names)
		frameworks := make([]Framework, 0, len(names))
		for _, name := range names {
			frameworks = append(frameworks, Framework{Name: name, Connectors: byName[name]})
		}

		inv.mu.Lock()
		inv.frameworks = frameworks
		inv.mu.Unlock()
		return frameworks, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Framework), nil
}

// SupportedTypes returns every installed connector kind in display order.
func (inv *Inventory) SupportedTypes(ctx context.Context) ([]ConnectorInfo, error) {
	inv.mu.RLock()
	cached := inv.types
	inv.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	v, err, _ := inv.group.Do("types", func() (any, error) {
		inv.mu.RLock()
		cached := inv.types
		inv.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		defs := inv.registry.All()
		types := make([]ConnectorInfo, 0, len(defs))
		for _, def := range defs {
			types = append(types, connectorInfo(def))
		}

		inv.mu.Lock()
		inv.types = types
		inv.mu.Unlock()
		return types, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]ConnectorInfo), nil
}

// RemoteConnectors returns the connectors available on the system's remote
// server, fetching at most once per system. A failed fetch caches nothing so
// the next caller retries.
func (inv *Inventory) RemoteConnectors(ctx context.Context, systemID uuid.UUID) ([]RemoteConnector, error) {
	key := systemID.String()

	inv.mu.RLock()
	cached, ok := inv.remotes[key]
	inv.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := inv.group.Do("remote:"+key, func() (any, error) {
		inv.mu.RLock()
		cached, ok := inv.remotes[key]
		inv.mu.RUnlock()
		if ok {
			return cached, nil
		}

		remotes, err := inv.remote.RemoteConnectors(ctx, systemID)
		if err != nil {
			return nil, err
		}

		inv.mu.Lock()
		inv.remotes[key] = remotes
		inv.mu.Unlock()
		return remotes, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]RemoteConnector), nil
}

func connectorInfo(def registry.Definition) ConnectorInfo {
	return ConnectorInfo{
		Kind:        def.Kind(),
		DisplayName: def.DisplayName(),
		Framework:   def.Framework(),
		FullName:    registry.Key{Kind: def.Kind(), Name: def.Framework()}.FullName(),
	}
}
