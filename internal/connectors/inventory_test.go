package connectors

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/open-idm/open-idm/internal/connectors/registry"
)

type countingRemote struct {
	fetches int64
	err     error
	gate    chan struct{}
}

func (r *countingRemote) RemoteConnectors(_ context.Context, systemID uuid.UUID) ([]RemoteConnector, error) {
	atomic.AddInt64(&r.fetches, 1)
	if r.gate != nil {
		<-r.gate
	}
	if r.err != nil {
		return nil, r.err
	}
	return []RemoteConnector{{
		Key:         registry.Key{Kind: "ldap", Name: systemID.String()},
		DisplayName: "LDAP",
		Version:     "1.0",
	}}, nil
}

func inventoryRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.NewRegistry()
	for _, def := range []*stubDefinition{
		{kind: "okta", configured: true, client: &stubClient{}},
		{kind: "vault", configured: true, client: &stubClient{}},
	} {
		if err := reg.Register(def); err != nil {
			t.Fatalf("Register(%s) error = %v", def.kind, err)
		}
	}
	return reg
}

func TestFrameworks_GroupsInstalledConnectors(t *testing.T) {
	t.Parallel()

	inv := NewInventory(inventoryRegistry(t), &countingRemote{})

	frameworks, err := inv.Frameworks(context.Background())
	if err != nil {
		t.Fatalf("Frameworks() error = %v", err)
	}
	if len(frameworks) != 1 || frameworks[0].Name != "test" {
		t.Fatalf("Frameworks() = %+v", frameworks)
	}
	if len(frameworks[0].Connectors) != 2 {
		t.Fatalf("connectors = %+v, want 2", frameworks[0].Connectors)
	}
}

func TestSupportedTypes_KeepsRegistrationOrder(t *testing.T) {
	t.Parallel()

	inv := NewInventory(inventoryRegistry(t), &countingRemote{})

	types, err := inv.SupportedTypes(context.Background())
	if err != nil {
		t.Fatalf("SupportedTypes() error = %v", err)
	}
	if len(types) != 2 || types[0].Kind != "okta" || types[1].Kind != "vault" {
		t.Fatalf("SupportedTypes() = %+v", types)
	}
	if types[0].FullName != "okta:test" {
		t.Fatalf("FullName = %q, want okta:test", types[0].FullName)
	}
}

func TestRemoteConnectors_ConcurrentFirstReadersShareOneFetch(t *testing.T) {
	t.Parallel()

	remote := &countingRemote{gate: make(chan struct{})}
	inv := NewInventory(inventoryRegistry(t), remote)
	systemID := uuid.New()

	const readers = 8
	var wg sync.WaitGroup
	errs := make([]error, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = inv.RemoteConnectors(context.Background(), systemID)
		}(i)
	}
	close(remote.gate)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("reader %d error = %v", i, err)
		}
	}
	if got := atomic.LoadInt64(&remote.fetches); got != 1 {
		t.Fatalf("fetches = %d, want 1", got)
	}
}

func TestRemoteConnectors_FailedFetchIsNotCached(t *testing.T) {
	t.Parallel()

	remote := &countingRemote{err: errors.New("server unreachable")}
	inv := NewInventory(inventoryRegistry(t), remote)
	systemID := uuid.New()

	if _, err := inv.RemoteConnectors(context.Background(), systemID); err == nil {
		t.Fatal("RemoteConnectors() expected error")
	}

	remote.err = nil
	remotes, err := inv.RemoteConnectors(context.Background(), systemID)
	if err != nil {
		t.Fatalf("RemoteConnectors() retry error = %v", err)
	}
	if len(remotes) != 1 {
		t.Fatalf("remotes = %+v, want 1 entry", remotes)
	}
	if got := atomic.LoadInt64(&remote.fetches); got != 2 {
		t.Fatalf("fetches = %d, want 2", got)
	}
}

func TestRemoteConnectors_SecondReadHitsTheCache(t *testing.T) {
	t.Parallel()

	remote := &countingRemote{}
	inv := NewInventory(inventoryRegistry(t), remote)
	systemID := uuid.New()

	for i := 0; i < 3; i++ {
		if _, err := inv.RemoteConnectors(context.Background(), systemID); err != nil {
			t.Fatalf("RemoteConnectors() error = %v", err)
		}
	}
	if got := atomic.LoadInt64(&remote.fetches); got != 1 {
		t.Fatalf("fetches = %d, want 1", got)
	}
}
