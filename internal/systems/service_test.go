package systems

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/open-idm/open-idm/internal/apperr"
	"github.com/open-idm/open-idm/internal/connectors"
	"github.com/open-idm/open-idm/internal/connectors/registry"
	"github.com/open-idm/open-idm/internal/locking"
	"github.com/open-idm/open-idm/internal/schema"
)

type fakeStore struct {
	systems  map[uuid.UUID]System
	accounts map[uuid.UUID]int64
	copies   [][2]uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		systems:  make(map[uuid.UUID]System),
		accounts: make(map[uuid.UUID]int64),
	}
}

func (s *fakeStore) add(name string) System {
	sys := System{
		ID:        uuid.New(),
		Name:      name,
		State:     StateNew,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.systems[sys.ID] = sys
	return sys
}

func (s *fakeStore) GetSystem(_ context.Context, id uuid.UUID) (System, error) {
	sys, ok := s.systems[id]
	if !ok || sys.DeletedAt != nil {
		return System{}, apperr.NotFound("system", id.String())
	}
	return sys, nil
}

func (s *fakeStore) ListSystems(_ context.Context, _ ListFilter) ([]System, int64, error) {
	var out []System
	for _, sys := range s.systems {
		if sys.DeletedAt == nil {
			out = append(out, sys)
		}
	}
	return out, int64(len(out)), nil
}

func (s *fakeStore) InsertSystem(_ context.Context, sys System) error {
	s.systems[sys.ID] = sys
	return nil
}

func (s *fakeStore) UpdateSystem(_ context.Context, sys System) error {
	if _, ok := s.systems[sys.ID]; !ok {
		return apperr.NotFound("system", sys.ID.String())
	}
	s.systems[sys.ID] = sys
	return nil
}

func (s *fakeStore) SoftDeleteSystem(_ context.Context, id uuid.UUID, at time.Time) error {
	sys, ok := s.systems[id]
	if !ok {
		return apperr.NotFound("system", id.String())
	}
	sys.DeletedAt = &at
	s.systems[id] = sys
	return nil
}

func (s *fakeStore) SystemNameExists(_ context.Context, name string, exclude uuid.UUID) (bool, error) {
	for _, sys := range s.systems {
		if sys.ID == exclude || sys.DeletedAt != nil {
			continue
		}
		if strings.EqualFold(sys.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) CountAccountsForSystem(_ context.Context, id uuid.UUID) (int64, error) {
	return s.accounts[id], nil
}

func (s *fakeStore) CopyConfiguration(_ context.Context, src, dst uuid.UUID) error {
	s.copies = append(s.copies, [2]uuid.UUID{src, dst})
	return nil
}

type fakeSchemaCache struct {
	classes map[uuid.UUID][]schema.ObjectClass

	replaceErr error
}

func newFakeSchemaCache() *fakeSchemaCache {
	return &fakeSchemaCache{classes: make(map[uuid.UUID][]schema.ObjectClass)}
}

func (c *fakeSchemaCache) List(_ context.Context, systemID uuid.UUID, _ schema.ListFilter) (schema.Page, error) {
	items := c.classes[systemID]
	return schema.Page{Items: items, Total: int64(len(items))}, nil
}

func (c *fakeSchemaCache) Replace(_ context.Context, systemID uuid.UUID, classes []schema.ObjectClass) error {
	if c.replaceErr != nil {
		return c.replaceErr
	}
	c.classes[systemID] = classes
	return nil
}

type fakeReader struct {
	specs []registry.ObjectClassSpec
	err   error
	calls int
}

func (r *fakeReader) ReadSchema(_ context.Context, _ connectors.Target) ([]registry.ObjectClassSpec, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.specs, nil
}

func newService(st *fakeStore, cache *fakeSchemaCache, reader *fakeReader) *Service {
	return NewService(st, cache, reader, locking.NewLocalManager(), nil, 2)
}

func TestCreate_NormalizesInput(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	svc := newService(st, newFakeSchemaCache(), &fakeReader{})

	sys, err := svc.Create(context.Background(), CreateInput{Name: "  CRM  ", ConnectorKind: " Okta "})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sys.Name != "CRM" || sys.ConnectorKind != "okta" || sys.State != StateNew {
		t.Fatalf("Create() = %+v", sys)
	}
}

func TestCreate_RejectsDuplicateName(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	st.add("CRM")
	svc := newService(st, newFakeSchemaCache(), &fakeReader{})

	if _, err := svc.Create(context.Background(), CreateInput{Name: "crm"}); !apperr.IsConflict(err) {
		t.Fatalf("Create(duplicate) error = %v, want conflict", err)
	}
}

func TestSetState_Transitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		from     State
		to       State
		wantErr  bool
		conflict bool
	}{
		{name: "new to configured", from: StateNew, to: StateConfigured},
		{name: "configured to enabled", from: StateConfigured, to: StateEnabled},
		{name: "staying put", from: StateConfigured, to: StateConfigured},
		{name: "skipping a step", from: StateNew, to: StateEnabled, wantErr: true, conflict: true},
		{name: "moving backwards", from: StateEnabled, to: StateConfigured, wantErr: true, conflict: true},
		{name: "unknown state", from: StateNew, to: State("archived"), wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			st := newFakeStore()
			sys := st.add("CRM")
			sys.State = tc.from
			st.systems[sys.ID] = sys
			svc := newService(st, newFakeSchemaCache(), &fakeReader{})

			got, err := svc.SetState(context.Background(), sys.ID, tc.to)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("SetState(%s -> %s) expected error", tc.from, tc.to)
				}
				if tc.conflict && !apperr.IsConflict(err) {
					t.Fatalf("SetState() error = %v, want conflict", err)
				}
				if !tc.conflict && !apperr.IsValidation(err) {
					t.Fatalf("SetState() error = %v, want validation", err)
				}
				if st.systems[sys.ID].State != tc.from {
					t.Fatalf("state changed to %s on failure", st.systems[sys.ID].State)
				}
				return
			}
			if err != nil {
				t.Fatalf("SetState() error = %v", err)
			}
			if got.State != tc.to {
				t.Fatalf("SetState() state = %s, want %s", got.State, tc.to)
			}
		})
	}
}

func TestSetState_DoesNotTouchFlags(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	sys := st.add("CRM")
	sys.Disabled = true
	sys.Readonly = true
	st.systems[sys.ID] = sys
	svc := newService(st, newFakeSchemaCache(), &fakeReader{})

	got, err := svc.SetState(context.Background(), sys.ID, StateConfigured)
	if err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	if !got.Disabled || !got.Readonly {
		t.Fatalf("SetState() cleared flags: %+v", got)
	}
}

func TestDelete_RefusedWhileAccountsRemain(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	sys := st.add("CRM")
	st.accounts[sys.ID] = 3
	svc := newService(st, newFakeSchemaCache(), &fakeReader{})

	if err := svc.Delete(context.Background(), sys.ID); !apperr.IsConflict(err) {
		t.Fatalf("Delete() error = %v, want conflict", err)
	}
	if st.systems[sys.ID].DeletedAt != nil {
		t.Fatal("system must stay in place on conflict")
	}

	st.accounts[sys.ID] = 0
	if err := svc.Delete(context.Background(), sys.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if st.systems[sys.ID].DeletedAt == nil {
		t.Fatal("system not soft-deleted")
	}
}

func TestDuplicate_CopiesSchemaAndConfiguration(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	src := st.add("CRM")
	cache := newFakeSchemaCache()
	cache.classes[src.ID] = []schema.ObjectClass{
		{ID: uuid.New(), SystemID: src.ID, Name: "account"},
		{ID: uuid.New(), SystemID: src.ID, Name: "group"},
	}
	svc := newService(st, cache, &fakeReader{})

	results, err := svc.Duplicate(context.Background(), []uuid.UUID{src.ID})
	if err != nil {
		t.Fatalf("Duplicate() error = %v", err)
	}
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("Duplicate() results = %+v", results)
	}

	dup := results[0].System
	if dup.Name != "CRM (copy)" {
		t.Fatalf("copy name = %q, want %q", dup.Name, "CRM (copy)")
	}
	if !dup.Disabled {
		t.Fatal("copies must start out disabled")
	}
	if dup.ID == src.ID {
		t.Fatal("copy must get a fresh id")
	}

	copied := cache.classes[dup.ID]
	if len(copied) != 2 {
		t.Fatalf("copied %d object classes, want 2", len(copied))
	}
	for _, oc := range copied {
		if oc.SystemID != dup.ID {
			t.Fatalf("copied class points at %s, want %s", oc.SystemID, dup.ID)
		}
	}
	if len(st.copies) != 1 || st.copies[0] != [2]uuid.UUID{src.ID, dup.ID} {
		t.Fatalf("configuration copies = %v", st.copies)
	}
}

func TestDuplicate_NamesAvoidCollisions(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	src := st.add("CRM")
	st.add("CRM (copy)")
	st.add("CRM (copy 2)")
	svc := newService(st, newFakeSchemaCache(), &fakeReader{})

	results, err := svc.Duplicate(context.Background(), []uuid.UUID{src.ID})
	if err != nil {
		t.Fatalf("Duplicate() error = %v", err)
	}
	if got := results[0].System.Name; got != "CRM (copy 3)" {
		t.Fatalf("copy name = %q, want %q", got, "CRM (copy 3)")
	}
}

func TestDuplicate_ItemsAreIndependent(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	first := st.add("CRM")
	missing := uuid.New()
	second := st.add("HR")
	svc := newService(st, newFakeSchemaCache(), &fakeReader{})

	results, err := svc.Duplicate(context.Background(), []uuid.UUID{first.ID, missing, second.ID})
	if err != nil {
		t.Fatalf("Duplicate() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if results[0].SourceID != first.ID || results[0].Err != nil {
		t.Fatalf("results[0] = %+v", results[0])
	}
	if results[1].SourceID != missing || !apperr.IsNotFound(results[1].Err) {
		t.Fatalf("results[1] = %+v, want not found", results[1])
	}
	if results[2].SourceID != second.ID || results[2].Err != nil {
		t.Fatalf("results[2] = %+v", results[2])
	}
}

func TestDuplicate_EmptyBatchIsInvalid(t *testing.T) {
	t.Parallel()

	svc := newService(newFakeStore(), newFakeSchemaCache(), &fakeReader{})
	if _, err := svc.Duplicate(context.Background(), nil); !apperr.IsValidation(err) {
		t.Fatalf("Duplicate(nil) error = %v, want validation", err)
	}
}

func TestGenerateSchema_ReplacesCacheAndBumpsState(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	sys := st.add("CRM")
	sys.ConnectorKind = "okta"
	st.systems[sys.ID] = sys
	cache := newFakeSchemaCache()
	reader := &fakeReader{specs: []registry.ObjectClassSpec{
		{Name: "account"},
		{Name: "group", Container: true},
	}}
	svc := newService(st, cache, reader)

	classes, err := svc.GenerateSchema(context.Background(), sys.ID)
	if err != nil {
		t.Fatalf("GenerateSchema() error = %v", err)
	}
	if len(classes) != 2 {
		t.Fatalf("len(classes) = %d, want 2", len(classes))
	}
	if got := st.systems[sys.ID].State; got != StateConfigured {
		t.Fatalf("state = %s, want %s", got, StateConfigured)
	}
	if len(cache.classes[sys.ID]) != 2 {
		t.Fatalf("cached %d classes, want 2", len(cache.classes[sys.ID]))
	}
}

func TestGenerateSchema_FailedReadLeavesPriorSchemaUntouched(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	sys := st.add("CRM")
	cache := newFakeSchemaCache()
	prior := []schema.ObjectClass{{ID: uuid.New(), SystemID: sys.ID, Name: "account"}}
	cache.classes[sys.ID] = prior
	reader := &fakeReader{err: errors.New("connection refused")}
	svc := newService(st, cache, reader)

	if _, err := svc.GenerateSchema(context.Background(), sys.ID); err == nil {
		t.Fatal("GenerateSchema() expected error")
	}
	if got := cache.classes[sys.ID]; len(got) != 1 || got[0].Name != "account" {
		t.Fatalf("prior schema modified: %+v", got)
	}
	if got := st.systems[sys.ID].State; got != StateNew {
		t.Fatalf("state = %s, want %s", got, StateNew)
	}
}

func TestGenerateSchema_MappedClassesBlockTheReplace(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	sys := st.add("CRM")
	cache := newFakeSchemaCache()
	prior := []schema.ObjectClass{{ID: uuid.New(), SystemID: sys.ID, Name: "account"}}
	cache.classes[sys.ID] = prior
	cache.replaceErr = apperr.Conflict("object class", "still referenced (role_systems_object_class_id_fkey)")
	reader := &fakeReader{specs: []registry.ObjectClassSpec{{Name: "account"}}}
	svc := newService(st, cache, reader)

	if _, err := svc.GenerateSchema(context.Background(), sys.ID); !apperr.IsConflict(err) {
		t.Fatalf("GenerateSchema() error = %v, want conflict", err)
	}
	if got := cache.classes[sys.ID]; len(got) != 1 || got[0].ID != prior[0].ID {
		t.Fatalf("prior schema modified: %+v", got)
	}
	if got := st.systems[sys.ID].State; got != StateNew {
		t.Fatalf("state = %s, want %s", got, StateNew)
	}
}

func TestGenerateSchema_RejectsVirtualSystems(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	sys := st.add("CRM")
	sys.Virtual = true
	st.systems[sys.ID] = sys
	reader := &fakeReader{}
	svc := newService(st, newFakeSchemaCache(), reader)

	if _, err := svc.GenerateSchema(context.Background(), sys.ID); !apperr.IsValidation(err) {
		t.Fatalf("GenerateSchema(virtual) error = %v, want validation", err)
	}
	if reader.calls != 0 {
		t.Fatalf("reader called %d times on a virtual system", reader.calls)
	}
}

func TestGenerateSchema_ConcurrentRunsConflict(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	sys := st.add("CRM")
	locks := locking.NewLocalManager()
	svc := NewService(st, newFakeSchemaCache(), &fakeReader{}, locks, nil, 2)

	held, ok, err := locks.TryAcquire(context.Background(), "schema-generate", sys.ID.String())
	if err != nil || !ok {
		t.Fatalf("TryAcquire() = (%v, %v)", ok, err)
	}
	defer func() { _ = held.Release(context.Background()) }()

	if _, err := svc.GenerateSchema(context.Background(), sys.ID); !apperr.IsConflict(err) {
		t.Fatalf("GenerateSchema() error = %v, want conflict while lock is held", err)
	}
}

func TestEffectiveBlockedOperations(t *testing.T) {
	t.Parallel()

	sys := System{Blocked: BlockedOperations{UpdateOperation: true}}
	if got := sys.EffectiveBlockedOperations(); got.CreateOperation || !got.UpdateOperation {
		t.Fatalf("EffectiveBlockedOperations() = %+v", got)
	}

	sys.DisabledProvisioning = true
	got := sys.EffectiveBlockedOperations()
	if !got.CreateOperation || !got.UpdateOperation || !got.DeleteOperation {
		t.Fatalf("EffectiveBlockedOperations() with disabled provisioning = %+v, want all blocked", got)
	}
}
