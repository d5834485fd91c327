package schema

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/open-idm/open-idm/internal/apperr"
)

type fakeStore struct {
	classes map[uuid.UUID]ObjectClass
	refs    map[uuid.UUID]int64

	replaceCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		classes: make(map[uuid.UUID]ObjectClass),
		refs:    make(map[uuid.UUID]int64),
	}
}

func (s *fakeStore) add(systemID uuid.UUID, name string, auxiliary, container bool) ObjectClass {
	oc := ObjectClass{
		ID:        uuid.New(),
		SystemID:  systemID,
		Name:      name,
		Auxiliary: auxiliary,
		Container: container,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.classes[oc.ID] = oc
	return oc
}

func (s *fakeStore) ListObjectClasses(_ context.Context, systemID uuid.UUID) ([]ObjectClass, error) {
	var out []ObjectClass
	for _, oc := range s.classes {
		if oc.SystemID == systemID {
			out = append(out, oc)
		}
	}
	return out, nil
}

func (s *fakeStore) GetObjectClass(_ context.Context, id uuid.UUID) (ObjectClass, error) {
	oc, ok := s.classes[id]
	if !ok {
		return ObjectClass{}, apperr.NotFound("object class", id.String())
	}
	return oc, nil
}

func (s *fakeStore) InsertObjectClass(_ context.Context, oc ObjectClass) error {
	s.classes[oc.ID] = oc
	return nil
}

func (s *fakeStore) UpdateObjectClass(_ context.Context, oc ObjectClass) error {
	s.classes[oc.ID] = oc
	return nil
}

func (s *fakeStore) DeleteObjectClass(_ context.Context, id uuid.UUID) error {
	delete(s.classes, id)
	return nil
}

func (s *fakeStore) ReplaceObjectClasses(_ context.Context, systemID uuid.UUID, classes []ObjectClass) error {
	s.replaceCalls++
	for id, oc := range s.classes {
		if oc.SystemID == systemID {
			delete(s.classes, id)
		}
	}
	for _, oc := range classes {
		s.classes[oc.ID] = oc
	}
	return nil
}

func (s *fakeStore) CountRoleSystemsForObjectClass(_ context.Context, id uuid.UUID) (int64, error) {
	return s.refs[id], nil
}

func TestList_FiltersSortsAndPages(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	systemID := uuid.New()
	st.add(systemID, "Group", false, true)
	st.add(systemID, "account", false, false)
	st.add(systemID, "OrgUnit", true, true)
	st.add(uuid.New(), "account", false, false) // different system, must never leak

	svc := NewService(st)
	ctx := context.Background()

	page, err := svc.List(ctx, systemID, ListFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 3 || len(page.Items) != 3 {
		t.Fatalf("List() total = %d items = %d, want 3/3", page.Total, len(page.Items))
	}
	if page.Items[0].Name != "account" || page.Items[1].Name != "Group" || page.Items[2].Name != "OrgUnit" {
		t.Fatalf("default sort by name got %q, %q, %q", page.Items[0].Name, page.Items[1].Name, page.Items[2].Name)
	}

	page, err = svc.List(ctx, systemID, ListFilter{Text: "ORG"})
	if err != nil {
		t.Fatalf("List(text) error = %v", err)
	}
	if page.Total != 1 || page.Items[0].Name != "OrgUnit" {
		t.Fatalf("List(text) = %+v, want the OrgUnit class", page.Items)
	}

	page, err = svc.List(ctx, systemID, ListFilter{Page: 2, PerPage: 2})
	if err != nil {
		t.Fatalf("List(page) error = %v", err)
	}
	if page.Total != 3 || len(page.Items) != 1 {
		t.Fatalf("List(page 2) total = %d items = %d, want 3/1", page.Total, len(page.Items))
	}

	page, err = svc.List(ctx, systemID, ListFilter{Page: 9, PerPage: 2})
	if err != nil {
		t.Fatalf("List(past end) error = %v", err)
	}
	if page.Total != 3 || len(page.Items) != 0 {
		t.Fatalf("List(past end) total = %d items = %d, want 3/0", page.Total, len(page.Items))
	}
}

func TestList_SortByContainer(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	systemID := uuid.New()
	st.add(systemID, "account", false, false)
	st.add(systemID, "orgunit", false, true)

	page, err := NewService(st).List(context.Background(), systemID, ListFilter{SortBy: "container", SortDesc: true})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Items[0].Name != "orgunit" {
		t.Fatalf("List(container desc) first = %q, want orgunit", page.Items[0].Name)
	}
}

func TestCreate_RequiresNameAndUniqueness(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	systemID := uuid.New()
	st.add(systemID, "account", false, false)
	svc := NewService(st)
	ctx := context.Background()

	if _, err := svc.Create(ctx, systemID, "   ", false, false); !apperr.IsValidation(err) {
		t.Fatalf("Create(blank) error = %v, want validation", err)
	}
	if _, err := svc.Create(ctx, systemID, "ACCOUNT", false, false); !apperr.IsConflict(err) {
		t.Fatalf("Create(duplicate) error = %v, want conflict", err)
	}

	oc, err := svc.Create(ctx, systemID, "  group  ", true, false)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if oc.Name != "group" || !oc.Auxiliary {
		t.Fatalf("Create() = %+v, want trimmed auxiliary class", oc)
	}
}

func TestUpdate_KeepsNameUniqueAcrossTheSystem(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	systemID := uuid.New()
	st.add(systemID, "account", false, false)
	target := st.add(systemID, "group", false, false)
	svc := NewService(st)
	ctx := context.Background()

	if _, err := svc.Update(ctx, target.ID, "Account", false, false); !apperr.IsConflict(err) {
		t.Fatalf("Update(collision) error = %v, want conflict", err)
	}

	// Renaming to itself with different casing is allowed.
	oc, err := svc.Update(ctx, target.ID, "GROUP", false, true)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if oc.Name != "GROUP" || !oc.Container {
		t.Fatalf("Update() = %+v", oc)
	}
}

func TestReplace_DuplicateNamesFailBeforeAnyWrite(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	systemID := uuid.New()
	svc := NewService(st)

	err := svc.Replace(context.Background(), systemID, []ObjectClass{
		{ID: uuid.New(), SystemID: systemID, Name: "account"},
		{ID: uuid.New(), SystemID: systemID, Name: "Account"},
	})
	if !apperr.IsConflict(err) {
		t.Fatalf("Replace(duplicates) error = %v, want conflict", err)
	}
	if st.replaceCalls != 0 {
		t.Fatalf("replaceCalls = %d, want 0", st.replaceCalls)
	}
}

func TestDelete_ReportsSkippedEntriesWithReasons(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	systemID := uuid.New()
	deletable := st.add(systemID, "account", false, false)
	referenced := st.add(systemID, "group", false, false)
	st.refs[referenced.ID] = 2
	missing := uuid.New()

	result, err := NewService(st).Delete(context.Background(), []uuid.UUID{deletable.ID, referenced.ID, missing})
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if len(result.Deleted) != 1 || result.Deleted[0] != deletable.ID {
		t.Fatalf("Deleted = %v, want [%s]", result.Deleted, deletable.ID)
	}
	if len(result.Skipped) != 2 {
		t.Fatalf("Skipped = %v, want 2 entries", result.Skipped)
	}
	if result.Skipped[0].ID != referenced.ID || result.Skipped[0].Reason != "referenced by role-system mapping" {
		t.Fatalf("Skipped[0] = %+v", result.Skipped[0])
	}
	if result.Skipped[1].ID != missing || result.Skipped[1].Reason != "not found" {
		t.Fatalf("Skipped[1] = %+v", result.Skipped[1])
	}
	if _, ok := st.classes[referenced.ID]; !ok {
		t.Fatal("referenced class must stay in place")
	}
}
