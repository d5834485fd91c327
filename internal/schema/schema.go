// Package schema maintains the object-class schema cached per system and
// exposes it for mapping configuration.
package schema

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/open-idm/open-idm/internal/apperr"
)

// ObjectClass is one entry of a system's remote structural metadata.
type ObjectClass struct {
	ID        uuid.UUID
	SystemID  uuid.UUID
	Name      string
	Auxiliary bool
	Container bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListFilter narrows and orders an object-class listing.
type ListFilter struct {
	// Text is matched as a case-insensitive substring of the class name.
	Text     string
	SortBy   string // name | auxiliary | container
	SortDesc bool
	Page     int
	PerPage  int
}

// Page is one page of an object-class listing.
type Page struct {
	Items []ObjectClass
	Total int64
}

// DeleteResult reports a bulk delete: what was removed and what was skipped,
// each skipped entry with its reason. Skipped entries are never silently
// dropped.
type DeleteResult struct {
	Deleted []uuid.UUID
	Skipped []SkippedObjectClass
}

// SkippedObjectClass is one bulk-delete entry that was left in place.
type SkippedObjectClass struct {
	ID     uuid.UUID
	Reason string
}

// Store is the persistence contract the cache runs against.
type Store interface {
	ListObjectClasses(ctx context.Context, systemID uuid.UUID) ([]ObjectClass, error)
	GetObjectClass(ctx context.Context, id uuid.UUID) (ObjectClass, error)
	InsertObjectClass(ctx context.Context, oc ObjectClass) error
	UpdateObjectClass(ctx context.Context, oc ObjectClass) error
	DeleteObjectClass(ctx context.Context, id uuid.UUID) error
	// ReplaceObjectClasses swaps a system's entire schema set in one
	// transaction. Either every row lands or none do.
	ReplaceObjectClasses(ctx context.Context, systemID uuid.UUID, classes []ObjectClass) error
	// CountRoleSystemsForObjectClass reports how many active role-system
	// mappings still reference the object class.
	CountRoleSystemsForObjectClass(ctx context.Context, id uuid.UUID) (int64, error)
}

// Service implements the schema cache operations.
type Service struct {
	store Store
}

// NewService creates a schema cache over the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns the system's object classes filtered, sorted, and paged.
func (s *Service) List(ctx context.Context, systemID uuid.UUID, filter ListFilter) (Page, error) {
	classes, err := s.store.ListObjectClasses(ctx, systemID)
	if err != nil {
		return Page{}, err
	}

	if text := strings.ToLower(strings.TrimSpace(filter.Text)); text != "" {
		kept := classes[:0]
		for _, oc := range classes {
			if strings.Contains(strings.ToLower(oc.Name), text) {
				kept = append(kept, oc)
			}
		}
		classes = kept
	}

	sortObjectClasses(classes, filter.SortBy, filter.SortDesc)

	total := int64(len(classes))
	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		return Page{Items: classes, Total: total}, nil
	}
	offset := (page - 1) * perPage
	if offset >= len(classes) {
		return Page{Items: nil, Total: total}, nil
	}
	end := offset + perPage
	if end > len(classes) {
		end = len(classes)
	}
	return Page{Items: classes[offset:end], Total: total}, nil
}

// Create adds a single object class, preserving per-system name uniqueness.
func (s *Service) Create(ctx context.Context, systemID uuid.UUID, name string, auxiliary, container bool) (ObjectClass, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ObjectClass{}, apperr.Invalid("objectClassName", "is required")
	}
	if err := s.ensureUniqueName(ctx, systemID, name, uuid.Nil); err != nil {
		return ObjectClass{}, err
	}
	oc := ObjectClass{
		ID:        uuid.New(),
		SystemID:  systemID,
		Name:      name,
		Auxiliary: auxiliary,
		Container: container,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.InsertObjectClass(ctx, oc); err != nil {
		return ObjectClass{}, err
	}
	return oc, nil
}

// Update edits a single object class, preserving per-system name uniqueness.
func (s *Service) Update(ctx context.Context, id uuid.UUID, name string, auxiliary, container bool) (ObjectClass, error) {
	oc, err := s.store.GetObjectClass(ctx, id)
	if err != nil {
		return ObjectClass{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ObjectClass{}, apperr.Invalid("objectClassName", "is required")
	}
	if err := s.ensureUniqueName(ctx, oc.SystemID, name, oc.ID); err != nil {
		return ObjectClass{}, err
	}
	oc.Name = name
	oc.Auxiliary = auxiliary
	oc.Container = container
	oc.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateObjectClass(ctx, oc); err != nil {
		return ObjectClass{}, err
	}
	return oc, nil
}

// Replace swaps the system's entire schema set. This is the only bulk-write
// path; schema generation goes through it. Duplicate names within the new set
// fail the whole replace before anything is written.
func (s *Service) Replace(ctx context.Context, systemID uuid.UUID, classes []ObjectClass) error {
	seen := make(map[string]struct{}, len(classes))
	for _, oc := range classes {
		key := strings.ToLower(strings.TrimSpace(oc.Name))
		if key == "" {
			return apperr.Invalid("objectClassName", "is required")
		}
		if _, dup := seen[key]; dup {
			return apperr.Conflict("object class", "duplicate name "+oc.Name)
		}
		seen[key] = struct{}{}
	}
	return s.store.ReplaceObjectClasses(ctx, systemID, classes)
}

// Delete removes the given object classes. Classes still referenced by an
// active role-system mapping are reported in the skipped set with a conflict
// reason and left in place; missing ids are reported as skipped too.
func (s *Service) Delete(ctx context.Context, ids []uuid.UUID) (DeleteResult, error) {
	var result DeleteResult
	for _, id := range ids {
		if _, err := s.store.GetObjectClass(ctx, id); err != nil {
			if apperr.IsNotFound(err) {
				result.Skipped = append(result.Skipped, SkippedObjectClass{ID: id, Reason: "not found"})
				continue
			}
			return DeleteResult{}, err
		}
		refs, err := s.store.CountRoleSystemsForObjectClass(ctx, id)
		if err != nil {
			return DeleteResult{}, err
		}
		if refs > 0 {
			result.Skipped = append(result.Skipped, SkippedObjectClass{ID: id, Reason: "referenced by role-system mapping"})
			continue
		}
		if err := s.store.DeleteObjectClass(ctx, id); err != nil {
			return DeleteResult{}, err
		}
		result.Deleted = append(result.Deleted, id)
	}
	return result, nil
}

func (s *Service) ensureUniqueName(ctx context.Context, systemID uuid.UUID, name string, self uuid.UUID) error {
	classes, err := s.store.ListObjectClasses(ctx, systemID)
	if err != nil {
		return err
	}
	for _, existing := range classes {
		if existing.ID == self {
			continue
		}
		if strings.EqualFold(existing.Name, name) {
			return apperr.Conflict("object class", "name "+name+" already exists on system")
		}
	}
	return nil
}

func sortObjectClasses(classes []ObjectClass, sortBy string, desc bool) {
	less := func(a, b ObjectClass) bool {
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	}
	switch strings.ToLower(strings.TrimSpace(sortBy)) {
	case "auxiliary":
		less = func(a, b ObjectClass) bool {
			if a.Auxiliary != b.Auxiliary {
				return !a.Auxiliary
			}
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	case "container":
		less = func(a, b ObjectClass) bool {
			if a.Container != b.Container {
				return !a.Container
			}
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}
	sort.SliceStable(classes, func(i, j int) bool {
		if desc {
			return less(classes[j], classes[i])
		}
		return less(classes[i], classes[j])
	})
}
