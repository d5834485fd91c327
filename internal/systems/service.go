package systems

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/open-idm/open-idm/internal/apperr"
	"github.com/open-idm/open-idm/internal/connectors"
	"github.com/open-idm/open-idm/internal/connectors/registry"
	"github.com/open-idm/open-idm/internal/locking"
	"github.com/open-idm/open-idm/internal/metrics"
	"github.com/open-idm/open-idm/internal/parallel"
	"github.com/open-idm/open-idm/internal/schema"
)

const schemaLockScope = "schema-generate"

// ListFilter narrows and orders a system listing.
type ListFilter struct {
	Text     string
	Virtual  *bool
	Disabled *bool
	SortBy   string // name | created_at | state
	SortDesc bool
	Page     int
	PerPage  int
}

// Store is the persistence contract for systems.
type Store interface {
	GetSystem(ctx context.Context, id uuid.UUID) (System, error)
	ListSystems(ctx context.Context, filter ListFilter) ([]System, int64, error)
	InsertSystem(ctx context.Context, sys System) error
	UpdateSystem(ctx context.Context, sys System) error
	SoftDeleteSystem(ctx context.Context, id uuid.UUID, at time.Time) error
	// SystemNameExists matches case-insensitively among non-deleted systems,
	// excluding the given id.
	SystemNameExists(ctx context.Context, name string, exclude uuid.UUID) (bool, error)
	CountAccountsForSystem(ctx context.Context, id uuid.UUID) (int64, error)
	// CopyConfiguration copies every configuration facet of src onto dst.
	CopyConfiguration(ctx context.Context, src, dst uuid.UUID) error
}

// SchemaCache is the slice of the schema service the registry drives.
type SchemaCache interface {
	List(ctx context.Context, systemID uuid.UUID, filter schema.ListFilter) (schema.Page, error)
	Replace(ctx context.Context, systemID uuid.UUID, classes []schema.ObjectClass) error
}

// SchemaReader reads remote object-class metadata for a system.
type SchemaReader interface {
	ReadSchema(ctx context.Context, target connectors.Target) ([]registry.ObjectClassSpec, error)
}

// Service implements the system registry operations.
type Service struct {
	store            Store
	schema           SchemaCache
	reader           SchemaReader
	locks            locking.Manager
	logger           *slog.Logger
	duplicateWorkers int
}

// NewService creates a system registry service.
func NewService(store Store, schemaCache SchemaCache, reader SchemaReader, locks locking.Manager, logger *slog.Logger, duplicateWorkers int) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:            store,
		schema:           schemaCache,
		reader:           reader,
		locks:            locks,
		logger:           logger,
		duplicateWorkers: duplicateWorkers,
	}
}

// CreateInput carries the writable fields of a new system.
type CreateInput struct {
	Name                 string
	Description          string
	ConnectorKind        string
	Virtual              bool
	Readonly             bool
	Remote               bool
	Queue                bool
	DisabledProvisioning bool
}

// Create registers a new system in state new.
func (s *Service) Create(ctx context.Context, in CreateInput) (System, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return System{}, apperr.Invalid("name", "is required")
	}
	exists, err := s.store.SystemNameExists(ctx, name, uuid.Nil)
	if err != nil {
		return System{}, err
	}
	if exists {
		return System{}, apperr.Conflict("system", "name "+name+" already exists")
	}

	now := time.Now().UTC()
	sys := System{
		ID:                   uuid.New(),
		Name:                 name,
		Description:          strings.TrimSpace(in.Description),
		ConnectorKind:        strings.ToLower(strings.TrimSpace(in.ConnectorKind)),
		Virtual:              in.Virtual,
		Readonly:             in.Readonly,
		Remote:               in.Remote,
		Queue:                in.Queue,
		DisabledProvisioning: in.DisabledProvisioning,
		State:                StateNew,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.store.InsertSystem(ctx, sys); err != nil {
		return System{}, err
	}
	s.logger.Info("system created", "system_id", sys.ID, "name", sys.Name, "connector_kind", sys.ConnectorKind)
	return sys, nil
}

// Get returns a single non-deleted system.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (System, error) {
	return s.store.GetSystem(ctx, id)
}

// List returns systems matching the filter with a total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]System, int64, error) {
	return s.store.ListSystems(ctx, filter)
}

// UpdateInput carries the writable fields of an existing system.
type UpdateInput struct {
	Name                 string
	Description          string
	Readonly             bool
	Disabled             bool
	DisabledProvisioning bool
	Queue                bool
	Remote               bool
}

// Update edits a system's descriptive fields and orthogonal flags. Structural
// state and blocked operations have their own paths.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (System, error) {
	sys, err := s.store.GetSystem(ctx, id)
	if err != nil {
		return System{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return System{}, apperr.Invalid("name", "is required")
	}
	exists, err := s.store.SystemNameExists(ctx, name, id)
	if err != nil {
		return System{}, err
	}
	if exists {
		return System{}, apperr.Conflict("system", "name "+name+" already exists")
	}

	sys.Name = name
	sys.Description = strings.TrimSpace(in.Description)
	sys.Readonly = in.Readonly
	sys.Disabled = in.Disabled
	sys.DisabledProvisioning = in.DisabledProvisioning
	sys.Queue = in.Queue
	sys.Remote = in.Remote
	sys.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateSystem(ctx, sys); err != nil {
		return System{}, err
	}
	return sys, nil
}

// SetBlockedOperations replaces the per-operation provisioning blocks.
func (s *Service) SetBlockedOperations(ctx context.Context, id uuid.UUID, blocked BlockedOperations) (System, error) {
	sys, err := s.store.GetSystem(ctx, id)
	if err != nil {
		return System{}, err
	}
	sys.Blocked = blocked
	sys.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateSystem(ctx, sys); err != nil {
		return System{}, err
	}
	return sys, nil
}

// SetState moves the system's structural state. The disabled and readonly
// flags never change here.
func (s *Service) SetState(ctx context.Context, id uuid.UUID, next State) (System, error) {
	if !next.Valid() {
		return System{}, apperr.Invalid("state", "unknown state "+string(next))
	}
	sys, err := s.store.GetSystem(ctx, id)
	if err != nil {
		return System{}, err
	}
	if !sys.State.CanTransitionTo(next) {
		return System{}, apperr.Conflict("system", fmt.Sprintf("cannot transition from %s to %s", sys.State, next))
	}
	sys.State = next
	sys.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateSystem(ctx, sys); err != nil {
		return System{}, err
	}
	return sys, nil
}

// Delete soft-deletes a system. A system still referenced by accounts stays in
// place and the call reports a conflict.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	sys, err := s.store.GetSystem(ctx, id)
	if err != nil {
		return err
	}
	refs, err := s.store.CountAccountsForSystem(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return apperr.Conflict("system", fmt.Sprintf("%d accounts still reference the system", refs))
	}
	if err := s.store.SoftDeleteSystem(ctx, id, time.Now().UTC()); err != nil {
		return err
	}
	s.logger.Info("system deleted", "system_id", sys.ID, "name", sys.Name)
	return nil
}

// DuplicateResult is the outcome of copying one system.
type DuplicateResult struct {
	SourceID uuid.UUID
	System   System
	Err      error
}

// Duplicate copies each listed system under a fresh name, including its
// object-class schema and connector configuration. Items are independent: one
// failure never stops the rest, and every id gets an outcome in input order.
func (s *Service) Duplicate(ctx context.Context, ids []uuid.UUID) ([]DuplicateResult, error) {
	if len(ids) == 0 {
		return nil, apperr.Invalid("ids", "at least one system is required")
	}

	settled := parallel.Settle(ctx, ids, s.duplicateWorkers, s.duplicateOne)
	results := make([]DuplicateResult, 0, len(settled))
	for _, item := range settled {
		status := "ok"
		if item.Err != nil {
			status = "error"
		}
		metrics.SystemDuplicationsTotal.WithLabelValues(status).Inc()
		results = append(results, DuplicateResult{SourceID: item.Item, System: item.Value, Err: item.Err})
	}
	return results, nil
}

func (s *Service) duplicateOne(ctx context.Context, id uuid.UUID) (System, error) {
	src, err := s.store.GetSystem(ctx, id)
	if err != nil {
		return System{}, err
	}

	name, err := s.copyName(ctx, src.Name)
	if err != nil {
		return System{}, err
	}

	now := time.Now().UTC()
	dup := src
	dup.ID = uuid.New()
	dup.Name = name
	// Copies start out disabled so they never provision before review.
	dup.Disabled = true
	dup.CreatedAt = now
	dup.UpdatedAt = now
	dup.DeletedAt = nil

	if err := s.store.InsertSystem(ctx, dup); err != nil {
		return System{}, err
	}

	page, err := s.schema.List(ctx, src.ID, schema.ListFilter{})
	if err != nil {
		return System{}, err
	}
	if len(page.Items) > 0 {
		classes := make([]schema.ObjectClass, 0, len(page.Items))
		for _, oc := range page.Items {
			classes = append(classes, schema.ObjectClass{
				ID:        uuid.New(),
				SystemID:  dup.ID,
				Name:      oc.Name,
				Auxiliary: oc.Auxiliary,
				Container: oc.Container,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
		if err := s.schema.Replace(ctx, dup.ID, classes); err != nil {
			return System{}, err
		}
	}

	if err := s.store.CopyConfiguration(ctx, src.ID, dup.ID); err != nil {
		return System{}, err
	}

	s.logger.Info("system duplicated", "source_id", src.ID, "system_id", dup.ID, "name", dup.Name)
	return dup, nil
}

func (s *Service) copyName(ctx context.Context, base string) (string, error) {
	for n := 1; ; n++ {
		candidate := base + " (copy)"
		if n > 1 {
			candidate = fmt.Sprintf("%s (copy %d)", base, n)
		}
		exists, err := s.store.SystemNameExists(ctx, candidate, uuid.Nil)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}

// GenerateSchema reads the remote schema and atomically replaces the cached
// object classes. Generations for the same system are serialized; a second
// caller gets a conflict instead of waiting. A failed connector read leaves
// the prior schema untouched.
func (s *Service) GenerateSchema(ctx context.Context, id uuid.UUID) ([]schema.ObjectClass, error) {
	sys, err := s.store.GetSystem(ctx, id)
	if err != nil {
		return nil, err
	}
	if sys.Virtual {
		return nil, apperr.Invalid("system", "schema cannot be generated for a virtual system")
	}

	lock, ok, err := s.locks.TryAcquire(ctx, schemaLockScope, id.String())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("system", "schema generation already in progress")
	}
	defer func() {
		if releaseErr := lock.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			s.logger.Warn("failed to release schema generation lock", "system_id", id, "err", releaseErr)
		}
	}()

	started := time.Now()
	specs, err := s.reader.ReadSchema(ctx, connectors.Target{SystemID: sys.ID, Kind: sys.ConnectorKind})
	if err != nil {
		metrics.SchemaGenerationsTotal.WithLabelValues(sys.ConnectorKind, "error").Inc()
		s.logger.Error("schema generation failed", "system_id", sys.ID, "connector_kind", sys.ConnectorKind, "err", err)
		return nil, err
	}

	now := time.Now().UTC()
	classes := make([]schema.ObjectClass, 0, len(specs))
	for _, spec := range specs {
		classes = append(classes, schema.ObjectClass{
			ID:        uuid.New(),
			SystemID:  sys.ID,
			Name:      spec.Name,
			Auxiliary: spec.Auxiliary,
			Container: spec.Container,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err := s.schema.Replace(ctx, sys.ID, classes); err != nil {
		metrics.SchemaGenerationsTotal.WithLabelValues(sys.ConnectorKind, "error").Inc()
		return nil, err
	}

	if sys.State == StateNew {
		sys.State = StateConfigured
		sys.UpdatedAt = now
		if err := s.store.UpdateSystem(ctx, sys); err != nil {
			return nil, err
		}
	}

	metrics.SchemaGenerationsTotal.WithLabelValues(sys.ConnectorKind, "ok").Inc()
	metrics.SchemaGenerationDuration.With(prometheus.Labels{"connector_kind": sys.ConnectorKind}).Observe(time.Since(started).Seconds())
	s.logger.Info("schema generated", "system_id", sys.ID, "connector_kind", sys.ConnectorKind, "object_classes", len(classes), "duration_ms", time.Since(started).Milliseconds())
	return classes, nil
}
