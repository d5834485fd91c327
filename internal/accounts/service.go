package accounts

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/open-idm/open-idm/internal/apperr"
	"github.com/open-idm/open-idm/internal/auth"
	"github.com/open-idm/open-idm/internal/authz"
	"github.com/open-idm/open-idm/internal/connectors"
	"github.com/open-idm/open-idm/internal/metrics"
	"github.com/open-idm/open-idm/internal/parallel"
	"github.com/open-idm/open-idm/internal/systems"
)

// TargetLocalID is the stable identifier of the synthetic local target. The
// local identity credential always appears exactly once in a target listing.
const TargetLocalID = "idm:local"

// TargetKind distinguishes the local credential from remote accounts.
type TargetKind string

const (
	TargetKindLocal   TargetKind = "local"
	TargetKindAccount TargetKind = "account"
)

// Target is one place a password change can be applied.
type Target struct {
	Kind       TargetKind `json:"kind"`
	ID         string     `json:"id"`
	SystemID   uuid.UUID  `json:"systemId,omitempty"`
	SystemName string     `json:"systemName,omitempty"`
	UID        string     `json:"uid,omitempty"`
}

// TargetResult is the per-target outcome of a password change.
type TargetResult struct {
	Target Target
	Err    error
}

// Store is the persistence contract for accounts.
type Store interface {
	GetAccount(ctx context.Context, id uuid.UUID) (Account, error)
	ListAccountsForOwner(ctx context.Context, ownerType OwnerType, ownerID uuid.UUID, filter Filter) ([]Account, error)
	InsertAccount(ctx context.Context, acct Account) error
	DeleteAccount(ctx context.Context, id uuid.UUID) error
}

// SystemDirectory resolves the systems accounts live on.
type SystemDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (systems.System, error)
}

// CredentialManager verifies and rotates the local identity credential.
type CredentialManager interface {
	Verify(ctx context.Context, identityID uuid.UUID, password string) error
	Set(ctx context.Context, identityID uuid.UUID, password string) error
}

// PasswordChanger pushes a new password to a remote account.
type PasswordChanger interface {
	ChangePassword(ctx context.Context, target connectors.Target, uid, newPassword string) error
}

// Service implements account listing and password change orchestration.
type Service struct {
	store       Store
	systems     SystemDirectory
	credentials CredentialManager
	changer     PasswordChanger
	authorizer  authz.Authorizer
	logger      *slog.Logger
	workers     int
}

// NewService creates an account service.
func NewService(store Store, dir SystemDirectory, credentials CredentialManager, changer PasswordChanger, authorizer authz.Authorizer, logger *slog.Logger, workers int) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:       store,
		systems:     dir,
		credentials: credentials,
		changer:     changer,
		authorizer:  authorizer,
		logger:      logger,
		workers:     workers,
	}
}

// CreateInput registers one account mapping on a target system.
type CreateInput struct {
	SystemID               uuid.UUID
	OwnerType              OwnerType
	OwnerID                uuid.UUID
	UID                    string
	InProtection           bool
	SupportsPasswordChange bool
}

// Create registers an account for an owner on a system. Admin only; the
// system must exist.
func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (Account, error) {
	if err := s.authorizer.CanManageAccounts(ctx, p); err != nil {
		return Account{}, err
	}
	if _, ok := ParseOwnerType(string(in.OwnerType)); !ok {
		return Account{}, apperr.Invalid("ownerType", "unknown owner type "+string(in.OwnerType))
	}
	if in.OwnerID == uuid.Nil {
		return Account{}, apperr.Invalid("ownerId", "is required")
	}
	uid := strings.TrimSpace(in.UID)
	if uid == "" {
		return Account{}, apperr.Invalid("uid", "is required")
	}
	if _, err := s.systems.Get(ctx, in.SystemID); err != nil {
		return Account{}, err
	}

	now := time.Now().UTC()
	acct := Account{
		ID:                     uuid.New(),
		SystemID:               in.SystemID,
		OwnerType:              in.OwnerType,
		OwnerID:                in.OwnerID,
		UID:                    uid,
		InProtection:           in.InProtection,
		SupportsPasswordChange: in.SupportsPasswordChange,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.store.InsertAccount(ctx, acct); err != nil {
		return Account{}, err
	}
	s.logger.Info("account registered", "account_id", acct.ID, "system_id", acct.SystemID, "owner_type", acct.OwnerType)
	return acct, nil
}

// Delete removes an account mapping. Admin only; accounts in protection are
// kept.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if err := s.authorizer.CanManageAccounts(ctx, p); err != nil {
		return err
	}
	acct, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	if acct.InProtection {
		return apperr.Conflict("account", "account is in protection")
	}
	return s.store.DeleteAccount(ctx, id)
}

// ListForOwner returns the owner's accounts. A denied principal gets an
// authorization error; an owner without accounts gets an empty list. The two
// are never conflated.
func (s *Service) ListForOwner(ctx context.Context, p auth.Principal, ownerType OwnerType, ownerID uuid.UUID, filter Filter) ([]Account, error) {
	if err := s.authorizer.CanListAccounts(ctx, p, string(ownerType), ownerID.String()); err != nil {
		return nil, err
	}
	return s.store.ListAccountsForOwner(ctx, ownerType, ownerID, filter)
}

// PasswordChangeTargets lists where the identity's password can be changed:
// the synthetic local target first, then one entry per password-capable
// account outside protection. When reading the accounts is denied, the local
// target is still returned alone instead of failing the whole call; any other
// listing failure propagates.
func (s *Service) PasswordChangeTargets(ctx context.Context, p auth.Principal, identityID uuid.UUID) ([]Target, error) {
	targets := []Target{{Kind: TargetKindLocal, ID: TargetLocalID}}

	if err := s.authorizer.CanListAccounts(ctx, p, string(OwnerTypeIdentity), identityID.String()); err != nil {
		if apperr.IsAuthorization(err) {
			return targets, nil
		}
		return nil, err
	}

	capable := true
	protected := false
	accts, err := s.store.ListAccountsForOwner(ctx, OwnerTypeIdentity, identityID, Filter{
		SupportsPasswordChange: &capable,
		InProtection:           &protected,
	})
	if err != nil {
		if apperr.IsAuthorization(err) {
			return targets, nil
		}
		return nil, err
	}

	for _, acct := range accts {
		target := Target{
			Kind:     TargetKindAccount,
			ID:       acct.ID.String(),
			SystemID: acct.SystemID,
			UID:      acct.UID,
		}
		if sys, err := s.systems.Get(ctx, acct.SystemID); err == nil {
			target.SystemName = sys.Name
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// ChangeRequest describes one password change across selected targets.
type ChangeRequest struct {
	IdentityID  uuid.UUID
	OldPassword string
	// VerifyOld requires the old password to match the local credential
	// before any target is touched.
	VerifyOld   bool
	NewPassword string
	// TargetIDs selects the targets; TargetLocalID addresses the local
	// credential, anything else is an account id.
	TargetIDs []string
}

// ChangePassword applies the new password to every selected target. The
// pre-checks (authorization, validation, old-password verification, target
// resolution) fail the whole call; past that point targets are independent
// and each one reports its own outcome in input order.
func (s *Service) ChangePassword(ctx context.Context, p auth.Principal, req ChangeRequest) ([]TargetResult, error) {
	if err := s.authorizer.CanChangePassword(ctx, p, req.IdentityID.String()); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.NewPassword) == "" {
		return nil, apperr.Invalid("newPassword", "is required")
	}
	if len(req.TargetIDs) == 0 {
		return nil, apperr.Invalid("targets", "at least one target is required")
	}
	if req.VerifyOld {
		if err := s.credentials.Verify(ctx, req.IdentityID, req.OldPassword); err != nil {
			return nil, err
		}
	}

	resolved, err := s.resolveTargets(ctx, req.IdentityID, req.TargetIDs)
	if err != nil {
		return nil, err
	}

	settled := parallel.Settle(ctx, resolved, s.workers, func(ctx context.Context, target resolvedTarget) (struct{}, error) {
		return struct{}{}, s.changeOne(ctx, req, target)
	})

	results := make([]TargetResult, 0, len(settled))
	for _, item := range settled {
		status := "ok"
		if item.Err != nil {
			status = "error"
		}
		metrics.PasswordChangeTargetsTotal.WithLabelValues(string(item.Item.target.Kind), status).Inc()
		results = append(results, TargetResult{Target: item.Item.target, Err: item.Err})
	}
	s.logger.Info("password change finished", "identity_id", req.IdentityID, "targets", len(results))
	return results, nil
}

type resolvedTarget struct {
	target        Target
	connectorKind string
}

func (s *Service) resolveTargets(ctx context.Context, identityID uuid.UUID, targetIDs []string) ([]resolvedTarget, error) {
	resolved := make([]resolvedTarget, 0, len(targetIDs))
	for _, raw := range targetIDs {
		id := strings.TrimSpace(raw)
		if id == TargetLocalID {
			resolved = append(resolved, resolvedTarget{target: Target{Kind: TargetKindLocal, ID: TargetLocalID}})
			continue
		}

		accountID, err := uuid.Parse(id)
		if err != nil {
			return nil, apperr.Invalid("targets", "unknown target "+raw)
		}
		acct, err := s.store.GetAccount(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if acct.OwnerType != OwnerTypeIdentity || acct.OwnerID != identityID {
			return nil, apperr.Invalid("targets", "account "+id+" does not belong to the identity")
		}
		if acct.InProtection {
			return nil, apperr.Invalid("targets", "account "+id+" is in protection")
		}
		if !acct.SupportsPasswordChange {
			return nil, apperr.Invalid("targets", "account "+id+" does not support password change")
		}

		sys, err := s.systems.Get(ctx, acct.SystemID)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, resolvedTarget{
			target: Target{
				Kind:       TargetKindAccount,
				ID:         acct.ID.String(),
				SystemID:   acct.SystemID,
				SystemName: sys.Name,
				UID:        acct.UID,
			},
			connectorKind: sys.ConnectorKind,
		})
	}
	return resolved, nil
}

func (s *Service) changeOne(ctx context.Context, req ChangeRequest, target resolvedTarget) error {
	if target.target.Kind == TargetKindLocal {
		return s.credentials.Set(ctx, req.IdentityID, req.NewPassword)
	}
	return s.changer.ChangePassword(ctx, connectors.Target{
		SystemID: target.target.SystemID,
		Kind:     target.connectorKind,
	}, target.target.UID, req.NewPassword)
}
