// Package authz makes the access decisions the account services enforce.
package authz

import (
	"context"

	"github.com/open-idm/open-idm/internal/apperr"
	"github.com/open-idm/open-idm/internal/auth"
)

// Authorizer decides whether a principal may perform an operation. A denial
// is always an AuthorizationError, never an empty result.
type Authorizer interface {
	CanListAccounts(ctx context.Context, p auth.Principal, ownerType, ownerID string) error
	CanChangePassword(ctx context.Context, p auth.Principal, identityID string) error
	CanManageAccounts(ctx context.Context, p auth.Principal) error
}

// RoleBased is the default policy: console admins and viewers may read
// everything, admins and the identity itself may change passwords, a
// principal linked to a managed identity may read its own accounts, and only
// admins register or remove accounts.
type RoleBased struct{}

func (RoleBased) CanListAccounts(_ context.Context, p auth.Principal, ownerType, ownerID string) error {
	switch p.Role {
	case auth.RoleAdmin, auth.RoleViewer:
		return nil
	}
	if ownerType == "identity" && p.IdentityID != "" && p.IdentityID == ownerID {
		return nil
	}
	return apperr.Forbidden(ownerType+"/"+ownerID, "list accounts")
}

// CanManageAccounts gates account registration and removal to console admins.
func (RoleBased) CanManageAccounts(_ context.Context, p auth.Principal) error {
	if p.IsAdmin() {
		return nil
	}
	return apperr.Forbidden("accounts", "manage accounts")
}

func (RoleBased) CanChangePassword(_ context.Context, p auth.Principal, identityID string) error {
	if p.IsAdmin() {
		return nil
	}
	if p.IdentityID != "" && p.IdentityID == identityID {
		return nil
	}
	return apperr.Forbidden("identity/"+identityID, "change password")
}
