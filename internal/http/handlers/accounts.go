package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/open-idm/open-idm/internal/accounts"
	"github.com/open-idm/open-idm/internal/apperr"
)

type accountResponse struct {
	ID                     uuid.UUID          `json:"id"`
	SystemID               uuid.UUID          `json:"systemId"`
	OwnerType              accounts.OwnerType `json:"ownerType"`
	OwnerID                uuid.UUID          `json:"ownerId"`
	UID                    string             `json:"uid"`
	InProtection           bool               `json:"inProtection"`
	SupportsPasswordChange bool               `json:"supportsPasswordChange"`
	CreatedAt              time.Time          `json:"createdAt"`
	UpdatedAt              time.Time          `json:"updatedAt"`
}

func accountToResponse(acct accounts.Account) accountResponse {
	return accountResponse{
		ID:                     acct.ID,
		SystemID:               acct.SystemID,
		OwnerType:              acct.OwnerType,
		OwnerID:                acct.OwnerID,
		UID:                    acct.UID,
		InProtection:           acct.InProtection,
		SupportsPasswordChange: acct.SupportsPasswordChange,
		CreatedAt:              acct.CreatedAt,
		UpdatedAt:              acct.UpdatedAt,
	}
}

type accountCreateRequest struct {
	SystemID               uuid.UUID `json:"systemId"`
	OwnerType              string    `json:"ownerType"`
	OwnerID                uuid.UUID `json:"ownerId"`
	UID                    string    `json:"uid"`
	InProtection           bool      `json:"inProtection"`
	SupportsPasswordChange bool      `json:"supportsPasswordChange"`
}

// HandleAccountCreate registers an account mapping on a system.
func (h *Handlers) HandleAccountCreate(c *echo.Context) error {
	var req accountCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	acct, err := h.Accounts.Create(requestContext(c), principal(c), accounts.CreateInput{
		SystemID:               req.SystemID,
		OwnerType:              accounts.OwnerType(req.OwnerType),
		OwnerID:                req.OwnerID,
		UID:                    req.UID,
		InProtection:           req.InProtection,
		SupportsPasswordChange: req.SupportsPasswordChange,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, accountToResponse(acct))
}

// HandleAccountDelete removes an account mapping.
func (h *Handlers) HandleAccountDelete(c *echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Accounts.Delete(requestContext(c), principal(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleOwnerAccounts lists the accounts an owner holds across systems.
func (h *Handlers) HandleOwnerAccounts(c *echo.Context) error {
	ownerType, ok := accounts.ParseOwnerType(c.Param("ownerType"))
	if !ok {
		return apperr.Invalid("ownerType", "unknown owner type "+c.Param("ownerType"))
	}
	ownerID, err := pathUUID(c, "ownerId")
	if err != nil {
		return err
	}

	var filter accounts.Filter
	if v := strings.TrimSpace(c.QueryParam("systemId")); v != "" {
		systemID, err := uuid.Parse(v)
		if err != nil {
			return apperr.Invalid("systemId", "is not a valid id")
		}
		filter.SystemID = systemID
	}
	if v := strings.TrimSpace(c.QueryParam("supportsPasswordChange")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			filter.SupportsPasswordChange = &b
		}
	}
	if v := strings.TrimSpace(c.QueryParam("inProtection")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			filter.InProtection = &b
		}
	}

	list, err := h.Accounts.ListForOwner(requestContext(c), principal(c), ownerType, ownerID, filter)
	if err != nil {
		return err
	}
	items := make([]accountResponse, 0, len(list))
	for _, acct := range list {
		items = append(items, accountToResponse(acct))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// HandlePasswordChangeTargets lists where the identity's password can be
// changed. The local credential target always comes first.
func (h *Handlers) HandlePasswordChangeTargets(c *echo.Context) error {
	identityID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	targets, err := h.Accounts.PasswordChangeTargets(requestContext(c), principal(c), identityID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"targets": targets})
}

type passwordChangeRequest struct {
	OldPassword string   `json:"oldPassword"`
	NewPassword string   `json:"newPassword"`
	Targets     []string `json:"targets"`
}

type passwordChangeTargetResponse struct {
	Target accounts.Target `json:"target"`
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
}

// HandlePasswordChange applies a new password across the selected targets.
// Self-service callers must present the old password; admins reset without it.
func (h *Handlers) HandlePasswordChange(c *echo.Context) error {
	identityID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req passwordChangeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	p := principal(c)
	results, err := h.Accounts.ChangePassword(requestContext(c), p, accounts.ChangeRequest{
		IdentityID:  identityID,
		OldPassword: req.OldPassword,
		VerifyOld:   !p.IsAdmin(),
		NewPassword: req.NewPassword,
		TargetIDs:   req.Targets,
	})
	if err != nil {
		return err
	}

	items := make([]passwordChangeTargetResponse, 0, len(results))
	for _, r := range results {
		item := passwordChangeTargetResponse{Target: r.Target, OK: r.Err == nil}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		items = append(items, item)
	}
	return c.JSON(http.StatusOK, map[string]any{"results": items})
}
