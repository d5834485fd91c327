package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/open-idm/open-idm/internal/accounts"
	"github.com/open-idm/open-idm/internal/apperr"
	"github.com/open-idm/open-idm/internal/systems"
)

type roleSystemResponse struct {
	ID            uuid.UUID          `json:"id"`
	RoleID        uuid.UUID          `json:"roleId"`
	SystemID      uuid.UUID          `json:"systemId"`
	ObjectClassID uuid.UUID          `json:"objectClassId"`
	EntityType    systems.EntityType `json:"entityType"`
	CreatedAt     time.Time          `json:"createdAt"`
}

func roleSystemToResponse(rs accounts.RoleSystem) roleSystemResponse {
	return roleSystemResponse{
		ID:            rs.ID,
		RoleID:        rs.RoleID,
		SystemID:      rs.SystemID,
		ObjectClassID: rs.ObjectClassID,
		EntityType:    rs.EntityType,
		CreatedAt:     rs.CreatedAt,
	}
}

// HandleRoleSystemsList lists role-system mappings, optionally narrowed to a
// role or a system.
func (h *Handlers) HandleRoleSystemsList(c *echo.Context) error {
	var filter accounts.RoleSystemFilter
	if v := strings.TrimSpace(c.QueryParam("roleId")); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Invalid("roleId", "is not a valid id")
		}
		filter.RoleID = id
	}
	if v := strings.TrimSpace(c.QueryParam("systemId")); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Invalid("systemId", "is not a valid id")
		}
		filter.SystemID = id
	}

	list, err := h.RoleSystems.List(requestContext(c), filter)
	if err != nil {
		return err
	}
	items := make([]roleSystemResponse, 0, len(list))
	for _, rs := range list {
		items = append(items, roleSystemToResponse(rs))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

type roleSystemCreateRequest struct {
	RoleID        uuid.UUID `json:"roleId"`
	SystemID      uuid.UUID `json:"systemId"`
	ObjectClassID uuid.UUID `json:"objectClassId"`
	EntityType    string    `json:"entityType"`
}

// HandleRoleSystemCreate registers a role-system mapping.
func (h *Handlers) HandleRoleSystemCreate(c *echo.Context) error {
	var req roleSystemCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	rs, err := h.RoleSystems.Create(requestContext(c), req.RoleID, req.SystemID, req.ObjectClassID, systems.EntityType(req.EntityType))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, roleSystemToResponse(rs))
}

// HandleRoleSystemDelete removes a role-system mapping.
func (h *Handlers) HandleRoleSystemDelete(c *echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.RoleSystems.Delete(requestContext(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
