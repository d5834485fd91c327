package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/open-idm/open-idm/internal/systems"
)

const systemsPerPage = 25

type systemResponse struct {
	ID                   uuid.UUID                 `json:"id"`
	Name                 string                    `json:"name"`
	Description          string                    `json:"description"`
	ConnectorKind        string                    `json:"connectorKind"`
	Virtual              bool                      `json:"virtual"`
	Readonly             bool                      `json:"readonly"`
	Disabled             bool                      `json:"disabled"`
	DisabledProvisioning bool                      `json:"disabledProvisioning"`
	Queue                bool                      `json:"queue"`
	Remote               bool                      `json:"remote"`
	State                systems.State             `json:"state"`
	BlockedOperations    systems.BlockedOperations `json:"blockedOperations"`
	CreatedAt            time.Time                 `json:"createdAt"`
	UpdatedAt            time.Time                 `json:"updatedAt"`
}

// Blocked operations are always rendered effective: while provisioning is
// disabled every operation reads as blocked.
func systemToResponse(sys systems.System) systemResponse {
	return systemResponse{
		ID:                   sys.ID,
		Name:                 sys.Name,
		Description:          sys.Description,
		ConnectorKind:        sys.ConnectorKind,
		Virtual:              sys.Virtual,
		Readonly:             sys.Readonly,
		Disabled:             sys.Disabled,
		DisabledProvisioning: sys.DisabledProvisioning,
		Queue:                sys.Queue,
		Remote:               sys.Remote,
		State:                sys.State,
		BlockedOperations:    sys.EffectiveBlockedOperations(),
		CreatedAt:            sys.CreatedAt,
		UpdatedAt:            sys.UpdatedAt,
	}
}

func systemsToResponse(list []systems.System) []systemResponse {
	out := make([]systemResponse, 0, len(list))
	for _, sys := range list {
		out = append(out, systemToResponse(sys))
	}
	return out
}

// HandleSystemsList lists systems with filtering, sorting, and paging.
func (h *Handlers) HandleSystemsList(c *echo.Context) error {
	filter := systems.ListFilter{
		Text:     strings.TrimSpace(c.QueryParam("text")),
		SortBy:   strings.TrimSpace(c.QueryParam("sort")),
		SortDesc: c.QueryParam("order") == "desc",
		Page:     parsePageParam(c),
		PerPage:  systemsPerPage,
	}
	if v := strings.TrimSpace(c.QueryParam("virtual")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			filter.Virtual = &b
		}
	}
	if v := strings.TrimSpace(c.QueryParam("disabled")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			filter.Disabled = &b
		}
	}

	list, total, err := h.Systems.List(requestContext(c), filter)
	if err != nil {
		return err
	}
	page, totalPages, offset := paginate(total, filter.Page, filter.PerPage)
	showingFrom, showingTo := showingRange(total, offset, len(list))
	return c.JSON(http.StatusOK, map[string]any{
		"items":       systemsToResponse(list),
		"totalCount":  total,
		"page":        page,
		"totalPages":  totalPages,
		"showingFrom": showingFrom,
		"showingTo":   showingTo,
	})
}

type systemCreateRequest struct {
	Name                 string `json:"name"`
	Description          string `json:"description"`
	ConnectorKind        string `json:"connectorKind"`
	Virtual              bool   `json:"virtual"`
	Readonly             bool   `json:"readonly"`
	Remote               bool   `json:"remote"`
	Queue                bool   `json:"queue"`
	DisabledProvisioning bool   `json:"disabledProvisioning"`
}

// HandleSystemCreate registers a new system.
func (h *Handlers) HandleSystemCreate(c *echo.Context) error {
	var req systemCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sys, err := h.Systems.Create(requestContext(c), systems.CreateInput{
		Name:                 req.Name,
		Description:          req.Description,
		ConnectorKind:        req.ConnectorKind,
		Virtual:              req.Virtual,
		Readonly:             req.Readonly,
		Remote:               req.Remote,
		Queue:                req.Queue,
		DisabledProvisioning: req.DisabledProvisioning,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, systemToResponse(sys))
}

// HandleSystemShow returns a single system.
func (h *Handlers) HandleSystemShow(c *echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	sys, err := h.Systems.Get(requestContext(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, systemToResponse(sys))
}

type systemUpdateRequest struct {
	Name                 string `json:"name"`
	Description          string `json:"description"`
	Readonly             bool   `json:"readonly"`
	Disabled             bool   `json:"disabled"`
	DisabledProvisioning bool   `json:"disabledProvisioning"`
	Queue                bool   `json:"queue"`
	Remote               bool   `json:"remote"`
}

// HandleSystemUpdate edits a system's descriptive fields and flags.
func (h *Handlers) HandleSystemUpdate(c *echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req systemUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sys, err := h.Systems.Update(requestContext(c), id, systems.UpdateInput{
		Name:                 req.Name,
		Description:          req.Description,
		Readonly:             req.Readonly,
		Disabled:             req.Disabled,
		DisabledProvisioning: req.DisabledProvisioning,
		Queue:                req.Queue,
		Remote:               req.Remote,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, systemToResponse(sys))
}

// HandleSystemDelete soft-deletes a system.
func (h *Handlers) HandleSystemDelete(c *echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Systems.Delete(requestContext(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleSystemBlockedOperations replaces the per-operation provisioning blocks.
func (h *Handlers) HandleSystemBlockedOperations(c *echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req systems.BlockedOperations
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sys, err := h.Systems.SetBlockedOperations(requestContext(c), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, systemToResponse(sys))
}

type systemStateRequest struct {
	State string `json:"state"`
}

// HandleSystemState moves a system's structural state.
func (h *Handlers) HandleSystemState(c *echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req systemStateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sys, err := h.Systems.SetState(requestContext(c), id, systems.State(strings.ToLower(strings.TrimSpace(req.State))))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, systemToResponse(sys))
}

type systemsDuplicateRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type duplicateItemResponse struct {
	SourceID uuid.UUID       `json:"sourceId"`
	System   *systemResponse `json:"system,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// HandleSystemsDuplicate copies the listed systems. Items are independent, so
// the call reports per-item outcomes instead of a single status.
func (h *Handlers) HandleSystemsDuplicate(c *echo.Context) error {
	var req systemsDuplicateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	results, err := h.Systems.Duplicate(requestContext(c), req.IDs)
	if err != nil {
		return err
	}

	items := make([]duplicateItemResponse, 0, len(results))
	for _, r := range results {
		item := duplicateItemResponse{SourceID: r.SourceID}
		if r.Err != nil {
			item.Error = r.Err.Error()
		} else {
			resp := systemToResponse(r.System)
			item.System = &resp
		}
		items = append(items, item)
	}
	return c.JSON(http.StatusOK, map[string]any{"results": items})
}
