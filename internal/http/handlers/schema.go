package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/open-idm/open-idm/internal/apperr"
	"github.com/open-idm/open-idm/internal/schema"
)

const objectClassesPerPage = 50

type objectClassResponse struct {
	ID        uuid.UUID `json:"id"`
	SystemID  uuid.UUID `json:"systemId"`
	Name      string    `json:"name"`
	Auxiliary bool      `json:"auxiliary"`
	Container bool      `json:"container"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func objectClassToResponse(oc schema.ObjectClass) objectClassResponse {
	return objectClassResponse{
		ID:        oc.ID,
		SystemID:  oc.SystemID,
		Name:      oc.Name,
		Auxiliary: oc.Auxiliary,
		Container: oc.Container,
		CreatedAt: oc.CreatedAt,
		UpdatedAt: oc.UpdatedAt,
	}
}

func objectClassesToResponse(list []schema.ObjectClass) []objectClassResponse {
	out := make([]objectClassResponse, 0, len(list))
	for _, oc := range list {
		out = append(out, objectClassToResponse(oc))
	}
	return out
}

// HandleObjectClassesList lists a system's cached object classes.
func (h *Handlers) HandleObjectClassesList(c *echo.Context) error {
	systemID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	// Listing against a missing system reports 404, not an empty page.
	if _, err := h.Systems.Get(requestContext(c), systemID); err != nil {
		return err
	}

	filter := schema.ListFilter{
		Text:     strings.TrimSpace(c.QueryParam("text")),
		SortBy:   strings.TrimSpace(c.QueryParam("sort")),
		SortDesc: c.QueryParam("order") == "desc",
		Page:     parsePageParam(c),
		PerPage:  objectClassesPerPage,
	}
	page, err := h.Schema.List(requestContext(c), systemID, filter)
	if err != nil {
		return err
	}
	pageNum, totalPages, offset := paginate(page.Total, filter.Page, filter.PerPage)
	showingFrom, showingTo := showingRange(page.Total, offset, len(page.Items))
	return c.JSON(http.StatusOK, map[string]any{
		"items":       objectClassesToResponse(page.Items),
		"totalCount":  page.Total,
		"page":        pageNum,
		"totalPages":  totalPages,
		"showingFrom": showingFrom,
		"showingTo":   showingTo,
	})
}

type objectClassRequest struct {
	Name      string `json:"name"`
	Auxiliary bool   `json:"auxiliary"`
	Container bool   `json:"container"`
}

// HandleObjectClassCreate adds one object class to a system's schema.
func (h *Handlers) HandleObjectClassCreate(c *echo.Context) error {
	systemID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.Systems.Get(requestContext(c), systemID); err != nil {
		return err
	}
	var req objectClassRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	oc, err := h.Schema.Create(requestContext(c), systemID, req.Name, req.Auxiliary, req.Container)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, objectClassToResponse(oc))
}

// HandleObjectClassUpdate edits one object class.
func (h *Handlers) HandleObjectClassUpdate(c *echo.Context) error {
	classID, err := pathUUID(c, "classId")
	if err != nil {
		return err
	}
	var req objectClassRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	oc, err := h.Schema.Update(requestContext(c), classID, req.Name, req.Auxiliary, req.Container)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, objectClassToResponse(oc))
}

// HandleObjectClassDelete removes one object class. A class still referenced
// by a role-system mapping stays in place and the call reports a conflict.
func (h *Handlers) HandleObjectClassDelete(c *echo.Context) error {
	classID, err := pathUUID(c, "classId")
	if err != nil {
		return err
	}
	result, err := h.Schema.Delete(requestContext(c), []uuid.UUID{classID})
	if err != nil {
		return err
	}
	for _, skipped := range result.Skipped {
		if skipped.Reason == "not found" {
			return apperr.NotFound("object class", skipped.ID.String())
		}
		return apperr.Conflict("object class", skipped.Reason)
	}
	return c.NoContent(http.StatusNoContent)
}

type objectClassesDeleteRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type skippedObjectClassResponse struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}

// HandleObjectClassesBulkDelete removes the listed object classes and reports
// what was deleted and what was skipped, with reasons.
func (h *Handlers) HandleObjectClassesBulkDelete(c *echo.Context) error {
	var req objectClassesDeleteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.IDs) == 0 {
		return apperr.Invalid("ids", "at least one object class is required")
	}
	result, err := h.Schema.Delete(requestContext(c), req.IDs)
	if err != nil {
		return err
	}

	deleted := result.Deleted
	if deleted == nil {
		deleted = []uuid.UUID{}
	}
	skipped := make([]skippedObjectClassResponse, 0, len(result.Skipped))
	for _, s := range result.Skipped {
		skipped = append(skipped, skippedObjectClassResponse{ID: s.ID, Reason: s.Reason})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"deleted": deleted,
		"skipped": skipped,
	})
}

// HandleSchemaGenerate reads the remote schema and replaces the cached object
// classes. A concurrent generation for the same system reports a conflict.
func (h *Handlers) HandleSchemaGenerate(c *echo.Context) error {
	systemID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	classes, err := h.Systems.GenerateSchema(requestContext(c), systemID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"objectClasses": objectClassesToResponse(classes),
	})
}
