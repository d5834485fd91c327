package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/open-idm/open-idm/internal/apperr"
	"github.com/open-idm/open-idm/internal/identity"
)

type identityResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Disabled    bool      `json:"disabled"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func identityToResponse(ident identity.Identity) identityResponse {
	return identityResponse{
		ID:          ident.ID,
		Username:    ident.Username,
		DisplayName: ident.DisplayName,
		Disabled:    ident.Disabled,
		CreatedAt:   ident.CreatedAt,
		UpdatedAt:   ident.UpdatedAt,
	}
}

type identityCreateRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// HandleIdentityCreate registers a managed identity. Admin only.
func (h *Handlers) HandleIdentityCreate(c *echo.Context) error {
	if !principal(c).IsAdmin() {
		return apperr.Forbidden("identities", "create identity")
	}
	var req identityCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ident, err := h.Identities.Create(requestContext(c), identity.CreateInput{
		Username:    req.Username,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, identityToResponse(ident))
}

// HandleIdentityShow returns one managed identity.
func (h *Handlers) HandleIdentityShow(c *echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ident, err := h.Identities.Get(requestContext(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, identityToResponse(ident))
}
