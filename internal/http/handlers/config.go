package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/open-idm/open-idm/internal/apperr"
	"github.com/open-idm/open-idm/internal/connectors/configstore"
)

type configurationResponse struct {
	Definition configstore.FormDefinition `json:"definition"`
	Values     []configstore.FormValue    `json:"values"`
}

// Secret values never leave the API unmasked.
func configurationToResponse(cfg configstore.Configuration) configurationResponse {
	values := cfg.MaskedValues()
	if values == nil {
		values = []configstore.FormValue{}
	}
	return configurationResponse{Definition: cfg.Definition, Values: values}
}

// HandleConnectorConfigurationShow returns one configuration facet of a
// system, values joined with the connector's form definition.
func (h *Handlers) HandleConnectorConfigurationShow(c *echo.Context) error {
	systemID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	kind, ok := configstore.ParseConfigKind(c.Param("kind"))
	if !ok {
		return apperr.Invalid("kind", "unknown configuration kind "+c.Param("kind"))
	}
	sys, err := h.Systems.Get(requestContext(c), systemID)
	if err != nil {
		return err
	}
	cfg, err := h.Configs.Fetch(requestContext(c), systemID, sys.ConnectorKind, kind)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, configurationToResponse(cfg))
}

type configurationSaveRequest struct {
	Values []configstore.FormValue `json:"values"`
}

// HandleConnectorConfigurationSave validates and replaces one configuration
// facet of a system.
func (h *Handlers) HandleConnectorConfigurationSave(c *echo.Context) error {
	systemID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	kind, ok := configstore.ParseConfigKind(c.Param("kind"))
	if !ok {
		return apperr.Invalid("kind", "unknown configuration kind "+c.Param("kind"))
	}
	sys, err := h.Systems.Get(requestContext(c), systemID)
	if err != nil {
		return err
	}
	var req configurationSaveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	cfg, err := h.Configs.Save(requestContext(c), systemID, sys.ConnectorKind, kind, req.Values)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, configurationToResponse(cfg))
}
