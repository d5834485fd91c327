package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/open-idm/open-idm/internal/apperr"
)

// HandleConnectorFrameworks lists the installed connector frameworks.
func (h *Handlers) HandleConnectorFrameworks(c *echo.Context) error {
	frameworks, err := h.Inventory.Frameworks(requestContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"frameworks": frameworks})
}

// HandleConnectorTypes lists every installed connector kind.
func (h *Handlers) HandleConnectorTypes(c *echo.Context) error {
	types, err := h.Inventory.SupportedTypes(requestContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"types": types})
}

// HandleRemoteConnectors lists the connectors available on a remote system's
// connector server.
func (h *Handlers) HandleRemoteConnectors(c *echo.Context) error {
	systemID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	sys, err := h.Systems.Get(requestContext(c), systemID)
	if err != nil {
		return err
	}
	if !sys.Remote {
		return apperr.Invalid("system", "system does not use a remote connector server")
	}
	remotes, err := h.Inventory.RemoteConnectors(requestContext(c), systemID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"connectors": remotes})
}
