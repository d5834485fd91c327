package httpapp

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/open-idm/open-idm/internal/apperr"
	"github.com/open-idm/open-idm/internal/http/authn"
	"github.com/open-idm/open-idm/internal/http/handlers"
)

// EchoServer is the HTTP server wrapper.
type EchoServer struct {
	h   *handlers.Handlers
	e   *echo.Echo
	srv *http.Server
}

// NewEchoServer creates a new HTTP server.
func NewEchoServer(h *handlers.Handlers) (*EchoServer, error) {
	es := &EchoServer{h: h, e: echo.New()}
	es.e.HTTPErrorHandler = es.httpErrorHandler
	es.registerRoutes()
	return es, nil
}

func (es *EchoServer) registerRoutes() {
	es.e.Use(requestIDMiddleware)
	if es.h.Sessions != nil {
		es.e.Use(echo.WrapMiddleware(es.h.Sessions.LoadAndSave))
	}

	es.e.GET("/healthz", es.h.HandleHealthz)
	es.e.POST("/login", es.h.HandleLogin)
	es.e.POST("/logout", es.h.HandleLogout)

	api := es.e.Group("/api")
	api.Use(authn.RequireAuth(es.h.Sessions, es.h.AuthUsers))

	api.GET("/systems", es.h.HandleSystemsList)
	api.POST("/systems", es.h.HandleSystemCreate)
	api.POST("/systems/duplicate", es.h.HandleSystemsDuplicate)
	api.GET("/systems/:id", es.h.HandleSystemShow)
	api.PUT("/systems/:id", es.h.HandleSystemUpdate)
	api.DELETE("/systems/:id", es.h.HandleSystemDelete)
	api.PUT("/systems/:id/blocked-operations", es.h.HandleSystemBlockedOperations)
	api.PUT("/systems/:id/state", es.h.HandleSystemState)
	api.POST("/systems/:id/schema/generate", es.h.HandleSchemaGenerate)
	api.GET("/systems/:id/object-classes", es.h.HandleObjectClassesList)
	api.POST("/systems/:id/object-classes", es.h.HandleObjectClassCreate)
	api.PUT("/systems/:id/object-classes/:classId", es.h.HandleObjectClassUpdate)
	api.DELETE("/systems/:id/object-classes/:classId", es.h.HandleObjectClassDelete)
	api.POST("/object-classes/delete", es.h.HandleObjectClassesBulkDelete)
	api.GET("/systems/:id/connector-configuration/:kind", es.h.HandleConnectorConfigurationShow)
	api.PUT("/systems/:id/connector-configuration/:kind", es.h.HandleConnectorConfigurationSave)
	api.GET("/systems/:id/remote-connectors", es.h.HandleRemoteConnectors)
	api.GET("/connectors/frameworks", es.h.HandleConnectorFrameworks)
	api.GET("/connectors/types", es.h.HandleConnectorTypes)
	api.GET("/owners/:ownerType/:ownerId/accounts", es.h.HandleOwnerAccounts)
	api.POST("/accounts", es.h.HandleAccountCreate)
	api.DELETE("/accounts/:id", es.h.HandleAccountDelete)
	api.POST("/identities", es.h.HandleIdentityCreate)
	api.GET("/identities/:id", es.h.HandleIdentityShow)
	api.GET("/identities/:id/password-change-targets", es.h.HandlePasswordChangeTargets)
	api.PUT("/identities/:id/password", es.h.HandlePasswordChange)
	api.GET("/role-systems", es.h.HandleRoleSystemsList)
	api.POST("/role-systems", es.h.HandleRoleSystemCreate)
	api.DELETE("/role-systems/:id", es.h.HandleRoleSystemDelete)
}

func requestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := c.Request().Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(handlers.ContextKeyRequestID, id)
		c.Response().Header().Set("X-Request-ID", id)
		return next(c)
	}
}

// httpErrorHandler maps service errors onto the API's status codes. Anything
// outside the known taxonomy gets a generic body so internals never leak.
func (es *EchoServer) httpErrorHandler(c *echo.Context, err error) {
	if resp, _ := echo.UnwrapResponse(c.Response()); resp != nil && resp.Committed {
		return
	}

	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		_ = c.JSON(http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": ve.Fields,
		})
		return
	}
	var ae *apperr.AuthorizationError
	if errors.As(err, &ae) {
		_ = c.JSON(http.StatusForbidden, map[string]any{"error": "forbidden"})
		return
	}
	var nf *apperr.NotFoundError
	if errors.As(err, &nf) {
		_ = c.JSON(http.StatusNotFound, map[string]any{"error": nf.Error()})
		return
	}
	var conflict *apperr.ConflictError
	if errors.As(err, &conflict) {
		_ = c.JSON(http.StatusConflict, map[string]any{"error": conflict.Error()})
		return
	}
	var conn *apperr.ConnectorError
	if errors.As(err, &conn) {
		_ = c.JSON(http.StatusBadGateway, map[string]any{
			"error":     conn.Error(),
			"retryable": true,
			"timeout":   conn.Timeout,
		})
		return
	}

	status := httpStatusFromError(err)
	switch {
	case status == http.StatusNotFound:
		_ = c.String(http.StatusNotFound, "404 page not found")
	case status != http.StatusInternalServerError:
		// Echo errors carry messages we did not write; return only the
		// status text.
		_ = c.String(status, http.StatusText(status))
	default:
		requestID, _ := c.Get(handlers.ContextKeyRequestID).(string)
		c.Logger().Error("http error",
			"request_id", requestID,
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"ip", c.RealIP(),
			"error", err,
		)
		msg := "Internal server error."
		if requestID != "" {
			msg += " Reference: " + requestID + "."
		}
		msg += " Code: " + handlers.InternalErrorCode + "."
		_ = c.String(http.StatusInternalServerError, msg)
	}
}

func httpStatusFromError(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// Start starts the HTTP server.
func (es *EchoServer) Start(addr string) error {
	return es.StartServer(&http.Server{Addr: addr})
}

// StartServer starts the HTTP server with a custom http.Server.
func (es *EchoServer) StartServer(server *http.Server) error {
	server.Handler = es.e
	es.srv = server
	return server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (es *EchoServer) Shutdown(ctx context.Context) error {
	if es.srv == nil {
		return nil
	}
	return es.srv.Shutdown(ctx)
}
