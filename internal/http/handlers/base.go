// Package handlers contains HTTP handler logic split by domain.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/open-idm/open-idm/internal/accounts"
	"github.com/open-idm/open-idm/internal/auth"
	"github.com/open-idm/open-idm/internal/auth/providers"
	"github.com/open-idm/open-idm/internal/config"
	"github.com/open-idm/open-idm/internal/connectors"
	"github.com/open-idm/open-idm/internal/connectors/configstore"
	"github.com/open-idm/open-idm/internal/connectors/registry"
	"github.com/open-idm/open-idm/internal/http/authn"
	"github.com/open-idm/open-idm/internal/identity"
	"github.com/open-idm/open-idm/internal/schema"
	"github.com/open-idm/open-idm/internal/store"
	"github.com/open-idm/open-idm/internal/systems"
)

const (
	// ContextKeyRequestID stores the request id (X-Request-ID) for logging and client error references.
	ContextKeyRequestID = "request_id"

	// InternalErrorCode is a stable error code safe to return to clients.
	InternalErrorCode = "INTERNAL_ERROR"
)

// AuthStore covers the console-user reads and writes the auth flow needs.
type AuthStore interface {
	providers.UserStore
	authn.UserStore
	UpdateAuthUserLoginMeta(ctx context.Context, id int64, at time.Time, ip string) error
}

// Handlers groups all HTTP handlers and shared dependencies.
type Handlers struct {
	Cfg         config.Config
	Store       *store.Store
	Sessions    *scs.SessionManager
	Registry    *registry.Registry
	Systems     *systems.Service
	Schema      *schema.Service
	Accounts    *accounts.Service
	Identities  *identity.Service
	RoleSystems *accounts.RoleSystems
	Configs     *configstore.Service
	Inventory   *connectors.Inventory
	Password    *providers.PasswordProvider
	AuthUsers   AuthStore
}

// HandleHealthz reports liveness.
func (h *Handlers) HandleHealthz(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func principal(c *echo.Context) auth.Principal {
	p, _ := authn.PrincipalFromContext(c)
	return p
}

func pathUUID(c *echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func requestContext(c *echo.Context) context.Context {
	return c.Request().Context()
}
