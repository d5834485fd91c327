// Package authn loads the session principal and gates routes on it.
package authn

import (
	"context"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/labstack/echo/v5"

	"github.com/open-idm/open-idm/internal/apperr"
	"github.com/open-idm/open-idm/internal/auth"
)

const (
	ContextKeyPrincipal = "auth_principal"

	SessionKeyUserID = "auth_user_id"
)

// UserStore reads console users when resolving sessions.
type UserStore interface {
	GetAuthUser(ctx context.Context, id int64) (auth.User, error)
}

func PrincipalFromContext(c *echo.Context) (auth.Principal, bool) {
	p, ok := c.Get(ContextKeyPrincipal).(auth.Principal)
	return p, ok
}

func LoadPrincipal(c *echo.Context, sessions *scs.SessionManager, users UserStore) (auth.Principal, bool, error) {
	ctx := c.Request().Context()
	userID := sessions.GetInt64(ctx, SessionKeyUserID)
	if userID <= 0 {
		return auth.Principal{}, false, nil
	}

	user, err := users.GetAuthUser(ctx, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			_ = sessions.Destroy(ctx)
			return auth.Principal{}, false, nil
		}
		return auth.Principal{}, false, err
	}
	if !user.IsActive {
		_ = sessions.Destroy(ctx)
		return auth.Principal{}, false, nil
	}

	return auth.Principal{
		UserID:     user.ID,
		Email:      user.Email,
		Role:       user.Role,
		Method:     auth.MethodPassword,
		IdentityID: user.IdentityID,
	}, true, nil
}

func RequireAuth(sessions *scs.SessionManager, users UserStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			principal, ok, err := LoadPrincipal(c, sessions, users)
			if err != nil {
				return err
			}
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
			c.Set(ContextKeyPrincipal, principal)
			return next(c)
		}
	}
}

func RequireRole(role string) echo.MiddlewareFunc {
	role = strings.ToLower(strings.TrimSpace(role))
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			p, ok := PrincipalFromContext(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
			if strings.ToLower(strings.TrimSpace(p.Role)) != role {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
