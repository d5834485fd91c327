package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/open-idm/open-idm/internal/auth"
	"github.com/open-idm/open-idm/internal/http/authn"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// HandleLogin authenticates a console user and starts a session. Every
// authentication failure reports the same 401 body.
func (h *Handlers) HandleLogin(c *echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := requestContext(c)
	p, err := h.Password.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		}
		return err
	}

	// Fresh token on privilege change, standard session-fixation hygiene.
	if err := h.Sessions.RenewToken(ctx); err != nil {
		return err
	}
	h.Sessions.Put(ctx, authn.SessionKeyUserID, p.UserID)

	if err := h.AuthUsers.UpdateAuthUserLoginMeta(ctx, p.UserID, time.Now().UTC(), c.RealIP()); err != nil {
		c.Logger().Warn("failed to record login metadata", "user_id", p.UserID, "err", err)
	}

	return c.JSON(http.StatusOK, loginResponse{Email: p.Email, Role: p.Role})
}

// HandleLogout destroys the session.
func (h *Handlers) HandleLogout(c *echo.Context) error {
	if err := h.Sessions.Destroy(requestContext(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
