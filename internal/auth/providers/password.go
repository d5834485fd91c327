// Package providers implements the authentication methods console users can
// sign in with.
package providers

import (
	"context"

	"github.com/open-idm/open-idm/internal/apperr"
	"github.com/open-idm/open-idm/internal/auth"
)

// UserStore reads console users for authentication.
type UserStore interface {
	GetAuthUserByEmail(ctx context.Context, email string) (auth.User, error)
}

type PasswordProvider struct {
	users UserStore
}

func NewPasswordProvider(users UserStore) *PasswordProvider {
	return &PasswordProvider{users: users}
}

func (p *PasswordProvider) Name() string {
	return auth.MethodPassword
}

func (p *PasswordProvider) Authenticate(ctx context.Context, email, password string) (auth.Principal, error) {
	email = auth.NormalizeEmail(email)
	if email == "" || password == "" {
		return auth.Principal{}, auth.ErrInvalidCredentials
	}

	user, err := p.users.GetAuthUserByEmail(ctx, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return auth.Principal{}, auth.ErrInvalidCredentials
		}
		return auth.Principal{}, err
	}
	if !user.IsActive {
		return auth.Principal{}, auth.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil {
		return auth.Principal{}, err
	}
	if !match {
		return auth.Principal{}, auth.ErrInvalidCredentials
	}

	return auth.Principal{
		UserID:     user.ID,
		Email:      user.Email,
		Role:       user.Role,
		Method:     auth.MethodPassword,
		IdentityID: user.IdentityID,
	}, nil
}
