package registry

import (
	"context"
	"errors"
)

// ErrPasswordUnsupported is returned by clients whose target has no password
// concept.
var ErrPasswordUnsupported = errors.New("connector does not support password change")

// ObjectClassSpec is one object class as reported by the remote target.
type ObjectClassSpec struct {
	Name      string
	Auxiliary bool
	Container bool
}

// Client is the outbound boundary to one configured target. Implementations
// must honor context cancellation on every call.
type Client interface {
	ReadSchema(ctx context.Context) ([]ObjectClassSpec, error)
	ChangePassword(ctx context.Context, uid, newPassword string) error
	Ping(ctx context.Context) error
}
