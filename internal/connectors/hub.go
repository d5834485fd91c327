// Package connectors wires the connector catalog, stored configuration, and
// outbound clients together for the rest of the service.
package connectors

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/open-idm/open-idm/internal/apperr"
	"github.com/open-idm/open-idm/internal/connectors/registry"
	"github.com/open-idm/open-idm/internal/metrics"
)

// Target identifies the system an outbound call is made on behalf of.
type Target struct {
	SystemID uuid.UUID
	Kind     string
}

// ConfigSource reads the raw connector configuration stored for a system.
type ConfigSource interface {
	RawConnectorConfig(ctx context.Context, systemID uuid.UUID) ([]byte, error)
}

// Hub builds clients for configured systems and bounds every outbound call
// with the configured timeout. Failures and deadlines surface as retryable
// connector errors; persisted state is never touched on the failure path.
type Hub struct {
	registry *registry.Registry
	source   ConfigSource
	timeout  time.Duration
}

// NewHub creates a hub. A non-positive timeout disables deadline bounding.
func NewHub(reg *registry.Registry, source ConfigSource, timeout time.Duration) *Hub {
	return &Hub{registry: reg, source: source, timeout: timeout}
}

// ClientFor decodes the system's stored configuration and builds a client.
func (h *Hub) ClientFor(ctx context.Context, target Target) (registry.Client, error) {
	def, ok := h.registry.Get(target.Kind)
	if !ok {
		return nil, apperr.Invalid("connectorKind", "unknown connector kind "+target.Kind)
	}
	raw, err := h.source.RawConnectorConfig(ctx, target.SystemID)
	if err != nil {
		return nil, err
	}
	cfg, err := def.DecodeConfig(raw)
	if err != nil {
		return nil, apperr.Connector(target.SystemID.String(), "decode-config", err)
	}
	if !def.IsConfigured(cfg) {
		return nil, apperr.Conflict("system", "connector is not configured")
	}
	return def.NewClient(cfg)
}

// ReadSchema reads the remote object-class metadata for the target.
func (h *Hub) ReadSchema(ctx context.Context, target Target) ([]registry.ObjectClassSpec, error) {
	client, err := h.ClientFor(ctx, target)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := h.boundContext(ctx)
	defer cancel()

	specs, err := client.ReadSchema(callCtx)
	if err != nil {
		metrics.ConnectorRequestsTotal.WithLabelValues(target.Kind, "read-schema", "error").Inc()
		return nil, h.wrapCallError(target, "read-schema", err)
	}
	metrics.ConnectorRequestsTotal.WithLabelValues(target.Kind, "read-schema", "ok").Inc()
	return specs, nil
}

// ChangePassword sets a new password for the remote account identified by uid.
// ErrPasswordUnsupported passes through untouched so callers can tell "target
// has no password concept" apart from a transport failure.
func (h *Hub) ChangePassword(ctx context.Context, target Target, uid, newPassword string) error {
	client, err := h.ClientFor(ctx, target)
	if err != nil {
		return err
	}

	callCtx, cancel := h.boundContext(ctx)
	defer cancel()

	if err := client.ChangePassword(callCtx, uid, newPassword); err != nil {
		if errors.Is(err, registry.ErrPasswordUnsupported) {
			metrics.ConnectorRequestsTotal.WithLabelValues(target.Kind, "change-password", "unsupported").Inc()
			return err
		}
		metrics.ConnectorRequestsTotal.WithLabelValues(target.Kind, "change-password", "error").Inc()
		return h.wrapCallError(target, "change-password", err)
	}
	metrics.ConnectorRequestsTotal.WithLabelValues(target.Kind, "change-password", "ok").Inc()
	return nil
}

// Ping checks connectivity to the target.
func (h *Hub) Ping(ctx context.Context, target Target) error {
	client, err := h.ClientFor(ctx, target)
	if err != nil {
		return err
	}

	callCtx, cancel := h.boundContext(ctx)
	defer cancel()

	if err := client.Ping(callCtx); err != nil {
		metrics.ConnectorRequestsTotal.WithLabelValues(target.Kind, "ping", "error").Inc()
		return h.wrapCallError(target, "ping", err)
	}
	metrics.ConnectorRequestsTotal.WithLabelValues(target.Kind, "ping", "ok").Inc()
	return nil
}

func (h *Hub) boundContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, h.timeout)
}

func (h *Hub) wrapCallError(target Target, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.ConnectorTimeout(target.SystemID.String(), op, err)
	}
	return apperr.Connector(target.SystemID.String(), op, err)
}
