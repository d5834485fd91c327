package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "openidm"
)

var (
	schemaGenerationBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}

	// Schema generation
	SchemaGenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "schema_generation_duration_seconds",
		Help:      "Time taken to read and replace a system schema.",
		Buckets:   schemaGenerationBuckets,
	}, []string{"connector_kind"})

	SchemaGenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "schema_generations_total",
		Help:      "Count of schema generation attempts.",
	}, []string{"connector_kind", "status"})

	// Connector calls
	ConnectorRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connector_requests_total",
		Help:      "Count of outbound connector calls.",
	}, []string{"connector_kind", "op", "status"})

	// Password change fan-out
	PasswordChangeTargetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_change_targets_total",
		Help:      "Count of per-target password change outcomes.",
	}, []string{"target_kind", "status"})

	// System duplication
	SystemDuplicationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "system_duplications_total",
		Help:      "Count of per-item system duplication outcomes.",
	}, []string{"status"})
)
