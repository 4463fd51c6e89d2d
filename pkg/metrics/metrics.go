package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grantor_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// AccessChecks counts resolver decisions per entity set, permission type
	// and outcome (allow|deny|error).
	AccessChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grantor_access_checks_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"entity_set", "permission_type", "result"},
	)

	// GrantMutations counts grant and membership writes (created|revoked) per relation.
	GrantMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grantor_grant_mutations_total",
			Help: "Total number of grant and membership mutations",
		},
		[]string{"relation", "action"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grantor_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
