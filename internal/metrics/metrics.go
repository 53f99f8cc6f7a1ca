// Package metrics defines the Prometheus instruments for the auth plane and
// serves them over /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AuthFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Authentication failures by reason",
		},
		[]string{"reason"},
	)

	TenantUnresolved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_unresolved_total",
			Help: "Requests that reached tenant resolution without a resolvable tenant",
		},
	)

	SessionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_created_total",
			Help: "Sessions created",
		},
	)

	SessionsInvalidated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_invalidated_total",
			Help: "Sessions explicitly invalidated",
		},
	)

	SessionsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_swept_total",
			Help: "Expired session rows removed by the sweeper",
		},
	)

	PoolOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_pool_open_connections",
			Help: "Open database connections held by the pool",
		},
	)

	PoolIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_pool_idle_connections",
			Help: "Idle database connections held by the pool",
		},
	)

	PoolDiscarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "db_pool_discarded_connections_total",
			Help: "Connections discarded instead of recycled (failed tenant parameter reset or set)",
		},
	)

	PoolExhausted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "db_pool_exhausted_total",
			Help: "Connection acquisitions that failed after bounded retries",
		},
	)

	AuditDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_dropped_total",
			Help: "Audit events dropped because the dispatch buffer was full",
		},
	)
)

// Init registers all instruments with the default registry. Call once at startup.
func Init() {
	prometheus.MustRegister(
		AuthFailures,
		TenantUnresolved,
		SessionsCreated,
		SessionsInvalidated,
		SessionsSwept,
		PoolOpen,
		PoolIdle,
		PoolDiscarded,
		PoolExhausted,
		AuditDropped,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
