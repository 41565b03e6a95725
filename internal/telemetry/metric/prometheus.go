package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "prodadmin"

// Registry holds all client metrics on a private Prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	// RequestsTotal counts gateway calls by operation and outcome.
	RequestsTotal *prometheus.CounterVec

	// RequestDuration observes gateway call latency by operation.
	RequestDuration *prometheus.HistogramVec

	// AuthTransitions counts session transitions by kind and result.
	AuthTransitions *prometheus.CounterVec
}

// NewRegistry creates a registry with all client metrics registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Backend requests issued through the gateway, by operation and outcome",
		}, []string{"operation", "outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Backend request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		AuthTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session transitions by kind (init, login, logout, expire) and result",
		}, []string{"transition", "result"}),
	}

	r.registry.MustRegister(
		r.RequestsTotal,
		r.RequestDuration,
		r.AuthTransitions,
		collectors.NewGoCollector(),
	)
	return r
}

// Register adds a collector to the registry.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// Gatherer exposes the underlying registry for tests and exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
