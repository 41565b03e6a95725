// Package metric provides Prometheus metrics for prodadmin.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: private registry, client metrics and HTTP handler
//   - collector.go: collector that reports the live session state
//
// Metrics include gateway request counts and latencies per operation and
// outcome, authentication transition counts, and session state gauges.
// The interactive shell can expose them at /metrics.
package metric
