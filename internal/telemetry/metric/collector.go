package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/prodadmin-go/internal/core/domain"
)

// SessionCollector reports the live session state at scrape time.
type SessionCollector struct {
	snapshot func() domain.Session

	authenticated *prometheus.Desc
	loading       *prometheus.Desc
	expiresAt     *prometheus.Desc
}

var _ prometheus.Collector = (*SessionCollector)(nil)

// NewSessionCollector creates a collector reading state through snapshot.
func NewSessionCollector(snapshot func() domain.Session) *SessionCollector {
	return &SessionCollector{
		snapshot: snapshot,
		authenticated: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "authenticated"),
			"1 when the session holds an accepted credential",
			nil, nil,
		),
		loading: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "loading"),
			"1 while a session transition or redirect is in flight",
			nil, nil,
		),
		expiresAt: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "expires_timestamp_seconds"),
			"Unix time at which the held token expires, 0 if unknown",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *SessionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.authenticated
	ch <- c.loading
	ch <- c.expiresAt
}

// Collect implements prometheus.Collector.
func (c *SessionCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.snapshot()

	ch <- prometheus.MustNewConstMetric(c.authenticated, prometheus.GaugeValue, boolToFloat(s.IsAuthenticated()))
	ch <- prometheus.MustNewConstMetric(c.loading, prometheus.GaugeValue, boolToFloat(s.Loading))

	var exp float64
	if !s.ExpiresAt.IsZero() {
		exp = float64(s.ExpiresAt.Unix())
	}
	ch <- prometheus.MustNewConstMetric(c.expiresAt, prometheus.GaugeValue, exp)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
