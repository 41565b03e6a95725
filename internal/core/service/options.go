package service

import (
	"time"

	"github.com/yndnr/prodadmin-go/internal/telemetry/logger"
	"github.com/yndnr/prodadmin-go/internal/telemetry/metric"
)

// Option configures the services in this package.
type Option func(*options)

type options struct {
	logger  logger.Logger
	metrics *metric.Registry
	now     func() time.Time
}

func buildOptions(opts []Option) options {
	o := options{
		logger: logger.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records call counts and latencies in r.
func WithMetrics(r *metric.Registry) Option {
	return func(o *options) {
		o.metrics = r
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func (o options) observe(operation string, err error, elapsed time.Duration) {
	if o.metrics == nil {
		return
	}
	o.metrics.RequestsTotal.WithLabelValues(operation, outcome(err)).Inc()
	o.metrics.RequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (o options) transition(kind, result string) {
	if o.metrics == nil {
		return
	}
	o.metrics.AuthTransitions.WithLabelValues(kind, result).Inc()
}
