package middleware

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/conduit/core/pipeline"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx *pipeline.Context) bool
	// Registerer receives the collectors (default: prometheus.DefaultRegisterer)
	Registerer prometheus.Registerer
	// Namespace prefixes the metric names
	Namespace string
	// Subsystem groups the metric names under the namespace
	Subsystem string
	// Buckets for the request duration histogram (default: prometheus.DefBuckets)
	Buckets []float64
}

// Metrics creates a Prometheus metrics middleware with default
// configuration, registering on the default registerer.
func Metrics() pipeline.Handler {
	return MetricsWithConfig(MetricsConfig{})
}

// MetricsWithConfig creates a Prometheus metrics middleware with custom
// configuration. It records a request counter and a duration histogram,
// both labeled by method and status.
func MetricsWithConfig(cfg MetricsConfig) pipeline.Handler {
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	if cfg.Buckets == nil {
		cfg.Buckets = prometheus.DefBuckets
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of handled HTTP requests.",
	}, []string{"method", "status"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   cfg.Buckets,
	}, []string{"method", "status"})

	cfg.Registerer.MustRegister(requests, duration)

	return pipeline.HandlerFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		if cfg.Skip != nil && cfg.Skip(ctx) {
			next(nil)
			return
		}

		start := time.Now()
		next(nil)

		method := ctx.Request().Method
		status := strconv.Itoa(ctx.Response().Status())

		requests.WithLabelValues(method, status).Inc()
		duration.WithLabelValues(method, status).Observe(time.Since(start).Seconds())
	})
}
