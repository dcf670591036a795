package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exports operation and cache metrics through a
// Prometheus registry. It fulfills MetricsRecorder for deployments scraped by
// Prometheus; the dashboard exposes the registry at /metrics.
type PrometheusMetricsRecorder struct {
	durations *prometheus.HistogramVec
	results   *prometheus.CounterVec
	cache     *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder registers the policyhub collectors with reg.
// When reg is nil the default registerer is used. Registering the same
// collectors twice panics, per client_golang convention.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	rec := &PrometheusMetricsRecorder{
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "policyhub",
			Name:      "operation_duration_seconds",
			Help:      "Duration of service operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "policyhub",
			Name:      "operations_total",
			Help:      "Service operation outcomes by status.",
		}, []string{"operation", "status"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "policyhub",
			Name:      "cache_events_total",
			Help:      "Snapshot cache events by kind.",
		}, []string{"event"}),
	}
	reg.MustRegister(rec.durations, rec.results, rec.cache)
	return rec
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
	r.results.WithLabelValues(operation, status).Inc()
}

// CacheEvent implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) CacheEvent(event string) {
	if event == "" {
		return
	}
	r.cache.WithLabelValues(event).Inc()
}
