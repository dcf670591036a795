package core

import (
	"context"
	"time"
)

// MetricsRecorder receives operation outcomes and cache events from the
// service. Implementations must be safe for concurrent use.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	CacheEvent(event string)
}

// Cache event names passed to MetricsRecorder.CacheEvent.
const (
	CacheHit        = "hit"
	CacheMiss       = "miss"
	CacheBypass     = "bypass"
	CacheInvalidate = "invalidate"
)

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan ends one traced operation.
type TraceSpan interface {
	End(err error)
}

// NoopMetricsRecorder discards every observation.
type NoopMetricsRecorder struct{}

func (NoopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

func (NoopMetricsRecorder) CacheEvent(string) {}

// NoopTracer emits spans that record nothing.
type NoopTracer struct{}

func (NoopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}
