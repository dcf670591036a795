package core

import (
	"context"
	"time"

	"policyhub/internal/rows"

	"go.uber.org/zap"
)

// DefaultCacheTTL is the snapshot freshness window when none is configured.
const DefaultCacheTTL = 60 * time.Second

// Options configures a Service.
type Options struct {
	// Sources lists the configured sheet identifiers in display order. An
	// identifier is a spreadsheet ID, a full sheet URL, or a sheet name.
	Sources []string
	// SourceNames maps extracted source IDs to display names. Sources
	// without an entry display their extracted ID.
	SourceNames map[string]string
	// CacheTTL bounds snapshot freshness. Non-positive means DefaultCacheTTL.
	CacheTTL time.Duration
	Logger   *zap.Logger
	Metrics  MetricsRecorder
	Tracer   Tracer
	// Clock overrides time.Now for tests.
	Clock func() time.Time
}

// Service aggregates rows from the configured sources into snapshots and
// answers filtered views over them. All methods are safe for concurrent use.
type Service struct {
	source  rows.Source
	specs   []SourceSpec
	key     string
	cache   *snapshotCache
	logger  *zap.Logger
	metrics MetricsRecorder
	tracer  Tracer
	now     func() time.Time
}

// NewService wires a service over src. Unset options fall back to no-op
// observability, the default TTL, and the wall clock.
func NewService(src rows.Source, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NoopMetricsRecorder{}
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = NoopTracer{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		source:  src,
		specs:   buildSourceSpecs(opts.Sources, opts.SourceNames),
		key:     cacheKey(opts.Sources),
		cache:   newSnapshotCache(ttl, clock),
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		now:     clock,
	}
}

// Load returns the current snapshot, serving from cache inside the TTL
// window. force bypasses the cache and replaces whatever was stored.
func (s *Service) Load(ctx context.Context, force bool) (_ *Snapshot, err error) {
	if force {
		s.metrics.CacheEvent(CacheBypass)
	} else if snap, ok := s.cache.get(s.key); ok {
		s.metrics.CacheEvent(CacheHit)
		return snap, nil
	} else {
		s.metrics.CacheEvent(CacheMiss)
	}

	ctx, span := s.tracer.Start(ctx, "load")
	defer func() { span.End(err) }()
	start := s.now()
	defer func() { s.metrics.Observe(ctx, "load", err == nil, s.now().Sub(start)) }()

	snap, err := s.aggregate(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.put(s.key, snap)
	s.logger.Info("snapshot loaded",
		zap.Int("records", len(snap.Records)),
		zap.Int("sources", snap.Fetched()),
		zap.Int("skipped", len(snap.Warnings)))
	return snap, nil
}

// Refresh drops the cached snapshot and loads a fresh one.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	s.cache.invalidate(s.key)
	s.metrics.CacheEvent(CacheInvalidate)
	return s.Load(ctx, false)
}

// View is a filtered, sorted projection of a snapshot together with the
// context a presenter needs to render it.
type View struct {
	Records     []Record        `json:"records"`
	Facets      Facets          `json:"facets"`
	Query       Query           `json:"query"`
	Total       int             `json:"total"`
	Filtered    int             `json:"filtered"`
	Counts      []SourceCount   `json:"counts,omitempty"`
	Warnings    []SourceWarning `json:"warnings,omitempty"`
	MultiSource bool            `json:"multi_source"`
	FetchedAt   time.Time       `json:"fetched_at"`
}

// Query applies q to snap and shapes the result for presentation. Facets
// always describe the whole snapshot, not the filtered subset.
func (s *Service) Query(snap *Snapshot, q Query) *View {
	filtered := Apply(snap.Records, q)
	return &View{
		Records:     filtered,
		Facets:      CollectFacets(snap.Records),
		Query:       q,
		Total:       len(snap.Records),
		Filtered:    len(filtered),
		Counts:      snap.Counts,
		Warnings:    snap.Warnings,
		MultiSource: snap.MultiSource,
		FetchedAt:   snap.FetchedAt,
	}
}

// Sources lists the configured sources in display order.
func (s *Service) Sources() []SourceSpec {
	out := make([]SourceSpec, len(s.specs))
	copy(out, s.specs)
	return out
}
