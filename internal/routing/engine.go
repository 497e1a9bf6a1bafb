package routing

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/telemetry"
)

// Evaluator decides whether a traveller should leave their current route.
type Evaluator interface {
	EvaluateRerouteNecessity(ctx context.Context, route Route, position geo.Point, prefs RoutePreferences) RerouteDecision
}

// Generator derives condition-optimized variants of a route.
type Generator interface {
	GenerateAlternatives(ctx context.Context, route Route, position geo.Point, prefs RoutePreferences) []Route
}

// Ranker orders candidate routes best first.
type Ranker interface {
	RankRoutes(ctx context.Context, routes []Route, prefs RoutePreferences) RankingResult
}

// Config holds configuration for the engine.
type Config struct {
	// Providers are the condition sources. All three are required.
	Providers Providers

	// Logger for engine operations.
	Logger zerolog.Logger

	// SegmentConcurrency bounds concurrent per-segment lookups (default: 8).
	SegmentConcurrency int

	// Metrics records operation durations and decisions (optional).
	Metrics *telemetry.EngineMetrics
}

// Engine implements Evaluator, Generator and Ranker over a set of providers.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	providers Providers
	logger    zerolog.Logger
	limit     int
	metrics   *telemetry.EngineMetrics
	tracer    trace.Tracer
}

var (
	_ Evaluator = (*Engine)(nil)
	_ Generator = (*Engine)(nil)
	_ Ranker    = (*Engine)(nil)
)

// NewEngine creates a new engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Providers.Weather == nil || cfg.Providers.Traffic == nil || cfg.Providers.Terrain == nil {
		return nil, errors.New("routing: weather, traffic and terrain providers are required")
	}

	limit := cfg.SegmentConcurrency
	if limit <= 0 {
		limit = 8
	}

	return &Engine{
		providers: cfg.Providers,
		logger:    cfg.Logger,
		limit:     limit,
		metrics:   cfg.Metrics,
		tracer:    telemetry.Tracer(telemetry.InstrumentationName + "/routing"),
	}, nil
}

// Providers returns the providers the engine consults.
func (e *Engine) Providers() Providers {
	return e.providers
}

// recomputeSegments fetches a condition for every segment anchor with at most
// limit lookups in flight and returns new segments built by apply. The first
// failure cancels the remaining lookups. Segment order and paths are preserved.
func recomputeSegments[T any](
	ctx context.Context,
	limit int,
	segments []Segment,
	fetch func(context.Context, geo.Point) (T, error),
	apply func(Metrics, T) Metrics,
) ([]Segment, error) {
	out := make([]Segment, len(segments))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, seg := range segments {
		g.Go(func() error {
			anchor, ok := seg.Anchor()
			if !ok {
				return ErrEmptyRoute
			}
			c, err := fetch(ctx, anchor)
			if err != nil {
				return err
			}
			out[i] = seg.WithMetrics(apply(seg.Metrics, c))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
