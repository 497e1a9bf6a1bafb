package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/routopia/routeengine/internal/directions"
	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/routing"
	"github.com/routopia/routeengine/internal/seasonal"
	"github.com/routopia/routeengine/internal/telemetry"
	"github.com/routopia/routeengine/internal/terrain"
	"github.com/routopia/routeengine/internal/traffic"
	"github.com/routopia/routeengine/internal/weather"
)

// Config holds configuration for the optimizer.
type Config struct {
	// Engine scores and ranks candidates. Required.
	Engine *routing.Engine

	// Directions provides base geometry (default: directions.GreatCircle).
	Directions directions.Provider

	// Logger for optimizer operations.
	Logger zerolog.Logger

	// Timeout bounds a single OptimizeRoute call (default: 10 seconds).
	Timeout time.Duration

	// MaxAlternatives is the number of alternatives returned (default: 2).
	MaxAlternatives int

	// DetourRatio is how far a detour bends away from the direct line, as a
	// fraction of the route distance (default: 0.15).
	DetourRatio float64

	// Metrics records operation durations and degraded results (optional).
	Metrics *telemetry.EngineMetrics

	// Clock returns the current time (default: time.Now).
	Clock func() time.Time
}

// Optimizer implements RouteOptimizer.
type Optimizer struct {
	engine          *routing.Engine
	directions      directions.Provider
	logger          zerolog.Logger
	timeout         time.Duration
	maxAlternatives int
	detourRatio     float64
	metrics         *telemetry.EngineMetrics
	clock           func() time.Time
	tracer          trace.Tracer
}

var _ RouteOptimizer = (*Optimizer)(nil)

// Segmenting constants.
const (
	segmentLength = 5000.0 // meters
	maxSegments   = 8
)

// New creates a new optimizer.
func New(cfg Config) (*Optimizer, error) {
	if cfg.Engine == nil {
		return nil, errors.New("optimizer: engine is required")
	}

	dir := cfg.Directions
	if dir == nil {
		dir = directions.GreatCircle{}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	maxAlternatives := cfg.MaxAlternatives
	if maxAlternatives <= 0 {
		maxAlternatives = 2
	}

	detourRatio := cfg.DetourRatio
	if detourRatio <= 0 {
		detourRatio = 0.15
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Optimizer{
		engine:          cfg.Engine,
		directions:      dir,
		logger:          cfg.Logger,
		timeout:         timeout,
		maxAlternatives: maxAlternatives,
		detourRatio:     detourRatio,
		metrics:         cfg.Metrics,
		clock:           clock,
		tracer:          telemetry.Tracer(telemetry.InstrumentationName + "/optimizer"),
	}, nil
}

// OptimizeRoute plans a route from req.Start to req.End. Only validation
// errors and caller cancellation are returned; missing provider data is
// reported through warnings on the result.
func (o *Optimizer) OptimizeRoute(ctx context.Context, req Request) (*OptimizedRoute, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	depart := req.Depart
	if depart.IsZero() {
		depart = o.clock()
	}

	prefs := req.Preferences
	prefs.Activity = req.Activity

	if req.Start.Equal(req.End) {
		return &OptimizedRoute{
			ID:       uuid.NewString(),
			Path:     []geo.Point{req.Start},
			Warnings: []string{},
			Season:   seasonal.SeasonAt(req.Start, depart),
			Source:   o.directions.Name(),
		}, nil
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	ctx, span := o.tracer.Start(ctx, "optimizer.OptimizeRoute",
		trace.WithAttributes(attribute.String("activity", string(req.Activity))))
	defer span.End()
	started := time.Now()
	defer func() { o.metrics.RecordOperation(ctx, "optimize_route", time.Since(started)) }()

	// Supplied conditions replace the provider lookup at the start.
	providers := o.engine.Providers()
	if req.Weather != nil {
		providers.Weather = nil
	}
	if req.Terrain != nil {
		providers.Terrain = nil
	}
	snap := providers.Fetch(ctx, req.Start)
	if req.Weather != nil {
		snap.Weather = *req.Weather
	}
	if req.Terrain != nil {
		snap.Terrain = *req.Terrain
	}

	if err := parent.Err(); err != nil {
		return nil, err
	}

	warnings := []string{}
	if snap.WeatherErr != nil {
		warnings = append(warnings, WarnWeatherUnavailable)
	}
	if snap.TrafficErr != nil {
		warnings = append(warnings, WarnTrafficUnavailable)
	}
	if snap.TerrainErr != nil {
		warnings = append(warnings, WarnTerrainUnavailable)
	}

	failed := snap.Failed()
	degraded := failed >= 2
	if failed > 0 {
		o.logger.Warn().Err(snap.Err()).
			Int("missing_providers", failed).
			Msg("optimizing with missing provider data")
		o.metrics.RecordDegraded(ctx, failed)
	}
	if degraded {
		warnings = append(warnings, WarnLimitedOptimization)
	}

	routes, source, direct := o.directionsRoutes(ctx, req, prefs)
	if direct {
		warnings = append(warnings, WarnDirectPath)
	}

	candidates := make([]routing.Route, 0, o.maxAlternatives+1)
	for i, dr := range routes {
		kind := routing.KindAlternative
		if i == 0 {
			kind = routing.KindBase
		}
		candidates = append(candidates, toRoute(kind, dr, prefs))
	}
	if !degraded {
		for _, side := range []float64{1, -1} {
			if len(candidates) > o.maxAlternatives {
				break
			}
			candidates = append(candidates, toRoute(routing.KindAlternative, o.detour(req, side), prefs))
		}
	} else {
		candidates = candidates[:1]
	}

	ranking := o.engine.RankRoutes(ctx, candidates, prefs)
	primary := ranking.Routes[0]

	var (
		wc *weather.Conditions
		tc *traffic.Conditions
		rc *terrain.Conditions
	)
	if snap.WeatherErr == nil {
		wc = &snap.Weather
	}
	if snap.TrafficErr == nil {
		tc = &snap.Traffic
	}
	if snap.TerrainErr == nil {
		rc = &snap.Terrain
	}

	baseSafety := startSafety(wc, rc)
	var variants []routing.Route
	if failed == 0 {
		variants = o.engine.GenerateAlternatives(ctx, primary, req.Start, prefs)
	}
	primary = enrich(primary, variants, baseSafety)

	sc := seasonal.NewContext(req.Start, depart, wc)
	adapted, seasonalWarnings := seasonal.Adapt(primary, sc, depart)
	path := adapted.Path()

	result := &OptimizedRoute{
		ID:      adapted.ID,
		Path:    path,
		Metrics: summarize(adapted),
		Score:   ranking.Scores[ranking.Routes[0].ID],
		Season:  sc.Season,
		Source:  source,
	}

	if !degraded {
		samples := o.sampleConditions(ctx, path, snap, req.Terrain != nil)
		result.WeatherTransitions = transitions(samples)
		result.Metrics.ElevationGain = elevationGain(samples)

		for _, alt := range ranking.Routes[1:] {
			result.Alternatives = append(result.Alternatives, Alternative{
				ID:   alt.ID,
				Kind: alt.Kind,
				Path: alt.Path(),
				Metrics: Metrics{
					Distance: alt.TotalDistance,
					Duration: alt.TotalDuration,
					Safety:   baseSafety,
				},
				Score: ranking.Scores[alt.ID],
			})
		}
	}

	if limit, ok := recommendedDistance[req.Activity]; ok && result.Metrics.Distance > limit {
		warnings = append(warnings, fmt.Sprintf("Route exceeds the recommended %s distance of %.0f km", req.Activity, limit/1000))
	}
	warnings = append(warnings, activityWarnings(req.Activity, wc, tc, rc)...)
	warnings = append(warnings, seasonalWarnings...)
	result.Warnings = warnings

	if err := parent.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("alternatives", len(result.Alternatives)),
		attribute.Int("warnings", len(result.Warnings)),
		attribute.Bool("degraded", degraded),
	)
	o.logger.Debug().
		Str("route_id", result.ID).
		Str("activity", string(req.Activity)).
		Float64("distance_m", result.Metrics.Distance).
		Int("alternatives", len(result.Alternatives)).
		Strs("warnings", result.Warnings).
		Msg("optimized route")

	return result, nil
}

func validate(req Request) error {
	if err := req.Start.Validate(); err != nil {
		return &routing.ValidationError{Field: "start", Message: err.Error(), Err: err}
	}
	if err := req.End.Validate(); err != nil {
		return &routing.ValidationError{Field: "end", Message: err.Error(), Err: err}
	}
	if !req.Activity.Valid() {
		return &routing.ValidationError{
			Field:   "activity",
			Message: fmt.Sprintf("unsupported activity %q", req.Activity),
			Err:     routing.ErrUnknownActivity,
		}
	}
	prefs := req.Preferences
	prefs.Activity = req.Activity
	if err := prefs.Validate(); err != nil {
		return err
	}
	return checkTerrain(req.Activity, req.Terrain)
}

// directionsRoutes returns the base route and any provider alternatives. When
// the provider fails the great-circle path is used and direct is true.
func (o *Optimizer) directionsRoutes(ctx context.Context, req Request, prefs routing.RoutePreferences) (routes []directions.Route, source string, direct bool) {
	profile := ProfileFor(req.Activity)

	resp, err := o.directions.GetDirections(ctx, directions.Request{
		Origin:          req.Start,
		Destination:     req.End,
		Profile:         profile,
		MaxAlternatives: o.maxAlternatives,
		AvoidHighways:   prefs.AvoidHighways,
		AvoidTolls:      prefs.AvoidTolls,
	})
	if err == nil {
		routes = slices.DeleteFunc(slices.Clone(resp.Routes), func(r directions.Route) bool {
			return len(r.Path) < 2
		})
	}
	if len(routes) > 0 {
		if len(routes) > o.maxAlternatives+1 {
			routes = routes[:o.maxAlternatives+1]
		}
		return routes, resp.Provider, false
	}

	o.logger.Warn().Err(err).
		Str("provider", o.directions.Name()).
		Msg("directions unavailable, using great-circle path")

	gc := directions.GreatCircle{}
	return []directions.Route{gc.Route(req.Start, req.End, profile)}, gc.Name(), true
}

// detour bends the route through a point offset perpendicular to the
// direction of travel at the midpoint. side is 1 for right and -1 for left.
func (o *Optimizer) detour(req Request, side float64) directions.Route {
	profile := ProfileFor(req.Activity)
	distance := geo.Distance(req.Start, req.End)

	mid := geo.Interpolate(req.Start, req.End, 0.5)
	bearing := geo.Bearing(mid, req.End) + side*90
	via := geo.Offset(mid, bearing, distance*o.detourRatio)

	gc := directions.GreatCircle{}
	first := gc.Route(req.Start, via, profile)
	second := gc.Route(via, req.End, profile)

	path := append(first.Path, second.Path[1:]...)
	return directions.Route{
		Path:            path,
		DistanceMeters:  first.DistanceMeters + second.DistanceMeters,
		DurationSeconds: first.DurationSeconds + second.DurationSeconds,
		Summary:         "detour",
		Bound:           geo.Bound(path),
	}
}

// toRoute splits a directions route into up to maxSegments segments of about
// segmentLength, sharing their joining points. dr.Path has at least two points.
func toRoute(kind routing.Kind, dr directions.Route, prefs routing.RoutePreferences) routing.Route {
	path := dr.Path
	n := int(math.Ceil(dr.DistanceMeters / segmentLength))
	n = max(1, min(n, maxSegments, len(path)-1))

	total := geo.PathLength(path)
	segs := make([]routing.Segment, 0, n)

	for k := range n {
		from := k * (len(path) - 1) / n
		to := (k + 1) * (len(path) - 1) / n
		sub := path[from : to+1]

		share := 1 / float64(n)
		if total > 0 {
			share = geo.PathLength(sub) / total
		}

		segs = append(segs, routing.Segment{
			Path:     slices.Clone(sub),
			Activity: prefs.Activity,
			Metrics: routing.Metrics{
				Distance: dr.DistanceMeters * share,
				Duration: dr.DurationSeconds * share,
			},
		})
	}

	return routing.NewRoute(kind, segs, prefs)
}

// startSafety is the safety implied by the conditions at the start.
func startSafety(w *weather.Conditions, t *terrain.Conditions) float64 {
	safety := 1.0
	if w != nil {
		safety = min(safety, routing.WeatherSafety(*w))
	}
	if t != nil {
		safety = min(safety, routing.TerrainSafety(*t))
	}
	return safety
}

// enrich carries per-segment safety, impacts and traffic-adjusted durations
// from the condition-optimized variants onto route. Segments no variant
// covers fall back to baseSafety.
func enrich(route routing.Route, variants []routing.Route, baseSafety float64) routing.Route {
	segs := make([]routing.Segment, len(route.Segments))

	for i, seg := range route.Segments {
		m := seg.Metrics
		safety, found := 1.0, false

		for _, v := range variants {
			if v.ID == route.ID || i >= len(v.Segments) {
				continue
			}
			vm := v.Segments[i].Metrics
			if vm.Safety != nil {
				safety, found = min(safety, *vm.Safety), true
			}
			if vm.EstimatedDuration != nil {
				m.EstimatedDuration = vm.EstimatedDuration
			}
			if vm.WeatherImpact != nil {
				m.WeatherImpact = vm.WeatherImpact
			}
			if vm.TrafficImpact != nil {
				m.TrafficImpact = vm.TrafficImpact
			}
			if vm.TerrainDifficulty != nil {
				m.TerrainDifficulty = vm.TerrainDifficulty
				m.Surface = vm.Surface
			}
		}

		if !found {
			safety = baseSafety
		}
		m.Safety = &safety
		segs[i] = seg.WithMetrics(m)
	}

	return routing.NewRoute(route.Kind, segs, route.Preferences)
}

// summarize totals a route's metrics. Safety is the weakest segment.
func summarize(r routing.Route) Metrics {
	m := Metrics{Distance: r.TotalDistance, Safety: 1}
	for _, seg := range r.Segments {
		if seg.Metrics.EstimatedDuration != nil {
			m.Duration += *seg.Metrics.EstimatedDuration
		} else {
			m.Duration += seg.Metrics.Duration
		}
		if seg.Metrics.Safety != nil {
			m.Safety = min(m.Safety, *seg.Metrics.Safety)
		}
	}
	m.Duration = math.Round(m.Duration)
	m.Safety = math.Round(m.Safety*100) / 100
	return m
}
