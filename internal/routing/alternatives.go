package routing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/terrain"
	"github.com/routopia/routeengine/internal/traffic"
	"github.com/routopia/routeengine/internal/weather"
)

// trafficVariantLevel is the congestion above which a traffic variant is built.
const trafficVariantLevel = 0.3

// GenerateAlternatives derives weather, traffic and terrain optimized variants
// of route from the conditions at position. A variant is only produced when
// its conditions warrant it, so the result may be empty. On any provider
// failure the result is exactly []Route{route}.
func (e *Engine) GenerateAlternatives(ctx context.Context, route Route, position geo.Point, prefs RoutePreferences) []Route {
	ctx, span := e.tracer.Start(ctx, "routing.GenerateAlternatives")
	defer span.End()
	start := time.Now()
	defer func() { e.metrics.RecordOperation(ctx, "generate_alternatives", time.Since(start)) }()

	fallback := func(err error) []Route {
		e.logger.Warn().Err(err).
			Str("route_id", route.ID).
			Msg("alternative generation failed, returning original route")
		span.RecordError(err)
		return []Route{route}
	}

	snap := e.providers.Fetch(ctx, position)
	if err := snap.Err(); err != nil {
		return fallback(err)
	}

	var out []Route

	if len(snap.Weather.Tags) > 0 {
		segs, err := recomputeSegments(ctx, e.limit, route.Segments, e.providers.Weather.GetConditions,
			func(m Metrics, c weather.Conditions) Metrics {
				m.WeatherImpact = float(c.Severity)
				m.Safety = float(WeatherSafety(c))
				return m
			})
		if err != nil {
			return fallback(err)
		}
		out = append(out, NewRoute(KindWeatherOptimized, segs, prefs))
	}

	if snap.Traffic.CongestionLevel > trafficVariantLevel {
		segs, err := recomputeSegments(ctx, e.limit, route.Segments, e.providers.Traffic.GetConditions,
			func(m Metrics, c traffic.Conditions) Metrics {
				m.TrafficImpact = float(c.CongestionLevel)
				m.EstimatedDuration = float(m.Duration * (1 + c.CongestionLevel))
				return m
			})
		if err != nil {
			return fallback(err)
		}
		out = append(out, NewRoute(KindTrafficOptimized, segs, prefs))
	}

	if snap.Terrain.Degraded() {
		segs, err := recomputeSegments(ctx, e.limit, route.Segments, e.providers.Terrain.GetConditions,
			func(m Metrics, c terrain.Conditions) Metrics {
				m.TerrainDifficulty = float(c.Difficulty)
				m.Surface = c.Surface
				m.Safety = float(TerrainSafety(c))
				return m
			})
		if err != nil {
			return fallback(err)
		}
		out = append(out, NewRoute(KindTerrainOptimized, segs, prefs))
	}

	span.SetAttributes(attribute.Int("alternatives", len(out)))
	e.logger.Debug().
		Str("route_id", route.ID).
		Int("alternatives", len(out)).
		Msg("generated alternative routes")

	return out
}
