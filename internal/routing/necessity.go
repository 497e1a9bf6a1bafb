package routing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/routopia/routeengine/internal/geo"
)

// Necessity score contributions.
const (
	adverseWeatherWeight   = 0.3
	heavyTrafficWeight     = 0.4
	hazardousTerrainWeight = 0.3
)

// EvaluateRerouteNecessity scores the conditions at position and decides
// whether the traveller should be rerouted. It never fails: when any provider
// errors the decision is to stay on the route with reason service_error.
func (e *Engine) EvaluateRerouteNecessity(ctx context.Context, route Route, position geo.Point, prefs RoutePreferences) RerouteDecision {
	ctx, span := e.tracer.Start(ctx, "routing.EvaluateRerouteNecessity")
	defer span.End()
	start := time.Now()
	defer func() { e.metrics.RecordOperation(ctx, "evaluate_reroute", time.Since(start)) }()

	threshold := prefs.Threshold()
	snap := e.providers.Fetch(ctx, position)

	var decision RerouteDecision
	if err := snap.Err(); err != nil {
		e.logger.Warn().Err(err).
			Str("route_id", route.ID).
			Float64("lat", position.Lat).
			Float64("lng", position.Lng).
			Msg("condition lookup failed, keeping current route")
		span.RecordError(err)

		decision = RerouteDecision{
			Reasons:   []string{ReasonServiceError},
			Threshold: threshold,
		}
	} else {
		decision = scoreNecessity(snap, threshold)
	}

	span.SetAttributes(
		attribute.Bool("reroute", decision.ShouldReroute),
		attribute.Float64("severity", decision.Severity),
	)
	e.metrics.RecordRerouteDecision(ctx, decision.ShouldReroute, decision.Reasons)

	e.logger.Debug().
		Str("route_id", route.ID).
		Bool("reroute", decision.ShouldReroute).
		Float64("severity", decision.Severity).
		Str("reason", decision.Reason()).
		Msg("evaluated reroute necessity")

	return decision
}

// scoreNecessity sums the triggered contributions. The weights add up to 1.
func scoreNecessity(s Snapshot, threshold float64) RerouteDecision {
	score := 0.0
	var reasons []string

	if s.Weather.Precipitating() {
		score += adverseWeatherWeight
		reasons = append(reasons, ReasonAdverseWeather)
	}
	if s.Traffic.Heavy() {
		score += heavyTrafficWeight
		reasons = append(reasons, ReasonHeavyTraffic)
	}
	if s.Terrain.Hazardous() {
		score += hazardousTerrainWeight
		reasons = append(reasons, ReasonHazardousTerrain)
	}

	score = min(score, 1)
	return RerouteDecision{
		ShouldReroute: score > threshold,
		Severity:      score,
		Reasons:       reasons,
		Threshold:     threshold,
	}
}
