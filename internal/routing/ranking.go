package routing

import (
	"cmp"
	"context"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/routopia/routeengine/internal/weather"
)

// Preference multipliers applied to a route's combined score.
const (
	avoidTrafficMultiplier = 1.2
	preferScenicMultiplier = 1.1
	avoidTollsMultiplier   = 0.9
)

// RankRoutes scores every route against the conditions along its segments and
// returns them best first. Ties keep their input order. A segment whose
// conditions cannot be fetched does not degrade the affected factor.
func (e *Engine) RankRoutes(ctx context.Context, routes []Route, prefs RoutePreferences) RankingResult {
	ctx, span := e.tracer.Start(ctx, "routing.RankRoutes")
	defer span.End()
	start := time.Now()
	defer func() { e.metrics.RecordOperation(ctx, "rank_routes", time.Since(start)) }()

	snapshots := e.fetchSegmentConditions(ctx, routes)

	result := RankingResult{
		Scores:    make(map[string]float64, len(routes)),
		Breakdown: make(map[string][]FactorImpact, len(routes)),
	}

	type scored struct {
		route Route
		score float64
	}
	ranked := make([]scored, len(routes))

	for i, r := range routes {
		score, impacts := scoreRoute(snapshots[i], prefs)
		ranked[i] = scored{route: r, score: score}
		result.Scores[r.ID] = score
		result.Breakdown[r.ID] = impacts
	}

	slices.SortStableFunc(ranked, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	result.Routes = make([]Route, len(ranked))
	for i, s := range ranked {
		result.Routes[i] = s.route
	}

	span.SetAttributes(attribute.Int("routes", len(routes)))
	return result
}

// fetchSegmentConditions looks up conditions at every segment anchor of every
// route with bounded concurrency. Lookups never fail the group; errors stay in
// the snapshot.
func (e *Engine) fetchSegmentConditions(ctx context.Context, routes []Route) [][]Snapshot {
	out := make([][]Snapshot, len(routes))

	var g errgroup.Group
	g.SetLimit(e.limit)

	for i, r := range routes {
		out[i] = make([]Snapshot, len(r.Segments))
		for j, seg := range r.Segments {
			anchor, ok := seg.Anchor()
			if !ok {
				out[i][j] = Snapshot{WeatherErr: ErrEmptyRoute, TrafficErr: ErrEmptyRoute, TerrainErr: ErrEmptyRoute}
				continue
			}
			g.Go(func() error {
				out[i][j] = e.providers.Fetch(ctx, anchor)
				return nil
			})
		}
	}

	_ = g.Wait()
	return out
}

// scoreRoute returns the combined score of a route and the raw impact of each
// factor. Sub-scores start at 1 and decay multiplicatively per segment; impacts
// accumulate additively and do not feed the score.
func scoreRoute(snaps []Snapshot, prefs RoutePreferences) (float64, []FactorImpact) {
	weatherScore, trafficScore, terrainScore := 1.0, 1.0, 1.0
	var weatherImpact, trafficImpact, terrainImpact float64

	for _, s := range snaps {
		if s.WeatherErr == nil {
			if s.Weather.Has(weather.TagRain) {
				weatherScore *= 0.8
				weatherImpact += 0.2
			}
			if s.Weather.Has(weather.TagSnow) {
				weatherScore *= 0.6
				weatherImpact += 0.4
			}
			if s.Weather.Has(weather.TagStorm) {
				weatherScore *= 0.4
				weatherImpact += 0.6
			}
		}

		if s.TrafficErr == nil {
			c := s.Traffic.CongestionLevel
			trafficScore *= 1 - c*0.8
			trafficImpact += c * 0.8
		}

		if s.TerrainErr == nil {
			if len(s.Terrain.Hazards) > 0 {
				terrainScore *= 0.7
				terrainImpact += 0.3
			}
			if s.Terrain.Slope > 10 {
				terrainScore *= 0.9
				terrainImpact += 0.1
			}
		}
	}

	total := weatherScore + trafficScore + terrainScore
	if prefs.AvoidTraffic {
		total *= avoidTrafficMultiplier
	}
	if prefs.PreferScenic {
		total *= preferScenicMultiplier
	}
	if prefs.AvoidTolls {
		total *= avoidTollsMultiplier
	}

	return total, []FactorImpact{
		{Factor: FactorWeather, Impact: weatherImpact},
		{Factor: FactorTraffic, Impact: trafficImpact},
		{Factor: FactorTerrain, Impact: terrainImpact},
	}
}
