package routing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/routing"
	"github.com/routopia/routeengine/internal/terrain"
	"github.com/routopia/routeengine/internal/traffic"
	"github.com/routopia/routeengine/internal/weather"
)

// Routes west of -122.65 are in good conditions; routes east of it are not.
func splitProviders() routing.Providers {
	good := func(p geo.Point) bool { return p.Lng < -122.65 }
	return routing.Providers{
		Weather: weatherFunc(func(p geo.Point) (weather.Conditions, error) {
			if good(p) {
				return weather.DefaultConditions(), nil
			}
			c := rainy()
			c.Tags = append(c.Tags, weather.TagStorm)
			return c, nil
		}),
		Traffic: trafficFunc(func(p geo.Point) (traffic.Conditions, error) {
			if good(p) {
				return congested(0.1), nil
			}
			return congested(0.9), nil
		}),
		Terrain: terrainFunc(func(p geo.Point) (terrain.Conditions, error) {
			if good(p) {
				return terrain.DefaultConditions(), nil
			}
			c := wet()
			c.Hazards = []string{terrain.HazardFlooding}
			c.Slope = 14
			return c, nil
		}),
	}
}

var (
	westA = []geo.Point{{Lat: 45.5, Lng: -122.70}, {Lat: 45.55, Lng: -122.72}, {Lat: 45.6, Lng: -122.71}}
	eastB = []geo.Point{{Lat: 45.5, Lng: -122.60}, {Lat: 45.55, Lng: -122.58}, {Lat: 45.6, Lng: -122.59}}
)

func TestRankRoutes_BetterConditionsWin(t *testing.T) {
	engine := newEngine(t, splitProviders())
	prefs := routing.RoutePreferences{AvoidTraffic: true}

	a := routeAt(prefs, westA...)
	b := routeAt(prefs, eastB...)

	for _, order := range [][]routing.Route{{a, b}, {b, a}} {
		result := engine.RankRoutes(context.Background(), order, prefs)

		require.Len(t, result.Routes, 2)
		assert.Equal(t, a.ID, result.Routes[0].ID)
		assert.Greater(t, result.Scores[a.ID], result.Scores[b.ID])
	}
}

func TestRankRoutes_ScoreFormula(t *testing.T) {
	engine := newEngine(t, splitProviders())

	// Two segments in good conditions: weather 1, traffic 0.92^2, terrain 1.
	a := routeAt(routing.RoutePreferences{}, westA...)
	result := engine.RankRoutes(context.Background(), []routing.Route{a}, routing.RoutePreferences{})
	assert.InDelta(t, 1+0.92*0.92+1, result.Scores[a.ID], 1e-9)

	// Two segments with rain and storm, traffic 0.9, hazards and slope 14.
	b := routeAt(routing.RoutePreferences{}, eastB...)
	result = engine.RankRoutes(context.Background(), []routing.Route{b}, routing.RoutePreferences{})
	weatherScore := (0.8 * 0.4) * (0.8 * 0.4)
	trafficScore := (1 - 0.72) * (1 - 0.72)
	terrainScore := (0.7 * 0.9) * (0.7 * 0.9)
	assert.InDelta(t, weatherScore+trafficScore+terrainScore, result.Scores[b.ID], 1e-9)

	impacts := map[string]float64{}
	for _, f := range result.Breakdown[b.ID] {
		impacts[f.Factor] = f.Impact
	}
	assert.InDelta(t, 2*(0.2+0.6), impacts[routing.FactorWeather], 1e-9)
	assert.InDelta(t, 2*0.72, impacts[routing.FactorTraffic], 1e-9)
	assert.InDelta(t, 2*(0.3+0.1), impacts[routing.FactorTerrain], 1e-9)
}

func TestRankRoutes_PreferenceMultipliers(t *testing.T) {
	sp := newStaticProviders()
	sp.traffic.Set(congested(0))
	engine := newEngine(t, sp.providers())

	tests := []struct {
		name  string
		prefs routing.RoutePreferences
		want  float64
	}{
		{"none", routing.RoutePreferences{}, 3},
		{"avoid traffic", routing.RoutePreferences{AvoidTraffic: true}, 3.6},
		{"prefer scenic", routing.RoutePreferences{PreferScenic: true}, 3.3},
		{"avoid tolls", routing.RoutePreferences{AvoidTolls: true}, 2.7},
		{"all", routing.RoutePreferences{AvoidTraffic: true, PreferScenic: true, AvoidTolls: true}, 3 * 1.2 * 1.1 * 0.9},
		{"highways do not score", routing.RoutePreferences{AvoidHighways: true}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := routeAt(tt.prefs, portland, portlandNorth)
			result := engine.RankRoutes(context.Background(), []routing.Route{r}, tt.prefs)
			assert.InDelta(t, tt.want, result.Scores[r.ID], 1e-9)
		})
	}
}

func TestRankRoutes_TiesKeepInputOrder(t *testing.T) {
	engine := newEngine(t, newStaticProviders().providers())

	routes := []routing.Route{
		routeAt(routing.RoutePreferences{}, portland, portlandNorth),
		routeAt(routing.RoutePreferences{}, portlandNorth, portland),
		routeAt(routing.RoutePreferences{}, portland, geo.Point{Lat: 45.52, Lng: -122.61}),
	}

	result := engine.RankRoutes(context.Background(), routes, routing.RoutePreferences{})
	for i := range routes {
		assert.Equal(t, routes[i].ID, result.Routes[i].ID)
	}
}

func TestRankRoutes_FailedLookupDoesNotDegrade(t *testing.T) {
	sp := newStaticProviders()
	stormy := rainy()
	stormy.Tags = []weather.Tag{weather.TagStorm}
	sp.weather.Set(stormy)
	sp.weather.SetError(errors.New("down"))
	sp.traffic.Set(congested(0))
	engine := newEngine(t, sp.providers())

	r := routeAt(routing.RoutePreferences{}, portland, portlandNorth)
	result := engine.RankRoutes(context.Background(), []routing.Route{r}, routing.RoutePreferences{})

	assert.InDelta(t, 3, result.Scores[r.ID], 1e-9)
}

func TestRankRoutes_Empty(t *testing.T) {
	engine := newEngine(t, newStaticProviders().providers())

	result := engine.RankRoutes(context.Background(), nil, routing.RoutePreferences{})
	assert.Empty(t, result.Routes)
	assert.Empty(t, result.Scores)
}
