package routing_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/routing"
	"github.com/routopia/routeengine/internal/terrain"
	"github.com/routopia/routeengine/internal/traffic"
	"github.com/routopia/routeengine/internal/weather"
)

// Point-dependent providers let a test give each route its own conditions.

type weatherFunc func(geo.Point) (weather.Conditions, error)

func (f weatherFunc) GetConditions(_ context.Context, p geo.Point) (weather.Conditions, error) {
	return f(p)
}
func (weatherFunc) Name() string { return "func" }

type trafficFunc func(geo.Point) (traffic.Conditions, error)

func (f trafficFunc) GetConditions(_ context.Context, p geo.Point) (traffic.Conditions, error) {
	return f(p)
}
func (trafficFunc) Name() string { return "func" }

type terrainFunc func(geo.Point) (terrain.Conditions, error)

func (f terrainFunc) GetConditions(_ context.Context, p geo.Point) (terrain.Conditions, error) {
	return f(p)
}
func (terrainFunc) Name() string { return "func" }

type staticProviders struct {
	weather *weather.StaticProvider
	traffic *traffic.StaticProvider
	terrain *terrain.StaticProvider
}

func newStaticProviders() staticProviders {
	return staticProviders{
		weather: weather.NewStaticProvider(weather.DefaultConditions()),
		traffic: traffic.NewStaticProvider(traffic.DefaultConditions()),
		terrain: terrain.NewStaticProvider(terrain.DefaultConditions()),
	}
}

func (s staticProviders) providers() routing.Providers {
	return routing.Providers{Weather: s.weather, Traffic: s.traffic, Terrain: s.terrain}
}

func newEngine(t *testing.T, ps routing.Providers) *routing.Engine {
	t.Helper()
	e, err := routing.NewEngine(routing.Config{Providers: ps, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return e
}

func segment(points ...geo.Point) routing.Segment {
	return routing.Segment{
		Path:     points,
		Activity: routing.ActivityWalk,
		Metrics: routing.Metrics{
			Distance: geo.PathLength(points),
			Duration: geo.PathLength(points) / 1.4,
		},
	}
}

func routeAt(prefs routing.RoutePreferences, points ...geo.Point) routing.Route {
	segs := make([]routing.Segment, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		segs = append(segs, segment(points[i-1], points[i]))
	}
	return routing.NewRoute(routing.KindBase, segs, prefs)
}

func rainy() weather.Conditions {
	c := weather.DefaultConditions()
	c.Tags = []weather.Tag{weather.TagRain}
	c.WindSpeed = 15
	c.Precipitation = 4
	c.Severity = 0.5
	return c
}

func wet() terrain.Conditions {
	c := terrain.DefaultConditions()
	c.Surface = terrain.SurfaceWet
	return c
}

func congested(level float64) traffic.Conditions {
	c := traffic.DefaultConditions()
	c.CongestionLevel = level
	return c
}
