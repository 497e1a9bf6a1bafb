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
)

var (
	portland      = geo.Point{Lat: 45.5, Lng: -122.6}
	portlandNorth = geo.Point{Lat: 45.6, Lng: -122.7}
)

func TestEvaluateRerouteNecessity_GoodConditionsNeverReroute(t *testing.T) {
	sp := newStaticProviders()
	engine := newEngine(t, sp.providers())
	route := routeAt(routing.RoutePreferences{}, portland, portlandNorth)

	points := []geo.Point{
		{Lat: 0, Lng: 0},
		{Lat: 90, Lng: 180},
		{Lat: -90, Lng: -180},
		{Lat: 45.5, Lng: -122.6},
		{Lat: -33.9, Lng: 151.2},
		{Lat: 64.1, Lng: -21.9},
	}

	for _, p := range points {
		d := engine.EvaluateRerouteNecessity(context.Background(), route, p, routing.RoutePreferences{})
		assert.False(t, d.ShouldReroute, "point %+v", p)
		assert.Less(t, d.Severity, 0.5, "point %+v", p)
		assert.Empty(t, d.Reasons)
		assert.Empty(t, d.Reason())
	}
}

func TestEvaluateRerouteNecessity_AllFactors(t *testing.T) {
	sp := newStaticProviders()
	sp.weather.Set(rainy())
	sp.traffic.Set(congested(0.8))
	sp.terrain.Set(wet())
	engine := newEngine(t, sp.providers())

	d := engine.EvaluateRerouteNecessity(context.Background(), routeAt(routing.RoutePreferences{}, portland, portlandNorth), portland, routing.RoutePreferences{})

	assert.True(t, d.ShouldReroute)
	assert.Greater(t, d.Severity, 0.5)
	assert.InDelta(t, 1.0, d.Severity, 1e-9)
	assert.Equal(t, []string{routing.ReasonAdverseWeather, routing.ReasonHeavyTraffic, routing.ReasonHazardousTerrain}, d.Reasons)
	assert.Equal(t, "adverse_weather,heavy_traffic,hazardous_terrain", d.Reason())
}

func TestEvaluateRerouteNecessity_RainOnWetWalk(t *testing.T) {
	sp := newStaticProviders()
	sp.weather.Set(rainy())
	sp.terrain.Set(wet())
	engine := newEngine(t, sp.providers())

	prefs := routing.RoutePreferences{Activity: routing.ActivityWalk}
	d := engine.EvaluateRerouteNecessity(context.Background(), routeAt(prefs, portland, portlandNorth), portland, prefs)

	assert.Greater(t, d.Severity, 0.5)
	assert.True(t, d.ShouldReroute)
	assert.Contains(t, d.Reasons, routing.ReasonAdverseWeather)
}

func TestEvaluateRerouteNecessity_ThresholdIsStrict(t *testing.T) {
	sp := newStaticProviders()
	sp.traffic.Set(congested(0.9))
	engine := newEngine(t, sp.providers())

	d := engine.EvaluateRerouteNecessity(context.Background(), routeAt(routing.RoutePreferences{}, portland, portlandNorth), portland, routing.RoutePreferences{})
	assert.InDelta(t, 0.4, d.Severity, 1e-9)
	assert.False(t, d.ShouldReroute)
	assert.Equal(t, routing.DefaultThreshold, d.Threshold)
}

func TestEvaluateRerouteNecessity_SensitivityLowersThreshold(t *testing.T) {
	sp := newStaticProviders()
	sp.traffic.Set(congested(0.9))
	engine := newEngine(t, sp.providers())

	sensitivity := 0.8
	prefs := routing.RoutePreferences{Sensitivity: &sensitivity}
	d := engine.EvaluateRerouteNecessity(context.Background(), routeAt(prefs, portland, portlandNorth), portland, prefs)

	assert.InDelta(t, 0.2, d.Threshold, 1e-9)
	assert.True(t, d.ShouldReroute)
}

func TestEvaluateRerouteNecessity_ProviderErrorFailsSafe(t *testing.T) {
	tests := []struct {
		name string
		fail func(staticProviders)
	}{
		{"weather", func(sp staticProviders) { sp.weather.SetError(errors.New("down")) }},
		{"traffic", func(sp staticProviders) { sp.traffic.SetError(errors.New("down")) }},
		{"terrain", func(sp staticProviders) { sp.terrain.SetError(errors.New("down")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := newStaticProviders()
			sp.weather.Set(rainy())
			sp.traffic.Set(congested(0.9))
			tt.fail(sp)
			engine := newEngine(t, sp.providers())

			d := engine.EvaluateRerouteNecessity(context.Background(), routeAt(routing.RoutePreferences{}, portland, portlandNorth), portland, routing.RoutePreferences{})

			assert.False(t, d.ShouldReroute)
			assert.Zero(t, d.Severity)
			assert.Equal(t, "service_error", d.Reason())
		})
	}
}

func TestEvaluateRerouteNecessity_InvalidPositionFailsSafe(t *testing.T) {
	engine := newEngine(t, newStaticProviders().providers())

	d := engine.EvaluateRerouteNecessity(context.Background(), routing.Route{}, geo.Point{Lat: 120}, routing.RoutePreferences{})
	assert.False(t, d.ShouldReroute)
	assert.Equal(t, []string{routing.ReasonServiceError}, d.Reasons)
}

func TestNewEngine_RequiresProviders(t *testing.T) {
	_, err := routing.NewEngine(routing.Config{Providers: routing.Providers{Weather: newStaticProviders().weather}})
	require.Error(t, err)
}

func TestProviders_FetchSettlesAll(t *testing.T) {
	sp := newStaticProviders()
	sp.traffic.SetError(errors.New("down"))
	sp.terrain.Set(wet())

	snap := sp.providers().Fetch(context.Background(), portland)

	assert.NoError(t, snap.WeatherErr)
	assert.Error(t, snap.TrafficErr)
	assert.NoError(t, snap.TerrainErr)
	assert.Equal(t, terrain.SurfaceWet, snap.Terrain.Surface)
	assert.Equal(t, 1, snap.Failed())
	assert.Error(t, snap.Err())
}
