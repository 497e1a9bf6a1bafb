// Package optimizer plans a route between two points for an activity, scoring
// candidates against live conditions and degrading gracefully when providers fail.
package optimizer

import (
	"context"
	"time"

	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/routing"
	"github.com/routopia/routeengine/internal/seasonal"
	"github.com/routopia/routeengine/internal/terrain"
	"github.com/routopia/routeengine/internal/weather"
)

// RouteOptimizer plans routes.
type RouteOptimizer interface {
	OptimizeRoute(ctx context.Context, req Request) (*OptimizedRoute, error)
}

// Request describes a route to plan. Weather and Terrain, when set, are used
// instead of querying the providers at the start point.
type Request struct {
	Start       geo.Point
	End         geo.Point
	Activity    routing.Activity
	Preferences routing.RoutePreferences
	Weather     *weather.Conditions
	Terrain     *terrain.Conditions

	// Depart is the departure time (default: now).
	Depart time.Time
}

// Metrics summarises an optimized route.
type Metrics struct {
	Distance      float64 `json:"distance"`      // meters
	Duration      float64 `json:"duration"`      // seconds
	ElevationGain float64 `json:"elevationGain"` // meters
	Safety        float64 `json:"safety"`
}

// Alternative is a ranked candidate that was not selected.
type Alternative struct {
	ID      string       `json:"id"`
	Kind    routing.Kind `json:"kind"`
	Path    []geo.Point  `json:"path"`
	Metrics Metrics      `json:"metrics"`
	Score   float64      `json:"score"`
}

// WeatherTransition marks a change of weather along the route.
type WeatherTransition struct {
	Position geo.Point `json:"position"`

	// Distance from the start in meters.
	Distance float64 `json:"distance"`

	From weather.Tag `json:"from"`
	To   weather.Tag `json:"to"`
}

// OptimizedRoute is the result of OptimizeRoute.
type OptimizedRoute struct {
	ID                 string              `json:"id"`
	Path               []geo.Point         `json:"path"`
	Metrics            Metrics             `json:"metrics"`
	Score              float64             `json:"score"`
	Warnings           []string            `json:"warnings"`
	Alternatives       []Alternative       `json:"alternatives,omitempty"`
	WeatherTransitions []WeatherTransition `json:"weatherTransitions,omitempty"`
	Season             seasonal.Season     `json:"season"`

	// Source names the directions provider the path came from.
	Source string `json:"source"`
}

// Warnings raised when provider data is missing.
const (
	WarnWeatherUnavailable  = "Weather data unavailable"
	WarnTrafficUnavailable  = "Traffic data unavailable"
	WarnTerrainUnavailable  = "Terrain data unavailable"
	WarnLimitedOptimization = "Limited optimization available"
	WarnDirectPath          = "Road network unavailable: showing direct path"
)
