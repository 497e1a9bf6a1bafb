package models

import (
	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/optimizer"
	"github.com/routopia/routeengine/internal/routing"
	"github.com/routopia/routeengine/internal/seasonal"
	"github.com/routopia/routeengine/internal/terrain"
	"github.com/routopia/routeengine/internal/weather"
)

// OptimizeRequest is the body of POST /v1/routes:optimize. When Preferences
// is absent the stored preferences of UserID apply.
type OptimizeRequest struct {
	Start       *geo.Point                `json:"start"`
	End         *geo.Point                `json:"end"`
	Activity    string                    `json:"activity"`
	UserID      string                    `json:"userId,omitempty"`
	Preferences *routing.RoutePreferences `json:"preferences,omitempty"`
	Weather     *weather.Conditions       `json:"weather,omitempty"`
	Terrain     *terrain.Conditions       `json:"terrain,omitempty"`
	DepartAt    *Timestamp                `json:"departAt,omitempty"`
}

// OptimizeResponse is an optimized route with paths encoded as polylines.
type OptimizeResponse struct {
	ID                 string                        `json:"id"`
	Polyline           string                        `json:"polyline"`
	Metrics            optimizer.Metrics             `json:"metrics"`
	Score              float64                       `json:"score"`
	Warnings           []string                      `json:"warnings"`
	Alternatives       []AlternativeResponse         `json:"alternatives"`
	WeatherTransitions []optimizer.WeatherTransition `json:"weatherTransitions"`
	Season             seasonal.Season               `json:"season"`
	Source             string                        `json:"source"`
}

// AlternativeResponse is a ranked candidate that was not selected.
type AlternativeResponse struct {
	ID       string            `json:"id"`
	Kind     routing.Kind      `json:"kind"`
	Polyline string            `json:"polyline"`
	Metrics  optimizer.Metrics `json:"metrics"`
	Score    float64           `json:"score"`
}

// SegmentInput is one segment of a client supplied route. Exactly one of
// Polyline and Path carries the geometry. Distance defaults to the path
// length and Duration to an estimate for the activity.
type SegmentInput struct {
	Polyline      string           `json:"polyline,omitempty"`
	Path          []geo.Point      `json:"path,omitempty"`
	Activity      routing.Activity `json:"activity,omitempty"`
	Distance      *float64         `json:"distance,omitempty"`
	Duration      *float64         `json:"duration,omitempty"`
	ElevationGain float64          `json:"elevationGain,omitempty"`
	ElevationLoss float64          `json:"elevationLoss,omitempty"`
	Surface       terrain.Surface  `json:"surfaceType,omitempty"`
}

// RouteInput is a client supplied route. A missing ID is generated.
type RouteInput struct {
	ID       string         `json:"id,omitempty"`
	Kind     routing.Kind   `json:"kind,omitempty"`
	Segments []SegmentInput `json:"segments"`
}

// RankRequest is the body of POST /v1/routes:rank.
type RankRequest struct {
	Routes      []RouteInput             `json:"routes"`
	Preferences routing.RoutePreferences `json:"preferences"`
}

// RankResponse lists routes best first.
type RankResponse struct {
	Routes    []RouteResponse                   `json:"routes"`
	Scores    map[string]float64                `json:"scores"`
	Breakdown map[string][]routing.FactorImpact `json:"breakdown"`
}

// PositionedRouteRequest is the body of POST /v1/routes:alternatives and
// POST /v1/reroute:evaluate.
type PositionedRouteRequest struct {
	Route       RouteInput               `json:"route"`
	Position    *geo.Point               `json:"position"`
	Preferences routing.RoutePreferences `json:"preferences"`
}

// AlternativesResponse lists generated variants in generation order.
type AlternativesResponse struct {
	Routes []RouteResponse `json:"routes"`
}

// RouteResponse is a route with each segment's path encoded as a polyline.
type RouteResponse struct {
	ID            string            `json:"id"`
	Kind          routing.Kind      `json:"kind"`
	Segments      []SegmentResponse `json:"segments"`
	TotalDistance float64           `json:"totalDistance"`
	TotalDuration float64           `json:"totalDuration"`
	CreatedAt     Timestamp         `json:"createdAt"`
}

// SegmentResponse is one segment of a RouteResponse.
type SegmentResponse struct {
	Polyline string           `json:"polyline"`
	Activity routing.Activity `json:"activity"`
	Metrics  routing.Metrics  `json:"metrics"`
}
