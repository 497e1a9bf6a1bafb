// Package routing scores routes against live weather, traffic and terrain
// conditions. It decides whether a traveller should be rerouted, derives
// condition-optimized variants of a route and ranks candidate routes.
package routing

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/terrain"
)

// Sentinel errors for routing operations.
var (
	// ErrUnknownActivity indicates an activity outside the supported set.
	ErrUnknownActivity = errors.New("unknown activity")
	// ErrIncompatibleTerrain indicates the activity cannot be routed over the requested terrain.
	ErrIncompatibleTerrain = errors.New("activity incompatible with terrain")
	// ErrInvalidPreferences indicates out of range preference values.
	ErrInvalidPreferences = errors.New("invalid preferences")
	// ErrEmptyRoute indicates a route with no segments or a segment with no path.
	ErrEmptyRoute = errors.New("route has no path")
)

// ValidationError is returned for requests rejected before any provider is called.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Activity is the mode of travel a route is planned for.
type Activity string

const (
	ActivityWalk      Activity = "walk"
	ActivityBike      Activity = "bike"
	ActivityRun       Activity = "run"
	ActivitySki       Activity = "ski"
	ActivityCar       Activity = "car"
	ActivityHike      Activity = "hike"
	ActivityAdventure Activity = "adventure"
)

var activities = []Activity{
	ActivityWalk, ActivityBike, ActivityRun, ActivitySki,
	ActivityCar, ActivityHike, ActivityAdventure,
}

// Valid reports whether a is a supported activity.
func (a Activity) Valid() bool {
	return slices.Contains(activities, a)
}

// ParseActivity parses a case-insensitive activity name.
func ParseActivity(s string) (Activity, error) {
	a := Activity(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", &ValidationError{
			Field:   "activity",
			Message: fmt.Sprintf("unsupported activity %q", s),
			Err:     ErrUnknownActivity,
		}
	}
	return a, nil
}

// Kind records which generator produced a route.
type Kind string

const (
	KindBase             Kind = "base"
	KindWeatherOptimized Kind = "weather_optimized"
	KindTrafficOptimized Kind = "traffic_optimized"
	KindTerrainOptimized Kind = "terrain_optimized"
	KindAlternative      Kind = "alternative"
)

// Metrics describes a route segment. Pointer fields are only set once a
// generator has computed them.
type Metrics struct {
	Distance          float64         `json:"distance"` // meters
	Duration          float64         `json:"duration"` // seconds
	EstimatedDuration *float64        `json:"estimatedDuration,omitempty"`
	ElevationGain     float64         `json:"elevationGain"`
	ElevationLoss     float64         `json:"elevationLoss"`
	Safety            *float64        `json:"safetyScore,omitempty"`
	WeatherImpact     *float64        `json:"weatherImpact,omitempty"`
	TrafficImpact     *float64        `json:"trafficImpact,omitempty"`
	TerrainDifficulty *float64        `json:"terrainDifficulty,omitempty"`
	Surface           terrain.Surface `json:"surfaceType,omitempty"`
}

// Segment is an immutable piece of a route travelled with one activity.
type Segment struct {
	Path     []geo.Point `json:"path"`
	Activity Activity    `json:"activity"`
	Metrics  Metrics     `json:"metrics"`
}

// WithMetrics returns a copy of s carrying m. The path is copied so the new
// segment shares no memory with s.
func (s Segment) WithMetrics(m Metrics) Segment {
	return Segment{
		Path:     slices.Clone(s.Path),
		Activity: s.Activity,
		Metrics:  m,
	}
}

// Anchor returns the point used to sample conditions for the segment.
func (s Segment) Anchor() (geo.Point, bool) {
	if len(s.Path) == 0 {
		return geo.Point{}, false
	}
	return s.Path[len(s.Path)/2], true
}

// Route is a value object: every optimization produces a new Route.
type Route struct {
	ID            string           `json:"id"`
	Kind          Kind             `json:"kind"`
	Segments      []Segment        `json:"segments"`
	TotalDistance float64          `json:"totalDistance"`
	TotalDuration float64          `json:"totalDuration"`
	Preferences   RoutePreferences `json:"preferences"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// NewRoute builds a route with a fresh ID and totals summed from segments.
func NewRoute(kind Kind, segments []Segment, prefs RoutePreferences) Route {
	r := Route{
		ID:          uuid.NewString(),
		Kind:        kind,
		Segments:    segments,
		Preferences: prefs,
		CreatedAt:   time.Now().UTC(),
	}
	for _, s := range segments {
		r.TotalDistance += s.Metrics.Distance
		r.TotalDuration += s.Metrics.Duration
	}
	return r
}

// Path returns the concatenated path of all segments, dropping the repeated
// joint between consecutive segments.
func (r Route) Path() []geo.Point {
	var path []geo.Point
	for _, s := range r.Segments {
		for i, p := range s.Path {
			if i == 0 && len(path) > 0 && path[len(path)-1].Equal(p) {
				continue
			}
			path = append(path, p)
		}
	}
	return path
}

// Validate checks that the route has a path and valid coordinates.
func (r Route) Validate() error {
	if len(r.Segments) == 0 {
		return &ValidationError{Field: "route.segments", Message: "at least one segment is required", Err: ErrEmptyRoute}
	}
	for i, s := range r.Segments {
		if len(s.Path) == 0 {
			return &ValidationError{Field: fmt.Sprintf("route.segments[%d].path", i), Message: "path is empty", Err: ErrEmptyRoute}
		}
		for _, p := range s.Path {
			if err := p.Validate(); err != nil {
				return &ValidationError{Field: fmt.Sprintf("route.segments[%d].path", i), Message: err.Error(), Err: err}
			}
		}
	}
	return nil
}

// Weights is an optional priority profile over route factors.
type Weights struct {
	Distance *float64 `json:"distance,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
	Effort   *float64 `json:"effort,omitempty"`
	Safety   *float64 `json:"safety,omitempty"`
	Comfort  *float64 `json:"comfort,omitempty"`
}

// RoutePreferences are the traveller's choices applied to a route.
type RoutePreferences struct {
	Activity      Activity `json:"activity"`
	AvoidHighways bool     `json:"avoidHighways"`
	AvoidTraffic  bool     `json:"avoidTraffic"`
	PreferScenic  bool     `json:"preferScenic"`
	AvoidTolls    bool     `json:"avoidTolls"`
	Weights       *Weights `json:"weights,omitempty"`

	// Sensitivity in [0, 1] lowers the reroute threshold as it grows.
	Sensitivity *float64 `json:"sensitivity,omitempty"`
}

// DefaultThreshold is the necessity score a route must exceed to be rerouted.
const DefaultThreshold = 0.5

// Threshold returns the reroute threshold for these preferences:
// 1 - sensitivity clamped to [0.1, 0.9], or DefaultThreshold when unset.
func (p RoutePreferences) Threshold() float64 {
	if p.Sensitivity == nil {
		return DefaultThreshold
	}
	return max(0.1, min(0.9, 1-*p.Sensitivity))
}

// Validate checks the activity, sensitivity and weights.
func (p RoutePreferences) Validate() error {
	if p.Activity != "" && !p.Activity.Valid() {
		return &ValidationError{
			Field:   "preferences.activity",
			Message: fmt.Sprintf("unsupported activity %q", p.Activity),
			Err:     ErrUnknownActivity,
		}
	}
	if s := p.Sensitivity; s != nil && (*s < 0 || *s > 1) {
		return &ValidationError{
			Field:   "preferences.sensitivity",
			Message: "must be between 0 and 1",
			Err:     ErrInvalidPreferences,
		}
	}
	if w := p.Weights; w != nil {
		for name, v := range map[string]*float64{
			"distance": w.Distance, "duration": w.Duration, "effort": w.Effort,
			"safety": w.Safety, "comfort": w.Comfort,
		} {
			if v != nil && *v < 0 {
				return &ValidationError{
					Field:   "preferences.weights." + name,
					Message: "must not be negative",
					Err:     ErrInvalidPreferences,
				}
			}
		}
	}
	return nil
}

// Reason tags reported by the necessity evaluator.
const (
	ReasonAdverseWeather   = "adverse_weather"
	ReasonHeavyTraffic     = "heavy_traffic"
	ReasonHazardousTerrain = "hazardous_terrain"
	ReasonServiceError     = "service_error"
)

// RerouteDecision is the outcome of a necessity evaluation.
type RerouteDecision struct {
	ShouldReroute bool     `json:"shouldReroute"`
	Severity      float64  `json:"severity"`
	Reasons       []string `json:"reasons,omitempty"`
	Threshold     float64  `json:"threshold"`
}

// Reason returns the comma-joined reason tags, or "" when none triggered.
func (d RerouteDecision) Reason() string {
	return strings.Join(d.Reasons, ",")
}

// Ranking factors.
const (
	FactorWeather = "weather"
	FactorTraffic = "traffic"
	FactorTerrain = "terrain"
)

// FactorImpact is the accumulated raw impact of one factor on a route.
type FactorImpact struct {
	Factor string  `json:"factor"`
	Impact float64 `json:"impact"`
}

// RankingResult holds routes ordered best first with per-route scores.
type RankingResult struct {
	Routes    []Route                   `json:"routes"`
	Scores    map[string]float64        `json:"scores"`
	Breakdown map[string][]FactorImpact `json:"breakdown"`
}

func float(v float64) *float64 {
	return &v
}
