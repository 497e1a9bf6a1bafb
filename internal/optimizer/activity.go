package optimizer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/routopia/routeengine/internal/directions"
	"github.com/routopia/routeengine/internal/routing"
	"github.com/routopia/routeengine/internal/terrain"
	"github.com/routopia/routeengine/internal/traffic"
	"github.com/routopia/routeengine/internal/weather"
)

// profiles maps activities to directions profiles.
var profiles = map[routing.Activity]directions.Profile{
	routing.ActivityWalk:      directions.ProfileWalk,
	routing.ActivityRun:       directions.ProfileWalk,
	routing.ActivityHike:      directions.ProfileHike,
	routing.ActivityAdventure: directions.ProfileHike,
	routing.ActivitySki:       directions.ProfileHike,
	routing.ActivityBike:      directions.ProfileBike,
	routing.ActivityCar:       directions.ProfileDrive,
}

// ProfileFor returns the directions profile used to route activity a.
func ProfileFor(a routing.Activity) directions.Profile {
	if p, ok := profiles[a]; ok {
		return p
	}
	return directions.ProfileWalk
}

// recommendedDistance is the longest route in meters suggested per activity.
var recommendedDistance = map[routing.Activity]float64{
	routing.ActivityWalk:      50_000,
	routing.ActivityRun:       50_000,
	routing.ActivityHike:      50_000,
	routing.ActivityAdventure: 100_000,
	routing.ActivityBike:      200_000,
	routing.ActivitySki:       100_000,
	routing.ActivityCar:       1_500_000,
}

// incompatibleSurfaces lists surfaces an activity cannot be routed over.
var incompatibleSurfaces = map[routing.Activity][]terrain.Surface{
	routing.ActivityBike: {terrain.SurfaceSnow, terrain.SurfaceIcy},
	routing.ActivityRun:  {terrain.SurfaceIcy},
}

func checkTerrain(a routing.Activity, t *terrain.Conditions) error {
	if t == nil {
		return nil
	}
	if t.Surface != "" && !t.Surface.Valid() {
		return &routing.ValidationError{
			Field:   "terrain.surface",
			Message: fmt.Sprintf("unknown surface %q", t.Surface),
			Err:     routing.ErrIncompatibleTerrain,
		}
	}
	if slices.Contains(incompatibleSurfaces[a], t.Surface) {
		return &routing.ValidationError{
			Field:   "terrain.surface",
			Message: fmt.Sprintf("%s routes cannot be planned over %s terrain", a, t.Surface),
			Err:     routing.ErrIncompatibleTerrain,
		}
	}
	return nil
}

func exposed(a routing.Activity) bool {
	return a != routing.ActivityCar
}

// activityWarnings returns advice for travelling with activity a in the
// conditions at the start. Unavailable conditions are passed as nil.
func activityWarnings(a routing.Activity, w *weather.Conditions, tc *traffic.Conditions, t *terrain.Conditions) []string {
	var warnings []string

	if w != nil {
		if a == routing.ActivityBike && (w.Has(weather.TagRain) || (t != nil && t.Surface == terrain.SurfaceWet)) {
			warnings = append(warnings, "Wet roads: reduce speed and allow longer braking distances")
		}
		switch {
		case exposed(a) && w.WindSpeed >= 40:
			warnings = append(warnings, fmt.Sprintf("High winds (%.0f km/h): take care on exposed sections", w.WindSpeed))
		case a == routing.ActivityBike && w.WindSpeed >= 25:
			warnings = append(warnings, fmt.Sprintf("Strong winds for cycling (%.0f km/h)", w.WindSpeed))
		}
		if a == routing.ActivitySki && !w.Has(weather.TagSnow) && (w.SnowDepth == nil || *w.SnowDepth <= 0) {
			warnings = append(warnings, "Insufficient snow cover for skiing")
		}
		if a == routing.ActivityCar && (w.Has(weather.TagSnow) || w.Has(weather.TagIce)) {
			warnings = append(warnings, "Winter driving conditions: check tyres and allow extra time")
		}
		if exposed(a) && a != routing.ActivitySki && w.Temperature >= 32 {
			warnings = append(warnings, "High temperatures: carry water and plan shade breaks")
		}
		if w.Visibility > 0 && w.Visibility < 1000 {
			warnings = append(warnings, "Low visibility along route")
		}
		if w.Flooding() {
			warnings = append(warnings, "Flood warning in effect")
		}
	}

	if tc != nil && a == routing.ActivityCar && tc.Heavy() {
		warnings = append(warnings, "Heavy traffic expected")
	}

	if t != nil && len(t.Hazards) > 0 {
		warnings = append(warnings, "Terrain hazards: "+strings.Join(t.Hazards, ", "))
	}

	return warnings
}
