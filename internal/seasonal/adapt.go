package seasonal

import (
	"fmt"
	"math"
	"time"

	"github.com/routopia/routeengine/internal/routing"
)

// Warnings raised by Adapt.
const (
	WarnEndsAfterSunset  = "Route ends after sunset"
	WarnStartsBeforeDawn = "Route starts before sunrise"
	WarnPolarNight       = "No daylight at this location today"
	WarnWinterConditions = "Winter conditions: allow extra time"
	WarnOutsideSkiSeason = "Outside ski season: snow cover unlikely"
)

const (
	shortDaylightHours    = 8
	temperatureAnomalyMax = 10 // °C

	darkSafetyFactor   = 0.85
	winterSafetyFactor = 0.9
)

var winterDuration = map[routing.Activity]float64{
	routing.ActivityWalk:      1.15,
	routing.ActivityRun:       1.15,
	routing.ActivityHike:      1.2,
	routing.ActivityBike:      1.25,
	routing.ActivityCar:       1.1,
	routing.ActivitySki:       1.0,
	routing.ActivityAdventure: 1.2,
}

// durationFactor is the multiplier applied to segment durations.
func durationFactor(sc Context, a routing.Activity) float64 {
	if sc.Wintry() {
		if f, ok := winterDuration[a]; ok {
			return f
		}
		return 1.15
	}

	switch a {
	case routing.ActivityCar, routing.ActivitySki:
		return 1
	}
	if sc.Season == Autumn {
		return 1.05
	}
	if sc.TemperatureAnomaly != nil && sc.Typical.Temperature+*sc.TemperatureAnomaly > 30 {
		return 1.1
	}
	return 1
}

func exposed(a routing.Activity) bool {
	return a != routing.ActivityCar
}

// Adapt returns a new route whose segment durations and safety reflect the
// season and daylight for a departure at depart, plus any warnings.
func Adapt(route routing.Route, sc Context, depart time.Time) (routing.Route, []string) {
	var warnings []string

	segs := make([]routing.Segment, len(route.Segments))
	at := depart
	dark := false

	for i, seg := range route.Segments {
		m := seg.Metrics
		m.Duration *= durationFactor(sc, seg.Activity)
		if m.EstimatedDuration != nil {
			est := *m.EstimatedDuration * durationFactor(sc, seg.Activity)
			m.EstimatedDuration = &est
		}

		end := at.Add(time.Duration(m.Duration * float64(time.Second)))
		segDark := sc.Daylight.IsDark(at) || sc.Daylight.IsDark(end)
		dark = dark || segDark

		if exposed(seg.Activity) {
			safety := 1.0
			if m.Safety != nil {
				safety = *m.Safety
			}
			if segDark {
				safety *= darkSafetyFactor
			}
			if sc.Wintry() {
				safety *= winterSafetyFactor
			}
			if safety != 1 || m.Safety != nil {
				safety = math.Max(safety, 0.1)
				m.Safety = &safety
			}
		}

		segs[i] = seg.WithMetrics(m)
		at = end
	}

	adapted := routing.NewRoute(route.Kind, segs, route.Preferences)

	switch {
	case sc.Daylight.PolarNight:
		warnings = append(warnings, WarnPolarNight)
	case dark:
		if sc.Daylight.IsDark(depart) && depart.Before(sc.Daylight.Sunrise) {
			warnings = append(warnings, WarnStartsBeforeDawn)
		}
		if at.After(sc.Daylight.Sunset) {
			warnings = append(warnings, WarnEndsAfterSunset)
		}
	}
	if !sc.Daylight.PolarDay && !sc.Daylight.PolarNight && sc.Daylight.Hours < shortDaylightHours {
		warnings = append(warnings, fmt.Sprintf("Limited daylight: %.1f hours", sc.Daylight.Hours))
	}

	activity := route.Preferences.Activity
	if sc.Wintry() && exposed(activity) && activity != routing.ActivitySki {
		warnings = append(warnings, WarnWinterConditions)
	}
	if activity == routing.ActivitySki && !sc.Wintry() {
		warnings = append(warnings, WarnOutsideSkiSeason)
	}
	if a := sc.TemperatureAnomaly; a != nil && math.Abs(*a) > temperatureAnomalyMax {
		word := "warm"
		if *a < 0 {
			word = "cold"
		}
		warnings = append(warnings, fmt.Sprintf("Unseasonably %s: %.0f°C from typical %s", word, math.Abs(*a), sc.Season))
	}

	return adapted, warnings
}
