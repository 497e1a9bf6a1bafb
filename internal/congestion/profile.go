package congestion

import (
	"math"
	"time"

	"github.com/routopia/routeengine/internal/geo"
)

// localTime approximates local time at p from its longitude.
func localTime(p geo.Point, t time.Time) time.Time {
	offset := time.Duration(p.Lng / 15 * float64(time.Hour))
	return t.UTC().Add(offset)
}

func weekend(t time.Time) bool {
	d := t.Weekday()
	return d == time.Saturday || d == time.Sunday
}

// rushHour reports whether t falls in a weekday peak (07:00-09:30, 16:00-19:00 local).
func rushHour(p geo.Point, t time.Time) bool {
	lt := localTime(p, t)
	if weekend(lt) {
		return false
	}
	h := float64(lt.Hour()) + float64(lt.Minute())/60
	return (h >= 7 && h < 9.5) || (h >= 16 && h < 19)
}

// profileLevel is the typical congestion level at t without live data: quiet
// nights, a daytime plateau and two weekday peaks.
func profileLevel(p geo.Point, t time.Time) float64 {
	lt := localTime(p, t)
	h := float64(lt.Hour()) + float64(lt.Minute())/60

	// Daytime plateau between 06:00 and 22:00.
	level := 0.1
	if h >= 6 && h < 22 {
		level += 0.25 * math.Sin(math.Pi*(h-6)/16)
	}

	if weekend(lt) {
		return level * 0.8
	}

	peak := func(center, width, height float64) float64 {
		d := (h - center) / width
		return height * math.Exp(-d*d)
	}
	return level + peak(8.25, 1, 0.35) + peak(17.5, 1.25, 0.4)
}
