package seasonal

import (
	"math"
	"time"

	"github.com/routopia/routeengine/internal/geo"
)

// Daylight is the sun's schedule for a day at a location. Times are UTC.
type Daylight struct {
	Sunrise    time.Time `json:"sunrise"`
	Sunset     time.Time `json:"sunset"`
	Hours      float64   `json:"hours"`
	PolarDay   bool      `json:"polarDay,omitempty"`
	PolarNight bool      `json:"polarNight,omitempty"`
}

// axialTilt is the Earth's obliquity in degrees.
const axialTilt = 23.44

// DaylightAt approximates sunrise and sunset at p on the local solar day of t
// from the solar declination. Accuracy is within a few minutes away from the
// poles.
func DaylightAt(p geo.Point, t time.Time) Daylight {
	offset := time.Duration(p.Lng / 15 * float64(time.Hour))
	local := t.UTC().Add(offset)
	day := float64(local.YearDay())

	decl := -axialTilt * math.Cos(2*math.Pi/365*(day+10)) * math.Pi / 180
	lat := p.Lat * math.Pi / 180

	// -0.83° accounts for refraction and the solar disc.
	cosH := (math.Sin(-0.83*math.Pi/180) - math.Sin(lat)*math.Sin(decl)) / (math.Cos(lat) * math.Cos(decl))

	// Local solar midnight, expressed in UTC.
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC).Add(-offset)
	noon := midnight.Add(12 * time.Hour)

	switch {
	case cosH <= -1:
		return Daylight{Sunrise: midnight, Sunset: midnight.Add(24 * time.Hour), Hours: 24, PolarDay: true}
	case cosH >= 1:
		return Daylight{Sunrise: noon, Sunset: noon, Hours: 0, PolarNight: true}
	}

	h := math.Acos(cosH) * 180 / math.Pi / 15 // half day in hours
	half := time.Duration(h * float64(time.Hour))

	return Daylight{
		Sunrise: noon.Add(-half),
		Sunset:  noon.Add(half),
		Hours:   math.Round(2*h*100) / 100,
	}
}

// IsDark reports whether t falls outside daylight.
func (d Daylight) IsDark(t time.Time) bool {
	if d.PolarDay {
		return false
	}
	if d.PolarNight {
		return true
	}
	return t.Before(d.Sunrise) || t.After(d.Sunset)
}
