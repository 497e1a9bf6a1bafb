// Package terrain provides surface, slope and hazard conditions for route scoring.
package terrain

import (
	"errors"
	"math"
)

// Terrain errors.
var (
	ErrProviderUnavailable = errors.New("terrain provider unavailable")
	ErrNoDataForLocation   = errors.New("no terrain data for location")
)

// Surface is the ground surface type.
type Surface string

const (
	SurfaceDry    Surface = "dry"
	SurfaceWet    Surface = "wet"
	SurfaceIcy    Surface = "icy"
	SurfaceSnow   Surface = "snow"
	SurfaceMud    Surface = "mud"
	SurfaceGravel Surface = "gravel"
)

// Valid reports whether s is a known surface.
func (s Surface) Valid() bool {
	switch s {
	case SurfaceDry, SurfaceWet, SurfaceIcy, SurfaceSnow, SurfaceMud, SurfaceGravel:
		return true
	}
	return false
}

// DifficultyClass buckets terrain difficulty.
type DifficultyClass string

const (
	DifficultyEasy      DifficultyClass = "easy"
	DifficultyModerate  DifficultyClass = "moderate"
	DifficultyDifficult DifficultyClass = "difficult"
	DifficultyExtreme   DifficultyClass = "extreme"
)

// Common hazard identifiers.
const (
	HazardSteepGrade = "steep_grade"
	HazardRockfall   = "rockfall"
	HazardFlooding   = "flooding"
	HazardAvalanche  = "avalanche"
)

// Conditions is point-in-time terrain at a location.
type Conditions struct {
	Surface Surface `json:"surface"`

	// Slope is the steepest grade around the point in percent.
	Slope float64 `json:"slope"`

	DifficultyClass DifficultyClass `json:"difficultyClass"`

	// Difficulty in [0, 1].
	Difficulty float64 `json:"difficulty"`

	Hazards []string `json:"hazards"`

	// Elevation in meters above sea level.
	Elevation float64 `json:"elevation"`
}

// Hazardous reports a wet surface or any hazard.
func (c Conditions) Hazardous() bool {
	return c.Surface == SurfaceWet || len(c.Hazards) > 0
}

// Degraded reports any hazard or a surface other than dry.
func (c Conditions) Degraded() bool {
	return len(c.Hazards) > 0 || c.Surface != SurfaceDry
}

// Classify derives the difficulty class and numeric difficulty from slope and surface.
func Classify(slope float64, surface Surface) (DifficultyClass, float64) {
	d := math.Min(math.Abs(slope)/25, 1)

	switch surface {
	case SurfaceIcy:
		d += 0.4
	case SurfaceSnow, SurfaceMud:
		d += 0.25
	case SurfaceWet, SurfaceGravel:
		d += 0.1
	}
	d = math.Min(d, 1)

	switch {
	case d < 0.25:
		return DifficultyEasy, d
	case d < 0.5:
		return DifficultyModerate, d
	case d < 0.75:
		return DifficultyDifficult, d
	default:
		return DifficultyExtreme, d
	}
}
