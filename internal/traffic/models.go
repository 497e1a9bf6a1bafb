// Package traffic provides live traffic conditions for route scoring.
package traffic

import (
	"errors"
	"time"
)

// Traffic errors.
var (
	ErrProviderUnavailable = errors.New("traffic provider unavailable")
	ErrNoDataForLocation   = errors.New("no traffic data for location")
)

// Conditions is point-in-time traffic at a location.
type Conditions struct {
	// CongestionLevel in [0, 1]; 0 is free flow.
	CongestionLevel float64 `json:"congestionLevel"`

	// AverageSpeed in km/h.
	AverageSpeed float64 `json:"averageSpeed"`

	// FreeFlowSpeed in km/h.
	FreeFlowSpeed float64 `json:"freeFlowSpeed"`

	// Density in vehicles per km.
	Density float64 `json:"density"`

	// Confidence of the measurement in [0, 1].
	Confidence float64 `json:"confidence"`

	Incidents int `json:"incidents"`

	Timestamp time.Time `json:"timestamp"`
}

// Heavy reports whether congestion is above 0.7.
func (c Conditions) Heavy() bool {
	return c.CongestionLevel > 0.7
}

// CongestionFromSpeed derives a congestion level from current and free-flow speed.
func CongestionFromSpeed(current, freeFlow float64) float64 {
	if freeFlow <= 0 {
		return 0
	}
	level := 1 - current/freeFlow
	return max(0, min(1, level))
}

// DensityFromSpeed estimates density using Greenshields' model with a 120 veh/km jam density.
func DensityFromSpeed(current, freeFlow float64) float64 {
	const jamDensity = 120.0
	if freeFlow <= 0 {
		return 0
	}
	return jamDensity * (1 - min(current/freeFlow, 1))
}
