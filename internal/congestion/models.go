// Package congestion forecasts traffic congestion at a location over a time
// range and classifies its trend.
package congestion

import (
	"context"
	"errors"
	"time"

	"github.com/routopia/routeengine/internal/geo"
)

// ErrInvalidTimeRange indicates an end before the start or a range too long to sample.
var ErrInvalidTimeRange = errors.New("invalid time range")

// Predictor forecasts congestion.
type Predictor interface {
	PredictCongestion(ctx context.Context, location geo.Point, tr TimeRange) ([]PredictionPoint, error)
	AnalyzeTrend(ctx context.Context, location geo.Point, tr TimeRange) (TrendAnalysis, error)
}

// TimeRange is a closed interval. Zero values default to now and two hours later.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PredictionPoint is the forecast at one instant.
type PredictionPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	Level      float64   `json:"level"`
	Speed      float64   `json:"speed"`   // km/h
	Density    float64   `json:"density"` // vehicles/km
	Confidence float64   `json:"confidence"`
	Factors    []string  `json:"factors,omitempty"`
}

// Trend is the direction congestion is heading.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendWorsening Trend = "worsening"
)

// TrendAnalysis summarises a forecast.
type TrendAnalysis struct {
	Trend      Trend    `json:"trend"`
	Confidence float64  `json:"confidence"`
	Factors    []string `json:"factors"`
}

// Factors that shape a forecast. Each present factor lowers confidence.
const (
	FactorAdverseWeather  = "adverse_weather"
	FactorHighWind        = "high_wind"
	FactorRushHour        = "rush_hour"
	FactorIncidents       = "incidents"
	FactorLimitedLiveData = "limited_live_data"
)

// factorOrder fixes the order factors are reported in.
var factorOrder = []string{
	FactorAdverseWeather,
	FactorHighWind,
	FactorRushHour,
	FactorIncidents,
	FactorLimitedLiveData,
}
