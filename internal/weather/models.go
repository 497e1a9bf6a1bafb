package weather

import (
	"errors"
	"slices"
	"time"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrNoDataForLocation   = errors.New("no weather data for location")
)

// Tag is a categorical weather condition.
type Tag string

const (
	TagRain   Tag = "rain"
	TagSnow   Tag = "snow"
	TagIce    Tag = "ice"
	TagStorm  Tag = "storm"
	TagFog    Tag = "fog"
	TagClear  Tag = "clear"
	TagClouds Tag = "clouds"
)

// Conditions is point-in-time weather at a location.
type Conditions struct {
	// Temperature in Celsius.
	Temperature float64 `json:"temperature"`

	// WindSpeed in km/h.
	WindSpeed float64 `json:"windSpeed"`

	// Precipitation in mm/h.
	Precipitation float64 `json:"precipitation"`

	// Visibility in meters.
	Visibility float64 `json:"visibility"`

	// Humidity percentage (0-100).
	Humidity float64 `json:"humidity"`

	Tags []Tag `json:"conditions"`

	// SnowDepth in cm, when the provider reports it.
	SnowDepth *float64 `json:"snowDepth,omitempty"`

	FloodWarning *bool `json:"floodWarning,omitempty"`

	// Severity is the provider's overall severity in [0, 1].
	Severity float64 `json:"severity"`

	ObservedAt time.Time `json:"observedAt"`
}

// Has reports whether the conditions carry the tag.
func (c Conditions) Has(tag Tag) bool {
	return slices.Contains(c.Tags, tag)
}

// Precipitating reports whether it is raining or snowing.
func (c Conditions) Precipitating() bool {
	return c.Has(TagRain) || c.Has(TagSnow)
}

// Flooding reports whether a flood warning is active.
func (c Conditions) Flooding() bool {
	return c.FloodWarning != nil && *c.FloodWarning
}

// WindCategory buckets wind speed for activity advice.
type WindCategory string

const (
	WindCalm      WindCategory = "CALM"      // < 10 km/h
	WindBreezy    WindCategory = "BREEZY"    // 10-25 km/h
	WindStrong    WindCategory = "STRONG"    // 25-40 km/h
	WindHazardous WindCategory = "HAZARDOUS" // >= 40 km/h
)

// Wind returns the wind category.
func (c Conditions) Wind() WindCategory {
	switch {
	case c.WindSpeed < 10:
		return WindCalm
	case c.WindSpeed < 25:
		return WindBreezy
	case c.WindSpeed < 40:
		return WindStrong
	default:
		return WindHazardous
	}
}

// Severity derives a [0, 1] severity from tags, precipitation, wind and visibility.
// Providers without a native severity use it.
func Severity(c Conditions) float64 {
	s := 0.0
	switch {
	case c.Has(TagStorm):
		s = 0.8
	case c.Has(TagIce):
		s = 0.7
	case c.Has(TagSnow):
		s = 0.6
	case c.Has(TagRain):
		s = 0.3 + min(c.Precipitation/20, 0.3)
	case c.Has(TagFog):
		s = 0.3
	}

	if c.WindSpeed >= 50 {
		s += 0.2
	} else if c.WindSpeed >= 40 {
		s += 0.1
	}
	if c.Visibility > 0 && c.Visibility < 1000 {
		s += 0.1
	}
	if c.Flooding() {
		s += 0.2
	}

	return min(s, 1)
}
