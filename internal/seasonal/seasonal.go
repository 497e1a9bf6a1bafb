// Package seasonal derives the season and daylight at a location and adapts
// route segments to them.
package seasonal

import (
	"math"
	"time"

	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/weather"
)

// Season is a meteorological season.
type Season string

const (
	Spring Season = "spring"
	Summer Season = "summer"
	Autumn Season = "autumn"
	Winter Season = "winter"
)

// Hemisphere of a location.
type Hemisphere string

const (
	Northern Hemisphere = "northern"
	Southern Hemisphere = "southern"
)

// HemisphereOf returns the hemisphere of p. The equator counts as northern.
func HemisphereOf(p geo.Point) Hemisphere {
	if p.Lat < 0 {
		return Southern
	}
	return Northern
}

// SeasonAt returns the meteorological season at p on t. Southern hemisphere
// seasons are offset by six months.
func SeasonAt(p geo.Point, t time.Time) Season {
	m := t.UTC().Month()
	if HemisphereOf(p) == Southern {
		m = (m+5)%12 + 1
	}
	switch m {
	case time.March, time.April, time.May:
		return Spring
	case time.June, time.July, time.August:
		return Summer
	case time.September, time.October, time.November:
		return Autumn
	default:
		return Winter
	}
}

// Typical describes the conditions usually seen in a season at a latitude.
type Typical struct {
	Temperature       float64 `json:"temperature"` // °C
	PrecipitationRisk float64 `json:"precipitationRisk"`
	SnowLikely        bool    `json:"snowLikely"`
}

// TypicalFor returns rough climatological conditions for season at latitude lat.
func TypicalFor(season Season, lat float64) Typical {
	base := 28 - 0.45*math.Abs(lat)

	// Seasonal swing grows with distance from the equator.
	swing := math.Min(math.Abs(lat)/4, 14)

	t := Typical{Temperature: base, PrecipitationRisk: 0.3}
	switch season {
	case Summer:
		t.Temperature += swing
		t.PrecipitationRisk = 0.25
	case Winter:
		t.Temperature -= swing
		t.PrecipitationRisk = 0.4
	case Autumn:
		t.PrecipitationRisk = 0.35
	}
	t.Temperature = math.Round(t.Temperature*10) / 10
	t.SnowLikely = season == Winter && t.Temperature <= 2
	return t
}

// Context is the seasonal picture of a location at a moment.
type Context struct {
	Season     Season     `json:"season"`
	Hemisphere Hemisphere `json:"hemisphere"`
	Daylight   Daylight   `json:"daylight"`
	Typical    Typical    `json:"typical"`

	// WinterConditions is set when current weather is wintry regardless of the calendar.
	WinterConditions bool `json:"winterConditions"`

	// TemperatureAnomaly is current minus typical temperature, when weather is known.
	TemperatureAnomaly *float64 `json:"temperatureAnomaly,omitempty"`
}

// NewContext builds the seasonal context at p on t. w is optional.
func NewContext(p geo.Point, t time.Time, w *weather.Conditions) Context {
	season := SeasonAt(p, t)
	c := Context{
		Season:     season,
		Hemisphere: HemisphereOf(p),
		Daylight:   DaylightAt(p, t),
		Typical:    TypicalFor(season, p.Lat),
	}

	if w != nil {
		c.WinterConditions = w.Has(weather.TagSnow) || w.Has(weather.TagIce) ||
			(w.SnowDepth != nil && *w.SnowDepth > 0) || w.Temperature <= 0
		anomaly := w.Temperature - c.Typical.Temperature
		c.TemperatureAnomaly = &anomaly
	}

	return c
}

// Wintry reports whether routes should be treated as travelled in winter.
func (c Context) Wintry() bool {
	return c.Season == Winter || c.WinterConditions
}
