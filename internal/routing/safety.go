package routing

import (
	"github.com/routopia/routeengine/internal/terrain"
	"github.com/routopia/routeengine/internal/weather"
)

const minSafety = 0.1

// WeatherSafety scores how safe it is to travel in c, from minSafety to 1.
func WeatherSafety(c weather.Conditions) float64 {
	s := 1.0
	if c.Has(weather.TagRain) {
		s -= 0.2
	}
	if c.Has(weather.TagSnow) {
		s -= 0.3
	}
	if c.Has(weather.TagIce) {
		s -= 0.4
	}
	if c.Visibility < 5000 {
		s -= 0.2
	}
	return max(s, minSafety)
}

// TerrainSafety scores how safe it is to travel over c, from minSafety to 1.
func TerrainSafety(c terrain.Conditions) float64 {
	s := 1.0
	switch c.Surface {
	case terrain.SurfaceWet:
		s -= 0.2
	case terrain.SurfaceIcy:
		s -= 0.4
	}
	s -= 0.1 * float64(len(c.Hazards))
	return max(s, minSafety)
}
