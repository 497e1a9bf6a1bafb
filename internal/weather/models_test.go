package weather_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/routopia/routeengine/internal/weather"
)

func TestConditions_Wind(t *testing.T) {
	tests := []struct {
		speed    float64
		expected weather.WindCategory
	}{
		{0, weather.WindCalm},
		{9.9, weather.WindCalm},
		{10, weather.WindBreezy},
		{24.9, weather.WindBreezy},
		{25, weather.WindStrong},
		{40, weather.WindHazardous},
		{80, weather.WindHazardous},
	}

	for _, tt := range tests {
		c := weather.Conditions{WindSpeed: tt.speed}
		assert.Equal(t, tt.expected, c.Wind(), "speed %.1f", tt.speed)
	}
}

func TestConditions_Precipitating(t *testing.T) {
	assert.True(t, weather.Conditions{Tags: []weather.Tag{weather.TagRain}}.Precipitating())
	assert.True(t, weather.Conditions{Tags: []weather.Tag{weather.TagClouds, weather.TagSnow}}.Precipitating())
	assert.False(t, weather.Conditions{Tags: []weather.Tag{weather.TagFog}}.Precipitating())
	assert.False(t, weather.Conditions{}.Precipitating())
}

func TestSeverity(t *testing.T) {
	flood := true

	tests := []struct {
		name     string
		c        weather.Conditions
		expected float64
	}{
		{"clear", weather.Conditions{Tags: []weather.Tag{weather.TagClear}, Visibility: 10000}, 0},
		{"light rain", weather.Conditions{Tags: []weather.Tag{weather.TagRain}, Precipitation: 2}, 0.4},
		{"heavy rain capped", weather.Conditions{Tags: []weather.Tag{weather.TagRain}, Precipitation: 50}, 0.6},
		{"snow", weather.Conditions{Tags: []weather.Tag{weather.TagSnow}}, 0.6},
		{"storm with gale", weather.Conditions{Tags: []weather.Tag{weather.TagStorm}, WindSpeed: 60}, 1.0},
		{"fog low visibility", weather.Conditions{Tags: []weather.Tag{weather.TagFog}, Visibility: 200}, 0.4},
		{"flood", weather.Conditions{Tags: []weather.Tag{weather.TagRain}, FloodWarning: &flood}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, weather.Severity(tt.c), 1e-9)
		})
	}
}
