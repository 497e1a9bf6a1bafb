package congestion_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routopia/routeengine/internal/congestion"
	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/routing"
	"github.com/routopia/routeengine/internal/traffic"
	"github.com/routopia/routeengine/internal/weather"
)

// Longitude 0 keeps local time equal to UTC. 2026-10-14 is a Wednesday.
var (
	london    = geo.Point{Lat: 51.5, Lng: 0}
	wednesday = time.Date(2026, 10, 14, 3, 0, 0, 0, time.UTC)
)

type fixture struct {
	traffic *traffic.StaticProvider
	weather *weather.StaticProvider
	service *congestion.Service
}

func newFixture(now time.Time) fixture {
	tc := traffic.DefaultConditions()
	tc.CongestionLevel = 0.3
	f := fixture{
		traffic: traffic.NewStaticProvider(tc),
		weather: weather.NewStaticProvider(weather.DefaultConditions()),
	}
	f.service = congestion.NewService(congestion.ServiceConfig{
		Traffic: f.traffic,
		Weather: f.weather,
		Logger:  zerolog.Nop(),
		Clock:   func() time.Time { return now },
	})
	return f
}

func span(start time.Time, d time.Duration) congestion.TimeRange {
	return congestion.TimeRange{Start: start, End: start.Add(d)}
}

func TestPredictCongestion_Sampling(t *testing.T) {
	f := newFixture(wednesday)

	points, err := f.service.PredictCongestion(context.Background(), london, span(wednesday, 2*time.Hour))
	require.NoError(t, err)
	require.Len(t, points, 9)

	for i, p := range points {
		assert.Equal(t, wednesday.Add(time.Duration(i)*15*time.Minute), p.Timestamp)
		assert.GreaterOrEqual(t, p.Level, 0.0)
		assert.LessOrEqual(t, p.Level, 1.0)
		assert.Greater(t, p.Speed, 0.0)
		assert.GreaterOrEqual(t, p.Density, 0.0)
		assert.Greater(t, p.Confidence, 0.0)
	}
	assert.InDelta(t, 0.3, points[0].Level, 1e-3, "first point follows the live reading")
}

func TestPredictCongestion_AtLeastOnePoint(t *testing.T) {
	f := newFixture(wednesday)

	points, err := f.service.PredictCongestion(context.Background(), london, congestion.TimeRange{Start: wednesday, End: wednesday})
	require.NoError(t, err)
	assert.Len(t, points, 1)

	points, err = f.service.PredictCongestion(context.Background(), london, congestion.TimeRange{})
	require.NoError(t, err)
	assert.Len(t, points, 9, "empty range defaults to the next two hours")
}

func TestPredictCongestion_AdverseWeatherSlowsTraffic(t *testing.T) {
	sunny := newFixture(wednesday)
	wet := newFixture(wednesday)
	rain := weather.DefaultConditions()
	rain.Tags = []weather.Tag{weather.TagRain}
	wet.weather.Set(rain)
	snowy := newFixture(wednesday)
	snow := weather.DefaultConditions()
	snow.Tags = []weather.Tag{weather.TagSnow}
	snowy.weather.Set(snow)

	tr := span(wednesday, time.Hour)
	base, err := sunny.service.PredictCongestion(context.Background(), london, tr)
	require.NoError(t, err)
	rained, err := wet.service.PredictCongestion(context.Background(), london, tr)
	require.NoError(t, err)
	snowed, err := snowy.service.PredictCongestion(context.Background(), london, tr)
	require.NoError(t, err)

	for i := range base {
		assert.Less(t, rained[i].Speed, base[i].Speed)
		assert.Greater(t, rained[i].Level, base[i].Level)
		assert.Less(t, snowed[i].Speed, rained[i].Speed)
		assert.Greater(t, snowed[i].Level, rained[i].Level)
		assert.Contains(t, rained[i].Factors, congestion.FactorAdverseWeather)
	}
}

func TestPredictCongestion_WeatherAtSaturation(t *testing.T) {
	jammed := traffic.DefaultConditions()
	jammed.CongestionLevel = 1

	dry := newFixture(wednesday)
	dry.traffic.Set(jammed)
	wet := newFixture(wednesday)
	wet.traffic.Set(jammed)
	rain := weather.DefaultConditions()
	rain.Tags = []weather.Tag{weather.TagRain}
	wet.weather.Set(rain)

	tr := span(wednesday, 0)
	base, err := dry.service.PredictCongestion(context.Background(), london, tr)
	require.NoError(t, err)
	rained, err := wet.service.PredictCongestion(context.Background(), london, tr)
	require.NoError(t, err)
	require.Len(t, base, 1)
	require.Len(t, rained, 1)

	assert.Equal(t, 1.0, base[0].Level)
	assert.Equal(t, 1.0, rained[0].Level)
	assert.Less(t, rained[0].Speed, base[0].Speed)
}

func TestAnalyzeTrend_FactorsLowerConfidence(t *testing.T) {
	tr := span(wednesday, time.Hour)

	calm := newFixture(wednesday)
	none, err := calm.service.AnalyzeTrend(context.Background(), london, tr)
	require.NoError(t, err)
	assert.Empty(t, none.Factors)
	assert.InDelta(t, 0.9, none.Confidence, 1e-9)

	rainOnly := newFixture(wednesday)
	rain := weather.DefaultConditions()
	rain.Tags = []weather.Tag{weather.TagRain}
	rainOnly.weather.Set(rain)
	single, err := rainOnly.service.AnalyzeTrend(context.Background(), london, tr)
	require.NoError(t, err)
	assert.Equal(t, []string{congestion.FactorAdverseWeather}, single.Factors)

	stormy := newFixture(wednesday)
	rain.WindSpeed = 55
	stormy.weather.Set(rain)
	both, err := stormy.service.AnalyzeTrend(context.Background(), london, tr)
	require.NoError(t, err)
	assert.Equal(t, []string{congestion.FactorAdverseWeather, congestion.FactorHighWind}, both.Factors)

	assert.Less(t, single.Confidence, none.Confidence)
	assert.Less(t, both.Confidence, single.Confidence)
}

func TestAnalyzeTrend_Classification(t *testing.T) {
	t.Run("jam clearing overnight", func(t *testing.T) {
		f := newFixture(wednesday)
		jam := traffic.DefaultConditions()
		jam.CongestionLevel = 0.9
		f.traffic.Set(jam)

		a, err := f.service.AnalyzeTrend(context.Background(), london, span(wednesday, 3*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, congestion.TrendImproving, a.Trend)
	})

	t.Run("morning build up without live data", func(t *testing.T) {
		f := newFixture(wednesday)
		f.traffic.SetError(errors.New("down"))

		a, err := f.service.AnalyzeTrend(context.Background(), london, span(wednesday.Add(2*time.Hour), 3*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, congestion.TrendWorsening, a.Trend)
		assert.Contains(t, a.Factors, congestion.FactorRushHour)
		assert.Contains(t, a.Factors, congestion.FactorLimitedLiveData)
	})

	t.Run("quiet weekend night", func(t *testing.T) {
		saturday := time.Date(2026, 10, 17, 2, 0, 0, 0, time.UTC)
		f := newFixture(saturday)
		f.traffic.SetError(errors.New("down"))

		a, err := f.service.AnalyzeTrend(context.Background(), london, span(saturday, time.Hour))
		require.NoError(t, err)
		assert.Equal(t, congestion.TrendStable, a.Trend)
	})
}

func TestPredictCongestion_Incidents(t *testing.T) {
	f := newFixture(wednesday)
	c := traffic.DefaultConditions()
	c.CongestionLevel = 0.3
	c.Incidents = 2
	f.traffic.Set(c)

	points, err := f.service.PredictCongestion(context.Background(), london, span(wednesday, 0))
	require.NoError(t, err)
	assert.InDelta(t, 0.4, points[0].Level, 1e-3)
	assert.Contains(t, points[0].Factors, congestion.FactorIncidents)
}

func TestPredictCongestion_Validation(t *testing.T) {
	f := newFixture(wednesday)

	_, err := f.service.PredictCongestion(context.Background(), london, congestion.TimeRange{Start: wednesday, End: wednesday.Add(-time.Hour)})
	assert.ErrorIs(t, err, congestion.ErrInvalidTimeRange)

	_, err = f.service.PredictCongestion(context.Background(), london, span(wednesday, 30*24*time.Hour))
	assert.ErrorIs(t, err, congestion.ErrInvalidTimeRange)

	_, err = f.service.AnalyzeTrend(context.Background(), geo.Point{Lat: 100}, span(wednesday, time.Hour))
	var vErr *routing.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
}
