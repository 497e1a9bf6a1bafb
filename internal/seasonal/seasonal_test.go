package seasonal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/routing"
	"github.com/routopia/routeengine/internal/seasonal"
	"github.com/routopia/routeengine/internal/weather"
)

var (
	portland = geo.Point{Lat: 45.5, Lng: -122.6}
	sydney   = geo.Point{Lat: -33.9, Lng: 151.2}
	tromso   = geo.Point{Lat: 69.6, Lng: 18.9}
	quito    = geo.Point{Lat: -0.2, Lng: -78.5}
	tokyo    = geo.Point{Lat: 35.7, Lng: 139.7}
)

func date(month time.Month, day, hour int) time.Time {
	return time.Date(2026, month, day, hour, 0, 0, 0, time.UTC)
}

func TestSeasonAt_Hemispheres(t *testing.T) {
	tests := []struct {
		month time.Month
		north seasonal.Season
		south seasonal.Season
	}{
		{time.January, seasonal.Winter, seasonal.Summer},
		{time.April, seasonal.Spring, seasonal.Autumn},
		{time.July, seasonal.Summer, seasonal.Winter},
		{time.October, seasonal.Autumn, seasonal.Spring},
		{time.December, seasonal.Winter, seasonal.Summer},
	}

	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			assert.Equal(t, tt.north, seasonal.SeasonAt(portland, date(tt.month, 15, 12)))
			assert.Equal(t, tt.south, seasonal.SeasonAt(sydney, date(tt.month, 15, 12)))
		})
	}
}

func TestDaylightAt(t *testing.T) {
	t.Run("equator is close to twelve hours", func(t *testing.T) {
		d := seasonal.DaylightAt(quito, date(time.March, 20, 12))
		assert.InDelta(t, 12.1, d.Hours, 0.2)
		assert.True(t, d.Sunrise.Before(d.Sunset))
	})

	t.Run("summer days are longer than winter days", func(t *testing.T) {
		summer := seasonal.DaylightAt(portland, date(time.June, 21, 12))
		winter := seasonal.DaylightAt(portland, date(time.December, 21, 12))
		assert.InDelta(t, 15.6, summer.Hours, 0.3)
		assert.InDelta(t, 8.7, winter.Hours, 0.3)
	})

	t.Run("polar night and day", func(t *testing.T) {
		assert.True(t, seasonal.DaylightAt(tromso, date(time.December, 21, 12)).PolarNight)
		assert.True(t, seasonal.DaylightAt(tromso, date(time.June, 21, 12)).PolarDay)
	})

	t.Run("solar noon follows longitude", func(t *testing.T) {
		d := seasonal.DaylightAt(portland, date(time.June, 21, 12))
		noon := d.Sunrise.Add(d.Sunset.Sub(d.Sunrise) / 2)
		// Portland solar noon is about 20:10 UTC.
		assert.InDelta(t, 20.17, float64(noon.Hour())+float64(noon.Minute())/60, 0.1)
	})

	t.Run("uses the local solar day", func(t *testing.T) {
		tests := []struct {
			name  string
			at    geo.Point
			when  time.Time
			night time.Time
		}{
			// 19:00 PDT is already the next UTC day.
			{"portland evening", portland, time.Date(2026, time.June, 21, 2, 0, 0, 0, time.UTC), time.Date(2026, time.June, 21, 6, 0, 0, 0, time.UTC)},
			// 07:00 JST is still the previous UTC day.
			{"tokyo morning", tokyo, time.Date(2026, time.June, 20, 22, 0, 0, 0, time.UTC), time.Date(2026, time.June, 20, 17, 0, 0, 0, time.UTC)},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				d := seasonal.DaylightAt(tt.at, tt.when)
				assert.False(t, d.IsDark(tt.when))
				assert.True(t, d.Sunrise.Before(tt.when))
				assert.True(t, d.Sunset.After(tt.when))
				assert.True(t, d.IsDark(tt.night))
			})
		}
	})
}

func TestNewContext_WinterConditionsFromWeather(t *testing.T) {
	w := weather.DefaultConditions()
	w.Tags = []weather.Tag{weather.TagSnow}
	w.Temperature = -3

	c := seasonal.NewContext(portland, date(time.April, 10, 18), &w)

	assert.Equal(t, seasonal.Spring, c.Season)
	assert.True(t, c.WinterConditions)
	assert.True(t, c.Wintry())
	require.NotNil(t, c.TemperatureAnomaly)
	assert.Less(t, *c.TemperatureAnomaly, 0.0)
}

func testRoute(activity routing.Activity) routing.Route {
	seg := routing.Segment{
		Path:     []geo.Point{portland, {Lat: 45.51, Lng: -122.6}},
		Activity: activity,
		Metrics:  routing.Metrics{Distance: 1100, Duration: 3600},
	}
	return routing.NewRoute(routing.KindBase, []routing.Segment{seg}, routing.RoutePreferences{Activity: activity})
}

func TestAdapt_WinterSlowsExposedActivities(t *testing.T) {
	sc := seasonal.NewContext(portland, date(time.January, 15, 19), nil)
	route := testRoute(routing.ActivityBike)

	adapted, warnings := seasonal.Adapt(route, sc, date(time.January, 15, 19))

	assert.InDelta(t, 3600*1.25, adapted.TotalDuration, 1e-6)
	assert.Contains(t, warnings, seasonal.WarnWinterConditions)
	require.NotNil(t, adapted.Segments[0].Metrics.Safety)
	assert.Less(t, *adapted.Segments[0].Metrics.Safety, 1.0)

	assert.InDelta(t, 3600, route.TotalDuration, 1e-6, "input route is not modified")
	assert.Nil(t, route.Segments[0].Metrics.Safety)
}

func TestAdapt_CarInSummerIsUnchanged(t *testing.T) {
	// 19:00 UTC is late morning in Portland.
	depart := date(time.July, 15, 19)
	sc := seasonal.NewContext(portland, depart, nil)

	adapted, warnings := seasonal.Adapt(testRoute(routing.ActivityCar), sc, depart)

	assert.InDelta(t, 3600, adapted.TotalDuration, 1e-6)
	assert.Nil(t, adapted.Segments[0].Metrics.Safety)
	assert.Empty(t, warnings)
}

func TestAdapt_EndsAfterSunset(t *testing.T) {
	sc := seasonal.NewContext(portland, date(time.July, 15, 12), nil)
	depart := sc.Daylight.Sunset.Add(-30 * time.Minute)

	adapted, warnings := seasonal.Adapt(testRoute(routing.ActivityWalk), sc, depart)

	assert.Contains(t, warnings, seasonal.WarnEndsAfterSunset)
	require.NotNil(t, adapted.Segments[0].Metrics.Safety)
	assert.InDelta(t, 0.85, *adapted.Segments[0].Metrics.Safety, 1e-9)
}

func TestAdapt_EveningDepartureWestOfGreenwich(t *testing.T) {
	// 19:00 PDT, about two hours before sunset.
	depart := time.Date(2026, time.June, 21, 2, 0, 0, 0, time.UTC)
	sc := seasonal.NewContext(portland, depart, nil)

	adapted, warnings := seasonal.Adapt(testRoute(routing.ActivityWalk), sc, depart)

	assert.Empty(t, warnings)
	assert.Nil(t, adapted.Segments[0].Metrics.Safety)
}

func TestAdapt_SkiOutOfSeason(t *testing.T) {
	depart := date(time.July, 15, 19)
	sc := seasonal.NewContext(portland, depart, nil)

	_, warnings := seasonal.Adapt(testRoute(routing.ActivitySki), sc, depart)
	assert.Contains(t, warnings, seasonal.WarnOutsideSkiSeason)
}

func TestTypicalFor(t *testing.T) {
	summer := seasonal.TypicalFor(seasonal.Summer, 45)
	winter := seasonal.TypicalFor(seasonal.Winter, 45)

	assert.Greater(t, summer.Temperature, winter.Temperature)
	assert.False(t, summer.SnowLikely)

	arctic := seasonal.TypicalFor(seasonal.Winter, 70)
	assert.True(t, arctic.SnowLikely)
}
