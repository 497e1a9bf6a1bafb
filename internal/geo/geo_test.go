package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routopia/routeengine/internal/geo"
)

func TestPoint_Validate(t *testing.T) {
	tests := []struct {
		name    string
		point   geo.Point
		wantErr bool
	}{
		{"origin", geo.Point{Lat: 0, Lng: 0}, false},
		{"portland", geo.Point{Lat: 45.5, Lng: -122.6}, false},
		{"north pole", geo.Point{Lat: 90, Lng: 180}, false},
		{"south pole", geo.Point{Lat: -90, Lng: -180}, false},
		{"lat too high", geo.Point{Lat: 90.1, Lng: 0}, true},
		{"lat too low", geo.Point{Lat: -91, Lng: 0}, true},
		{"lng too high", geo.Point{Lat: 0, Lng: 181}, true},
		{"lng too low", geo.Point{Lat: 0, Lng: -180.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.point.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDistance(t *testing.T) {
	a := geo.Point{Lat: 45.5, Lng: -122.6}
	b := geo.Point{Lat: 45.6, Lng: -122.7}

	d := geo.Distance(a, b)
	// ~13.6 km between the two Portland points
	assert.InDelta(t, 13600, d, 400)
	assert.Zero(t, geo.Distance(a, a))
}

func TestPathLength(t *testing.T) {
	a := geo.Point{Lat: 0, Lng: 0}
	b := geo.Point{Lat: 0, Lng: 1}
	c := geo.Point{Lat: 1, Lng: 1}

	assert.Zero(t, geo.PathLength([]geo.Point{a}))
	assert.InDelta(t, geo.Distance(a, b)+geo.Distance(b, c), geo.PathLength([]geo.Point{a, b, c}), 1e-6)
}

func TestInterpolate_Endpoints(t *testing.T) {
	a := geo.Point{Lat: 45.5, Lng: -122.6}
	b := geo.Point{Lat: 45.6, Lng: -122.7}

	assert.Equal(t, a, geo.Interpolate(a, b, 0))
	assert.Equal(t, b, geo.Interpolate(a, b, 1))

	mid := geo.Interpolate(a, b, 0.5)
	assert.InDelta(t, geo.Distance(a, mid), geo.Distance(mid, b), 1)
}

func TestGreatCirclePath_AcrossAntimeridian(t *testing.T) {
	a := geo.Point{Lat: -17.7, Lng: 178.0} // Fiji
	b := geo.Point{Lat: -13.8, Lng: -171.8} // Samoa

	path := geo.GreatCirclePath(a, b, 20)
	require.Len(t, path, 21)

	for _, p := range path {
		require.NoError(t, p.Validate())
	}

	// The short way across the antimeridian is ~1,150 km, not ~39,000 km.
	assert.Less(t, geo.PathLength(path), 1_300_000.0)
}

func TestPoint_Equal(t *testing.T) {
	assert.True(t, geo.Point{Lat: 10, Lng: 180}.Equal(geo.Point{Lat: 10, Lng: -180}))
	assert.False(t, geo.Point{Lat: 10, Lng: 20}.Equal(geo.Point{Lat: 10.001, Lng: 20}))
}

func TestOffsetAndBearing(t *testing.T) {
	p := geo.Point{Lat: 45.5, Lng: -122.6}
	north := geo.Offset(p, 0, 1000)

	assert.Greater(t, north.Lat, p.Lat)
	assert.InDelta(t, 1000, geo.Distance(p, north), 10)
	assert.InDelta(t, 0, geo.Bearing(p, north), 0.5)
}

func TestBound(t *testing.T) {
	b := geo.Bound([]geo.Point{{Lat: 1, Lng: 2}, {Lat: -1, Lng: 5}})
	assert.Equal(t, -1.0, b.Min.Lat())
	assert.Equal(t, 5.0, b.Max.Lon())
}
