// Package geo provides WGS84 point handling shared by the route engine.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// ErrInvalidCoordinates is returned when a point lies outside the WGS84 range.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Point is a geographic coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks that the point lies within lat [-90, 90] and lng [-180, 180].
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %f out of range [-90, 90]", ErrInvalidCoordinates, p.Lat)
	}
	if math.IsNaN(p.Lng) || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: longitude %f out of range [-180, 180]", ErrInvalidCoordinates, p.Lng)
	}
	return nil
}

// Equal reports whether two points are the same location within ~1cm.
func (p Point) Equal(o Point) bool {
	const eps = 1e-7
	return math.Abs(p.Lat-o.Lat) < eps && math.Abs(NormalizeLng(p.Lng)-NormalizeLng(o.Lng)) < eps
}

// Orb converts the point to an orb.Point ([lon, lat]).
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// FromOrb converts an orb.Point to a Point.
func FromOrb(p orb.Point) Point {
	return Point{Lat: p.Lat(), Lng: p.Lon()}
}

// Distance returns the haversine distance between two points in meters.
func Distance(a, b Point) float64 {
	return orbgeo.DistanceHaversine(a.Orb(), b.Orb())
}

// PathLength returns the length of a path in meters.
func PathLength(path []Point) float64 {
	if len(path) < 2 {
		return 0
	}
	ls := make(orb.LineString, len(path))
	for i, p := range path {
		ls[i] = p.Orb()
	}
	return orbgeo.LengthHaversine(ls)
}

// Bound returns the bounding box of a path.
func Bound(path []Point) orb.Bound {
	if len(path) == 0 {
		return orb.Bound{}
	}
	b := orb.Bound{Min: path[0].Orb(), Max: path[0].Orb()}
	for _, p := range path[1:] {
		b = b.Extend(p.Orb())
	}
	return b
}

// NormalizeLng wraps a longitude into [-180, 180).
func NormalizeLng(lng float64) float64 {
	for lng >= 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}

// Interpolate returns the point at fraction f along the great circle from a to b.
// The result longitude is normalised, so paths crossing the antimeridian stay valid.
func Interpolate(a, b Point, f float64) Point {
	if f <= 0 {
		return a
	}
	if f >= 1 {
		return b
	}

	lat1, lng1 := toRad(a.Lat), toRad(a.Lng)
	lat2, lng2 := toRad(b.Lat), toRad(b.Lng)

	d := angularDistance(lat1, lng1, lat2, lng2)
	if d == 0 {
		return a
	}

	sinD := math.Sin(d)
	ka := math.Sin((1-f)*d) / sinD
	kb := math.Sin(f*d) / sinD

	x := ka*math.Cos(lat1)*math.Cos(lng1) + kb*math.Cos(lat2)*math.Cos(lng2)
	y := ka*math.Cos(lat1)*math.Sin(lng1) + kb*math.Cos(lat2)*math.Sin(lng2)
	z := ka*math.Sin(lat1) + kb*math.Sin(lat2)

	lat := math.Atan2(z, math.Sqrt(x*x+y*y))
	lng := math.Atan2(y, x)

	return Point{Lat: toDeg(lat), Lng: NormalizeLng(toDeg(lng))}
}

// GreatCirclePath returns n+1 points from a to b along the great circle.
func GreatCirclePath(a, b Point, n int) []Point {
	if n < 1 {
		n = 1
	}
	path := make([]Point, 0, n+1)
	for i := 0; i <= n; i++ {
		path = append(path, Interpolate(a, b, float64(i)/float64(n)))
	}
	return path
}

// Offset returns the point reached by travelling distance meters from p on the
// given bearing (degrees clockwise from north).
func Offset(p Point, bearing, distance float64) Point {
	const earthRadius = orb.EarthRadius
	lat1, lng1 := toRad(p.Lat), toRad(p.Lng)
	brng := toRad(bearing)
	ad := distance / earthRadius

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ad) + math.Cos(lat1)*math.Sin(ad)*math.Cos(brng))
	lng2 := lng1 + math.Atan2(
		math.Sin(brng)*math.Sin(ad)*math.Cos(lat1),
		math.Cos(ad)-math.Sin(lat1)*math.Sin(lat2),
	)

	return Point{Lat: toDeg(lat2), Lng: NormalizeLng(toDeg(lng2))}
}

// Bearing returns the initial bearing from a to b in degrees [0, 360).
func Bearing(a, b Point) float64 {
	return math.Mod(orbgeo.Bearing(a.Orb(), b.Orb())+360, 360)
}

func angularDistance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := lat2 - lat1
	dLng := lng2 - lng1
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * math.Asin(math.Min(1, math.Sqrt(h)))
}

func toRad(d float64) float64 { return d * math.Pi / 180 }
func toDeg(r float64) float64 { return r * 180 / math.Pi }
