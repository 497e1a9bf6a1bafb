// Package polyline encodes and decodes paths in Google's encoded polyline format.
// The algorithm is documented at: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
//
// Paths are orb.LineString values, so points are [lon, lat] while the encoding
// itself stores latitude first.
package polyline

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// DefaultPrecision is the number of decimal places used by Google and OpenRouteService.
const DefaultPrecision = 5

// ErrMalformed is returned when an encoded string ends in the middle of a value.
var ErrMalformed = errors.New("malformed polyline")

// Decode decodes a precision 5 polyline.
func Decode(encoded string) (orb.LineString, error) {
	return DecodePrecision(encoded, DefaultPrecision)
}

// DecodePrecision decodes a polyline encoded with the given number of decimal places.
func DecodePrecision(encoded string, precision int) (orb.LineString, error) {
	if encoded == "" {
		return nil, nil
	}

	factor := math.Pow10(precision)
	var ls orb.LineString
	index, lat, lon := 0, 0, 0

	for index < len(encoded) {
		latDelta, next, ok := decodeValue(encoded, index)
		if !ok {
			return nil, ErrMalformed
		}
		lonDelta, next, ok := decodeValue(encoded, next)
		if !ok {
			return nil, ErrMalformed
		}
		index = next
		lat += latDelta
		lon += lonDelta

		ls = append(ls, orb.Point{float64(lon) / factor, float64(lat) / factor})
	}

	return ls, nil
}

// decodeValue decodes one signed value starting at index.
func decodeValue(encoded string, index int) (value, next int, ok bool) {
	shift := 0
	result := 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			if result&1 != 0 {
				return ^(result >> 1), index, true
			}
			return result >> 1, index, true
		}
	}

	return 0, index, false
}

// Encode encodes a path at precision 5.
func Encode(ls orb.LineString) string {
	return EncodePrecision(ls, DefaultPrecision)
}

// EncodePrecision encodes a path with the given number of decimal places.
func EncodePrecision(ls orb.LineString, precision int) string {
	if len(ls) == 0 {
		return ""
	}

	factor := math.Pow10(precision)
	encoded := make([]byte, 0, len(ls)*8)
	prevLat, prevLon := 0, 0

	for _, p := range ls {
		lat := int(math.Round(p.Lat() * factor))
		lon := int(math.Round(p.Lon() * factor))

		encoded = encodeValue(encoded, lat-prevLat)
		encoded = encodeValue(encoded, lon-prevLon)

		prevLat, prevLon = lat, lon
	}

	return string(encoded)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}

// Sample returns points spaced roughly intervalMeters apart along the path,
// always including the first and last point.
func Sample(ls orb.LineString, intervalMeters float64) orb.LineString {
	if len(ls) == 0 {
		return nil
	}
	if intervalMeters <= 0 || len(ls) == 1 {
		return append(orb.LineString(nil), ls...)
	}

	sampled := orb.LineString{ls[0]}
	accumulated := 0.0

	for i := 1; i < len(ls); i++ {
		from := ls[i-1]
		segment := geo.DistanceHaversine(from, ls[i])
		travelled := 0.0

		for accumulated+(segment-travelled) >= intervalMeters {
			travelled += intervalMeters - accumulated
			f := travelled / segment
			sampled = append(sampled, orb.Point{
				from.Lon() + f*(ls[i].Lon()-from.Lon()),
				from.Lat() + f*(ls[i].Lat()-from.Lat()),
			})
			accumulated = 0
		}

		accumulated += segment - travelled
	}

	if last := ls[len(ls)-1]; !sampled[len(sampled)-1].Equal(last) {
		sampled = append(sampled, last)
	}

	return sampled
}
