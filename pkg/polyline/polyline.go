// Package polyline implements Google's encoded polyline format along with
// geometry helpers used when attaching weather data to route shapes.
// Format reference: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"math"
)

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

const earthRadiusMeters = 6371000

// Decode converts an encoded polyline (precision 5) into coordinates.
func Decode(encoded string) []Coordinate {
	if encoded == "" {
		return nil
	}

	var coords []Coordinate
	index := 0
	lat := 0
	lon := 0

	for index < len(encoded) {
		latDelta, next := decodeChunk(encoded, index)
		index = next
		lat += latDelta

		lonDelta, next := decodeChunk(encoded, index)
		index = next
		lon += lonDelta

		coords = append(coords, Coordinate{
			Lat: float64(lat) / 1e5,
			Lon: float64(lon) / 1e5,
		})
	}

	return coords
}

// decodeChunk reads one varint-style value starting at index and returns the
// signed delta and the index of the next unread byte.
func decodeChunk(encoded string, index int) (int, int) {
	shift := 0
	result := 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index
	}
	return result >> 1, index
}

// Encode converts coordinates into an encoded polyline (precision 5).
func Encode(coords []Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	encoded := make([]byte, 0, len(coords)*4)
	prevLat := 0
	prevLon := 0

	for _, c := range coords {
		lat := int(math.Round(c.Lat * 1e5))
		lon := int(math.Round(c.Lon * 1e5))

		encoded = appendChunk(encoded, lat-prevLat)
		encoded = appendChunk(encoded, lon-prevLon)

		prevLat = lat
		prevLon = lon
	}

	return string(encoded)
}

func appendChunk(buf []byte, value int) []byte {
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

// Length returns the total haversine length of the shape in meters.
func Length(coords []Coordinate) float64 {
	if len(coords) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(coords); i++ {
		total += Distance(coords[i-1], coords[i])
	}
	return total
}

// PointAt returns the coordinate at the given fraction (0..1) of the shape's
// length, interpolating linearly within a segment. Fractions outside [0,1]
// are clamped to the endpoints.
func PointAt(coords []Coordinate, fraction float64) Coordinate {
	if len(coords) == 1 || fraction <= 0 {
		return coords[0]
	}
	if fraction >= 1 {
		return coords[len(coords)-1]
	}

	target := Length(coords) * fraction
	var travelled float64

	for i := 1; i < len(coords); i++ {
		segment := Distance(coords[i-1], coords[i])
		if travelled+segment >= target && segment > 0 {
			f := (target - travelled) / segment
			return Coordinate{
				Lat: coords[i-1].Lat + f*(coords[i].Lat-coords[i-1].Lat),
				Lon: coords[i-1].Lon + f*(coords[i].Lon-coords[i-1].Lon),
			}
		}
		travelled += segment
	}

	return coords[len(coords)-1]
}

// Resample returns exactly n coordinates spaced evenly by distance along the
// shape, endpoints included. n < 2 or an empty shape returns the shape as-is.
func Resample(coords []Coordinate, n int) []Coordinate {
	if len(coords) == 0 || n < 2 {
		return coords
	}

	out := make([]Coordinate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, PointAt(coords, float64(i)/float64(n-1)))
	}
	return out
}

// Distance returns the haversine distance between two coordinates in meters.
func Distance(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
