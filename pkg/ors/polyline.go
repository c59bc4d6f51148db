package ors

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

const polylineFactor = 1e5 // precision 5

// DecodePolyline decodes a precision-5 delta-encoded polyline into
// lon,lat coordinate pairs (the order GeoJSON expects).
func DecodePolyline(encoded string) ([][]float64, error) {
	var coords [][]float64
	var lat, lon int64

	index := 0
	for index < len(encoded) {
		dLat, next, err := decodeValue(encoded, index)
		if err != nil {
			return nil, err
		}
		dLon, after, err := decodeValue(encoded, next)
		if err != nil {
			return nil, err
		}
		index = after

		lat += dLat
		lon += dLon
		coords = append(coords, []float64{
			float64(lon) / polylineFactor,
			float64(lat) / polylineFactor,
		})
	}
	return coords, nil
}

// PolylineToLineString decodes an encoded path into a go-geom LineString.
func PolylineToLineString(encoded string) (*geom.LineString, error) {
	coords, err := DecodePolyline(encoded)
	if err != nil {
		return nil, err
	}
	flat := make([]float64, 0, len(coords)*2)
	for _, c := range coords {
		flat = append(flat, c[0], c[1])
	}
	return geom.NewLineStringFlat(geom.XY, flat), nil
}

// decodeValue reads one zigzag varint starting at index and returns the
// signed delta plus the index of the next value.
func decodeValue(encoded string, index int) (int64, int, error) {
	var result int64
	var shift uint

	for {
		if index >= len(encoded) {
			return 0, 0, eris.New("ors: truncated polyline")
		}
		b := int64(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index, nil
	}
	return result >> 1, index, nil
}
