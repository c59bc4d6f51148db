package ors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePolyline_ReferenceVector(t *testing.T) {
	// Canonical precision-5 example: (38.5,-120.2) (40.7,-120.95) (43.252,-126.453).
	coords, err := DecodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	require.NoError(t, err)
	require.Len(t, coords, 3)

	assert.InDelta(t, -120.2, coords[0][0], 1e-9)
	assert.InDelta(t, 38.5, coords[0][1], 1e-9)
	assert.InDelta(t, -120.95, coords[1][0], 1e-9)
	assert.InDelta(t, 40.7, coords[1][1], 1e-9)
	assert.InDelta(t, -126.453, coords[2][0], 1e-9)
	assert.InDelta(t, 43.252, coords[2][1], 1e-9)
}

func TestDecodePolyline_Empty(t *testing.T) {
	coords, err := DecodePolyline("")
	require.NoError(t, err)
	assert.Empty(t, coords)
}

func TestDecodePolyline_Truncated(t *testing.T) {
	_, err := DecodePolyline("_p~iF")
	assert.Error(t, err)
}

func TestPolylineToLineString(t *testing.T) {
	ls, err := PolylineToLineString("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	require.NoError(t, err)
	assert.Equal(t, 3, ls.NumCoords())
	assert.InDelta(t, -120.2, ls.Coord(0).X(), 1e-9)
	assert.InDelta(t, 38.5, ls.Coord(0).Y(), 1e-9)
}
