package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/cavena/mobility-cli/internal/model"
)

const testPolyline = "_p~iF~ps|U_ulLnnqC_mqNvxq`@"

func testTrips() []model.GeocodedTrip {
	return []model.GeocodedTrip{
		{
			ID:         "employé a1",
			StartPoint: model.GeoPoint{Lat: 45.75, Lon: 4.89},
			EndPoint:   model.GeoPoint{Lat: 45.76, Lon: 4.85},
		},
		{
			ID:         "employé b1",
			StartPoint: model.GeoPoint{Lat: 45.74, Lon: 4.84},
			EndPoint:   model.GeoPoint{Lat: 45.73, Lon: 4.82},
		},
	}
}

func testRoutes() []model.RouteResult {
	trips := testTrips()
	return []model.RouteResult{
		{GeocodedTrip: trips[0], Status: model.RouteSuccess, DistanceKm: 3.25, DurationMin: 13, Polyline: testPolyline},
		{GeocodedTrip: trips[1], Status: model.RouteError, Error: "no route found"},
	}
}

func testIsochrone(rangeKm float64) model.IsochronePolygon {
	return model.IsochronePolygon{
		Geometry: geom.NewPolygonFlat(geom.XY, []float64{
			4.8, 45.7, 4.9, 45.7, 4.9, 45.8, 4.8, 45.8, 4.8, 45.7,
		}, []int{10}),
		RangeKm:       rangeKm,
		CenterAddress: "Lyon Acme",
	}
}

func TestPointsCollection(t *testing.T) {
	fc := PointsCollection(testTrips())
	require.Len(t, fc.Features, 4)

	assert.Equal(t, "dep", fc.Features[0].Properties["type"])
	assert.Equal(t, "arr", fc.Features[1].Properties["type"])
	assert.Equal(t, "employé a1", fc.Features[0].Properties["id"])

	pt, ok := fc.Features[0].Geometry.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, []float64{4.89, 45.75}, pt.FlatCoords())
}

func TestRoutesCollection_SkipsFailuresAndDecodes(t *testing.T) {
	fc, err := RoutesCollection(testRoutes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)

	line, ok := fc.Features[0].Geometry.(*geom.LineString)
	require.True(t, ok)
	assert.Equal(t, 3, line.NumCoords())
	first := line.Coord(0)
	assert.InDelta(t, -120.2, first[0], 1e-9)
	assert.InDelta(t, 38.5, first[1], 1e-9)
	assert.Equal(t, 3.25, fc.Features[0].Properties["dist"])
}

func TestIsochroneCollection_FiltersByThreshold(t *testing.T) {
	isos := []model.IsochronePolygon{testIsochrone(2), testIsochrone(5), testIsochrone(2)}

	fc := IsochroneCollection(isos, 2)
	assert.Len(t, fc.Features, 2)
	for _, f := range fc.Features {
		assert.Equal(t, 2.0, f.Properties["range_km"])
	}

	empty := IsochroneCollection(isos, 13)
	assert.Empty(t, empty.Features)
}

func TestAllIsochrones_SortedDescending(t *testing.T) {
	isos := []model.IsochronePolygon{testIsochrone(2), testIsochrone(13), testIsochrone(5)}
	fc := AllIsochrones(isos)
	require.Len(t, fc.Features, 3)
	assert.Equal(t, 13.0, fc.Features[0].Properties["range_km"])
	assert.Equal(t, 5.0, fc.Features[1].Properties["range_km"])
	assert.Equal(t, 2.0, fc.Features[2].Properties["range_km"])
}

func TestAnalysisRows(t *testing.T) {
	rows := AnalysisRows(testRoutes())
	require.Len(t, rows, 3)
	assert.Equal(t, analysisHeader, rows[0])

	success := rows[1]
	assert.Equal(t, "employé a1", success[0])
	assert.Equal(t, "3.25", success[5])
	assert.Equal(t, "13", success[6])
	assert.Equal(t, "success", success[7])
	assert.Empty(t, success[8])

	failure := rows[2]
	assert.Empty(t, failure[5])
	assert.Empty(t, failure[6])
	assert.Equal(t, "error", failure[7])
	assert.Equal(t, "no route found", failure[8])
}

func TestWriteAnalysisCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAnalysisCSV(&buf, testRoutes()))
	assert.Contains(t, buf.String(), "id,start_lat,start_lon")
	assert.Contains(t, buf.String(), "employé a1")
}

func TestFeatureCollection_MarshalsAsGeoJSON(t *testing.T) {
	fc := PointsCollection(testTrips()[:1])
	data, err := json.Marshal(fc)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FeatureCollection", decoded["type"])
	features := decoded["features"].([]any)
	require.Len(t, features, 2)
	first := features[0].(map[string]any)
	geometry := first["geometry"].(map[string]any)
	assert.Equal(t, "Point", geometry["type"])
}
