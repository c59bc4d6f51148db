// Package export renders a finished run into files and outbound pushes:
// GeoJSON collections, the analysis CSV, an XLSX workbook, shapefiles,
// and an optional webhook delivery.
package export

import (
	"sort"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/cavena/mobility-cli/internal/model"
	"github.com/cavena/mobility-cli/pkg/ors"
)

// PointsCollection builds one departure and one arrival point feature
// per geocoded trip.
func PointsCollection(trips []model.GeocodedTrip) *geojson.FeatureCollection {
	features := make([]*geojson.Feature, 0, 2*len(trips))
	for _, trip := range trips {
		features = append(features,
			&geojson.Feature{
				Geometry:   geom.NewPointFlat(geom.XY, []float64{trip.StartPoint.Lon, trip.StartPoint.Lat}),
				Properties: map[string]any{"id": trip.ID, "type": "dep"},
			},
			&geojson.Feature{
				Geometry:   geom.NewPointFlat(geom.XY, []float64{trip.EndPoint.Lon, trip.EndPoint.Lat}),
				Properties: map[string]any{"id": trip.ID, "type": "arr"},
			},
		)
	}
	return &geojson.FeatureCollection{Features: features}
}

// RoutesCollection builds line features from successfully routed trips,
// decoding each stored polyline.
func RoutesCollection(routes []model.RouteResult) (*geojson.FeatureCollection, error) {
	var features []*geojson.Feature
	for _, r := range routes {
		if r.Status != model.RouteSuccess || r.Polyline == "" {
			continue
		}
		line, err := ors.PolylineToLineString(r.Polyline)
		if err != nil {
			return nil, err
		}
		features = append(features, &geojson.Feature{
			Geometry:   line,
			Properties: map[string]any{"id": r.ID, "dist": r.DistanceKm},
		})
	}
	return &geojson.FeatureCollection{Features: features}, nil
}

// IsochroneCollection filters the polygons matching one distance
// threshold into a collection.
func IsochroneCollection(isos []model.IsochronePolygon, rangeKm float64) *geojson.FeatureCollection {
	var features []*geojson.Feature
	for _, iso := range isos {
		if iso.RangeKm != rangeKm {
			continue
		}
		features = append(features, isochroneFeature(iso))
	}
	return &geojson.FeatureCollection{Features: features}
}

// AllIsochrones returns every polygon sorted by descending threshold so
// the smallest rings render on top.
func AllIsochrones(isos []model.IsochronePolygon) *geojson.FeatureCollection {
	sorted := make([]model.IsochronePolygon, len(isos))
	copy(sorted, isos)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RangeKm > sorted[j].RangeKm
	})

	features := make([]*geojson.Feature, 0, len(sorted))
	for _, iso := range sorted {
		features = append(features, isochroneFeature(iso))
	}
	return &geojson.FeatureCollection{Features: features}
}

func isochroneFeature(iso model.IsochronePolygon) *geojson.Feature {
	return &geojson.Feature{
		Geometry:   iso.Geometry,
		Properties: map[string]any{"range_km": iso.RangeKm, "center": iso.CenterAddress},
	}
}
