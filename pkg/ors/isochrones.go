package ors

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/cavena/mobility-cli/internal/model"
)

type isochroneRequest struct {
	Locations  [][2]float64 `json:"locations"`
	Range      []float64    `json:"range"` // meters
	RangeType  string       `json:"range_type"`
	Smoothing  float64      `json:"smoothing"`
	Attributes []string     `json:"attributes"`
}

type isochroneResponse struct {
	Features []struct {
		Geometry json.RawMessage `json:"geometry"`
	} `json:"features"`
}

// Isochrone requests the reachability polygon around center for one
// distance threshold. The service answers a FeatureCollection holding
// zero or one polygon; zero polygons is a definitive miss.
func (c *Client) Isochrone(ctx context.Context, center model.GeoPoint, rangeKm, smoothing float64) (*geom.Polygon, error) {
	payload := isochroneRequest{
		Locations:  [][2]float64{{center.Lon, center.Lat}},
		Range:      []float64{rangeKm * 1000},
		RangeType:  "distance",
		Smoothing:  smoothing,
		Attributes: []string{"area"},
	}

	var resp isochroneResponse
	if err := c.postJSON(ctx, "/v2/isochrones/"+c.profile, payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Features) == 0 {
		return nil, eris.Errorf("ors: no isochrone polygon for %.0f km", rangeKm)
	}

	var g geom.T
	if err := geojson.Unmarshal(resp.Features[0].Geometry, &g); err != nil {
		return nil, eris.Wrap(err, "ors: parse isochrone geometry")
	}
	poly, ok := g.(*geom.Polygon)
	if !ok {
		return nil, eris.Errorf("ors: isochrone geometry is %T, want polygon", g)
	}
	return poly, nil
}
