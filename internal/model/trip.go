// Package model defines the data types shared across the mobility audit pipeline.
package model

import (
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// AddressPair holds the normalized home/workplace addresses produced from one
// input row. Immutable once created.
type AddressPair struct {
	EmployeeAddress string `json:"employee_address"`
	EmployerAddress string `json:"employer_address"`
}

// GeoPoint is a WGS84 coordinate with the provider that resolved it.
type GeoPoint struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Source string  `json:"source,omitempty"`
}

// Valid reports whether the point lies within WGS84 bounds.
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Key returns a coordinate key suitable for deduplicating locations. Six
// decimal places (~0.1 m) so that two geocodes of the same cached address
// always collapse to one key.
func (p GeoPoint) Key() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}

// GeocodedTrip is one employee commute with both endpoints resolved.
// Trips sharing an employer address share the same EndPoint and group letter.
type GeocodedTrip struct {
	ID              string   `json:"id"`
	StartPoint      GeoPoint `json:"start_point"`
	EndPoint        GeoPoint `json:"end_point"`
	EmployeeAddress string   `json:"employee_address"`
	EmployerAddress string   `json:"employer_address"`
}

// RouteStatus marks a route computation as succeeded or failed. Terminal:
// a result is never retried after the batch completes.
type RouteStatus string

const (
	RouteSuccess RouteStatus = "success"
	RouteError   RouteStatus = "error"
)

// RouteResult is the routing outcome for one trip. Failed trips keep their
// slot in the batch output with Status RouteError and a readable message.
type RouteResult struct {
	GeocodedTrip
	Status      RouteStatus `json:"status"`
	DistanceKm  float64     `json:"distance_km,omitempty"`
	DurationMin int         `json:"duration_min,omitempty"`
	Polyline    string      `json:"polyline,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// IsochronePolygon is the reachability polygon for one workplace at one
// distance threshold.
type IsochronePolygon struct {
	Geometry      *geom.Polygon
	RangeKm       float64
	CenterAddress string
}

// isochroneJSON is the wire form of IsochronePolygon; the polygon travels
// as GeoJSON so run state can be persisted and replayed.
type isochroneJSON struct {
	Geometry      json.RawMessage `json:"geometry"`
	RangeKm       float64         `json:"range_km"`
	CenterAddress string          `json:"center_address"`
}

// MarshalJSON implements json.Marshaler.
func (ip IsochronePolygon) MarshalJSON() ([]byte, error) {
	g, err := geojson.Marshal(ip.Geometry)
	if err != nil {
		return nil, err
	}
	return json.Marshal(isochroneJSON{
		Geometry:      g,
		RangeKm:       ip.RangeKm,
		CenterAddress: ip.CenterAddress,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (ip *IsochronePolygon) UnmarshalJSON(data []byte) error {
	var raw isochroneJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var g geom.T
	if err := geojson.Unmarshal(raw.Geometry, &g); err != nil {
		return err
	}
	poly, ok := g.(*geom.Polygon)
	if !ok {
		return fmt.Errorf("model: isochrone geometry is %T, want *geom.Polygon", g)
	}
	ip.Geometry = poly
	ip.RangeKm = raw.RangeKm
	ip.CenterAddress = raw.CenterAddress
	return nil
}
