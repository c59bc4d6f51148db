package ors

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/cavena/mobility-cli/internal/model"
)

// Route is one computed cycling itinerary.
type Route struct {
	// DistanceKm is rounded to two decimals.
	DistanceKm float64
	// DurationMin is rounded to whole minutes.
	DurationMin int
	// Geometry is the precision-5 encoded polyline of the path.
	Geometry string
}

type directionsRequest struct {
	Coordinates  [][2]float64 `json:"coordinates"`
	Radiuses     []float64    `json:"radiuses"`
	Format       string       `json:"format"`
	Instructions bool         `json:"instructions"`
	Geometry     bool         `json:"geometry"`
	Elevation    bool         `json:"elevation"`
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"` // meters
			Duration float64 `json:"duration"` // seconds
		} `json:"summary"`
		Geometry string `json:"geometry"`
	} `json:"routes"`
}

// Directions computes a single cycling route between two points. The
// search radius (meters) tolerates minor geocoding imprecision around
// both endpoints. ORS expects coordinates in lon,lat order.
func (c *Client) Directions(ctx context.Context, origin, destination model.GeoPoint, radiusMeters float64) (Route, error) {
	payload := directionsRequest{
		Coordinates: [][2]float64{
			{origin.Lon, origin.Lat},
			{destination.Lon, destination.Lat},
		},
		Radiuses:     []float64{radiusMeters, radiusMeters},
		Format:       "json",
		Instructions: false,
		Geometry:     true,
		Elevation:    false,
	}

	var resp directionsResponse
	if err := c.postJSON(ctx, "/v2/directions/"+c.profile, payload, &resp); err != nil {
		return Route{}, err
	}
	if len(resp.Routes) == 0 {
		return Route{}, eris.New("ors: no route found")
	}

	summary := resp.Routes[0].Summary
	return Route{
		DistanceKm:  math.Round(summary.Distance/10) / 100,
		DurationMin: int(math.Round(summary.Duration / 60)),
		Geometry:    resp.Routes[0].Geometry,
	}, nil
}
