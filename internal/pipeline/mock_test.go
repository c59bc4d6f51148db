package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/twpayne/go-geom"

	"github.com/cavena/mobility-cli/internal/config"
	"github.com/cavena/mobility-cli/internal/model"
	"github.com/cavena/mobility-cli/pkg/geocode"
	"github.com/cavena/mobility-cli/pkg/ors"
)

// fakeResolver serves geocodes from a fixed table. Addresses missing
// from the table fail with ErrExhausted.
type fakeResolver struct {
	points map[string]model.GeoPoint
	calls  map[string]int
}

func newFakeResolver(points map[string]model.GeoPoint) *fakeResolver {
	return &fakeResolver{points: points, calls: make(map[string]int)}
}

func (f *fakeResolver) Resolve(_ context.Context, address string) (model.GeoPoint, error) {
	f.calls[address]++
	p, ok := f.points[address]
	if !ok {
		return model.GeoPoint{}, geocode.ErrExhausted
	}
	return p, nil
}

func (f *fakeResolver) Stats() geocode.Stats {
	return geocode.Stats{ByProvider: map[string]geocode.Tally{}}
}

type routerFunc func(ctx context.Context, origin, destination model.GeoPoint, radiusMeters float64) (ors.Route, error)

func (f routerFunc) Directions(ctx context.Context, origin, destination model.GeoPoint, radiusMeters float64) (ors.Route, error) {
	return f(ctx, origin, destination, radiusMeters)
}

type isochronerFunc func(ctx context.Context, center model.GeoPoint, rangeKm, smoothing float64) (*geom.Polygon, error)

func (f isochronerFunc) Isochrone(ctx context.Context, center model.GeoPoint, rangeKm, smoothing float64) (*geom.Polygon, error) {
	return f(ctx, center, rangeKm, smoothing)
}

// fakeRenderer records how many times the map stage invoked it.
type fakeRenderer struct {
	renders atomic.Int32
	lastLen int
}

func (f *fakeRenderer) Render(_ context.Context, state *model.RunState) error {
	f.renders.Add(1)
	f.lastLen = len(state.Routes)
	return nil
}

// squarePolygon builds a small closed ring for isochrone fakes.
func squarePolygon() *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		4.8, 45.7, 4.9, 45.7, 4.9, 45.8, 4.8, 45.8, 4.8, 45.7,
	}, []int{10})
}

// testConfig returns defaults with pacing and retries collapsed so batch
// tests run instantly.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Routing.PacingMs = 0
	cfg.Isochrone.PacingMs = 0
	cfg.Isochrone.MaxAttempts = 1
	return cfg
}
