package pipeline

import (
	"context"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/cavena/mobility-cli/internal/model"
	"github.com/cavena/mobility-cli/internal/resilience"
)

// isoDestination is one deduplicated workplace coordinate.
type isoDestination struct {
	point   model.GeoPoint
	address string
}

// isochroneBatch generates reachability polygons around each distinct
// workplace coordinate, one request per coordinate and distance
// threshold. Coordinates are deduplicated in first-occurrence order so
// shared employers cost a single set of requests. Failed polygons are
// logged and dropped; the map simply shows fewer rings.
func (o *Orchestrator) isochroneBatch(ctx context.Context, trips []model.GeocodedTrip) ([]model.IsochronePolygon, error) {
	log := zap.L()

	seen := make(map[string]bool)
	var dests []isoDestination
	for _, trip := range trips {
		key := trip.EndPoint.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		dests = append(dests, isoDestination{point: trip.EndPoint, address: trip.EmployerAddress})
	}

	retry := resilience.RetryConfig{
		MaxAttempts: o.cfg.Isochrone.MaxAttempts,
		OnRetry:     resilience.RetryLogger("ors", "isochrone"),
	}
	smoothing := o.cfg.Isochrone.Smoothing

	var polygons []model.IsochronePolygon
	for _, dest := range dests {
		for _, km := range o.cfg.Isochrone.ThresholdsKm {
			rangeKm := km
			poly, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*geom.Polygon, error) {
				if err := o.isoPacer.Wait(ctx); err != nil {
					return nil, err
				}
				return o.isochroner.Isochrone(ctx, dest.point, rangeKm, smoothing)
			})
			if err != nil {
				if ctx.Err() != nil {
					return polygons, ctx.Err()
				}
				log.Warn("pipeline: isochrone failed, dropping polygon",
					zap.String("center", dest.address),
					zap.Float64("range_km", rangeKm),
					zap.Error(err))
				continue
			}
			polygons = append(polygons, model.IsochronePolygon{
				Geometry:      poly,
				RangeKm:       rangeKm,
				CenterAddress: dest.address,
			})
		}
		log.Debug("pipeline: isochrones generated",
			zap.String("center", dest.address),
			zap.Int("destinations", len(dests)))
	}
	return polygons, nil
}
