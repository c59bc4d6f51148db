package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/cavena/mobility-cli/internal/model"
)

// routeBatch computes one cycling route per trip, sequentially and in
// input order. Failures are terminal for the trip: the result keeps its
// slot with an error status and the batch moves on. Only a canceled
// context aborts the batch.
func (o *Orchestrator) routeBatch(ctx context.Context, trips []model.GeocodedTrip) ([]model.RouteResult, error) {
	log := zap.L()
	radius := float64(o.cfg.Routing.RadiusMeters)

	results := make([]model.RouteResult, 0, len(trips))
	for i, trip := range trips {
		if err := o.routePacer.Wait(ctx); err != nil {
			return results, err
		}

		res := model.RouteResult{GeocodedTrip: trip}
		route, err := o.router.Directions(ctx, trip.StartPoint, trip.EndPoint, radius)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			res.Status = model.RouteError
			res.Error = err.Error()
			log.Warn("pipeline: route failed",
				zap.String("trip", trip.ID),
				zap.Error(err))
		} else {
			res.Status = model.RouteSuccess
			res.DistanceKm = route.DistanceKm
			res.DurationMin = route.DurationMin
			res.Polyline = route.Geometry
		}
		results = append(results, res)
		log.Debug("pipeline: route computed",
			zap.Int("done", i+1),
			zap.Int("total", len(trips)))
	}
	return results, nil
}
