package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cavena/mobility-cli/internal/model"
)

// employerGroup tracks one workplace address: its resolved coordinate,
// the letter assigned on first successful resolution, and how many
// employees have been attached so far.
type employerGroup struct {
	point  model.GeoPoint
	letter string
	count  int
}

// geocodeBatch resolves both endpoints of every address pair, in input
// order. A pair survives only if both endpoints resolve; an unresolvable
// address drops exactly the pairs that depend on it. Employers are
// grouped by address with sequential letters, and employees get ordinal
// ids within their group ("employé a1", "employé a2", "employé b1"...).
func (o *Orchestrator) geocodeBatch(ctx context.Context, pairs []model.AddressPair) ([]model.GeocodedTrip, error) {
	log := zap.L()
	groups := make(map[string]*employerGroup)
	nextGroup := 0

	trips := make([]model.GeocodedTrip, 0, len(pairs))
	for i, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return trips, err
		}

		start, err := o.resolver.Resolve(ctx, pair.EmployeeAddress)
		if err != nil {
			log.Warn("pipeline: employee address not resolved, dropping pair",
				zap.Int("row", i+1),
				zap.String("address", pair.EmployeeAddress),
				zap.Error(err))
			continue
		}

		grp, ok := groups[pair.EmployerAddress]
		if !ok {
			// The resolver caches failures too, so a bad employer address
			// costs one network round trip no matter how many pairs share it.
			end, err := o.resolver.Resolve(ctx, pair.EmployerAddress)
			if err != nil {
				log.Warn("pipeline: employer address not resolved, dropping pair",
					zap.Int("row", i+1),
					zap.String("address", pair.EmployerAddress),
					zap.Error(err))
				continue
			}
			grp = &employerGroup{point: end, letter: groupLetter(nextGroup)}
			nextGroup++
			groups[pair.EmployerAddress] = grp
		}

		grp.count++
		trips = append(trips, model.GeocodedTrip{
			ID:              fmt.Sprintf("employé %s%d", grp.letter, grp.count),
			StartPoint:      start,
			EndPoint:        grp.point,
			EmployeeAddress: pair.EmployeeAddress,
			EmployerAddress: pair.EmployerAddress,
		})
		log.Debug("pipeline: pair geocoded",
			zap.Int("done", len(trips)),
			zap.Int("total", len(pairs)))
	}
	return trips, nil
}

// groupLetter maps a group index to its label: a..z, then aa, ab...
func groupLetter(n int) string {
	var out []byte
	for {
		out = append([]byte{byte('a' + n%26)}, out...)
		n = n/26 - 1
		if n < 0 {
			return string(out)
		}
	}
}
