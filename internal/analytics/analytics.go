// Package analytics segments route results into distance and duration
// buckets and writes the audit narrative. Pure computation over the run
// state: no network, no state.
package analytics

import (
	"fmt"
	"math"

	"github.com/cavena/mobility-cli/internal/model"
)

// EBikeDurationFactor models electric assistance: trip durations shrink
// by 25% in the e-bike projection.
const EBikeDurationFactor = 0.75

var (
	distanceEdges  = []float64{2, 5, 10}
	distanceLabels = []string{"0-2 km", "2-5 km", "5-10 km", "10+ km"}

	durationEdges  = []float64{10, 15, 20}
	durationLabels = []string{"0-10 min", "10-15 min", "15-20 min", "20+ min"}
)

// Bucket is one segment of a distribution with its share of the total.
type Bucket struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Distribution segments the successful routes of a run. Total counts
// only routes that actually computed; failed trips carry no distance.
type Distribution struct {
	Buckets []Bucket `json:"buckets"`
	Total   int      `json:"total"`
}

// Report is the full analytics block attached to exports.
type Report struct {
	Distance          Distribution `json:"distance"`
	Duration          Distribution `json:"duration"`
	EBikeDuration     Distribution `json:"ebike_duration"`
	DistanceNarrative string       `json:"distance_narrative"`
	EBikeNarrative    string       `json:"ebike_narrative"`
}

// BuildReport computes every distribution and narrative for a route batch.
func BuildReport(routes []model.RouteResult) Report {
	dist := DistanceDistribution(routes)
	dur := DurationDistribution(routes, false)
	ebike := DurationDistribution(routes, true)
	return Report{
		Distance:          dist,
		Duration:          dur,
		EBikeDuration:     ebike,
		DistanceNarrative: DistanceNarrative(dist),
		EBikeNarrative:    EBikeNarrative(ebike),
	}
}

// DistanceDistribution buckets successful routes by commute distance.
func DistanceDistribution(routes []model.RouteResult) Distribution {
	var values []float64
	for _, r := range routes {
		if r.Status != model.RouteSuccess {
			continue
		}
		values = append(values, r.DistanceKm)
	}
	return distribute(values, distanceEdges, distanceLabels)
}

// DurationDistribution buckets successful routes by commute duration.
// With eBike set, durations are scaled by EBikeDurationFactor first.
func DurationDistribution(routes []model.RouteResult, eBike bool) Distribution {
	var values []float64
	for _, r := range routes {
		if r.Status != model.RouteSuccess {
			continue
		}
		d := float64(r.DurationMin)
		if eBike {
			d *= EBikeDurationFactor
		}
		values = append(values, d)
	}
	return distribute(values, durationEdges, durationLabels)
}

// distribute assigns each value to the first bucket whose upper edge it
// does not exceed; values beyond the last edge land in the final bucket.
func distribute(values []float64, edges []float64, labels []string) Distribution {
	counts := make([]int, len(labels))
	for _, v := range values {
		idx := len(edges)
		for i, edge := range edges {
			if v <= edge {
				idx = i
				break
			}
		}
		counts[idx]++
	}

	total := len(values)
	buckets := make([]Bucket, len(labels))
	for i, label := range labels {
		pct := 0.0
		if total > 0 {
			pct = float64(counts[i]) / float64(total) * 100
		}
		buckets[i] = Bucket{Label: label, Count: counts[i], Percent: pct}
	}
	return Distribution{Buckets: buckets, Total: total}
}

// ShareUnder sums the percentage of the first n buckets.
func (d Distribution) ShareUnder(n int) float64 {
	var sum float64
	for i := 0; i < n && i < len(d.Buckets); i++ {
		sum += d.Buckets[i].Percent
	}
	return sum
}

// CountUnder converts a percentage share of the first n buckets back to a
// headcount.
func (d Distribution) CountUnder(n int) int {
	return int(math.Round(d.ShareUnder(n) / 100 * float64(d.Total)))
}

// DistanceNarrative writes the geographic analysis paragraph. The
// proximity sentence depends on the under-5 km share (30% and 15%
// thresholds), the urban-perimeter sentence on the under-10 km share
// (40% threshold).
func DistanceNarrative(d Distribution) string {
	under5 := d.ShareUnder(2)
	under10 := d.ShareUnder(3)
	countUnder5 := d.CountUnder(2)

	text := fmt.Sprintf("Analyse de la répartition géographique : %.1f%% des effectifs résident à moins de 5 km du site. ", under5)

	switch {
	case under5 > 30:
		text += fmt.Sprintf("Ceci représente un gisement très important pour le report modal vers le vélo : environ %d collaborateurs pourraient abandonner la voiture individuelle au profit de la mobilité active.", countUnder5)
	case under5 > 15:
		text += "Un potentiel modéré mais existant pour la mobilité douce de proximité ; des actions de sensibilisation ciblées pourraient favoriser le passage au vélo."
	default:
		text += "L'éloignement géographique est marqué sur la très courte distance : la majorité des collaborateurs habitent au-delà du périmètre de marche ou de vélo classique."
	}

	text += "\n\n"
	if under10 > 40 {
		text += "En milieu urbain, ce sont des distances où le vélo est souvent plus compétitif que la voiture en temps de trajet réel, particulièrement avec l'assistance électrique."
	} else {
		text += "Au-delà de 10 km, le covoiturage ou les transports en commun deviennent des options stratégiques plus pertinentes pour compléter l'offre vélo."
	}
	return text
}

// EBikeNarrative writes the e-bike projection paragraph from the scaled
// duration distribution.
func EBikeNarrative(eBike Distribution) string {
	countUnder20 := eBike.CountUnder(3)
	return fmt.Sprintf("L'impact du vélo électrique sur l'accessibilité est significatif : l'assistance électrique permettrait à %d employés de se rendre au travail en moins de 20 minutes, un seuil de basculement réaliste pour un changement d'habitude durable.", countUnder20)
}
