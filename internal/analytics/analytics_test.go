package analytics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cavena/mobility-cli/internal/model"
)

func ok(km float64, min int) model.RouteResult {
	return model.RouteResult{Status: model.RouteSuccess, DistanceKm: km, DurationMin: min}
}

func failed() model.RouteResult {
	return model.RouteResult{Status: model.RouteError, Error: "no route found"}
}

func TestDistanceDistribution_BucketEdges(t *testing.T) {
	routes := []model.RouteResult{
		ok(1.9, 8), ok(2.0, 9), // both 0-2 km, edge inclusive
		ok(2.01, 11), ok(5.0, 20),
		ok(7.5, 30),
		ok(12.0, 45),
	}
	d := DistanceDistribution(routes)

	require.Len(t, d.Buckets, 4)
	assert.Equal(t, 6, d.Total)
	assert.Equal(t, 2, d.Buckets[0].Count)
	assert.Equal(t, 2, d.Buckets[1].Count)
	assert.Equal(t, 1, d.Buckets[2].Count)
	assert.Equal(t, 1, d.Buckets[3].Count)
	assert.InDelta(t, 33.33, d.Buckets[0].Percent, 0.01)
}

func TestDistanceDistribution_IgnoresFailedRoutes(t *testing.T) {
	routes := []model.RouteResult{ok(1, 5), failed(), failed()}
	d := DistanceDistribution(routes)
	assert.Equal(t, 1, d.Total)
	assert.Equal(t, 1, d.Buckets[0].Count)
}

func TestDurationDistribution_EBikeFactorShiftsBuckets(t *testing.T) {
	// 16 min rides the 15-20 bucket normally but 12 min with assistance.
	routes := []model.RouteResult{ok(4, 16)}

	normal := DurationDistribution(routes, false)
	assert.Equal(t, 1, normal.Buckets[2].Count)

	ebike := DurationDistribution(routes, true)
	assert.Equal(t, 1, ebike.Buckets[1].Count)
	assert.Equal(t, 0, ebike.Buckets[2].Count)
}

func TestDistribution_EmptyInput(t *testing.T) {
	d := DistanceDistribution(nil)
	assert.Equal(t, 0, d.Total)
	for _, b := range d.Buckets {
		assert.Zero(t, b.Count)
		assert.Zero(t, b.Percent)
	}
}

func TestShareAndCountUnder(t *testing.T) {
	routes := []model.RouteResult{ok(1, 5), ok(3, 12), ok(8, 25), ok(15, 50)}
	d := DistanceDistribution(routes)
	assert.InDelta(t, 50.0, d.ShareUnder(2), 0.001)
	assert.InDelta(t, 75.0, d.ShareUnder(3), 0.001)
	assert.Equal(t, 2, d.CountUnder(2))
}

func TestDistanceNarrative_ThresholdSelection(t *testing.T) {
	tests := []struct {
		name   string
		routes []model.RouteResult
		want   string
	}{
		{
			name:   "high proximity share",
			routes: []model.RouteResult{ok(1, 5), ok(2, 8), ok(4, 14), ok(12, 40)},
			want:   "gisement très important",
		},
		{
			name:   "moderate proximity share",
			routes: []model.RouteResult{ok(3, 12), ok(8, 25), ok(11, 35), ok(14, 45), ok(16, 50)},
			want:   "potentiel modéré",
		},
		{
			name:   "low proximity share",
			routes: []model.RouteResult{ok(12, 40), ok(14, 45), ok(18, 55), ok(22, 70), ok(25, 80), ok(30, 90), ok(3, 12)},
			want:   "éloignement géographique",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceNarrative(DistanceDistribution(tt.routes))
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestDistanceNarrative_UrbanPerimeterSentence(t *testing.T) {
	urban := DistanceNarrative(DistanceDistribution([]model.RouteResult{
		ok(1, 5), ok(6, 20), ok(8, 25), ok(15, 50),
	}))
	assert.Contains(t, urban, "plus compétitif que la voiture")

	remote := DistanceNarrative(DistanceDistribution([]model.RouteResult{
		ok(15, 50), ok(20, 65), ok(25, 80), ok(3, 12),
	}))
	assert.Contains(t, remote, "covoiturage")
}

func TestEBikeNarrative_Headcount(t *testing.T) {
	// 24 min shrinks to 18 with assistance: under the 20 minute threshold.
	routes := []model.RouteResult{ok(5, 24), ok(6, 24), ok(20, 60)}
	got := EBikeNarrative(DurationDistribution(routes, true))
	assert.Contains(t, got, "2 employés")
}

func TestBuildReport(t *testing.T) {
	routes := []model.RouteResult{ok(1, 5), ok(4, 16), failed()}
	r := BuildReport(routes)
	assert.Equal(t, 2, r.Distance.Total)
	assert.Equal(t, 2, r.Duration.Total)
	assert.Equal(t, 2, r.EBikeDuration.Total)
	require.True(t, strings.HasPrefix(r.DistanceNarrative, "Analyse de la répartition géographique"))
	assert.NotEmpty(t, r.EBikeNarrative)
}
