// Package geocode resolves free-text addresses to coordinates using the
// BAN (api-adresse.data.gouv.fr) and Nominatim services with per-call
// retry, provider fallback, pacing, and per-run caching.
package geocode

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/cavena/mobility-cli/internal/model"
)

// ErrNoResult is the definitive "provider answered but found nothing"
// signal. It is never retried; the resolver falls through to the next
// provider immediately.
var ErrNoResult = eris.New("geocode: no result for address")

// Provider is a single geocoding backend.
type Provider interface {
	Name() string

	// Geocode resolves one address. It returns ErrNoResult for a
	// definitive miss and a resilience.TransientError for retryable
	// provider failures (429/5xx, timeouts).
	Geocode(ctx context.Context, address string) (model.GeoPoint, error)
}
