package resilience

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces consecutive external calls by a minimum interval. It exists
// so the pipeline loops do not hand-roll timed sleeps between requests:
// each batch loop calls Wait before its HTTP call and the limiter absorbs
// the arithmetic.
type Pacer interface {
	// Wait blocks until the next call may proceed or ctx is canceled.
	Wait(ctx context.Context) error
}

// intervalPacer enforces one call per interval with no burst, so the first
// call passes immediately and every later call is spaced by the interval.
type intervalPacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a Pacer with the given minimum interval between calls.
// A non-positive interval yields an unlimited pacer (used in tests).
func NewPacer(interval time.Duration) Pacer {
	if interval <= 0 {
		return intervalPacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return intervalPacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (p intervalPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
