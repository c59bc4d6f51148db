package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior. The backoff grows linearly:
// attempt n sleeps Backoff × n before retrying, matching the pacing the
// upstream geocoding services tolerate.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first
	// call. 1 disables retries. Default: 3.
	MaxAttempts int

	// Backoff is the base delay unit. The sleep before retry n is
	// Backoff × n. Default: 1500ms.
	Backoff time.Duration

	// ShouldRetry overrides the transient-error check. Nil means
	// IsTransient.
	ShouldRetry func(err error) bool

	// OnRetry is invoked before each retry sleep.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig returns the retry policy used for geocoding calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Backoff:     1500 * time.Millisecond,
	}
}

// DoVal runs fn until it succeeds, a non-retryable error occurs, attempts
// are exhausted, or the context is canceled. The value of the successful
// call is returned.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 1500 * time.Millisecond
	}
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(err) || attempt == cfg.MaxAttempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		if err := sleep(ctx, cfg.Backoff*time.Duration(attempt)); err != nil {
			break
		}
	}
	return zero, lastErr
}

// Do is DoVal for functions without a return value.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryLogger returns an OnRetry callback logging each attempt for one
// service operation.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
