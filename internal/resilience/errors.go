// Package resilience provides retry and call-pacing primitives for the
// external geocoding, routing, and isochrone services.
package resilience

import (
	"errors"
	"net"
)

// TransientError marks a failure that is safe to retry against the same
// provider (HTTP 429, 5xx, network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as transient, recording the HTTP status when
// one is known (0 otherwise).
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient reports whether the error chain contains a TransientError or
// a network timeout. Definitive provider answers ("no result found") are
// plain errors and never transient, so they fall through to the fallback
// provider without retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsTransientHTTPStatus reports whether an HTTP status indicates a
// retryable server-side condition.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
