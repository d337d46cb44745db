package rate

import "errors"

var (
	// ErrRateLimited reports that the fingerprint exhausted its budget for
	// the current window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRateUnavailable wraps Redis failures while counting.
	ErrRateUnavailable = errors.New("rate limiter unavailable")
)
