package fetch

import (
	"context"
	"math"
	"time"
)

// RetryConfig controls the automatic retry budget for posting fetches.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseWait is the wait before the first retry.
	BaseWait time.Duration
	// Factor multiplies the wait after each retry.
	Factor float64
}

// DefaultRetryConfig matches the fetch budget: 3 attempts total, exponential
// backoff from 500ms.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts: 3,
	BaseWait:    500 * time.Millisecond,
	Factor:      2.0,
}

// Retry runs fn up to MaxAttempts times with exponential backoff. It stops
// early on context cancellation and returns the last error otherwise.
func Retry[T any](ctx context.Context, rc RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	if rc.MaxAttempts < 1 {
		rc.MaxAttempts = 1
	}

	for attempt := 0; attempt < rc.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt < rc.MaxAttempts-1 {
			wait := time.Duration(float64(rc.BaseWait) * math.Pow(rc.Factor, float64(attempt)))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}
	return zero, lastErr
}
