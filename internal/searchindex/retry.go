package searchindex

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultMaxAttempts bounds retries of rate-limited writes.
	DefaultMaxAttempts = 5

	// DefaultRetryBase is the first backoff delay; it doubles per attempt.
	DefaultRetryBase = 250 * time.Millisecond
)

// WithRetry runs op, retrying with exponential backoff while it fails
// with ErrRateLimited. Any other error, including ErrRejected, returns
// immediately.
func WithRetry(ctx context.Context, maxAttempts int, base time.Duration, op func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if base <= 0 {
		base = DefaultRetryBase
	}

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(base << (attempt - 1)):
			}
		}

		err = op()
		if err == nil || !errors.Is(err, ErrRateLimited) {
			return err
		}
	}
	return err
}
