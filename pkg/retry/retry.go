// Package retry provides a generic exponential-backoff wrapper around
// fallible calls. It is independent of any particular collector: anything
// shaped func(ctx) (T, error) can be wrapped.
package retry

import (
	"context"
	"time"
)

// Policy controls retry behavior.
type Policy struct {
	// MaxRetries is how many extra attempts follow the first one.
	MaxRetries int

	// InitialDelay is the sleep before the second attempt.
	InitialDelay time.Duration

	// BackoffFactor multiplies the delay after each failed attempt.
	// Values below 1 are treated as 1 (constant delay).
	BackoffFactor float64
}

// DefaultPolicy matches the collectors' usual posture: two retries,
// half-second initial delay, doubling.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 2, InitialDelay: 500 * time.Millisecond, BackoffFactor: 2.0}
}

// Do runs fn until it succeeds or the policy is exhausted. The first
// attempt runs immediately; each subsequent attempt waits the current
// delay, which then grows by BackoffFactor. It returns the first
// successful value together with the number of attempts used, or the
// zero value and the last error after exhaustion. Only error returns
// are retried; a successful call returning an empty value is a result,
// not a failure. Context cancellation aborts the backoff sleep.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, int, error) {
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}

	var lastErr error
	delay := p.InitialDelay

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				var zero T
				return zero, attempt, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * factor)
		}

		v, err := fn(ctx)
		if err == nil {
			return v, attempt + 1, nil
		}
		lastErr = err
	}

	var zero T
	return zero, p.MaxRetries + 1, lastErr
}
