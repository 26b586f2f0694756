// Package retry provides a bounded retry loop with pluggable backoff.
package retry

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Backoff returns the delay to wait after the given failed attempt (0-indexed).
type Backoff func(attempt int) time.Duration

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy holds retry configuration. The zero value makes a single attempt.
type Policy struct {
	MaxRetries int
	Backoff    Backoff
	Sleep      Sleeper
}

// Fixed waits the same delay between every attempt.
func Fixed(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// Exponential doubles base after every attempt, capped at max.
func Exponential(base, max time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := base << attempt
		if d <= 0 || d > max {
			return max
		}
		return d
	}
}

// SleepContext is the real-time Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do calls fn up to MaxRetries+1 times. fn receives the attempt number
// (0-indexed). A cancelled context stops the loop with the context error.
func Do(ctx context.Context, p Policy, fn func(attempt int) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == p.MaxRetries {
			break
		}
		var d time.Duration
		if p.Backoff != nil {
			d = p.Backoff(attempt)
		}
		if err := sleep(ctx, d); err != nil {
			return err
		}
	}
	return errors.Wrapf(lastErr, "failed after %d retries", p.MaxRetries)
}

// DoWithResult is Do for functions that produce a value.
func DoWithResult[T any](ctx context.Context, p Policy, fn func(attempt int) (T, error)) (T, error) {
	var result T
	err := Do(ctx, p, func(attempt int) error {
		r, err := fn(attempt)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}
