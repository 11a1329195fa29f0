package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy parameterizes a bounded retry loop: attempt count, backoff curve,
// and a predicate deciding which errors are worth another attempt.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Retryable   func(error) bool
	Sleep       func(time.Duration)
}

// Linear waits step*attempt between attempts.
func Linear(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// Capped waits step*attempt, capped at max.
func Capped(step, max time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		wait := time.Duration(attempt) * step
		if wait > max {
			return max
		}
		return wait
	}
}

// Do runs op until it succeeds, the error is not retryable, the attempt
// budget is exhausted, or the context is done. The wait after attempt n is
// Backoff(n).
func Do(ctx context.Context, p Policy, op func() error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}
		if p.Backoff != nil {
			sleep(p.Backoff(attempt))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return fmt.Errorf("gave up after %d attempts: %w", p.MaxAttempts, err)
}
