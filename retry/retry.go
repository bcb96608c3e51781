// Package retry implements the bounded retry policy shared by the upstream
// fetch orchestrator and the client-side widget watcher. Classification of
// failures into retryable vs terminal comes from the errors package; this
// package only decides when to try again and how long to wait.
package retry

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"weatherwidget.app/errors"
)

// Policy controls the retry loop. Attempt n (1-based) waits
// BaseDelay * 2^(n-1) plus up to MaxJitter of random noise before attempt
// n+1.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration
}

// DefaultPolicy matches the sanitized configuration defaults: three attempts,
// one second base delay, up to one second of jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxJitter:   time.Second,
	}
}

// Backoff returns the delay to wait after the given 1-based attempt.
func (p Policy) Backoff(attempt int) time.Duration {
	delay := p.BaseDelay << (attempt - 1)
	if p.MaxJitter > 0 {
		delay += time.Duration(rand.Int64N(int64(p.MaxJitter)))
	}
	return delay
}

// Do runs op up to p.MaxAttempts times. Terminal failures (per
// errors.IsRetryable) stop the loop immediately without consuming remaining
// attempts. Context cancellation aborts the backoff wait. When every attempt
// fails with a retryable error, the last error is returned; callers decide
// how exhaustion surfaces.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		if !errors.IsRetryable(err) {
			return zero, err
		}

		lastErr = err
		if attempt == p.MaxAttempts {
			break
		}

		delay := p.Backoff(attempt)
		slog.Warn("retryable failure, backing off",
			"attempt", attempt, "max_attempts", p.MaxAttempts, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}
