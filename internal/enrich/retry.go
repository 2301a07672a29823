package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chronicle/internal/config"
	"chronicle/internal/services"
)

// maxRetryAfter bounds how long a server supplied Retry-After may hold a worker.
const maxRetryAfter = time.Minute

// Policy bounds analyzer calls.
type Policy struct {
	Attempts    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	CallTimeout time.Duration
}

// PolicyFromConfig reads the retry settings from the analysis section.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		Attempts:    cfg.Analysis.RetryAttempts,
		BaseDelay:   cfg.RetryBaseDelay(),
		MaxDelay:    cfg.RetryMaxDelay(),
		CallTimeout: cfg.CallTimeout(),
	}
}

// Backoff returns the wait before attempt+1. Exponential from BaseDelay,
// capped at MaxDelay; a longer Retry-After hint on err wins, up to a minute.
func (p Policy) Backoff(attempt int, err error) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.BaseDelay
	for i := 1; i < attempt && delay < p.MaxDelay; i++ {
		delay *= 2
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if hint, ok := services.RetryAfter(err); ok && hint > delay {
		delay = hint
		if delay > maxRetryAfter {
			delay = maxRetryAfter
		}
	}
	return delay
}

type sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// withRetry runs fn under the policy. Each attempt gets its own timeout; an
// attempt that runs out of time is a retryable timeout. Errors that are not
// retryable end the loop immediately. It returns the number of attempts made.
func withRetry[T any](ctx context.Context, p Policy, sleep sleeper, fn func(context.Context) (T, error)) (T, int, error) {
	var zero T
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if p.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, p.CallTimeout)
		}
		value, err := fn(callCtx)
		timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
		cancel()
		if err == nil {
			return value, attempt, nil
		}
		if timedOut && !errors.Is(err, services.ErrTimeout) {
			err = services.Wrap(services.ErrTimeout, "enrich", "analyzer call", fmt.Sprintf("no response within %s", p.CallTimeout), err)
		}
		lastErr = err
		if ctx.Err() != nil || attempt == attempts || !services.Retryable(err) {
			return zero, attempt, lastErr
		}
		if sleepErr := sleep(ctx, p.Backoff(attempt, err)); sleepErr != nil {
			return zero, attempt, lastErr
		}
	}
	return zero, attempts, lastErr
}
