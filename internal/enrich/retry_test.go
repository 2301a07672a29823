package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"chronicle/internal/services"
)

func TestPolicyBackoff(t *testing.T) {
	p := Policy{BaseDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, time.Second},
		{3, 2 * time.Second},
		{5, 8 * time.Second},
		{9, 8 * time.Second},
	}
	for _, tc := range cases {
		if got := p.Backoff(tc.attempt, nil); got != tc.want {
			t.Fatalf("Backoff(%d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}

	hinted := &services.HTTPStatusError{StatusCode: 429, Wait: 20 * time.Second}
	if got := p.Backoff(1, hinted); got != 20*time.Second {
		t.Fatalf("expected Retry-After to win, got %s", got)
	}
	hinted.Wait = 10 * time.Minute
	if got := p.Backoff(1, hinted); got != maxRetryAfter {
		t.Fatalf("expected Retry-After capped at %s, got %s", maxRetryAfter, got)
	}
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	_, attempts, err := withRetry(context.Background(), Policy{Attempts: 5}, noSleep, func(context.Context) (int, error) {
		calls++
		return 0, services.Wrap(services.ErrValidation, "test", "call", "bad payload", nil)
	})
	if err == nil || calls != 1 || attempts != 1 {
		t.Fatalf("expected a single attempt, got calls=%d attempts=%d err=%v", calls, attempts, err)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	var waits []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	p := Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
	_, attempts, err := withRetry(context.Background(), p, sleep, func(context.Context) (string, error) {
		return "", services.Wrap(services.ErrTransient, "test", "call", "503", nil)
	})
	if !errors.Is(err, services.ErrTransient) || attempts != 3 {
		t.Fatalf("expected 3 transient attempts, got %d: %v", attempts, err)
	}
	if len(waits) != 2 || waits[0] != time.Millisecond || waits[1] != 2*time.Millisecond {
		t.Fatalf("unexpected waits: %v", waits)
	}
}

func TestWithRetryWrapsAttemptTimeout(t *testing.T) {
	p := Policy{Attempts: 2, CallTimeout: 10 * time.Millisecond}
	calls := 0
	value, attempts, err := withRetry(context.Background(), p, noSleep, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "ok", nil
	})
	if err != nil || value != "ok" || attempts != 2 {
		t.Fatalf("expected recovery after timeout, got %q attempts=%d err=%v", value, attempts, err)
	}

	_, _, err = withRetry(context.Background(), Policy{Attempts: 1, CallTimeout: 10 * time.Millisecond}, noSleep, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
}

func TestWithRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, _, err := withRetry(ctx, Policy{Attempts: 5}, noSleep, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, services.Wrap(services.ErrTransient, "test", "call", "flaky", nil)
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected no retry after cancellation, got calls=%d err=%v", calls, err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Class
	}{
		{nil, ClassNone},
		{errors.New("network"), ClassSoft},
		{services.Wrap(services.ErrTimeout, "x", "y", "", nil), ClassSoft},
		{clipUnreadable("audio file %s not found", "a.webm"), ClassSkip},
		{services.Wrap(services.ErrFatal, "enrich", "checkpoint", "", errors.New("disk")), ClassFatal},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}
