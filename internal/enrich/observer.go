package enrich

import (
	"errors"
	"time"

	"chronicle/internal/services"
)

// Call outcomes reported to an Observer.
const (
	CallSucceeded = "success"
	CallFailed    = "failure"
	CallTimedOut  = "timeout"
)

// Observer receives per-call and per-clip events, typically for metrics.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveCall(analyzer, outcome string, attempts int, elapsed time.Duration)
	ObserveClip(status string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveCall(string, string, int, time.Duration) {}

func (nopObserver) ObserveClip(string, time.Duration) {}

func callOutcome(err error) string {
	switch {
	case err == nil:
		return CallSucceeded
	case errors.Is(err, services.ErrTimeout):
		return CallTimedOut
	default:
		return CallFailed
	}
}
