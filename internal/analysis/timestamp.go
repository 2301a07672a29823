package analysis

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"chronicle/internal/services"
)

// MaxTimestampSeconds bounds clip offsets; clips are short recordings.
const MaxTimestampSeconds = 24 * 60 * 60

// FormatTimestamp renders seconds as MM:SS, truncating fractions. Values
// outside [0, MaxTimestampSeconds] are clamped and NaN renders as 00:00.
func FormatTimestamp(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	if seconds > MaxTimestampSeconds {
		seconds = MaxTimestampSeconds
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// ParseTimestamp accepts SS, MM:SS or HH:MM:SS with optional fractional
// seconds and returns the offset in seconds.
func ParseTimestamp(value string) (float64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, services.Wrap(services.ErrValidation, "analysis", "parse timestamp", "empty timestamp", nil)
	}
	parts := strings.Split(trimmed, ":")
	if len(parts) > 3 {
		return 0, services.Wrap(services.ErrValidation, "analysis", "parse timestamp", fmt.Sprintf("%q", value), nil)
	}
	var total float64
	for i, part := range parts {
		last := i == len(parts)-1
		var (
			n   float64
			err error
		)
		if last {
			n, err = strconv.ParseFloat(part, 64)
		} else {
			var whole int
			whole, err = strconv.Atoi(part)
			n = float64(whole)
		}
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n < 0 || (i > 0 && n >= 60) {
			return 0, services.Wrap(services.ErrValidation, "analysis", "parse timestamp", fmt.Sprintf("%q", value), nil)
		}
		total = total*60 + n
	}
	if total > MaxTimestampSeconds {
		return 0, services.Wrap(services.ErrValidation, "analysis", "parse timestamp", fmt.Sprintf("%q exceeds 24h", value), nil)
	}
	return total, nil
}

// SortTranscript orders utterances by timestamp, keeping the provider order
// for equal timestamps. Timestamps must already be valid.
func SortTranscript(lines []Utterance) {
	sort.SliceStable(lines, func(i, j int) bool {
		return mustSeconds(lines[i].Timestamp) < mustSeconds(lines[j].Timestamp)
	})
}

// SortEvents orders audio events by timestamp, stable for ties.
func SortEvents(events []AudioEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return mustSeconds(events[i].Timestamp) < mustSeconds(events[j].Timestamp)
	})
}

// TranscriptSorted reports whether lines are in ascending timestamp order.
func TranscriptSorted(lines []Utterance) bool {
	return sort.SliceIsSorted(lines, func(i, j int) bool {
		return mustSeconds(lines[i].Timestamp) < mustSeconds(lines[j].Timestamp)
	})
}

// EventsSorted reports whether events are in ascending timestamp order.
func EventsSorted(events []AudioEvent) bool {
	return sort.SliceIsSorted(events, func(i, j int) bool {
		return mustSeconds(events[i].Timestamp) < mustSeconds(events[j].Timestamp)
	})
}

func mustSeconds(value string) float64 {
	seconds, err := ParseTimestamp(value)
	if err != nil {
		return 0
	}
	return seconds
}
