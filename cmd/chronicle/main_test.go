package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"chronicle/internal/services"
	"chronicle/internal/watch"
)

func TestExitCodeClassifiesErrors(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"success":       {nil, exitOK},
		"interrupted":   {fmt.Errorf("process: %w", context.Canceled), exitInterrupted},
		"watcher busy":  {fmt.Errorf("watch: %w", watch.ErrAlreadyRunning), exitBusy},
		"configuration": {services.Wrap(services.ErrConfiguration, "cli", "load config", "chronicle.toml", errors.New("bad toml")), exitConfig},
		"bad archive":   {services.Wrap(services.ErrValidation, "archive", "extract", "trip.zip", nil), exitInput},
		"missing input": {services.Wrap(services.ErrNotFound, "cli", "open", "trip.zip", nil), exitInput},
		"other":         {errors.New("disk full"), exitFailure},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.want {
				t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestRunReportsUnknownCommand(t *testing.T) {
	var stderr bytes.Buffer
	if code := run([]string{"bogus"}, &stderr); code != exitFailure {
		t.Fatalf("expected exit %d, got %d", exitFailure, code)
	}
	if !strings.Contains(stderr.String(), "bogus") {
		t.Fatalf("expected error on stderr, got %q", stderr.String())
	}
}
