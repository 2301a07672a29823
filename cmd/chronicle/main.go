package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"chronicle/internal/services"
	"chronicle/internal/watch"
)

// Process exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitConfig      = 2
	exitInput       = 3
	exitBusy        = 4
	exitInterrupted = 130
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	err := cmd.Execute()
	code := exitCode(err)
	if err != nil && code != exitInterrupted {
		fmt.Fprintln(stderr, err)
	}
	return code
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, watch.ErrAlreadyRunning):
		return exitBusy
	case errors.Is(err, services.ErrConfiguration):
		return exitConfig
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrNotFound):
		return exitInput
	default:
		return exitFailure
	}
}
