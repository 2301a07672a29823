// Package logging assembles structured slog loggers and formatting helpers used
// across chronicle.
//
// It owns the console/JSON handlers and rotating file output, and exposes
// context-aware helpers so orchestrator code tags log lines with run IDs, clip
// IDs and analyzer names automatically. Warnings go through WarnWithContext so
// every one carries an event type, a hint and an impact.
package logging
