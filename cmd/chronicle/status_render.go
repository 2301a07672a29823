package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"chronicle/internal/checkpoint"
	"chronicle/internal/trip"
)

// tone is how a status reads at a glance.
type tone int

const (
	toneInfo tone = iota
	toneGood
	toneWarn
	toneBad
)

func (t tone) label() string {
	switch t {
	case toneGood:
		return "OK"
	case toneWarn:
		return "WARN"
	case toneBad:
		return "FAIL"
	default:
		return "INFO"
	}
}

func (t tone) colors() text.Colors {
	switch t {
	case toneGood:
		return text.Colors{text.FgGreen}
	case toneWarn:
		return text.Colors{text.FgYellow}
	case toneBad:
		return text.Colors{text.FgRed}
	default:
		return text.Colors{text.FgBlue}
	}
}

// clipStatusTone maps an analysisStatus value.
func clipStatusTone(status string) tone {
	switch status {
	case trip.StatusEnriched:
		return toneGood
	case trip.StatusDegraded:
		return toneWarn
	case trip.StatusSkipped:
		return toneBad
	default:
		return toneInfo
	}
}

// runStateTone maps a checkpoint run state. An active run is resumable work
// left behind, so it is flagged.
func runStateTone(state string) tone {
	switch state {
	case checkpoint.RunArchived:
		return toneGood
	case checkpoint.RunActive:
		return toneWarn
	default:
		return toneInfo
	}
}

func paint(value string, t tone, colorize bool) string {
	if !colorize || value == "" {
		return value
	}
	return t.colors().EscapeSeq() + value + text.Reset.EscapeSeq()
}

const statusLabelWidth = 22

func renderStatusLine(label string, t tone, message string, colorize bool) string {
	badge := "[" + t.label() + "]"
	if message = strings.TrimSpace(message); message != "" {
		badge += " " + message
	}
	return paint(fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", badge), t, colorize)
}

func renderSectionHeader(title string, colorize bool) []string {
	line := "== " + strings.TrimSpace(title) + " =="
	rule := strings.Repeat("-", len(line))
	return []string{paint(line, toneInfo, colorize), paint(rule, toneInfo, colorize)}
}

// shouldColorize is true for terminals unless NO_COLOR is set.
func shouldColorize(writer io.Writer) bool {
	if _, off := os.LookupEnv("NO_COLOR"); off {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
