package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"chronicle/internal/analysis"
	"chronicle/internal/enrich"
	"chronicle/internal/trip"
	"chronicle/internal/voiceref"
)

// renderPlan is the dry run report: what each clip would be analyzed with.
func renderPlan(doc *trip.Document, plans []enrich.PlannedClip, refs *voiceref.Set) string {
	var b strings.Builder
	title := doc.Trip.Name
	if title == "" {
		title = doc.Trip.ID
	}
	fmt.Fprintf(&b, "Dry run: %s (%d clips, %d travelers)\n", title, len(doc.Clips), len(doc.Trip.Travelers))
	if names := refs.Names(); len(names) > 0 {
		fmt.Fprintf(&b, "Voice references: %s\n", strings.Join(names, ", "))
	} else {
		fmt.Fprintln(&b, "Voice references: none (speaker ID may be less accurate)")
	}
	for _, warning := range refs.Warnings() {
		fmt.Fprintf(&b, "Warning: %s\n", warning)
	}
	for _, warning := range doc.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", warning)
	}

	rows := make([][]string, 0, len(plans))
	for _, plan := range plans {
		audio := plan.AudioPath
		if plan.AudioErr != nil {
			audio = "SKIP: " + plan.AudioErr.Error()
		} else if rel, ok := relativeTo(doc.Root, audio); ok {
			audio = rel
		}
		beat := truncate(plan.StoryBeat, 40)
		if plan.StoryBeatMissed {
			beat = "missing: " + plan.StoryBeat
		}
		rows = append(rows, []string{
			plan.ClipID,
			audio,
			strconv.Itoa(plan.Travelers),
			dash(plan.Location),
			dash(beat),
			strconv.Itoa(len(plan.VoiceReferences)),
		})
	}
	b.WriteString(renderTable([]column{
		{Title: "Clip"},
		{Title: "Audio", MaxWidth: 48},
		{Title: "Travelers", Numeric: true},
		{Title: "Location", MaxWidth: 32},
		{Title: "Story Beat", MaxWidth: 44},
		{Title: "Voice Refs", Numeric: true},
	}, rows))
	b.WriteString("\nNo analyzer calls made; nothing written.\n")
	return b.String()
}

// renderSummary prints the batch counts.
func renderSummary(summary enrich.Summary, colorize bool) string {
	rows := [][]string{
		{"Clips in input", strconv.Itoa(summary.Clips)},
		{"Attempted", strconv.Itoa(summary.Attempted)},
		{"Fully enriched", countCell(summary.Enriched, trip.StatusEnriched, colorize)},
		{"Degraded", countCell(summary.Degraded, trip.StatusDegraded, colorize)},
		{"Skipped", countCell(summary.Skipped, trip.StatusSkipped, colorize)},
	}
	if summary.Pending > 0 {
		rows = append(rows, []string{"Pending", strconv.Itoa(summary.Pending)})
	}
	for _, name := range summary.AudioTypeNames() {
		rows = append(rows, []string{"Audio type: " + name, strconv.Itoa(summary.AudioTypes[name])})
	}
	rows = append(rows,
		[]string{"Utterances", strconv.Itoa(summary.Utterances)},
		[]string{"Audio events", strconv.Itoa(summary.AudioEvents)},
		[]string{"Story beat links", fmt.Sprintf("%d (%d starred)", summary.StoryBeatLinked, summary.StoryBeatStarred)},
		[]string{"Story beat misses", strconv.Itoa(summary.StoryBeatMisses)},
		[]string{"Voice matched clips", strconv.Itoa(summary.VoiceMatched)},
		[]string{"Voice unmatched clips", strconv.Itoa(summary.VoiceUnmatched)},
	)

	var b strings.Builder
	for _, line := range renderSectionHeader("Summary", colorize) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(renderTable([]column{{Title: "Metric"}, {Title: "Count", Numeric: true}}, rows))
	b.WriteByte('\n')
	return b.String()
}

// countCell colours a per-status count; zero stays plain.
func countCell(count int, status string, colorize bool) string {
	value := strconv.Itoa(count)
	if count == 0 {
		return value
	}
	return paint(value, clipStatusTone(status), colorize)
}

// renderTranscripts lists each clip's transcript as "[MM:SS] Speaker: text".
func renderTranscripts(doc *trip.Document, annotations map[string]trip.Annotation) string {
	var b strings.Builder
	for _, clip := range doc.Clips {
		note, ok := annotations[clip.ID]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n%s [%s]\n", clip.ID, note.Status)
		var parsed analysis.Analysis
		if len(note.Analysis) == 0 || string(note.Analysis) == "null" || json.Unmarshal(note.Analysis, &parsed) != nil {
			fmt.Fprintln(&b, "  (no analysis)")
			continue
		}
		if parsed.SceneDescription != nil {
			fmt.Fprintf(&b, "  Scene: %s\n", *parsed.SceneDescription)
		}
		if len(parsed.Transcript) == 0 {
			fmt.Fprintln(&b, "  (no speech)")
		}
		for _, line := range parsed.Transcript {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", line.Timestamp, line.Speaker, line.Text)
		}
	}
	return b.String()
}

func relativeTo(root, path string) (string, bool) {
	if root == "" {
		return "", false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func truncate(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-3]) + "..."
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
