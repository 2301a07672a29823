package enrich

import (
	"encoding/json"
	"sort"

	"chronicle/internal/analysis"
	"chronicle/internal/textutil"
	"chronicle/internal/trip"
	"chronicle/internal/voiceref"
)

// Summary is the batch report. It is computed from the final annotations,
// never from counters updated while clips were running.
type Summary struct {
	Clips     int
	Attempted int
	Enriched  int
	Degraded  int
	Skipped   int
	// Pending counts clips without a result, e.g. after an interrupt.
	Pending int

	AudioTypes  map[string]int
	Utterances  int
	AudioEvents int

	StoryBeatLinked  int
	StoryBeatStarred int
	StoryBeatMisses  int

	// VoiceMatched counts analyzed clips whose transcript names at least one
	// traveler with a voice reference; VoiceUnmatched counts the rest.
	VoiceMatched   int
	VoiceUnmatched int
}

// AudioTypeNames returns the audio types present, in canonical order.
func (s Summary) AudioTypeNames() []string {
	names := make([]string, 0, len(s.AudioTypes))
	for _, name := range analysis.AudioTypes {
		if s.AudioTypes[name] > 0 {
			names = append(names, name)
		}
	}
	extra := make([]string, 0)
	for name := range s.AudioTypes {
		if !analysis.ValidAudioType(name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// Summarize reduces the annotations of a document into a Summary.
func Summarize(doc *trip.Document, annotations map[string]trip.Annotation, refs *voiceref.Set) Summary {
	summary := Summary{AudioTypes: map[string]int{}}
	if doc == nil {
		return summary
	}
	refNames := refs.Names()
	summary.Clips = len(doc.Clips)

	for _, clip := range doc.Clips {
		if id, linked := clip.LinkedStoryBeatID(); linked {
			if _, ok := doc.StoryBeat(id); !ok {
				summary.StoryBeatMisses++
			}
		}

		note, ok := annotations[clip.ID]
		if !ok {
			summary.Pending++
			continue
		}
		summary.Attempted++
		switch note.Status {
		case trip.StatusEnriched:
			summary.Enriched++
		case trip.StatusDegraded:
			summary.Degraded++
		case trip.StatusSkipped:
			summary.Skipped++
		}
		if note.StoryBeat != nil {
			summary.StoryBeatLinked++
			if note.StoryBeat.Starred {
				summary.StoryBeatStarred++
			}
		}
		if note.Status == trip.StatusSkipped {
			continue
		}

		var record analysis.Analysis
		if err := json.Unmarshal(note.Analysis, &record); err != nil {
			continue
		}
		if record.AudioType != nil {
			summary.AudioTypes[*record.AudioType]++
		}
		summary.Utterances += len(record.Transcript)
		summary.AudioEvents += len(record.AudioEvents)
		if namesReferencedSpeaker(record.Transcript, refNames) {
			summary.VoiceMatched++
		} else {
			summary.VoiceUnmatched++
		}
	}
	return summary
}

func namesReferencedSpeaker(lines []analysis.Utterance, refNames []string) bool {
	for _, line := range lines {
		for _, name := range refNames {
			if textutil.SameName(line.Speaker, name) {
				return true
			}
		}
	}
	return false
}
