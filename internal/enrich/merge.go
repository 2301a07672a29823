package enrich

import (
	"math"
	"sort"
	"strings"

	"chronicle/internal/analysis"
	"chronicle/internal/config"
	"chronicle/internal/textutil"
	"chronicle/internal/trip"
)

// attributionWindow is how far apart (in seconds) a speech utterance and a
// scene utterance may be and still describe the same line.
const attributionWindow = 2.0

// SpeechOutcome is the result of the Speech Analyzer call for one clip.
type SpeechOutcome struct {
	Ran        bool
	Transcript []analysis.Utterance
	Err        error
	Attempts   int
}

// OK reports whether the call ran and succeeded.
func (o SpeechOutcome) OK() bool { return o.Ran && o.Err == nil }

// SceneOutcome is the result of the Scene Analyzer call for one clip.
type SceneOutcome struct {
	Ran      bool
	Result   analysis.SceneResult
	Err      error
	Attempts int
}

// OK reports whether the call ran and succeeded.
func (o SceneOutcome) OK() bool { return o.Ran && o.Err == nil }

// MergePolicy selects which analyzer supplies the transcript.
type MergePolicy struct {
	TranscriptSource   string
	TranscriptFallback bool
	Travelers          []trip.Traveler
}

// Merge builds the Analysis record from the two call outcomes. It is pure:
// the result depends only on its arguments, never on call completion order
// or on other clips. Fields of a failed or skipped call are nil.
func Merge(policy MergePolicy, speech SpeechOutcome, scene SceneOutcome) analysis.Analysis {
	var out analysis.Analysis
	if scene.OK() {
		audioType := scene.Result.AudioType
		description := scene.Result.SceneDescription
		tone := scene.Result.EmotionalTone
		out.AudioType = &audioType
		out.SceneDescription = &description
		out.EmotionalTone = &tone
		out.AudioEvents = append(make([]analysis.AudioEvent, 0, len(scene.Result.AudioEvents)), scene.Result.AudioEvents...)
		analysis.SortEvents(out.AudioEvents)
	}

	transcript, source := pickTranscript(policy, speech, scene)
	if transcript != nil {
		canonicalizeSpeakers(transcript, policy.Travelers)
		analysis.SortTranscript(transcript)
		out.Transcript = transcript
		out.TranscriptSource = &source
	}
	return out
}

func pickTranscript(policy MergePolicy, speech SpeechOutcome, scene SceneOutcome) ([]analysis.Utterance, string) {
	fromSpeech := func() []analysis.Utterance {
		lines := cloneTranscript(speech.Transcript)
		if scene.OK() {
			attributeSpeakers(lines, scene.Result.Transcript)
		}
		return lines
	}
	switch policy.TranscriptSource {
	case config.TranscriptFromScene:
		if scene.OK() {
			return cloneTranscript(scene.Result.Transcript), config.TranscriptFromScene
		}
		if policy.TranscriptFallback && speech.OK() {
			return fromSpeech(), config.TranscriptFromSpeech
		}
	default:
		if speech.OK() {
			return fromSpeech(), config.TranscriptFromSpeech
		}
		if policy.TranscriptFallback && scene.OK() {
			return cloneTranscript(scene.Result.Transcript), config.TranscriptFromScene
		}
	}
	return nil, ""
}

func cloneTranscript(lines []analysis.Utterance) []analysis.Utterance {
	return append(make([]analysis.Utterance, 0, len(lines)), lines...)
}

// attributeSpeakers replaces anonymous diarizer labels with the speaker the
// scene transcript names at the same moment. A letter label ("A") is mapped
// as a whole to the scene speaker it matches most often; "Unknown" lines are
// matched one by one.
func attributeSpeakers(lines []analysis.Utterance, sceneLines []analysis.Utterance) {
	if len(lines) == 0 || len(sceneLines) == 0 {
		return
	}
	named := make([]analysis.Utterance, 0, len(sceneLines))
	for _, line := range sceneLines {
		if !analysis.AnonymousSpeaker(line.Speaker) {
			named = append(named, line)
		}
	}
	if len(named) == 0 {
		return
	}
	analysis.SortTranscript(named)

	votes := map[string]map[string]int{}
	for i, line := range lines {
		if !analysis.AnonymousSpeaker(line.Speaker) {
			continue
		}
		match, ok := nearestSpeaker(line.Timestamp, named)
		if !ok {
			continue
		}
		label := strings.TrimSpace(line.Speaker)
		if label == "" || strings.EqualFold(label, analysis.DefaultSpeaker) {
			lines[i].Speaker = match
			continue
		}
		if votes[label] == nil {
			votes[label] = map[string]int{}
		}
		votes[label][match]++
	}

	mapping := make(map[string]string, len(votes))
	for label, counts := range votes {
		candidates := make([]string, 0, len(counts))
		for name := range counts {
			candidates = append(candidates, name)
		}
		sort.Slice(candidates, func(i, j int) bool {
			if counts[candidates[i]] != counts[candidates[j]] {
				return counts[candidates[i]] > counts[candidates[j]]
			}
			return candidates[i] < candidates[j]
		})
		mapping[label] = candidates[0]
	}
	for i, line := range lines {
		if name, ok := mapping[strings.TrimSpace(line.Speaker)]; ok {
			lines[i].Speaker = name
		}
	}
}

func nearestSpeaker(timestamp string, named []analysis.Utterance) (string, bool) {
	at, err := analysis.ParseTimestamp(timestamp)
	if err != nil {
		return "", false
	}
	best := ""
	bestDelta := math.Inf(1)
	for _, line := range named {
		ts, err := analysis.ParseTimestamp(line.Timestamp)
		if err != nil {
			continue
		}
		delta := math.Abs(ts - at)
		if delta <= attributionWindow && delta < bestDelta {
			best = strings.TrimSpace(line.Speaker)
			bestDelta = delta
		}
	}
	return best, best != ""
}

// canonicalizeSpeakers rewrites speaker labels to the trip's spelling of a
// traveler name, or to the display form of a generic role label.
func canonicalizeSpeakers(lines []analysis.Utterance, travelers []trip.Traveler) {
	for i, line := range lines {
		lines[i].Speaker = canonicalSpeaker(line.Speaker, travelers)
	}
}

func canonicalSpeaker(label string, travelers []trip.Traveler) string {
	for _, traveler := range travelers {
		if textutil.SameName(label, traveler.Name) {
			return traveler.Name
		}
	}
	for _, generic := range analysis.GenericSpeakerLabels {
		if textutil.SameName(label, generic) {
			return textutil.TitleLabel(generic)
		}
	}
	return strings.TrimSpace(label)
}

// clipStatus is enriched only when every enabled analyzer succeeded.
func clipStatus(opts Options, speech SpeechOutcome, scene SceneOutcome) string {
	if opts.SpeechEnabled && !speech.OK() {
		return trip.StatusDegraded
	}
	if opts.SceneEnabled && !scene.OK() {
		return trip.StatusDegraded
	}
	return trip.StatusEnriched
}
