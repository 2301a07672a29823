package analysis

import (
	"context"
	"strings"
	"time"

	"chronicle/internal/trip"
	"chronicle/internal/voiceref"
)

// Audio types the scene analyzer may report.
const (
	AudioSpeech  = "speech"
	AudioAmbient = "ambient"
	AudioMixed   = "mixed"
	AudioMusic   = "music"
	AudioSilent  = "silent"
)

// AudioTypes lists the accepted audio types in display order.
var AudioTypes = []string{AudioSpeech, AudioAmbient, AudioMixed, AudioMusic, AudioSilent}

// ValidAudioType reports whether value is one of AudioTypes.
func ValidAudioType(value string) bool {
	for _, candidate := range AudioTypes {
		if value == candidate {
			return true
		}
	}
	return false
}

// Utterance is one transcript line.
type Utterance struct {
	Timestamp string `json:"timestamp"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
}

// AudioEvent is one non-speech sound.
type AudioEvent struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
}

// Analysis is the enrichment attached to a clip. Every field is always
// serialized; nil means the producing call failed or was not run.
type Analysis struct {
	AudioType        *string      `json:"audioType"`
	Transcript       []Utterance  `json:"transcript"`
	TranscriptSource *string      `json:"transcriptSource"`
	AudioEvents      []AudioEvent `json:"audioEvents"`
	SceneDescription *string      `json:"sceneDescription"`
	EmotionalTone    *string      `json:"emotionalTone"`
}

// SceneResult is a validated Scene Analyzer response.
type SceneResult struct {
	AudioType        string
	Transcript       []Utterance
	AudioEvents      []AudioEvent
	SceneDescription string
	EmotionalTone    string
}

// ClipContext carries the hints given to the Scene Analyzer. VoiceReferences
// names the travelers whose samples precede the clip, in attachment order.
type ClipContext struct {
	Travelers        []trip.Traveler
	VoiceReferences  []string
	PlaceName        string
	StoryBeatText    string
	StoryBeatStarred bool
	RecordedAt       time.Time
}

// SpeechRequest is the input of one Speech Analyzer call.
type SpeechRequest struct {
	ClipID    string
	AudioPath string
	Speakers  []voiceref.Reference
}

// SceneRequest is the input of one Scene Analyzer call.
type SceneRequest struct {
	ClipID    string
	AudioPath string
	Context   ClipContext
	Speakers  []voiceref.Reference
}

// SpeechAnalyzer transcribes a clip.
type SpeechAnalyzer interface {
	Name() string
	Transcribe(ctx context.Context, req SpeechRequest) ([]Utterance, error)
}

// SceneAnalyzer describes a clip.
type SceneAnalyzer interface {
	Name() string
	Analyze(ctx context.Context, req SceneRequest) (SceneResult, error)
}

// DefaultSpeaker labels utterances the provider did not attribute.
const DefaultSpeaker = "Unknown"

// AnonymousSpeaker reports whether label is a provider placeholder rather
// than a person: "Unknown", empty, or a single capital letter.
func AnonymousSpeaker(label string) bool {
	label = strings.TrimSpace(label)
	if label == "" || strings.EqualFold(label, DefaultSpeaker) {
		return true
	}
	return len(label) == 1 && label[0] >= 'A' && label[0] <= 'Z'
}
