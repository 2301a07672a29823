package analysis

import (
	"fmt"
	"strings"

	"chronicle/internal/services"
	"chronicle/internal/services/llm"
)

type rawScene struct {
	AudioType        *string      `json:"audioType"`
	Transcript       []Utterance  `json:"transcript"`
	AudioEvents      []AudioEvent `json:"audioEvents"`
	SceneDescription *string      `json:"sceneDescription"`
	EmotionalTone    *string      `json:"emotionalTone"`
}

// ParseSceneResponse decodes and validates a Scene Analyzer completion. An
// unknown audio type, a missing required field or an unparsable timestamp
// makes the whole response malformed.
func ParseSceneResponse(content string) (SceneResult, error) {
	var raw rawScene
	if err := llm.DecodeLLMJSON(content, &raw); err != nil {
		return SceneResult{}, err
	}
	if raw.AudioType == nil {
		return SceneResult{}, malformed("audioType missing")
	}
	audioType := strings.ToLower(strings.TrimSpace(*raw.AudioType))
	if !ValidAudioType(audioType) {
		return SceneResult{}, malformed(fmt.Sprintf("unknown audioType %q", *raw.AudioType))
	}
	if raw.SceneDescription == nil {
		return SceneResult{}, malformed("sceneDescription missing")
	}
	if raw.EmotionalTone == nil {
		return SceneResult{}, malformed("emotionalTone missing")
	}

	result := SceneResult{
		AudioType:        audioType,
		SceneDescription: strings.TrimSpace(*raw.SceneDescription),
		EmotionalTone:    strings.TrimSpace(*raw.EmotionalTone),
		Transcript:       make([]Utterance, 0, len(raw.Transcript)),
		AudioEvents:      make([]AudioEvent, 0, len(raw.AudioEvents)),
	}
	for _, line := range raw.Transcript {
		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}
		ts, err := normalizeTimestamp(line.Timestamp)
		if err != nil {
			return SceneResult{}, err
		}
		speaker := strings.TrimSpace(line.Speaker)
		if speaker == "" {
			speaker = DefaultSpeaker
		}
		result.Transcript = append(result.Transcript, Utterance{Timestamp: ts, Speaker: speaker, Text: text})
	}
	for _, event := range raw.AudioEvents {
		description := strings.TrimSpace(event.Event)
		if description == "" {
			continue
		}
		ts, err := normalizeTimestamp(event.Timestamp)
		if err != nil {
			return SceneResult{}, err
		}
		result.AudioEvents = append(result.AudioEvents, AudioEvent{Timestamp: ts, Event: description})
	}
	SortTranscript(result.Transcript)
	SortEvents(result.AudioEvents)
	return result, nil
}

func normalizeTimestamp(value string) (string, error) {
	seconds, err := ParseTimestamp(value)
	if err != nil {
		return "", err
	}
	return FormatTimestamp(seconds), nil
}

func malformed(detail string) error {
	return services.Wrap(services.ErrValidation, "analysis", "scene response", detail, nil)
}
