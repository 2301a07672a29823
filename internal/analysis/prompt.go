package analysis

import (
	"fmt"
	"strings"
)

const recordedAtLayout = "January 02, 2006, 03:04 PM"

const sceneInstructions = `Analyze the audio and respond with JSON in this exact format:

{
  "audioType": "speech|ambient|mixed|music|silent",
  "transcript": [
    {
      "timestamp": "00:00",
      "speaker": "Dad",
      "text": "How is it, girls?"
    }
  ],
  "audioEvents": [
    {
      "timestamp": "00:01",
      "event": "rushing water from waterfall"
    }
  ],
  "sceneDescription": "Brief description of the overall scene",
  "emotionalTone": "excited|happy|calm|curious|frustrated|etc."
}

IMPORTANT:
- audioType: Choose one of: speech, ambient, mixed, music, silent
- transcript: Array of dialogue with timestamps. `

const sceneLabelFallback = `If unsure, use 'Child', 'Adult Female', or 'Adult Male'.
- audioEvents: Non-speech sounds (background noise, ambient sounds, etc.)
- sceneDescription: 1-2 sentences describing what's happening
- emotionalTone: Overall mood/feeling of the clip

Respond ONLY with valid JSON, no additional text.`

// GenericSpeakerLabels are the role labels the scene prompt asks for when a
// voice cannot be matched to a traveler.
var GenericSpeakerLabels = []string{"Child", "Adult Female", "Adult Male"}

// BuildScenePrompt renders the Scene Analyzer prompt for one clip.
func BuildScenePrompt(clip ClipContext) string {
	var b strings.Builder
	if len(clip.VoiceReferences) > 0 {
		writeVoiceReferences(&b, clip)
	} else {
		b.WriteString("Analyze this audio clip recorded during a family trip.\n\n")
	}

	b.WriteString("CONTEXT:\n")
	if len(clip.Travelers) > 0 {
		names := make([]string, 0, len(clip.Travelers))
		for _, traveler := range clip.Travelers {
			names = append(names, traveler.Display())
		}
		b.WriteString("- Travelers: " + strings.Join(names, ", ") + "\n")
	}
	if place := strings.TrimSpace(clip.PlaceName); place != "" {
		b.WriteString("- Location: " + place + "\n")
	}
	if story := strings.TrimSpace(clip.StoryBeatText); story != "" {
		b.WriteString("- This was recorded as a reaction to a story about: \"" + story + "\"\n")
		if clip.StoryBeatStarred {
			b.WriteString("- This story beat was starred as a favorite by the family.\n")
		}
	}
	if !clip.RecordedAt.IsZero() {
		b.WriteString("- Recorded at: " + clip.RecordedAt.UTC().Format(recordedAtLayout) + "\n")
	}
	b.WriteString("\nGiven this context, analyze the audio.\n\n")

	b.WriteString(sceneInstructions)
	if len(clip.Travelers) > 0 {
		b.WriteString("Use actual traveler names if you can identify them (e.g., '" + clip.Travelers[0].Name + "' instead of 'Child'). ")
	}
	b.WriteString(sceneLabelFallback)
	return b.String()
}

func writeVoiceReferences(b *strings.Builder, clip ClipContext) {
	display := make(map[string]string, len(clip.Travelers))
	for _, traveler := range clip.Travelers {
		display[traveler.Name] = traveler.Display()
	}
	b.WriteString("This request contains VOICE REFERENCES followed by a CLIP TO ANALYZE.\n\n")
	b.WriteString("VOICE REFERENCES (learn each person's voice):\n")
	recorded := make(map[string]bool, len(clip.VoiceReferences))
	for i, name := range clip.VoiceReferences {
		label := display[name]
		if label == "" {
			label = name
		}
		recorded[name] = true
		fmt.Fprintf(b, "- %s: audio %d\n", label, i+1)
	}
	var missing []string
	for _, traveler := range clip.Travelers {
		if !recorded[traveler.Name] {
			missing = append(missing, traveler.Display())
		}
	}
	if len(missing) > 0 {
		b.WriteString("\nNote: " + strings.Join(missing, ", ") + " did not record a voice reference.\n")
	}
	clipIndex := len(clip.VoiceReferences) + 1
	fmt.Fprintf(b, "\nCLIP TO ANALYZE: audio %d\n\n", clipIndex)
	b.WriteString("First, listen to each voice reference to learn how each person sounds. ")
	fmt.Fprintf(b, "Then analyze audio %d and identify speakers by matching their voices.\n\n", clipIndex)
}

// BuildSummaryPrompt renders the story beat summarization prompt.
func BuildSummaryPrompt(story string) string {
	return "Summarize this story in ONE sentence (max 30 words).\n" +
		"Capture the main historical fact or interesting point being shared.\n\n" +
		"Story:\n" + story + "\n\nSummary:"
}
