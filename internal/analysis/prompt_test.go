package analysis

import (
	"strings"
	"testing"
	"time"

	"chronicle/internal/trip"
)

func age(v float64) *float64 { return &v }

func TestBuildScenePromptWithFullContext(t *testing.T) {
	prompt := BuildScenePrompt(ClipContext{
		Travelers: []trip.Traveler{
			{Name: "Alice", Age: age(9)},
			{Name: "Bob", Age: age(7)},
			{Name: "Mom"},
		},
		PlaceName:        "Golden Gate Bridge",
		StoryBeatText:    "The bridge opened in 1937.",
		StoryBeatStarred: true,
		RecordedAt:       time.Date(2025, 12, 22, 14, 5, 0, 0, time.UTC),
	})

	wantLines := []string{
		"Analyze this audio clip recorded during a family trip.",
		"CONTEXT:",
		"- Travelers: Alice (age 9), Bob (age 7), Mom",
		"- Location: Golden Gate Bridge",
		`- This was recorded as a reaction to a story about: "The bridge opened in 1937."`,
		"- This story beat was starred as a favorite by the family.",
		"- Recorded at: December 22, 2025, 02:05 PM",
		"Given this context, analyze the audio.",
		`"audioType": "speech|ambient|mixed|music|silent"`,
		"Use actual traveler names if you can identify them (e.g., 'Alice' instead of 'Child').",
		"If unsure, use 'Child', 'Adult Female', or 'Adult Male'.",
		"Respond ONLY with valid JSON, no additional text.",
	}
	for _, want := range wantLines {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildScenePromptMinimalContext(t *testing.T) {
	prompt := BuildScenePrompt(ClipContext{StoryBeatStarred: true})
	for _, unwanted := range []string{"- Travelers:", "- Location:", "story about", "starred", "Recorded at", "Use actual traveler names"} {
		if strings.Contains(prompt, unwanted) {
			t.Fatalf("prompt should not contain %q:\n%s", unwanted, prompt)
		}
	}
	if !strings.Contains(prompt, "CONTEXT:\n\nGiven this context") {
		t.Fatalf("expected empty context block:\n%s", prompt)
	}
}

func TestBuildScenePromptWithVoiceReferences(t *testing.T) {
	prompt := BuildScenePrompt(ClipContext{
		Travelers: []trip.Traveler{
			{Name: "Alice", Age: age(9)},
			{Name: "Bob", Age: age(7)},
			{Name: "Mom"},
		},
		VoiceReferences: []string{"Alice", "Bob"},
	})
	wantLines := []string{
		"This request contains VOICE REFERENCES followed by a CLIP TO ANALYZE.",
		"VOICE REFERENCES (learn each person's voice):\n- Alice (age 9): audio 1\n- Bob (age 7): audio 2\n",
		"Note: Mom did not record a voice reference.",
		"CLIP TO ANALYZE: audio 3",
		"Then analyze audio 3 and identify speakers by matching their voices.",
		"- Travelers: Alice (age 9), Bob (age 7), Mom",
	}
	for _, want := range wantLines {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "Analyze this audio clip recorded during a family trip.") {
		t.Fatalf("voice reference prompt should replace the plain opener:\n%s", prompt)
	}
	if strings.Index(prompt, "VOICE REFERENCES") > strings.Index(prompt, "CONTEXT:") {
		t.Fatalf("voice references should precede the context block:\n%s", prompt)
	}
}

func TestBuildScenePromptAllTravelersRecorded(t *testing.T) {
	prompt := BuildScenePrompt(ClipContext{
		Travelers:       []trip.Traveler{{Name: "Dad"}},
		VoiceReferences: []string{"Dad"},
	})
	if strings.Contains(prompt, "did not record a voice reference") {
		t.Fatalf("no traveler is missing a reference:\n%s", prompt)
	}
	if !strings.Contains(prompt, "- Dad: audio 1\n") {
		t.Fatalf("prompt missing reference line:\n%s", prompt)
	}
}

func TestBuildSummaryPrompt(t *testing.T) {
	prompt := BuildSummaryPrompt("A long tale.")
	if !strings.HasPrefix(prompt, "Summarize this story in ONE sentence (max 30 words).") {
		t.Fatalf("unexpected prompt %q", prompt)
	}
	if !strings.HasSuffix(prompt, "Story:\nA long tale.\n\nSummary:") {
		t.Fatalf("unexpected prompt %q", prompt)
	}
}
