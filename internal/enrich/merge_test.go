package enrich

import (
	"errors"
	"reflect"
	"testing"

	"chronicle/internal/analysis"
	"chronicle/internal/config"
	"chronicle/internal/trip"
)

func travelers(names ...string) []trip.Traveler {
	out := make([]trip.Traveler, 0, len(names))
	for _, name := range names {
		out = append(out, trip.Traveler{Name: name})
	}
	return out
}

func TestMergeIgnoresInputOrder(t *testing.T) {
	policy := MergePolicy{TranscriptSource: config.TranscriptFromSpeech, Travelers: travelers("Alice")}
	speechA := SpeechOutcome{Ran: true, Transcript: []analysis.Utterance{
		{Timestamp: "00:09", Speaker: "Alice", Text: "third"},
		{Timestamp: "00:01", Speaker: "Alice", Text: "first"},
		{Timestamp: "00:05", Speaker: "Alice", Text: "second"},
	}}
	speechB := SpeechOutcome{Ran: true, Transcript: []analysis.Utterance{
		speechA.Transcript[1], speechA.Transcript[2], speechA.Transcript[0],
	}}
	scene := SceneOutcome{Ran: true, Result: analysis.SceneResult{
		AudioType:        "speech",
		AudioEvents:      []analysis.AudioEvent{{Timestamp: "00:07", Event: "horn"}, {Timestamp: "00:02", Event: "laugh"}},
		SceneDescription: "car",
		EmotionalTone:    "calm",
	}}

	a := Merge(policy, speechA, scene)
	b := Merge(policy, speechB, scene)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("merge depends on input order:\n%+v\n%+v", a, b)
	}
	if !analysis.TranscriptSorted(a.Transcript) || !analysis.EventsSorted(a.AudioEvents) {
		t.Fatalf("expected sorted output, got %+v", a)
	}
	if speechA.Transcript[0].Text != "third" {
		t.Fatal("merge mutated its input")
	}
	if a.TranscriptSource == nil || *a.TranscriptSource != config.TranscriptFromSpeech {
		t.Fatalf("unexpected transcript source: %v", a.TranscriptSource)
	}
}

func TestMergeFailedCallsLeaveFieldsNull(t *testing.T) {
	policy := MergePolicy{TranscriptSource: config.TranscriptFromSpeech}
	got := Merge(policy, SpeechOutcome{Ran: true, Err: errors.New("boom")}, SceneOutcome{Ran: true, Err: errors.New("boom")})
	if !reflect.DeepEqual(got, analysis.Analysis{}) {
		t.Fatalf("expected empty analysis, got %+v", got)
	}
}

func TestMergeTranscriptFallback(t *testing.T) {
	scene := SceneOutcome{Ran: true, Result: analysis.SceneResult{
		AudioType:  "speech",
		Transcript: []analysis.Utterance{{Timestamp: "00:00", Speaker: "Mom", Text: "hello"}},
	}}
	failed := SpeechOutcome{Ran: true, Err: errors.New("upload failed")}

	strict := Merge(MergePolicy{TranscriptSource: config.TranscriptFromSpeech}, failed, scene)
	if strict.Transcript != nil {
		t.Fatalf("expected null transcript without fallback, got %+v", strict.Transcript)
	}

	lenient := Merge(MergePolicy{TranscriptSource: config.TranscriptFromSpeech, TranscriptFallback: true}, failed, scene)
	if len(lenient.Transcript) != 1 || lenient.TranscriptSource == nil || *lenient.TranscriptSource != config.TranscriptFromScene {
		t.Fatalf("expected scene transcript fallback, got %+v", lenient)
	}

	speech := SpeechOutcome{Ran: true, Transcript: []analysis.Utterance{{Timestamp: "00:00", Speaker: "A", Text: "hello"}}}
	preferScene := Merge(MergePolicy{TranscriptSource: config.TranscriptFromScene}, speech, scene)
	if preferScene.Transcript[0].Speaker != "Mom" {
		t.Fatalf("expected scene transcript, got %+v", preferScene.Transcript)
	}
}

func TestAttributeSpeakersMajorityVote(t *testing.T) {
	speech := SpeechOutcome{Ran: true, Transcript: []analysis.Utterance{
		{Timestamp: "00:00", Speaker: "A", Text: "one"},
		{Timestamp: "00:04", Speaker: "A", Text: "two"},
		{Timestamp: "00:08", Speaker: "A", Text: "three"},
		{Timestamp: "00:20", Speaker: "B", Text: "far away"},
		{Timestamp: "00:12", Speaker: "Unknown", Text: "four"},
	}}
	scene := SceneOutcome{Ran: true, Result: analysis.SceneResult{Transcript: []analysis.Utterance{
		{Timestamp: "00:00", Speaker: "bob", Text: "one"},
		{Timestamp: "00:04", Speaker: "bob", Text: "two"},
		{Timestamp: "00:09", Speaker: "Dad", Text: "three"},
		{Timestamp: "00:13", Speaker: "Mom", Text: "four"},
	}}}
	got := Merge(MergePolicy{TranscriptSource: config.TranscriptFromSpeech, Travelers: travelers("Bob", "Mom", "Dad")}, speech, scene)

	want := []string{"Bob", "Bob", "Bob", "Mom", "B"}
	for i, line := range got.Transcript {
		if line.Speaker != want[i] {
			t.Fatalf("line %d (%s) speaker = %q, want %q", i, line.Text, line.Speaker, want[i])
		}
	}
}

func TestAttributeSpeakersTieBreaksAlphabetically(t *testing.T) {
	speech := SpeechOutcome{Ran: true, Transcript: []analysis.Utterance{
		{Timestamp: "00:00", Speaker: "A", Text: "x"},
		{Timestamp: "00:10", Speaker: "A", Text: "y"},
	}}
	scene := SceneOutcome{Ran: true, Result: analysis.SceneResult{Transcript: []analysis.Utterance{
		{Timestamp: "00:00", Speaker: "Zoe", Text: "x"},
		{Timestamp: "00:10", Speaker: "Anna", Text: "y"},
	}}}
	got := Merge(MergePolicy{TranscriptSource: config.TranscriptFromSpeech}, speech, scene)
	for _, line := range got.Transcript {
		if line.Speaker != "Anna" {
			t.Fatalf("expected tie resolved to Anna, got %+v", got.Transcript)
		}
	}
}

func TestClipStatus(t *testing.T) {
	ok := SpeechOutcome{Ran: true}
	bad := SceneOutcome{Ran: true, Err: errors.New("x")}
	hybrid := Options{SpeechEnabled: true, SceneEnabled: true}
	if got := clipStatus(hybrid, ok, SceneOutcome{Ran: true}); got != trip.StatusEnriched {
		t.Fatalf("got %q", got)
	}
	if got := clipStatus(hybrid, ok, bad); got != trip.StatusDegraded {
		t.Fatalf("got %q", got)
	}
	speechOnly := Options{SpeechEnabled: true}
	if got := clipStatus(speechOnly, ok, SceneOutcome{}); got != trip.StatusEnriched {
		t.Fatalf("disabled scene must not degrade the clip, got %q", got)
	}
}
