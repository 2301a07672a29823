package enrich

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"chronicle/internal/analysis"
	"chronicle/internal/testsupport"
	"chronicle/internal/trip"
	"chronicle/internal/voiceref"
)

func annotate(t *testing.T, status string, value *analysis.Analysis) trip.Annotation {
	t.Helper()
	note := trip.Annotation{Status: status}
	if value != nil {
		raw, err := json.Marshal(value)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		note.Analysis = raw
	}
	return note
}

func TestSummarizeCountsFromAnnotations(t *testing.T) {
	doc := loadTrip(t, testsupport.SampleMetadata())
	refs := voiceref.Resolve(doc)
	speech := "speech"
	annotations := map[string]trip.Annotation{
		"clip_001": annotate(t, trip.StatusEnriched, &analysis.Analysis{
			AudioType:   &speech,
			Transcript:  []analysis.Utterance{{Timestamp: "00:00", Speaker: "alice", Text: "hi"}},
			AudioEvents: []analysis.AudioEvent{{Timestamp: "00:01", Event: "wind"}},
		}),
		"clip_002": annotate(t, trip.StatusDegraded, &analysis.Analysis{
			Transcript: []analysis.Utterance{{Timestamp: "00:00", Speaker: "Adult Male", Text: "ok"}},
		}),
	}
	beat, _ := doc.StoryBeat("beat_1")
	first := annotations["clip_001"]
	first.StoryBeat = &beat
	annotations["clip_001"] = first

	got := Summarize(doc, annotations, refs)
	if got.Clips != 3 || got.Attempted != 2 || got.Enriched != 1 || got.Degraded != 1 || got.Pending != 1 {
		t.Fatalf("unexpected counts: %+v", got)
	}
	if got.VoiceMatched != 1 || got.VoiceUnmatched != 1 {
		t.Fatalf("unexpected voice counts: %+v", got)
	}
	if got.StoryBeatLinked != 1 || got.StoryBeatStarred != 1 || got.StoryBeatMisses != 1 {
		t.Fatalf("unexpected story beat counts: %+v", got)
	}
	if got.Utterances != 2 || got.AudioEvents != 1 {
		t.Fatalf("unexpected content counts: %+v", got)
	}
	if names := got.AudioTypeNames(); !reflect.DeepEqual(names, []string{"speech"}) {
		t.Fatalf("unexpected audio types: %v", names)
	}
}

func TestPlanReportsProblemsWithoutCalls(t *testing.T) {
	doc := loadTrip(t, testsupport.SampleMetadata())
	if err := os.Remove(filepath.Join(doc.Root, "audio", "clip_002.webm")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	plans := Plan(doc, voiceref.Resolve(doc))
	if len(plans) != 3 {
		t.Fatalf("expected 3 planned clips, got %d", len(plans))
	}
	if plans[0].AudioErr != nil || plans[0].Location != "Golden Gate Bridge" || plans[0].Travelers != 4 {
		t.Fatalf("unexpected plan for clip_001: %+v", plans[0])
	}
	if len(plans[0].VoiceReferences) != 2 {
		t.Fatalf("expected voice references in plan, got %v", plans[0].VoiceReferences)
	}
	if Classify(plans[1].AudioErr) != ClassSkip {
		t.Fatalf("expected missing audio flagged as skip, got %v", plans[1].AudioErr)
	}
	if !plans[2].StoryBeatMissed || plans[2].StoryBeat != "beat_missing" {
		t.Fatalf("expected story beat miss for clip_003, got %+v", plans[2])
	}
}
