package enrich

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"chronicle/internal/analysis"
	"chronicle/internal/config"
	"chronicle/internal/testsupport"
	"chronicle/internal/trip"
)

type stubSpeech struct {
	mu       sync.Mutex
	calls    map[string]int
	speakers map[string]int
	respond  func(ctx context.Context, req analysis.SpeechRequest, call int) ([]analysis.Utterance, error)
}

func newStubSpeech(respond func(ctx context.Context, req analysis.SpeechRequest, call int) ([]analysis.Utterance, error)) *stubSpeech {
	return &stubSpeech{calls: map[string]int{}, speakers: map[string]int{}, respond: respond}
}

func (s *stubSpeech) Name() string { return "speech" }

func (s *stubSpeech) Transcribe(ctx context.Context, req analysis.SpeechRequest) ([]analysis.Utterance, error) {
	s.mu.Lock()
	s.calls[req.ClipID]++
	call := s.calls[req.ClipID]
	s.speakers[req.ClipID] = len(req.Speakers)
	s.mu.Unlock()
	return s.respond(ctx, req, call)
}

func (s *stubSpeech) callCount(clipID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[clipID]
}

type stubScene struct {
	mu       sync.Mutex
	calls    map[string]int
	contexts map[string]analysis.ClipContext
	speakers map[string][]string
	respond  func(ctx context.Context, req analysis.SceneRequest, call int) (analysis.SceneResult, error)
}

func newStubScene(respond func(ctx context.Context, req analysis.SceneRequest, call int) (analysis.SceneResult, error)) *stubScene {
	return &stubScene{calls: map[string]int{}, contexts: map[string]analysis.ClipContext{}, speakers: map[string][]string{}, respond: respond}
}

func (s *stubScene) Name() string { return "scene" }

func (s *stubScene) Analyze(ctx context.Context, req analysis.SceneRequest) (analysis.SceneResult, error) {
	s.mu.Lock()
	s.calls[req.ClipID]++
	call := s.calls[req.ClipID]
	s.contexts[req.ClipID] = req.Context
	names := make([]string, 0, len(req.Speakers))
	for _, ref := range req.Speakers {
		names = append(names, ref.Name)
	}
	s.speakers[req.ClipID] = names
	s.mu.Unlock()
	return s.respond(ctx, req, call)
}

func (s *stubScene) callCount(clipID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[clipID]
}

type observedCall struct {
	analyzer string
	outcome  string
	attempts int
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []observedCall
	clips map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{clips: map[string]int{}}
}

func (r *recordingObserver) ObserveCall(analyzer, outcome string, attempts int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, observedCall{analyzer: analyzer, outcome: outcome, attempts: attempts})
}

func (r *recordingObserver) ObserveClip(status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clips[status]++
}

func testOptions() Options {
	return Options{
		SpeechEnabled:    true,
		SceneEnabled:     true,
		TranscriptSource: config.TranscriptFromSpeech,
		ParallelCalls:    true,
		Workers:          1,
		Retry:            Policy{Attempts: 3, CallTimeout: 5 * time.Second},
	}
}

func newTestOrchestrator(t *testing.T, opts Options, deps Dependencies) *Orchestrator {
	t.Helper()
	orch, err := New(opts, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	orch.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return orch
}

// loadTrip writes metadata and placeholder audio to a temp dir and loads it.
func loadTrip(t *testing.T, metadata map[string]any) *trip.Document {
	t.Helper()
	root := testsupport.WriteTripDir(t, t.TempDir(), testsupport.SampleArchiveFiles(t, metadata))
	doc, err := trip.Load(root)
	if err != nil {
		t.Fatalf("load trip: %v", err)
	}
	return doc
}

// withoutVoiceReferences drops every traveler's voice reference.
func withoutVoiceReferences(metadata map[string]any) map[string]any {
	header := metadata["trip"].(map[string]any)
	talent := header["talent"].([]any)
	stripped := make([]any, 0, len(talent))
	for _, raw := range talent {
		traveler := raw.(map[string]any)
		copyOf := map[string]any{}
		for key, value := range traveler {
			if key != "voiceReferenceFile" {
				copyOf[key] = value
			}
		}
		stripped = append(stripped, copyOf)
	}
	header["talent"] = stripped
	return metadata
}

func sceneResult(audioType string, lines ...analysis.Utterance) analysis.SceneResult {
	return analysis.SceneResult{
		AudioType:        audioType,
		Transcript:       lines,
		AudioEvents:      []analysis.AudioEvent{{Timestamp: "00:03", Event: "laughter"}},
		SceneDescription: "Family chatting in the car",
		EmotionalTone:    "excited",
	}
}

func decodeAnalysis(t *testing.T, note trip.Annotation) analysis.Analysis {
	t.Helper()
	var out analysis.Analysis
	if err := json.Unmarshal(note.Analysis, &out); err != nil {
		t.Fatalf("decode analysis %s: %v", note.Analysis, err)
	}
	return out
}
