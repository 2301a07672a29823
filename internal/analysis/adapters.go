package analysis

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"chronicle/internal/services"
	"chronicle/internal/services/diarize"
	"chronicle/internal/services/llm"
	"chronicle/internal/services/whisper"
)

// DiarizeTranscriber is the subset of the diarize client the adapter uses.
type DiarizeTranscriber interface {
	Transcribe(ctx context.Context, audioPath string, speakers []diarize.Speaker) (diarize.Response, error)
}

// DiarizeAnalyzer is a SpeechAnalyzer backed by the diarizing transcription
// endpoint. Voice references are passed as known speakers.
type DiarizeAnalyzer struct {
	client DiarizeTranscriber
}

// NewDiarizeAnalyzer wraps a diarize client.
func NewDiarizeAnalyzer(client DiarizeTranscriber) *DiarizeAnalyzer {
	return &DiarizeAnalyzer{client: client}
}

// Name identifies the analyzer in logs and metrics.
func (a *DiarizeAnalyzer) Name() string { return "speech" }

// Transcribe sends the clip with its speaker hints.
func (a *DiarizeAnalyzer) Transcribe(ctx context.Context, req SpeechRequest) ([]Utterance, error) {
	speakers := make([]diarize.Speaker, 0, len(req.Speakers))
	for _, ref := range req.Speakers {
		speakers = append(speakers, diarize.Speaker{Name: ref.Name, DataURL: ref.DataURL()})
	}
	resp, err := a.client.Transcribe(ctx, req.AudioPath, speakers)
	if err != nil {
		return nil, err
	}
	lines := make([]Utterance, 0, len(resp.Segments))
	for _, segment := range resp.Segments {
		lines = appendSegment(lines, segment.Start, segment.Speaker, segment.Text)
	}
	SortTranscript(lines)
	return lines, nil
}

// WhisperTranscriber is the subset of the whisper client the adapter uses.
type WhisperTranscriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]whisper.Segment, error)
}

// WhisperAnalyzer is a SpeechAnalyzer without diarization; every utterance is
// attributed to DefaultSpeaker.
type WhisperAnalyzer struct {
	client WhisperTranscriber
}

// NewWhisperAnalyzer wraps a whisper client.
func NewWhisperAnalyzer(client WhisperTranscriber) *WhisperAnalyzer {
	return &WhisperAnalyzer{client: client}
}

// Name identifies the analyzer in logs and metrics.
func (a *WhisperAnalyzer) Name() string { return "speech" }

// Transcribe ignores speaker hints; whisper cannot use them.
func (a *WhisperAnalyzer) Transcribe(ctx context.Context, req SpeechRequest) ([]Utterance, error) {
	segments, err := a.client.Transcribe(ctx, req.AudioPath)
	if err != nil {
		return nil, err
	}
	lines := make([]Utterance, 0, len(segments))
	for _, segment := range segments {
		lines = appendSegment(lines, segment.Start, "", segment.Text)
	}
	SortTranscript(lines)
	return lines, nil
}

func appendSegment(lines []Utterance, start float64, speaker, text string) []Utterance {
	text = strings.TrimSpace(text)
	if text == "" {
		return lines
	}
	speaker = strings.TrimSpace(speaker)
	if speaker == "" {
		speaker = DefaultSpeaker
	}
	return append(lines, Utterance{Timestamp: FormatTimestamp(start), Speaker: speaker, Text: text})
}

// AudioCompleter is the subset of the LLM client the scene adapter uses.
type AudioCompleter interface {
	CompleteAudioJSON(ctx context.Context, prompt string, clip llm.AudioInput, references ...llm.AudioInput) (string, error)
}

// LLMSceneAnalyzer is a SceneAnalyzer backed by an audio-capable chat model.
type LLMSceneAnalyzer struct {
	client AudioCompleter
}

// NewLLMSceneAnalyzer wraps an LLM client.
func NewLLMSceneAnalyzer(client AudioCompleter) *LLMSceneAnalyzer {
	return &LLMSceneAnalyzer{client: client}
}

// Name identifies the analyzer in logs and metrics.
func (a *LLMSceneAnalyzer) Name() string { return "scene" }

// Analyze uploads the voice references and the clip inline with the context
// prompt and validates the response.
func (a *LLMSceneAnalyzer) Analyze(ctx context.Context, req SceneRequest) (SceneResult, error) {
	data, err := os.ReadFile(req.AudioPath)
	if err != nil {
		return SceneResult{}, services.Wrap(services.ErrNotFound, "analysis", "read clip", req.AudioPath, err)
	}
	clipCtx := req.Context
	clipCtx.VoiceReferences = nil
	references := make([]llm.AudioInput, 0, len(req.Speakers))
	for _, ref := range req.Speakers {
		clipCtx.VoiceReferences = append(clipCtx.VoiceReferences, ref.Name)
		references = append(references, llm.AudioInput{Data: ref.Data, Format: filepath.Ext(ref.Path)})
	}
	clip := llm.AudioInput{Data: data, Format: filepath.Ext(req.AudioPath)}
	content, err := a.client.CompleteAudioJSON(ctx, BuildScenePrompt(clipCtx), clip, references...)
	if err != nil {
		return SceneResult{}, err
	}
	return ParseSceneResponse(content)
}
