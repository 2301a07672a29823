package main

import (
	"log/slog"
	"net/http"
	"time"

	"chronicle/internal/analysis"
	"chronicle/internal/config"
	"chronicle/internal/enrich"
	"chronicle/internal/services/diarize"
	"chronicle/internal/services/llm"
	"chronicle/internal/services/whisper"
)

// buildDependencies constructs the analyzers the configured mode enables.
// Service clients make a single attempt per call; the orchestrator owns
// retries and per-attempt timeouts.
func buildDependencies(cfg *config.Config, logger *slog.Logger) enrich.Dependencies {
	deps := enrich.Dependencies{Logger: logger}

	if cfg.SpeechEnabled() {
		switch cfg.Speech.Provider {
		case config.SpeechProviderWhisper:
			client := whisper.NewClient(whisper.Config{
				APIKey:   cfg.Speech.APIKey,
				BaseURL:  cfg.Speech.BaseURL,
				Model:    cfg.Speech.Model,
				Language: cfg.Speech.Language,
			}, &http.Client{Timeout: cfg.CallTimeout() + 30*time.Second})
			deps.Speech = analysis.NewWhisperAnalyzer(client)
		default:
			client := diarize.NewClient(diarize.Config{
				APIKey:   cfg.Speech.APIKey,
				BaseURL:  cfg.Speech.BaseURL,
				Model:    cfg.Speech.Model,
				Language: cfg.Speech.Language,
			})
			deps.Speech = analysis.NewDiarizeAnalyzer(client)
		}
	}

	if cfg.SceneEnabled() {
		sceneClient := newSceneClient(cfg)
		deps.Scene = analysis.NewLLMSceneAnalyzer(sceneClient)
		if cfg.Analysis.SummarizeStoryBeats {
			deps.Summarizer = analysis.NewSummarizer(sceneClient, cfg.Analysis.StoryBeatSummaryThreshold)
		}
	}
	return deps
}

func newSceneClient(cfg *config.Config) *llm.Client {
	settings := cfg.SceneLLM()
	return llm.NewClient(llm.Config{
		APIKey:         settings.APIKey,
		BaseURL:        settings.BaseURL,
		Model:          settings.Model,
		Referer:        settings.Referer,
		Title:          settings.Title,
		TimeoutSeconds: settings.TimeoutSeconds,
	}, llm.WithRetryMaxAttempts(1))
}
