package enrich

import (
	"chronicle/internal/config"
	"chronicle/internal/trip"
)

// Options controls how a batch is enriched.
type Options struct {
	SpeechEnabled      bool
	SceneEnabled       bool
	TranscriptSource   string
	TranscriptFallback bool
	// ParallelCalls issues the two analyzer calls of a clip concurrently.
	ParallelCalls bool
	// Workers is the number of clips processed at once.
	Workers int
	Retry   Policy
}

// OptionsFromConfig derives orchestrator options from the analysis section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SpeechEnabled:      cfg.SpeechEnabled(),
		SceneEnabled:       cfg.SceneEnabled(),
		TranscriptSource:   cfg.Analysis.TranscriptSource,
		TranscriptFallback: cfg.Analysis.TranscriptFallback,
		ParallelCalls:      cfg.Analysis.ParallelCalls,
		Workers:            cfg.Analysis.ClipWorkers,
		Retry:              PolicyFromConfig(cfg),
	}
}

func (o Options) mergePolicy(travelers []trip.Traveler) MergePolicy {
	return MergePolicy{
		TranscriptSource:   o.TranscriptSource,
		TranscriptFallback: o.TranscriptFallback,
		Travelers:          travelers,
	}
}
