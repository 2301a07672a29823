package preflight

import (
	"context"

	"chronicle/internal/config"
)

// minFreeBytes is the free space below which the output and state
// directories are reported as failing.
const minFreeBytes = 100 << 20

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// RunLocal checks the directories a batch writes to.
func RunLocal(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckFreeSpace("Output free space", cfg.Paths.OutputDir, minFreeBytes),
	}
	if cfg.Paths.InboxDir != "" {
		results = append(results, CheckDirectoryAccess("Inbox directory", cfg.Paths.InboxDir))
	}
	return results
}

// RunAll executes the local checks plus a reachability check for every
// analyzer the configured mode enables.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := RunLocal(cfg)
	if cfg.SpeechEnabled() {
		results = append(results, CheckSpeechAPI(ctx, cfg.Speech.BaseURL, cfg.Speech.APIKey))
	}
	if cfg.SceneEnabled() {
		results = append(results, CheckLLM(ctx, "Scene analyzer", cfg.SceneLLM()))
	}
	return results
}
