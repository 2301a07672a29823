package testsupport

import (
	"path/filepath"
	"testing"

	"chronicle/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Both analyzers get placeholder keys and retries run without delay.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Speech.APIKey = "test-speech"
	cfgVal.Scene.APIKey = "test-scene"
	cfgVal.Analysis.RetryBaseDelayMS = 0
	cfgVal.Analysis.RetryMaxDelayMS = 1
	cfgVal.Analysis.CallTimeoutSeconds = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMode sets the analysis mode and the matching transcript source.
func WithMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Analysis.Mode = mode
		switch mode {
		case config.ModeSceneOnly:
			b.cfg.Analysis.TranscriptSource = config.TranscriptFromScene
		default:
			b.cfg.Analysis.TranscriptSource = config.TranscriptFromSpeech
		}
	}
}

// WithInbox enables the watch inbox under the temp base directory.
func WithInbox() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.InboxDir = filepath.Join(b.baseDir, "inbox")
	}
}

// WithWorkers sets the clip worker count.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Analysis.ClipWorkers = n
	}
}
