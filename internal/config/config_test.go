package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"chronicle/internal/config"
)

func setAPIKeys(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("OPENROUTER_API_KEY", "openrouter-key")
}

func TestLoadDefaultConfigUsesEnvKeysAndExpandsPaths(t *testing.T) {
	setAPIKeys(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, "chronicle", "output")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	wantState := filepath.Join(tempHome, ".local", "share", "chronicle", "state")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.InboxDir != "" {
		t.Fatalf("expected inbox to be unset by default, got %q", cfg.Paths.InboxDir)
	}
	if cfg.Speech.APIKey != "openai-key" {
		t.Fatalf("expected speech key from env, got %q", cfg.Speech.APIKey)
	}
	if cfg.Scene.APIKey != "openrouter-key" {
		t.Fatalf("expected scene key from env, got %q", cfg.Scene.APIKey)
	}
	if cfg.Analysis.Mode != config.ModeHybrid {
		t.Fatalf("expected hybrid mode by default, got %q", cfg.Analysis.Mode)
	}
	if cfg.Analysis.TranscriptSource != config.TranscriptFromSpeech {
		t.Fatalf("expected speech transcript source by default, got %q", cfg.Analysis.TranscriptSource)
	}
	if cfg.Analysis.TranscriptFallback {
		t.Fatal("expected transcript fallback disabled by default")
	}
	if !cfg.SpeechEnabled() || !cfg.SceneEnabled() {
		t.Fatal("expected both analyzers enabled in hybrid mode")
	}
	if cfg.CallTimeout() != 120*time.Second {
		t.Fatalf("unexpected call timeout: %s", cfg.CallTimeout())
	}
	if cfg.RetryBaseDelay() != 500*time.Millisecond || cfg.RetryMaxDelay() != 8*time.Second {
		t.Fatalf("unexpected retry bounds: %s..%s", cfg.RetryBaseDelay(), cfg.RetryMaxDelay())
	}
	if cfg.Scene.Model != config.Default().Scene.Model {
		t.Fatalf("unexpected scene model: %q", cfg.Scene.Model)
	}
	if cfg.CheckpointPath() != filepath.Join(wantState, "checkpoints.db") {
		t.Fatalf("unexpected checkpoint path: %q", cfg.CheckpointPath())
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	setAPIKeys(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	content := `
[paths]
output_dir = "~/trips"
inbox_dir = "~/inbox"

[analysis]
mode = "scene-only"
clip_workers = 3
retry_attempts = 5

[speech]
provider = "whisper"

[scene]
api_key = "file-key"
model = "google/gemini-2.5-pro"

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "trips") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Paths.InboxDir != filepath.Join(tempHome, "inbox") {
		t.Fatalf("unexpected inbox dir: %q", cfg.Paths.InboxDir)
	}
	if cfg.Analysis.Mode != config.ModeSceneOnly {
		t.Fatalf("expected scene_only mode, got %q", cfg.Analysis.Mode)
	}
	if cfg.Analysis.TranscriptSource != config.TranscriptFromScene {
		t.Fatalf("expected scene transcript source for scene_only, got %q", cfg.Analysis.TranscriptSource)
	}
	if cfg.SpeechEnabled() {
		t.Fatal("expected speech analyzer disabled in scene_only mode")
	}
	if cfg.Analysis.ClipWorkers != 3 || cfg.Analysis.RetryAttempts != 5 {
		t.Fatalf("unexpected analysis overrides: %+v", cfg.Analysis)
	}
	if cfg.Speech.Model != "whisper-1" {
		t.Fatalf("expected whisper model for whisper provider, got %q", cfg.Speech.Model)
	}
	if cfg.Scene.APIKey != "file-key" {
		t.Fatalf("expected file key to win over env, got %q", cfg.Scene.APIKey)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadRequiresKeysForEnabledAnalyzers(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "scene")

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected missing speech key to fail validation")
	}
	if !strings.Contains(err.Error(), "speech.api_key") {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, _, _, err := config.LoadForDryRun(""); err != nil {
		t.Fatalf("dry run should not require keys: %v", err)
	}
}

func TestSpeechOnlyModeIgnoresSceneKey(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("OPENAI_API_KEY", "openai")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	configPath := filepath.Join(tempHome, "config.toml")
	if err := os.WriteFile(configPath, []byte("[analysis]\nmode = \"speech_only\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.SceneEnabled() {
		t.Fatal("expected scene analyzer disabled")
	}
}

func TestValidateRejectsInconsistentSettings(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown mode", func(c *config.Config) { c.Analysis.Mode = "triple" }, "analysis.mode"},
		{"unknown source", func(c *config.Config) { c.Analysis.TranscriptSource = "both" }, "analysis.transcript_source"},
		{"scene only with speech source", func(c *config.Config) {
			c.Analysis.Mode = config.ModeSceneOnly
			c.Analysis.TranscriptSource = config.TranscriptFromSpeech
		}, "scene_only"},
		{"zero workers", func(c *config.Config) { c.Analysis.ClipWorkers = 0 }, "analysis.clip_workers"},
		{"base above cap", func(c *config.Config) { c.Analysis.RetryBaseDelayMS = 10_000 }, "retry_base_delay_ms"},
		{"bad provider", func(c *config.Config) { c.Speech.Provider = "local" }, "speech.provider"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Speech.APIKey = "a"
			cfg.Scene.APIKey = "b"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	setAPIKeys(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	target := filepath.Join(tempHome, "sample", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if _, _, _, err := config.Load(target); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "# comment\nexport CHRONICLE_TEST_A=\"from-file\"\nCHRONICLE_TEST_B=from-file\nnot a pair\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("CHRONICLE_TEST_B", "from-env")
	t.Setenv("CHRONICLE_TEST_A", "")
	os.Unsetenv("CHRONICLE_TEST_A")

	config.LoadDotEnv(envPath)

	if got := os.Getenv("CHRONICLE_TEST_A"); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
	if got := os.Getenv("CHRONICLE_TEST_B"); got != "from-env" {
		t.Fatalf("expected environment to win, got %q", got)
	}
}

func TestEnsureDirectoriesCreatesInbox(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.InboxDir = filepath.Join(base, "inbox")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.WorkDir, cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Paths.InboxDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
