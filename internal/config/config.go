package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	WorkDir   string `toml:"work_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
	InboxDir  string `toml:"inbox_dir"`
	EnvFile   string `toml:"env_file"`
}

// Analysis controls which analyzers run per clip and how their calls behave.
type Analysis struct {
	// Mode selects the capability set: "hybrid" runs both analyzers,
	// "speech_only" and "scene_only" run one.
	Mode string `toml:"mode"`
	// TranscriptSource names the analyzer whose transcript wins when both return one.
	TranscriptSource string `toml:"transcript_source"`
	// TranscriptFallback lets the other analyzer's transcript fill in when the
	// preferred source failed or returned none.
	TranscriptFallback bool `toml:"transcript_fallback"`
	ParallelCalls      bool `toml:"parallel_calls"`
	ClipWorkers        int  `toml:"clip_workers"`
	CallTimeoutSeconds int  `toml:"call_timeout_seconds"`
	RetryAttempts      int  `toml:"retry_attempts"`
	RetryBaseDelayMS   int  `toml:"retry_base_delay_ms"`
	RetryMaxDelayMS    int  `toml:"retry_max_delay_ms"`

	SummarizeStoryBeats       bool `toml:"summarize_story_beats"`
	StoryBeatSummaryThreshold int  `toml:"story_beat_summary_threshold"`
}

// Speech contains configuration for the transcription/diarization provider.
type Speech struct {
	Provider string `toml:"provider"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	Model    string `toml:"model"`
	Language string `toml:"language"`
}

// Scene contains configuration for the scene-understanding LLM.
type Scene struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
	MaxSizeMB     int    `toml:"max_size_mb"`
	MaxBackups    int    `toml:"max_backups"`
}

// Metrics contains configuration for Prometheus metric export.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Watch contains configuration for the inbox watcher.
type Watch struct {
	SettleSeconds       int  `toml:"settle_seconds"`
	PollArchivesOnStart bool `toml:"poll_archives_on_start"`
}

// Config encapsulates all configuration values for Chronicle.
//
// Configuration sections by subsystem:
//   - Paths: output, extraction, checkpoint, log and inbox directories
//   - Analysis: capability set, transcript precedence, timeouts and retries
//   - Speech: transcription/diarization provider
//   - Scene: scene-understanding LLM
//   - Logging: log format, level, rotation and retention
//   - Metrics: optional Prometheus textfile export
//   - Watch: inbox watcher timing
type Config struct {
	Paths    Paths    `toml:"paths"`
	Analysis Analysis `toml:"analysis"`
	Speech   Speech   `toml:"speech"`
	Scene    Scene    `toml:"scene"`
	Logging  Logging  `toml:"logging"`
	Metrics  Metrics  `toml:"metrics"`
	Watch    Watch    `toml:"watch"`

	// DryRun relaxes credential validation; set by the CLI, never read from TOML.
	DryRun bool `toml:"-"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	return load(path, false)
}

// LoadForDryRun behaves like Load but does not require analyzer credentials.
func LoadForDryRun(path string) (*Config, string, bool, error) {
	return load(path, true)
}

func load(path string, dryRun bool) (*Config, string, bool, error) {
	cfg := Default()
	cfg.DryRun = dryRun

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	LoadDotEnv(".env")
	if strings.TrimSpace(cfg.Paths.EnvFile) != "" {
		if envPath, err := expandPath(cfg.Paths.EnvFile); err == nil {
			LoadDotEnv(envPath)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("chronicle.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a batch writes into.
// The inbox is only created when configured.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.WorkDir, c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.InboxDir) != "" {
		if err := os.MkdirAll(c.Paths.InboxDir, 0o755); err != nil {
			return fmt.Errorf("create inbox directory %q: %w", c.Paths.InboxDir, err)
		}
	}
	return nil
}

// SpeechEnabled reports whether the configured mode runs the Speech Analyzer.
func (c *Config) SpeechEnabled() bool {
	return c.Analysis.Mode == ModeHybrid || c.Analysis.Mode == ModeSpeechOnly
}

// SceneEnabled reports whether the configured mode runs the Scene Analyzer.
func (c *Config) SceneEnabled() bool {
	return c.Analysis.Mode == ModeHybrid || c.Analysis.Mode == ModeSceneOnly
}

// CallTimeout returns the per-call analyzer timeout.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Analysis.CallTimeoutSeconds) * time.Second
}

// RetryBaseDelay returns the first backoff delay between analyzer attempts.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Analysis.RetryBaseDelayMS) * time.Millisecond
}

// RetryMaxDelay returns the backoff cap between analyzer attempts.
func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.Analysis.RetryMaxDelayMS) * time.Millisecond
}

// LockPath returns the path of the watcher's single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "chronicle-watch.lock")
}

// CheckpointPath returns the SQLite database used for Progress State.
func (c *Config) CheckpointPath() string {
	return filepath.Join(c.Paths.StateDir, "checkpoints.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the scene LLM connection settings.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// SceneLLM returns the connection settings for the Scene Analyzer.
func (c *Config) SceneLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.Scene.APIKey),
		BaseURL:        strings.TrimSpace(c.Scene.BaseURL),
		Model:          strings.TrimSpace(c.Scene.Model),
		Referer:        strings.TrimSpace(c.Scene.Referer),
		Title:          strings.TrimSpace(c.Scene.Title),
		TimeoutSeconds: c.Scene.TimeoutSeconds,
	}
}
