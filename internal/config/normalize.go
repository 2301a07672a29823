package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAnalysis()
	c.normalizeSpeech()
	c.normalizeScene()
	c.normalizeLogging()
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	if c.Watch.SettleSeconds < 0 {
		c.Watch.SettleSeconds = 0
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.InboxDir, err = expandPath(strings.TrimSpace(c.Paths.InboxDir)); err != nil {
		return fmt.Errorf("paths.inbox_dir: %w", err)
	}
	if c.Paths.EnvFile, err = expandPath(strings.TrimSpace(c.Paths.EnvFile)); err != nil {
		return fmt.Errorf("paths.env_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeAnalysis() {
	c.Analysis.Mode = strings.ToLower(strings.TrimSpace(c.Analysis.Mode))
	c.Analysis.Mode = strings.ReplaceAll(c.Analysis.Mode, "-", "_")
	switch c.Analysis.Mode {
	case "":
		c.Analysis.Mode = defaultMode
	case "combined":
		c.Analysis.Mode = ModeSceneOnly
	}
	c.Analysis.TranscriptSource = strings.ToLower(strings.TrimSpace(c.Analysis.TranscriptSource))
	if c.Analysis.TranscriptSource == "" {
		switch c.Analysis.Mode {
		case ModeSceneOnly:
			c.Analysis.TranscriptSource = TranscriptFromScene
		default:
			c.Analysis.TranscriptSource = defaultTranscriptSource
		}
	}
	if c.Analysis.ClipWorkers == 0 {
		c.Analysis.ClipWorkers = defaultClipWorkers
	}
	if c.Analysis.CallTimeoutSeconds == 0 {
		c.Analysis.CallTimeoutSeconds = defaultCallTimeoutSeconds
	}
	if c.Analysis.RetryAttempts == 0 {
		c.Analysis.RetryAttempts = defaultRetryAttempts
	}
	if c.Analysis.RetryMaxDelayMS == 0 {
		c.Analysis.RetryMaxDelayMS = defaultRetryMaxDelayMS
	}
	if c.Analysis.StoryBeatSummaryThreshold <= 0 {
		c.Analysis.StoryBeatSummaryThreshold = defaultStoryBeatSummaryThreshold
	}
}

func (c *Config) normalizeSpeech() {
	c.Speech.Provider = strings.ToLower(strings.TrimSpace(c.Speech.Provider))
	if c.Speech.Provider == "" {
		c.Speech.Provider = defaultSpeechProvider
	}
	c.Speech.BaseURL = strings.TrimRight(strings.TrimSpace(c.Speech.BaseURL), "/")
	if c.Speech.BaseURL == "" {
		c.Speech.BaseURL = defaultSpeechBaseURL
	}
	c.Speech.Model = strings.TrimSpace(c.Speech.Model)
	if c.Speech.Model == "" || (c.Speech.Provider == SpeechProviderWhisper && c.Speech.Model == defaultDiarizeModel) {
		switch c.Speech.Provider {
		case SpeechProviderWhisper:
			c.Speech.Model = defaultWhisperModel
		default:
			c.Speech.Model = defaultDiarizeModel
		}
	}
	c.Speech.Language = strings.ToLower(strings.TrimSpace(c.Speech.Language))
	c.Speech.APIKey = strings.TrimSpace(c.Speech.APIKey)
	if c.Speech.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.Speech.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeScene() {
	c.Scene.BaseURL = strings.TrimSpace(c.Scene.BaseURL)
	if c.Scene.BaseURL == "" {
		c.Scene.BaseURL = defaultSceneBaseURL
	}
	c.Scene.Model = strings.TrimSpace(c.Scene.Model)
	if c.Scene.Model == "" {
		c.Scene.Model = defaultSceneModel
	}
	c.Scene.Referer = strings.TrimSpace(c.Scene.Referer)
	if c.Scene.Referer == "" {
		c.Scene.Referer = defaultSceneReferer
	}
	c.Scene.Title = strings.TrimSpace(c.Scene.Title)
	if c.Scene.Title == "" {
		c.Scene.Title = defaultSceneTitle
	}
	if c.Scene.TimeoutSeconds <= 0 {
		c.Scene.TimeoutSeconds = defaultSceneTimeoutSeconds
	}
	c.Scene.APIKey = strings.TrimSpace(c.Scene.APIKey)
	if c.Scene.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.Scene.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.Scene.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
}

func (c *Config) normalizeMetrics() error {
	textfile := strings.TrimSpace(c.Metrics.Textfile)
	if textfile == "" {
		c.Metrics.Textfile = ""
		return nil
	}
	expanded, err := expandPath(textfile)
	if err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	c.Metrics.Textfile = expanded
	return nil
}
