package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateSpeech(); err != nil {
		return err
	}
	if err := c.validateScene(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	switch c.Analysis.Mode {
	case ModeHybrid, ModeSpeechOnly, ModeSceneOnly:
	default:
		return fmt.Errorf("analysis.mode must be one of %q, %q, %q (got %q)", ModeHybrid, ModeSpeechOnly, ModeSceneOnly, c.Analysis.Mode)
	}
	switch c.Analysis.TranscriptSource {
	case TranscriptFromSpeech, TranscriptFromScene:
	default:
		return fmt.Errorf("analysis.transcript_source must be %q or %q (got %q)", TranscriptFromSpeech, TranscriptFromScene, c.Analysis.TranscriptSource)
	}
	if c.Analysis.Mode == ModeSceneOnly && c.Analysis.TranscriptSource != TranscriptFromScene {
		return errors.New("analysis.transcript_source must be \"scene\" when analysis.mode is \"scene_only\"")
	}
	if c.Analysis.Mode == ModeSpeechOnly && c.Analysis.TranscriptSource != TranscriptFromSpeech {
		return errors.New("analysis.transcript_source must be \"speech\" when analysis.mode is \"speech_only\"")
	}
	if err := ensurePositiveMap(map[string]int{
		"analysis.clip_workers":         c.Analysis.ClipWorkers,
		"analysis.call_timeout_seconds": c.Analysis.CallTimeoutSeconds,
		"analysis.retry_attempts":       c.Analysis.RetryAttempts,
		"analysis.retry_max_delay_ms":   c.Analysis.RetryMaxDelayMS,
	}); err != nil {
		return err
	}
	if c.Analysis.RetryBaseDelayMS < 0 {
		return errors.New("analysis.retry_base_delay_ms must be >= 0")
	}
	if c.Analysis.RetryBaseDelayMS > c.Analysis.RetryMaxDelayMS {
		return errors.New("analysis.retry_base_delay_ms must not exceed analysis.retry_max_delay_ms")
	}
	return nil
}

func (c *Config) validateSpeech() error {
	if !c.SpeechEnabled() {
		return nil
	}
	switch c.Speech.Provider {
	case SpeechProviderDiarize, SpeechProviderWhisper:
	default:
		return fmt.Errorf("speech.provider must be %q or %q (got %q)", SpeechProviderDiarize, SpeechProviderWhisper, c.Speech.Provider)
	}
	if c.DryRun {
		return nil
	}
	if strings.TrimSpace(c.Speech.APIKey) == "" {
		return fmt.Errorf("speech.api_key is required when analysis.mode is %q. Set OPENAI_API_KEY or edit %s (create with 'chronicle config init')", c.Analysis.Mode, displayConfigPath())
	}
	return nil
}

func (c *Config) validateScene() error {
	if !c.SceneEnabled() {
		return nil
	}
	if c.Scene.TimeoutSeconds <= 0 {
		return errors.New("scene.timeout_seconds must be positive")
	}
	if c.DryRun {
		return nil
	}
	if strings.TrimSpace(c.Scene.APIKey) == "" {
		return fmt.Errorf("scene.api_key is required when analysis.mode is %q. Set OPENROUTER_API_KEY or edit %s", c.Analysis.Mode, displayConfigPath())
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error (got %q)", c.Logging.Level)
	}
}

func displayConfigPath() string {
	path, err := DefaultConfigPath()
	if err != nil {
		return defaultConfigPath
	}
	return path
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
