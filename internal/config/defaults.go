package config

// Analysis modes.
const (
	ModeHybrid     = "hybrid"
	ModeSpeechOnly = "speech_only"
	ModeSceneOnly  = "scene_only"
)

// Transcript sources.
const (
	TranscriptFromSpeech = "speech"
	TranscriptFromScene  = "scene"
)

// Speech providers.
const (
	SpeechProviderDiarize = "diarize"
	SpeechProviderWhisper = "whisper"
)

const (
	defaultConfigPath                = "~/.config/chronicle/config.toml"
	defaultOutputDir                 = "~/chronicle/output"
	defaultWorkDir                   = "~/.local/share/chronicle/work"
	defaultStateDir                  = "~/.local/share/chronicle/state"
	defaultLogDir                    = "~/.local/share/chronicle/logs"
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultLogRetentionDays          = 30
	defaultLogMaxSizeMB              = 50
	defaultLogMaxBackups             = 5
	defaultMode                      = ModeHybrid
	defaultTranscriptSource          = TranscriptFromSpeech
	defaultClipWorkers               = 1
	defaultCallTimeoutSeconds        = 120
	defaultRetryAttempts             = 3
	defaultRetryBaseDelayMS          = 500
	defaultRetryMaxDelayMS           = 8000
	defaultStoryBeatSummaryThreshold = 200
	defaultSpeechProvider            = SpeechProviderDiarize
	defaultSpeechBaseURL             = "https://api.openai.com/v1"
	defaultDiarizeModel              = "gpt-4o-transcribe-diarize"
	defaultWhisperModel              = "whisper-1"
	defaultSceneBaseURL              = "https://openrouter.ai/api/v1/chat/completions"
	defaultSceneModel                = "google/gemini-3-flash-preview"
	defaultSceneReferer              = "https://github.com/chronicle/chronicle"
	defaultSceneTitle                = "Travel Chronicle"
	defaultSceneTimeoutSeconds       = 90
	defaultWatchSettleSeconds        = 5
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Analysis: Analysis{
			Mode:                      defaultMode,
			TranscriptSource:          defaultTranscriptSource,
			ParallelCalls:             true,
			ClipWorkers:               defaultClipWorkers,
			CallTimeoutSeconds:        defaultCallTimeoutSeconds,
			RetryAttempts:             defaultRetryAttempts,
			RetryBaseDelayMS:          defaultRetryBaseDelayMS,
			RetryMaxDelayMS:           defaultRetryMaxDelayMS,
			SummarizeStoryBeats:       true,
			StoryBeatSummaryThreshold: defaultStoryBeatSummaryThreshold,
		},
		Speech: Speech{
			Provider: defaultSpeechProvider,
			BaseURL:  defaultSpeechBaseURL,
			Model:    defaultDiarizeModel,
		},
		Scene: Scene{
			BaseURL:        defaultSceneBaseURL,
			Model:          defaultSceneModel,
			Referer:        defaultSceneReferer,
			Title:          defaultSceneTitle,
			TimeoutSeconds: defaultSceneTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
			MaxSizeMB:     defaultLogMaxSizeMB,
			MaxBackups:    defaultLogMaxBackups,
		},
		Watch: Watch{
			SettleSeconds:       defaultWatchSettleSeconds,
			PollArchivesOnStart: true,
		},
	}
}
