package config

const (
	defaultDataDir                 = "~/.local/share/tagforge"
	defaultOutputDir               = "~/.local/share/tagforge/output"
	defaultLogDir                  = "~/.local/share/tagforge/logs"
	defaultSchemaPath              = "~/.config/tagforge/schema.toml"
	defaultSchemaRefreshSeconds    = 60
	defaultInferenceBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultPrimaryModel            = "google/gemini-3-flash-preview"
	defaultSecondaryModel          = "openai/gpt-5-mini"
	defaultTertiaryModel           = "deepseek/deepseek-chat"
	defaultConfidenceThreshold     = 0.7
	defaultTemperature             = 0.2
	defaultRecoveryTemperature     = 0.6
	defaultInferenceTimeoutSeconds = 45
	defaultRequestsPerSecond       = 4.0
	defaultWorkers                 = 4
	defaultThroughputWindowSeconds = 30
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Schema: Schema{
			Path:           defaultSchemaPath,
			RefreshSeconds: defaultSchemaRefreshSeconds,
		},
		Inference: Inference{
			Enabled:             true,
			BaseURL:             defaultInferenceBaseURL,
			PrimaryModel:        defaultPrimaryModel,
			SecondaryModel:      defaultSecondaryModel,
			TertiaryModel:       defaultTertiaryModel,
			ConfidenceThreshold: defaultConfidenceThreshold,
			Temperature:         defaultTemperature,
			RecoveryTemperature: defaultRecoveryTemperature,
			TimeoutSeconds:      defaultInferenceTimeoutSeconds,
			RequestsPerSecond:   defaultRequestsPerSecond,
		},
		Runner: Runner{
			Workers:                 defaultWorkers,
			ThroughputWindowSeconds: defaultThroughputWindowSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
