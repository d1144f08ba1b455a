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
	if err := c.normalizeSchema(); err != nil {
		return err
	}
	c.normalizeInference()
	c.normalizeRunner()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSchema() error {
	var err error
	if strings.TrimSpace(c.Schema.Path) == "" {
		c.Schema.Path = defaultSchemaPath
	}
	if c.Schema.Path, err = expandPath(c.Schema.Path); err != nil {
		return fmt.Errorf("schema.path: %w", err)
	}
	if c.Schema.RefreshSeconds <= 0 {
		c.Schema.RefreshSeconds = defaultSchemaRefreshSeconds
	}
	return nil
}

func (c *Config) normalizeInference() {
	c.Inference.BaseURL = strings.TrimSpace(c.Inference.BaseURL)
	if c.Inference.BaseURL == "" {
		c.Inference.BaseURL = defaultInferenceBaseURL
	}
	c.Inference.PrimaryModel = strings.TrimSpace(c.Inference.PrimaryModel)
	if c.Inference.PrimaryModel == "" {
		c.Inference.PrimaryModel = defaultPrimaryModel
	}
	c.Inference.SecondaryModel = strings.TrimSpace(c.Inference.SecondaryModel)
	if c.Inference.SecondaryModel == "" {
		c.Inference.SecondaryModel = defaultSecondaryModel
	}
	c.Inference.TertiaryModel = strings.TrimSpace(c.Inference.TertiaryModel)
	if c.Inference.TertiaryModel == "" {
		c.Inference.TertiaryModel = defaultTertiaryModel
	}
	if c.Inference.ConfidenceThreshold == 0 {
		c.Inference.ConfidenceThreshold = defaultConfidenceThreshold
	}
	if c.Inference.Temperature < 0 {
		c.Inference.Temperature = defaultTemperature
	}
	if c.Inference.RecoveryTemperature <= 0 {
		c.Inference.RecoveryTemperature = defaultRecoveryTemperature
	}
	if c.Inference.TimeoutSeconds <= 0 {
		c.Inference.TimeoutSeconds = defaultInferenceTimeoutSeconds
	}
	if c.Inference.RequestsPerSecond <= 0 {
		c.Inference.RequestsPerSecond = defaultRequestsPerSecond
	}
	c.Inference.APIKey = strings.TrimSpace(c.Inference.APIKey)
	if c.Inference.APIKey == "" {
		if value, ok := os.LookupEnv("TAGFORGE_API_KEY"); ok {
			c.Inference.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.Inference.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeRunner() {
	if c.Runner.Workers <= 0 {
		c.Runner.Workers = defaultWorkers
	}
	if c.Runner.ThroughputWindowSeconds <= 0 {
		c.Runner.ThroughputWindowSeconds = defaultThroughputWindowSeconds
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
}
