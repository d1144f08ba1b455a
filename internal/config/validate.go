package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSchema(); err != nil {
		return err
	}
	if err := c.validateInference(); err != nil {
		return err
	}
	if err := c.validateRunner(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSchema() error {
	if strings.TrimSpace(c.Schema.Path) == "" {
		return errors.New("schema.path must be set")
	}
	if c.Schema.RefreshSeconds <= 0 {
		return errors.New("schema.refresh_seconds must be positive")
	}
	return nil
}

func (c *Config) validateInference() error {
	if !c.Inference.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Inference.APIKey) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/tagforge/config.toml"
		}
		return fmt.Errorf("inference.api_key is required when inference.enabled is true. Set TAGFORGE_API_KEY env var or edit %s (create with 'tagforge config init')", defaultPath)
	}
	if c.Inference.ConfidenceThreshold <= 0 || c.Inference.ConfidenceThreshold > 1 {
		return errors.New("inference.confidence_threshold must be between 0 and 1")
	}
	if c.Inference.Temperature < 0 || c.Inference.Temperature > 2 {
		return errors.New("inference.temperature must be between 0 and 2")
	}
	if c.Inference.RecoveryTemperature < 0 || c.Inference.RecoveryTemperature > 2 {
		return errors.New("inference.recovery_temperature must be between 0 and 2")
	}
	for key, value := range map[string]string{
		"inference.primary_model":   c.Inference.PrimaryModel,
		"inference.secondary_model": c.Inference.SecondaryModel,
		"inference.tertiary_model":  c.Inference.TertiaryModel,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	if c.Inference.TimeoutSeconds <= 0 {
		return errors.New("inference.timeout_seconds must be positive")
	}
	if c.Inference.RequestsPerSecond <= 0 {
		return errors.New("inference.requests_per_second must be positive")
	}
	return nil
}

func (c *Config) validateRunner() error {
	if c.Runner.Workers <= 0 {
		return errors.New("runner.workers must be positive")
	}
	if c.Runner.ThroughputWindowSeconds <= 0 {
		return errors.New("runner.throughput_window_seconds must be positive")
	}
	return nil
}
