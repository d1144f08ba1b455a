// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"path/filepath"
	"testing"
	"time"

	"tagforge/internal/auditstore"
	"tagforge/internal/config"
	"tagforge/internal/logging"
	"tagforge/internal/schema"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// WithInferenceDisabled turns off model calls on the test config.
func WithInferenceDisabled() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Inference.Enabled = false
	}
}

// WithWorkers overrides the worker pool size on the test config.
func WithWorkers(workers int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Runner.Workers = workers
	}
}

// NewConfig produces a config seeded with unique temp directories per test
// and a sample schema file already in place.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Schema.Path = filepath.Join(base, "schema.toml")
	cfg.Inference.APIKey = "test"
	cfg.Runner.Workers = 2

	if err := schema.CreateSample(cfg.Schema.Path); err != nil {
		t.Fatalf("create sample schema: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// OpenStore opens an audit store under the config's data directory and
// closes it when the test finishes.
func OpenStore(t testing.TB, cfg *config.Config) *auditstore.Store {
	t.Helper()
	store, err := auditstore.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("open audit store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// NewSchemaCache builds a schema cache over the config's schema file.
func NewSchemaCache(t testing.TB, cfg *config.Config) *schema.Cache {
	t.Helper()
	cache, err := schema.NewCache(
		cfg.Schema.Path,
		time.Duration(cfg.Schema.RefreshSeconds)*time.Second,
		logging.NewNop(),
	)
	if err != nil {
		t.Fatalf("new schema cache: %v", err)
	}
	return cache
}
