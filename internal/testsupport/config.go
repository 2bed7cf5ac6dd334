package testsupport

import (
	"path/filepath"
	"testing"

	"sweeper/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfg.Paths.ExtractDir = filepath.Join(base, "extract")
	cfg.Paths.EndedDir = filepath.Join(base, "ended")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Workflow.ShutdownGrace = 5

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithSonarr points the series scanner at url.
func WithSonarr(url, apiKey string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sonarr.URL = url
		cfg.Sonarr.APIKey = apiKey
	}
}

// WithRadarr points the movie scanner at url.
func WithRadarr(url, apiKey string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Radarr.URL = url
		cfg.Radarr.APIKey = apiKey
	}
}
