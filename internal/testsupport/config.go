package testsupport

import (
	"path/filepath"
	"testing"

	"snapship/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Upload.URL = "http://127.0.0.1:0/upload"
	cfg.Paths.WatchDir = filepath.Join(base, "incoming")
	cfg.Paths.ArchiveDir = filepath.Join(base, "uploaded")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Watch.DebounceSeconds = 0

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithUploadURL sets the upload endpoint on the test config.
func WithUploadURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Upload.URL = url
	}
}
