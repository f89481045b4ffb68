package testsupport

import (
	"path/filepath"
	"testing"

	"xmlwatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t      testing.TB
	cfg    *config.Config
	ensure bool
}

// NewConfig produces a config seeded with unique temp directories per test.
// Directories are created unless WithoutDirectories is passed.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.SourceDir = filepath.Join(base, "input")
	cfgVal.Paths.DestinationDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")

	builder := &configBuilder{t: t, cfg: &cfgVal, ensure: true}
	for _, opt := range opts {
		opt(builder)
	}

	if builder.ensure {
		if err := builder.cfg.EnsureDirectories(); err != nil {
			t.Fatalf("ensure directories: %v", err)
		}
	}
	return builder.cfg
}

// WithWorkers sets the worker pool size.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ingest.Workers = n
	}
}

// WithDedupWindow sets the duplicate-notification window in seconds.
func WithDedupWindow(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ingest.DedupWindowSeconds = seconds
	}
}

// WithoutDirectories skips directory creation.
func WithoutDirectories() ConfigOption {
	return func(b *configBuilder) {
		b.ensure = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.SourceDir)
}
