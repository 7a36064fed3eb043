// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"reelvault/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.SourceRoot = filepath.Join(base, "source")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.TargetRoot = filepath.Join(base, "target")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CatalogDB = filepath.Join(base, "catalog", "catalog.db")
	cfgVal.Hashing.Workers = 2
	cfgVal.Migration.Workers = 2
	cfgVal.Devices = map[string]string{
		"GoPro":  "gopro",
		"Drone":  "drone",
		"Phone":  "phone",
		"Camera": "camera",
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithDevices replaces the device prefix mapping on the test config.
func WithDevices(devices map[string]string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Devices = devices
	}
}

// WithPriority replaces the duplicate priority table on the test config.
func WithPriority(patterns ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Duplicates.Priority = patterns
	}
}

// WithLinkMode sets the duplicate link mode on the test config.
func WithLinkMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Migration.LinkMode = mode
	}
}

// WithProjects replaces the project rules on the test config.
func WithProjects(projects ...config.Project) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Projects = projects
	}
}

// BaseDir exposes the temp base directory backing a config built by
// NewConfig. Useful for placing fixtures next to the configured roots.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.SourceRoot)
}
