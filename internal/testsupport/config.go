package testsupport

import (
	"path/filepath"
	"testing"

	"clipcraft/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Polling is fast and capped so tests never wait on real time.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfgVal.Service.BaseURL = "http://127.0.0.1:1"
	cfgVal.Polling.IntervalMS = 1
	cfgVal.Polling.MaxAttempts = 20

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithService points the config at a fake processing service.
func WithService(fake *FakeService) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Service.BaseURL = fake.URL()
		b.cfg.Service.APIRoot = "/api"
	}
}

// WithMaxAttempts overrides the poll attempt cap.
func WithMaxAttempts(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Polling.MaxAttempts = n
	}
}

// WithReuseAuxiliary enables digest-based reuse of the music track.
func WithReuseAuxiliary() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Upload.ReuseAuxiliary = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
