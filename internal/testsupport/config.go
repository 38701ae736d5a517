package testsupport

import (
	"path/filepath"
	"testing"

	"satchel/internal/config"
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
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Delivery.Endpoint = "http://127.0.0.1:9/submit"
	cfgVal.Connectivity.ProbeURL = cfgVal.Delivery.Endpoint

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	return builder.cfg
}

// WithEndpoint points the delivery endpoint (and probe URL) at the given URL.
func WithEndpoint(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Delivery.Endpoint = url
		b.cfg.Connectivity.ProbeURL = url
	}
}

// WithMaxAttempts overrides the delivery attempt ceiling on the test config.
func WithMaxAttempts(attempts int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Delivery.MaxAttempts = attempts
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
