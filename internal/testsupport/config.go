// Package testsupport provides shared fixtures: temp-dir configs, dummy
// acquisition session trees, and synthetic sync traces.
package testsupport

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"mesoprep/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// All directories (including the transfer destination) exist on return.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.AcquisitionDir = filepath.Join(base, "acquisition")
	cfg.Paths.BehaviorVideoDir = filepath.Join(base, "behavior_videos")
	cfg.Paths.ManifestDir = filepath.Join(base, "manifests")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Transfer.Destination = filepath.Join(base, "destination")

	for _, opt := range opts {
		opt(&cfg)
	}

	for _, dir := range []string{
		cfg.Paths.AcquisitionDir,
		cfg.Paths.BehaviorVideoDir,
		cfg.Paths.ManifestDir,
		cfg.Paths.LogDir,
		cfg.Transfer.Destination,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config should validate: %v", err)
	}
	return &cfg
}

// WithRequireAllPatterns upgrades missing glob matches to fatal errors.
func WithRequireAllPatterns() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Transfer.RequireAllPatterns = true
	}
}

// Logger returns a logger that swallows output.
func Logger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
