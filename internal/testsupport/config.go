package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"baker/internal/config"
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
	cfg := &cfgVal
	cfg.Paths.DestinationRoot = filepath.Join(base, "projects")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.TemplatePath = filepath.Join(base, "template.prproj")
	cfg.Project.Username = "tester"
	cfg.Workflow.PromptOnSuccess = false

	if err := os.MkdirAll(cfg.Paths.DestinationRoot, 0o755); err != nil {
		t.Fatalf("mkdir destination root: %v", err)
	}
	if err := os.WriteFile(cfg.Paths.TemplatePath, []byte("template"), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	builder := &configBuilder{t: t, baseDir: base, cfg: cfg}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithExtraFolders sets the extra project folders on the test config.
func WithExtraFolders(folders ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Project.ExtraFolders = folders
	}
}

// WithVerify enables checksum verification of copied files.
func WithVerify() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Copy.Verify = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DestinationRoot)
}
