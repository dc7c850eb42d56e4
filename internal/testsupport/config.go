package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"manifestrecon/internal/config"
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
	cfgVal.Paths.InboxDir = filepath.Join(base, "inbox")
	cfgVal.Paths.ExportDir = filepath.Join(base, "exports")
	cfgVal.Store.RetryInitialBackoffMS = 5

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

// WithMirror enables the mirror against endpoint with short delays.
func WithMirror(endpoint string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Mirror.Enabled = true
		b.cfg.Mirror.Endpoint = endpoint
		b.cfg.Mirror.APIToken = "test-token"
		b.cfg.Mirror.TaskDelayMS = 0
		b.cfg.Mirror.BaseDelayMS = 1
		b.cfg.Mirror.MaxRetries = 3
	}
}

// WithRetryAttempts overrides the store retry budget.
func WithRetryAttempts(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.RetryAttempts = n
	}
}

// WithStubbedPdftotext writes a pdftotext stand-in that prints output and
// points the extraction config at it.
func WithStubbedPdftotext(output string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		textPath := filepath.Join(binDir, "pdftotext.out")
		if err := os.WriteFile(textPath, []byte(output), 0o644); err != nil {
			b.t.Fatalf("write stub output: %v", err)
		}
		target := filepath.Join(binDir, "pdftotext")
		script := []byte("#!/bin/sh\ncat '" + textPath + "'\n")
		if err := os.WriteFile(target, script, 0o755); err != nil {
			b.t.Fatalf("write stub pdftotext: %v", err)
		}
		b.cfg.Extraction.PdftotextBinary = target
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

// WithAdminSecretHash sets the bcrypt hash gating cascade deletes.
func WithAdminSecretHash(hash string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Admin.SecretHash = hash
	}
}
