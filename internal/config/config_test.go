package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"manifestrecon/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("MANIFESTRECON_MIRROR_TOKEN", "env-token")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "manifestrecon")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "manifests.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Extraction.DestinationCode != "PAMALS" {
		t.Fatalf("unexpected destination code: %q", cfg.Extraction.DestinationCode)
	}
	if len(cfg.Extraction.DestinationComponents) != 2 {
		t.Fatalf("expected default destination components, got %v", cfg.Extraction.DestinationComponents)
	}
	if cfg.Mirror.Enabled {
		t.Fatal("expected mirror disabled by default")
	}
	if cfg.Mirror.APIToken != "env-token" {
		t.Fatalf("expected mirror token from env, got %q", cfg.Mirror.APIToken)
	}
	if cfg.Receiving.DefaultOperator != "Sistema" {
		t.Fatalf("unexpected default operator: %q", cfg.Receiving.DefaultOperator)
	}
	if cfg.Store.RetryAttempts != 4 {
		t.Fatalf("unexpected retry attempts: %d", cfg.Store.RetryAttempts)
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MANIFESTRECON_OPERATOR", "")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "manifestrecon.toml")

	type payload struct {
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
		Extraction struct {
			DestinationCode       string   `toml:"destination_code"`
			DestinationComponents []string `toml:"destination_components"`
		} `toml:"extraction"`
		Receiving struct {
			DefaultOperator string `toml:"default_operator"`
		} `toml:"receiving"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Extraction.DestinationCode = " pamasp "
	custom.Extraction.DestinationComponents = []string{"pama", " sp"}
	custom.Receiving.DefaultOperator = "  Sgt Lima "
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.DataDir != filepath.Join(tempDir, "data") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Extraction.DestinationCode != "PAMASP" {
		t.Fatalf("expected destination code to be uppercased, got %q", cfg.Extraction.DestinationCode)
	}
	if got := strings.Join(cfg.Extraction.DestinationComponents, ","); got != "PAMA,SP" {
		t.Fatalf("unexpected destination components: %q", got)
	}
	if cfg.Receiving.DefaultOperator != "Sgt Lima" {
		t.Fatalf("unexpected operator: %q", cfg.Receiving.DefaultOperator)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json logging, got %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("[store\nretry_attempts = "), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOperatorOverridesConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MANIFESTRECON_OPERATOR", "Cabo Souza")
	path := filepath.Join(t.TempDir(), "manifestrecon.toml")
	if err := os.WriteFile(path, []byte("[receiving]\ndefault_operator = \"Sistema\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Receiving.DefaultOperator != "Cabo Souza" {
		t.Fatalf("expected env operator, got %q", cfg.Receiving.DefaultOperator)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "destination_code") {
		t.Fatalf("sample config missing destination code: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Extraction.DestinationCode != "PAMALS" {
		t.Fatalf("unexpected sample destination: %q", cfg.Extraction.DestinationCode)
	}
	if cfg.Mirror.TaskDelayMS != 1500 {
		t.Fatalf("unexpected sample task delay: %d", cfg.Mirror.TaskDelayMS)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero retry attempts", func(c *config.Config) { c.Store.RetryAttempts = 0 }},
		{"too many retry attempts", func(c *config.Config) { c.Store.RetryAttempts = 11 }},
		{"empty destination", func(c *config.Config) { c.Extraction.DestinationCode = "" }},
		{"single component", func(c *config.Config) { c.Extraction.DestinationComponents = []string{"PAMA"} }},
		{"numeric prefix", func(c *config.Config) { c.Extraction.TerminalPrefix = "PC4N" }},
		{"mirror without endpoint", func(c *config.Config) { c.Mirror.Enabled = true }},
		{"mirror relative endpoint", func(c *config.Config) {
			c.Mirror.Enabled = true
			c.Mirror.Endpoint = "sheets.local/api"
		}},
		{"plain secret", func(c *config.Config) { c.Admin.SecretHash = "hunter2" }},
		{"unknown log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"unknown log level", func(c *config.Config) { c.Logging.Level = "trace" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}
