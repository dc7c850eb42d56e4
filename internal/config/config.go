package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	InboxDir  string `toml:"inbox_dir"`
	ExportDir string `toml:"export_dir"`
}

// Store contains SQLite tuning and write retry settings.
type Store struct {
	BusyTimeoutMS         int `toml:"busy_timeout_ms"`
	CacheSizeKiB          int `toml:"cache_size_kib"`
	RetryAttempts         int `toml:"retry_attempts"`
	RetryInitialBackoffMS int `toml:"retry_initial_backoff_ms"`
}

// Extraction contains the destination identity and parsing knobs for manifest text.
type Extraction struct {
	DestinationCode       string   `toml:"destination_code"`
	DestinationComponents []string `toml:"destination_components"`
	TerminalPrefix        string   `toml:"terminal_prefix"`
	RulesPath             string   `toml:"rules_path"`
	PdftotextBinary       string   `toml:"pdftotext_binary"`
}

// Receiving contains operator defaults for receiving sessions.
type Receiving struct {
	DefaultOperator string `toml:"default_operator"`
}

// Mirror contains configuration for the external spreadsheet mirror.
type Mirror struct {
	Enabled               bool   `toml:"enabled"`
	Endpoint              string `toml:"endpoint"`
	APIToken              string `toml:"api_token"`
	Sheet                 string `toml:"sheet"`
	TaskDelayMS           int    `toml:"task_delay_ms"`
	MaxRetries            int    `toml:"max_retries"`
	BaseDelayMS           int    `toml:"base_delay_ms"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	QueueSize             int    `toml:"queue_size"`
}

// Admin contains the shared secret used to gate destructive operations.
type Admin struct {
	// SecretHash is a bcrypt hash; generate one with `manifestrecon secret hash`.
	SecretHash string `toml:"secret_hash"`
}

// Metrics contains the Prometheus listener configuration.
type Metrics struct {
	Listen string `toml:"listen"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for manifestrecon.
//
// Configuration sections by subsystem:
//   - Paths: database, log, inbox and export directories
//   - Store: SQLite busy timeout, cache size and write retry budget
//   - Extraction: destination identity and manifest text heuristics
//   - Receiving: operator defaults
//   - Mirror: external spreadsheet mirror
//   - Admin: shared secret for cascade delete
//   - Metrics: Prometheus listener for the watch command
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Store      Store      `toml:"store"`
	Extraction Extraction `toml:"extraction"`
	Receiving  Receiving  `toml:"receiving"`
	Mirror     Mirror     `toml:"mirror"`
	Admin      Admin      `toml:"admin"`
	Metrics    Metrics    `toml:"metrics"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/manifestrecon/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory is loaded
// first so its values act as environment fallbacks.
func Load(path string) (*Config, string, bool, error) {
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("manifestrecon.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories. The inbox and export
// directories are created on demand by the commands that use them.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite file backing the store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "manifests.db")
}

// LockPath returns the lock file guarding the single watch instance.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "watch.lock")
}

// BusyTimeout returns the SQLite busy timeout as a duration.
func (c *Config) BusyTimeout() time.Duration {
	return time.Duration(c.Store.BusyTimeoutMS) * time.Millisecond
}

// RetryInitialBackoff returns the first backoff delay for contended writes.
func (c *Config) RetryInitialBackoff() time.Duration {
	return time.Duration(c.Store.RetryInitialBackoffMS) * time.Millisecond
}

// MirrorTaskDelay returns the fixed pause between mirror tasks.
func (c *Config) MirrorTaskDelay() time.Duration {
	return time.Duration(c.Mirror.TaskDelayMS) * time.Millisecond
}

// MirrorBaseDelay returns the first backoff delay for failed mirror calls.
func (c *Config) MirrorBaseDelay() time.Duration {
	return time.Duration(c.Mirror.BaseDelayMS) * time.Millisecond
}

// MirrorRequestTimeout returns the per-request HTTP timeout for the mirror.
func (c *Config) MirrorRequestTimeout() time.Duration {
	return time.Duration(c.Mirror.RequestTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
