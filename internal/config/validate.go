package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateMirror(); err != nil {
		return err
	}
	if err := c.validateAdmin(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStore() error {
	if c.Store.RetryAttempts < 1 || c.Store.RetryAttempts > 10 {
		return errors.New("store.retry_attempts must be between 1 and 10")
	}
	if c.Store.BusyTimeoutMS <= 0 {
		return errors.New("store.busy_timeout_ms must be positive")
	}
	return nil
}

func (c *Config) validateExtraction() error {
	if c.Extraction.DestinationCode == "" {
		return errors.New("extraction.destination_code must be set")
	}
	if len(c.Extraction.DestinationComponents) == 1 {
		return errors.New("extraction.destination_components needs two entries (for example [\"PAMA\", \"LS\"]) or none")
	}
	for _, r := range c.Extraction.TerminalPrefix {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("extraction.terminal_prefix %q must contain only letters", c.Extraction.TerminalPrefix)
		}
	}
	return nil
}

func (c *Config) validateMirror() error {
	if !c.Mirror.Enabled {
		return nil
	}
	if c.Mirror.Endpoint == "" {
		return errors.New("mirror.endpoint must be set when mirror.enabled is true")
	}
	parsed, err := url.Parse(c.Mirror.Endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("mirror.endpoint %q must be an absolute URL", c.Mirror.Endpoint)
	}
	return nil
}

func (c *Config) validateAdmin() error {
	if c.Admin.SecretHash == "" {
		return nil
	}
	if !strings.HasPrefix(c.Admin.SecretHash, "$2") {
		return errors.New("admin.secret_hash must be a bcrypt hash (generate with 'manifestrecon secret hash')")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	return nil
}
