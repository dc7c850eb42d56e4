package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStore()
	if err := c.normalizeExtraction(); err != nil {
		return err
	}
	c.normalizeReceiving()
	c.normalizeMirror()
	c.normalizeAdmin()
	c.normalizeLogging()
	c.Metrics.Listen = strings.TrimSpace(c.Metrics.Listen)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.InboxDir) == "" {
		c.Paths.InboxDir = defaultInboxDir
	}
	if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
		return fmt.Errorf("paths.inbox_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = defaultExportDir
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() {
	if c.Store.BusyTimeoutMS <= 0 {
		c.Store.BusyTimeoutMS = defaultBusyTimeoutMS
	}
	if c.Store.CacheSizeKiB <= 0 {
		c.Store.CacheSizeKiB = defaultCacheSizeKiB
	}
	if c.Store.RetryInitialBackoffMS <= 0 {
		c.Store.RetryInitialBackoffMS = defaultRetryInitialBackoffMS
	}
}

func (c *Config) normalizeExtraction() error {
	c.Extraction.DestinationCode = strings.ToUpper(strings.TrimSpace(c.Extraction.DestinationCode))
	if c.Extraction.DestinationCode == "" {
		c.Extraction.DestinationCode = defaultDestinationCode
	}
	components := make([]string, 0, len(c.Extraction.DestinationComponents))
	for _, component := range c.Extraction.DestinationComponents {
		component = strings.ToUpper(strings.TrimSpace(component))
		if component == "" {
			continue
		}
		components = append(components, component)
	}
	c.Extraction.DestinationComponents = components
	c.Extraction.TerminalPrefix = strings.ToUpper(strings.TrimSpace(c.Extraction.TerminalPrefix))
	if c.Extraction.TerminalPrefix == "" {
		c.Extraction.TerminalPrefix = defaultTerminalPrefix
	}
	c.Extraction.PdftotextBinary = strings.TrimSpace(c.Extraction.PdftotextBinary)
	if c.Extraction.PdftotextBinary == "" {
		c.Extraction.PdftotextBinary = defaultPdftotextBinary
	}
	if strings.TrimSpace(c.Extraction.RulesPath) != "" {
		var err error
		if c.Extraction.RulesPath, err = expandPath(strings.TrimSpace(c.Extraction.RulesPath)); err != nil {
			return fmt.Errorf("extraction.rules_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeReceiving() {
	c.Receiving.DefaultOperator = strings.TrimSpace(c.Receiving.DefaultOperator)
	if value, ok := os.LookupEnv("MANIFESTRECON_OPERATOR"); ok && strings.TrimSpace(value) != "" {
		c.Receiving.DefaultOperator = strings.TrimSpace(value)
	}
	if c.Receiving.DefaultOperator == "" {
		c.Receiving.DefaultOperator = defaultOperator
	}
}

func (c *Config) normalizeMirror() {
	c.Mirror.Endpoint = strings.TrimRight(strings.TrimSpace(c.Mirror.Endpoint), "/")
	c.Mirror.APIToken = strings.TrimSpace(c.Mirror.APIToken)
	if c.Mirror.APIToken == "" {
		if value, ok := os.LookupEnv("MANIFESTRECON_MIRROR_TOKEN"); ok {
			c.Mirror.APIToken = strings.TrimSpace(value)
		}
	}
	c.Mirror.Sheet = strings.TrimSpace(c.Mirror.Sheet)
	if c.Mirror.Sheet == "" {
		c.Mirror.Sheet = defaultMirrorSheet
	}
	if c.Mirror.TaskDelayMS < 0 {
		c.Mirror.TaskDelayMS = defaultMirrorTaskDelayMS
	}
	if c.Mirror.MaxRetries <= 0 {
		c.Mirror.MaxRetries = defaultMirrorMaxRetries
	}
	if c.Mirror.BaseDelayMS <= 0 {
		c.Mirror.BaseDelayMS = defaultMirrorBaseDelayMS
	}
	if c.Mirror.RequestTimeoutSeconds <= 0 {
		c.Mirror.RequestTimeoutSeconds = defaultMirrorRequestTimeout
	}
	if c.Mirror.QueueSize <= 0 {
		c.Mirror.QueueSize = defaultMirrorQueueSize
	}
}

func (c *Config) normalizeAdmin() {
	c.Admin.SecretHash = strings.TrimSpace(c.Admin.SecretHash)
	if c.Admin.SecretHash == "" {
		if value, ok := os.LookupEnv("MANIFESTRECON_ADMIN_SECRET_HASH"); ok {
			c.Admin.SecretHash = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
