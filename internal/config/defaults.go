package config

const (
	defaultDataDir               = "~/.local/share/manifestrecon"
	defaultLogDir                = "~/.local/share/manifestrecon/logs"
	defaultInboxDir              = "~/.local/share/manifestrecon/inbox"
	defaultExportDir             = "~/manifestrecon-exports"
	defaultBusyTimeoutMS         = 30000
	defaultCacheSizeKiB          = 8192
	defaultRetryAttempts         = 4
	defaultRetryInitialBackoffMS = 100
	defaultDestinationCode       = "PAMALS"
	defaultTerminalPrefix        = "PCAN"
	defaultPdftotextBinary       = "pdftotext"
	defaultOperator              = "Sistema"
	defaultMirrorSheet           = "manifests"
	defaultMirrorTaskDelayMS     = 1500
	defaultMirrorMaxRetries      = 8
	defaultMirrorBaseDelayMS     = 2000
	defaultMirrorRequestTimeout  = 10
	defaultMirrorQueueSize       = 256
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

var defaultDestinationComponents = []string{"PAMA", "LS"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			InboxDir:  defaultInboxDir,
			ExportDir: defaultExportDir,
		},
		Store: Store{
			BusyTimeoutMS:         defaultBusyTimeoutMS,
			CacheSizeKiB:          defaultCacheSizeKiB,
			RetryAttempts:         defaultRetryAttempts,
			RetryInitialBackoffMS: defaultRetryInitialBackoffMS,
		},
		Extraction: Extraction{
			DestinationCode:       defaultDestinationCode,
			DestinationComponents: append([]string(nil), defaultDestinationComponents...),
			TerminalPrefix:        defaultTerminalPrefix,
			PdftotextBinary:       defaultPdftotextBinary,
		},
		Receiving: Receiving{
			DefaultOperator: defaultOperator,
		},
		Mirror: Mirror{
			Sheet:                 defaultMirrorSheet,
			TaskDelayMS:           defaultMirrorTaskDelayMS,
			MaxRetries:            defaultMirrorMaxRetries,
			BaseDelayMS:           defaultMirrorBaseDelayMS,
			RequestTimeoutSeconds: defaultMirrorRequestTimeout,
			QueueSize:             defaultMirrorQueueSize,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
