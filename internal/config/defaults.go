package config

const (
	defaultLibraryDir         = "~/.local/share/mediacat/library"
	defaultMusicDir           = "~/music"
	defaultLogDir             = "~/.local/share/mediacat/logs"
	defaultImportCacheDir     = "~/.cache/mediacat/openlibrary"
	defaultAPIBind            = "127.0.0.1:7861"
	defaultOpenLibraryBaseURL = "https://openlibrary.org/api/books"
	defaultOpenLibraryTimeout = 15
	defaultRequestDelayMS     = 250
	defaultSessionTTLHours    = 72
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 60
	defaultJobPollInterval    = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
	defaultNotifyTimeout      = 10
)

func defaultScannerExtensions() []string {
	return []string{".mp3", ".flac", ".ogg", ".m4a"}
}

func defaultScannerExcludeDirs() []string {
	return []string{".stversions", "@eaDir", "lost+found"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir:     defaultLibraryDir,
			MusicDir:       defaultMusicDir,
			LogDir:         defaultLogDir,
			ImportCacheDir: defaultImportCacheDir,
			APIBind:        defaultAPIBind,
		},
		OpenLibrary: OpenLibrary{
			BaseURL:        defaultOpenLibraryBaseURL,
			TimeoutSeconds: defaultOpenLibraryTimeout,
		},
		Importer: Importer{
			CacheEnabled:   true,
			RequestDelayMS: defaultRequestDelayMS,
		},
		Scanner: Scanner{
			Extensions:  defaultScannerExtensions(),
			ExcludeDirs: defaultScannerExcludeDirs(),
		},
		Auth: Auth{
			Enabled:         false,
			SessionTTLHours: defaultSessionTTLHours,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Import:         true,
			Scan:           true,
			Errors:         true,
		},
		Workflow: Workflow{
			JobPollInterval:    defaultJobPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
