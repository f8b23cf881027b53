package config

const (
	defaultWatchDir             = "~/snapship/incoming"
	defaultArchiveDir           = "~/snapship/uploaded"
	defaultLogDir               = "~/.local/share/snapship/logs"
	defaultLogRetentionDays     = 60
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultUploadFieldName      = "imageFile"
	defaultUploadTimeoutSeconds = 120
	defaultDebounceSeconds      = 30
	defaultNotifyRequestTimeout = 10
)

func defaultExtensions() []string {
	return []string{".jpg", ".jpeg", ".png"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WatchDir:   defaultWatchDir,
			ArchiveDir: defaultArchiveDir,
			LogDir:     defaultLogDir,
		},
		Upload: Upload{
			FieldName:      defaultUploadFieldName,
			TimeoutSeconds: defaultUploadTimeoutSeconds,
		},
		Watch: Watch{
			DebounceSeconds: defaultDebounceSeconds,
			Extensions:      defaultExtensions(),
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			UploadSuccess:  true,
			UploadFailure:  true,
			Lifecycle:      true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
