package config

const (
	defaultConfigPath           = "~/.config/clipcraft/config.toml"
	defaultStateDir             = "~/.local/share/clipcraft"
	defaultLogDir               = "~/.local/share/clipcraft/logs"
	defaultDownloadDir          = "~/Videos/clipcraft"
	defaultServiceBaseURL       = "http://127.0.0.1:8000"
	defaultAPIRoot              = "/api"
	defaultRequestTimeout       = 30
	defaultUploadTimeout        = 600
	defaultPollIntervalMS       = 1000
	defaultPollMaxAttempts      = 60
	defaultDedupeModel          = "base"
	defaultFontSize             = 28
	defaultMusicVolume          = 0.5
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	serviceURLEnv               = "CLIPCRAFT_SERVICE_URL"
	ntfyTopicEnv                = "CLIPCRAFT_NTFY_TOPIC"
)

// DefaultBrollKeywords is the keyword fallback used when supplemental-content
// insertion is requested without keywords.
func DefaultBrollKeywords() []string {
	return []string{"nature", "city", "technology"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
			DownloadDir: defaultDownloadDir,
		},
		Service: Service{
			BaseURL:        defaultServiceBaseURL,
			APIRoot:        defaultAPIRoot,
			RequestTimeout: defaultRequestTimeout,
			UploadTimeout:  defaultUploadTimeout,
		},
		Polling: Polling{
			IntervalMS:  defaultPollIntervalMS,
			MaxAttempts: defaultPollMaxAttempts,
		},
		Defaults: Defaults{
			DedupeModel:   defaultDedupeModel,
			FontSize:      defaultFontSize,
			MusicVolume:   defaultMusicVolume,
			BrollKeywords: DefaultBrollKeywords(),
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
