package config

const (
	defaultStateDir      = "~/.local/state/socket"
	defaultRuntimePrefix = "~/.config/socket"
	defaultTimestampURL  = "http://timestamp.digicert.com"
	defaultLogLevel      = "info"
	defaultLogFormat     = "console"
)

// Default returns the repository default configuration.
func Default() Config {
	return Config{
		Build: Build{
			RuntimePrefix: defaultRuntimePrefix,
		},
		Signing: Signing{
			CertificateFile: "cert.pfx",
			TimestampURL:    defaultTimestampURL,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
		},
	}
}
