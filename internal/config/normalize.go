package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBuild()
	c.normalizeSigning()
	c.normalizeApple()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBuild() {
	// Environment always wins over the config file for toolchain settings.
	if value := strings.TrimSpace(os.Getenv("CXX")); value != "" {
		c.Build.Compiler = value
	}
	if value, ok := os.LookupEnv("CXX_FLAGS"); ok {
		c.Build.CompilerFlags = strings.TrimSpace(value)
	}
	if value := strings.TrimSpace(os.Getenv("SOCKET_HOME")); value != "" {
		c.Build.RuntimePrefix = value
	}
	if strings.TrimSpace(c.Build.RuntimePrefix) == "" {
		c.Build.RuntimePrefix = defaultRuntimePrefix
	}
	if expanded, err := expandPath(c.Build.RuntimePrefix); err == nil {
		c.Build.RuntimePrefix = expanded
	}
	if c.Build.CommandTimeout < 0 {
		c.Build.CommandTimeout = 0
	}
}

func (c *Config) normalizeSigning() {
	if value := strings.TrimSpace(os.Getenv("SIGNTOOL")); value != "" {
		c.Signing.Signtool = value
	}
	if value := strings.TrimSpace(os.Getenv("CSC_KEY_PASSWORD")); value != "" {
		c.Signing.Password = value
	}
	c.Signing.TimestampURL = strings.TrimSpace(c.Signing.TimestampURL)
	if c.Signing.TimestampURL == "" {
		c.Signing.TimestampURL = defaultTimestampURL
	}
	if strings.TrimSpace(c.Signing.CertificateFile) == "" {
		c.Signing.CertificateFile = "cert.pfx"
	}
}

func (c *Config) normalizeApple() {
	if value := strings.TrimSpace(os.Getenv("APPLE_ID")); value != "" {
		c.Apple.ID = value
	}
	if value := strings.TrimSpace(os.Getenv("APPLE_ID_PASSWORD")); value != "" {
		c.Apple.Password = value
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = 10
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(path)
}
