package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Build contains fallbacks for the compile step. The CXX and CXX_FLAGS
// environment variables always take precedence over these values.
type Build struct {
	Compiler       string `toml:"compiler"`
	CompilerFlags  string `toml:"compiler_flags"`
	RuntimePrefix  string `toml:"runtime_prefix"`
	CommandTimeout int    `toml:"command_timeout"`
}

// Signing contains Windows signing tool configuration. SIGNTOOL and
// CSC_KEY_PASSWORD environment variables take precedence.
type Signing struct {
	Signtool        string `toml:"signtool"`
	CertificateFile string `toml:"certificate_file"`
	Password        string `toml:"password"`
	TimestampURL    string `toml:"timestamp_url"`
}

// Apple contains notarization credentials. APPLE_ID and APPLE_ID_PASSWORD
// environment variables take precedence.
type Apple struct {
	ID       string `toml:"id"`
	Password string `toml:"password"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains log output settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
}

// Config encapsulates the optional tool-level configuration. Everything has a
// default; a missing config file is not an error.
type Config struct {
	Build         Build         `toml:"build"`
	Signing       Signing       `toml:"signing"`
	Apple         Apple         `toml:"apple"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	Paths         Paths         `toml:"paths"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/socket/config.toml")
}

// Sample returns the embedded sample configuration text.
func Sample() string {
	return sampleConfig
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// ExpandPath expands a leading ~ and makes the path absolute.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// Load locates, parses, normalizes, and validates the configuration file. The
// boolean reports whether a file was actually found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
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
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		path = defaultPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return expanded, !info.IsDir(), nil
}

// EnsureDirectories creates the directories the tool persists state into.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	return nil
}

// JournalPath returns the notarization journal database location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "notary.db")
}
