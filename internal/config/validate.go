package config

import (
	"errors"
)

// Validate ensures the configuration is usable. Credentials and tool paths
// are checked lazily by the steps that need them, so only structural problems
// fail here.
func (c *Config) Validate() error {
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Build.CommandTimeout < 0 {
		return errors.New("build.command_timeout must not be negative")
	}
	return nil
}
