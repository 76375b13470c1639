package settings

import (
	"fmt"
	"strings"

	"socket/internal/errs"
)

// RequiredKeys are the mandatory settings every project must carry.
var RequiredKeys = []string{"name", "title", "executable", "output", "version", "arch"}

// CommandKeys are the per-OS build command keys; at least one must be present.
var CommandKeys = []string{"mac_cmd", "linux_cmd", "win_cmd"}

// Validate checks the mandatory key set. It is a pure check with no side
// effects and must run before any path derivation, which assumes the presence
// of name, executable, and output.
func (s *Settings) Validate() error {
	for _, key := range RequiredKeys {
		if strings.TrimSpace(s.Get(key)) == "" {
			return errs.Wrap(errs.ErrConfiguration, "settings", "validate",
				fmt.Sprintf("'%s' key/value is required", key), nil)
		}
	}

	for _, key := range CommandKeys {
		if strings.TrimSpace(s.Get(key)) != "" {
			return nil
		}
	}
	return errs.Wrap(errs.ErrConfiguration, "settings", "validate",
		"at least one of 'win_cmd', 'mac_cmd', 'linux_cmd' key/value is required", nil)
}
