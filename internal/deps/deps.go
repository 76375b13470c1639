package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"socket/internal/config"
	"socket/internal/platform"
)

// Requirement defines an external tool the pipeline shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements returns the tool set the current platform needs. Optional
// entries are only exercised by specific flags (signing, notarization), so
// their absence degrades those features rather than the whole pipeline.
func Requirements(plat platform.Platform, cfg *config.Config) []Requirement {
	compiler := strings.TrimSpace(cfg.Build.Compiler)
	if compiler == "" {
		compiler = plat.DefaultCompiler()
	}
	// Backtick substitutions and flags confuse LookPath; probe argv[0] only.
	if fields := strings.Fields(compiler); len(fields) > 0 {
		compiler = fields[0]
	}

	reqs := []Requirement{
		{Name: "Compiler", Command: compiler, Description: "C++ compiler for the native shell"},
	}

	switch plat {
	case platform.MacOS:
		reqs = append(reqs,
			Requirement{Name: "ditto", Command: "ditto", Description: "Archives the .app bundle for distribution"},
			Requirement{Name: "codesign", Command: "codesign", Description: "Signs the bundle and embedded binaries", Optional: true},
			Requirement{Name: "xcrun", Command: "xcrun", Description: "Runs altool for notarization", Optional: true},
		)
	case platform.Linux:
		reqs = append(reqs,
			Requirement{Name: "dpkg-deb", Command: "dpkg-deb", Description: "Builds the .deb package"},
			Requirement{Name: "pkg-config", Command: "pkg-config", Description: "Resolves GTK and WebKit compile flags"},
		)
	case platform.Windows:
		reqs = append(reqs,
			Requirement{Name: "signtool", Command: cfg.Signing.Signtool, Description: "Signs the .appx artifact", Optional: true},
		)
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of required tools that are unavailable.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
