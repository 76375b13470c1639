package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"socket/internal/config"
	"socket/internal/errs"
	"socket/internal/execx"
	"socket/internal/layout"
	"socket/internal/logging"
	"socket/internal/platform"
	"socket/internal/settings"
)

// Orchestrator drives the two sequential external-process steps of a build:
// the user's build command, then the native compile. Both are fatal on
// nonzero exit, with the step's own exit code forwarded.
type Orchestrator struct {
	runner execx.Runner
	cfg    *config.Config
	logger *slog.Logger
}

// New constructs an orchestrator.
func New(runner execx.Runner, cfg *config.Config, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		runner: runner,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "build"),
	}
}

func (o *Orchestrator) timeout() time.Duration {
	if o.cfg == nil {
		return 0
	}
	return time.Duration(o.cfg.Build.CommandTimeout) * time.Second
}

// UserCommand assembles the user build step's command line: the configured
// per-platform command, the build-facing resources path, and the debug flag.
func UserCommand(set *settings.Settings, lay layout.Layout, plat platform.Platform, debug bool) string {
	return fmt.Sprintf("%s %s --debug=%d", set.Get(plat.BuildCommandKey()), lay.BuildResourcesDir, boolFlag(debug))
}

// RunUserStep invokes the user's build command with the project root as the
// working directory. The parent process never changes directory itself, so
// there is nothing to restore afterward.
func (o *Orchestrator) RunUserStep(ctx context.Context, projectRoot string, set *settings.Settings, lay layout.Layout, plat platform.Platform, debug bool) error {
	line := UserCommand(set, lay, plat, debug)
	o.logger.Info("running user build step", logging.String(logging.FieldCommand, line))

	res, err := o.runner.Run(ctx, execx.Command{Line: line, Dir: projectRoot, Timeout: o.timeout()})
	if err != nil {
		return errs.Wrap(errs.ErrExternalTool, "build", "user step", "", err)
	}
	if res.ExitCode != 0 {
		o.surfaceOutput(res.Output)
		return errs.NewProcessError("build", line, res.ExitCode, res.Output)
	}
	if out := strings.TrimSpace(res.Output); out != "" {
		o.logger.Info(out)
	}
	o.logger.Info("ran user build command")
	return nil
}

// CompileCommand assembles the native compile invocation: runtime sources,
// platform flags, user extra flags, the debug define, and the percent-encoded
// settings blob embedded as a single compiler-visible string.
func (o *Orchestrator) CompileCommand(set *settings.Settings, lay layout.Layout, plat platform.Platform, debug bool) string {
	compiler := strings.TrimSpace(o.cfg.Build.Compiler)
	if compiler == "" {
		o.logger.Warn("$CXX env var not set, assuming platform default")
		compiler = plat.DefaultCompiler()
	}

	prefix := o.cfg.Build.RuntimePrefix
	parts := []string{compiler}
	parts = append(parts, plat.SourceFiles(prefix)...)
	parts = append(parts, plat.CompileFlags(prefix))
	if flags := strings.TrimSpace(o.cfg.Build.CompilerFlags); flags != "" {
		parts = append(parts, flags)
	}

	extra := set.Get("flags")
	if debug {
		extra = set.Get("debug_flags")
	}
	if extra = strings.TrimSpace(extra); extra != "" {
		parts = append(parts, extra)
	}

	parts = append(parts,
		"-o", lay.BinaryPath,
		fmt.Sprintf("-DDEBUG=%d", boolFlag(debug)),
		fmt.Sprintf("-DSETTINGS=%q", set.EncodedBlob()),
	)
	return strings.Join(parts, " ")
}

// Compile runs the native compile step, producing the binary at the resolved
// path. In only-build mode the step is skipped entirely when a binary already
// exists there: a pure existence check, not a staleness check.
func (o *Orchestrator) Compile(ctx context.Context, set *settings.Settings, lay layout.Layout, plat platform.Platform, debug, onlyBuild bool) error {
	if onlyBuild {
		if _, err := os.Stat(lay.BinaryPath); err == nil {
			o.logger.Info("reusing previous build", logging.String(logging.FieldPath, lay.BinaryPath))
			return nil
		}
	}

	line := o.CompileCommand(set, lay, plat, debug)
	res, err := o.runner.Run(ctx, execx.Command{Line: line, Timeout: o.timeout()})
	if err != nil {
		return errs.Wrap(errs.ErrExternalTool, "compile", "invoke compiler", "", err)
	}
	if res.ExitCode != 0 {
		o.surfaceOutput(res.Output)
		return errs.NewProcessError("compile", line, res.ExitCode, res.Output)
	}
	o.logger.Info("compiled native binary", logging.String(logging.FieldPath, lay.BinaryPath))
	return nil
}

func (o *Orchestrator) surfaceOutput(output string) {
	if out := strings.TrimSpace(output); out != "" {
		o.logger.Error(out)
	}
}

func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}
