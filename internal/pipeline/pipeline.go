package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"socket/internal/build"
	"socket/internal/config"
	"socket/internal/errs"
	"socket/internal/execx"
	"socket/internal/layout"
	"socket/internal/logging"
	"socket/internal/manifest"
	"socket/internal/notary"
	"socket/internal/notifications"
	"socket/internal/platform"
	"socket/internal/settings"
)

// SettingsFile is the project-relative settings file every run starts from.
const SettingsFile = "settings.config"

// Options select the work a single run performs. The zero value builds the
// native binary in debug mode and nothing else.
type Options struct {
	ProjectRoot  string
	AppStore     bool
	CodeSign     bool
	Entitlements bool
	Notarize     bool
	OnlyBuild    bool
	Package      bool
	Run          bool
	Debug        bool
}

// StepStatus classifies a step's outcome in the run report.
type StepStatus string

const (
	StatusOK      StepStatus = "ok"
	StatusSkipped StepStatus = "skipped"
	StatusFailed  StepStatus = "failed"
)

// StepResult is one row of the run report.
type StepResult struct {
	Name     string
	Status   StepStatus
	Duration time.Duration
	Detail   string
}

// Report summarizes a run: every step executed, in order, plus the
// distributable artifact when packaging produced one.
type Report struct {
	Steps    []StepResult
	Artifact string
}

// Pipeline executes the fixed packaging step sequence for one project. It is
// platform-agnostic glue; per-platform behavior lives in a strategy.
type Pipeline struct {
	cfg      *config.Config
	runner   execx.Runner
	logger   *slog.Logger
	notifier notifications.Service
	recorder notary.Recorder
	sleep    func(time.Duration)
	host     func() (platform.Platform, error)
}

// Option configures optional pipeline behavior.
type Option func(*Pipeline)

// WithRunner replaces the shell-backed process runner (used in tests).
func WithRunner(runner execx.Runner) Option {
	return func(p *Pipeline) {
		if runner != nil {
			p.runner = runner
		}
	}
}

// WithNotifier replaces the ntfy notifier.
func WithNotifier(notifier notifications.Service) Option {
	return func(p *Pipeline) {
		if notifier != nil {
			p.notifier = notifier
		}
	}
}

// WithRecorder attaches a notarization session journal.
func WithRecorder(recorder notary.Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = recorder
	}
}

// WithSleeper injects the notary poll delay function (used in tests).
func WithSleeper(sleep func(time.Duration)) Option {
	return func(p *Pipeline) {
		p.sleep = sleep
	}
}

// WithHostPlatform overrides host platform detection (used in tests).
func WithHostPlatform(plat platform.Platform) Option {
	return func(p *Pipeline) {
		p.host = func() (platform.Platform, error) { return plat, nil }
	}
}

// New constructs a pipeline with the default shell runner and the notifier
// the configuration selects.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{
		cfg:      cfg,
		runner:   execx.NewShellRunner(),
		logger:   logger,
		notifier: notifications.NewService(cfg),
		host:     platform.Current,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type runState struct {
	opts     Options
	root     string
	set      *settings.Settings
	plat     platform.Platform
	strategy strategy
	lay      layout.Layout
	builder  *build.Orchestrator
	logger   *slog.Logger
	report   *Report
}

// Run executes the full step sequence for one project. The returned report
// covers the steps that ran even when the run fails; the error, if any, is
// the first fatal step failure.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	logger := p.logger.With(logging.String(logging.FieldRunID, uuid.NewString()))

	root, err := filepath.Abs(opts.ProjectRoot)
	if err != nil {
		return &Report{}, errs.Wrap(errs.ErrConfiguration, "validate", "resolve project root", opts.ProjectRoot, err)
	}

	lock := flock.New(filepath.Join(root, ".socket.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return &Report{}, fmt.Errorf("acquire project lock: %w", err)
	}
	if !locked {
		return &Report{}, errors.New("another build is already running for this project")
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			logger.Warn("failed to release project lock", logging.Error(unlockErr))
		}
	}()

	state := &runState{
		opts:   opts,
		root:   root,
		logger: logger,
		report: &Report{},
	}

	err = p.execute(ctx, state)
	if err != nil {
		if notifyErr := p.notifier.NotifyFailure(ctx, err, lastStep(state.report)); notifyErr != nil {
			logger.Warn("failed to send failure notification", logging.Error(notifyErr))
		}
	}
	return state.report, err
}

func (p *Pipeline) execute(ctx context.Context, state *runState) error {
	steps := []struct {
		name string
		fn   func(context.Context, *runState) (string, StepStatus, error)
	}{
		{"validate", p.stepValidate},
		{"clean", p.stepClean},
		{"layout", p.stepLayout},
		{"manifests", p.stepManifests},
		{"user build", p.stepUserBuild},
		{"compile", p.stepCompile},
		{"sign bundle", p.stepSignBundle},
		{"package", p.stepAssemble},
		{"sign artifact", p.stepSignArtifact},
		{"notarize", p.stepNotarize},
		{"launch", p.stepLaunch},
	}

	for _, step := range steps {
		start := time.Now()
		detail, status, err := step.fn(ctx, state)
		result := StepResult{
			Name:     step.name,
			Status:   status,
			Duration: time.Since(start),
			Detail:   detail,
		}
		if err != nil {
			result.Status = StatusFailed
			if result.Detail == "" {
				result.Detail = err.Error()
			}
		}
		state.report.Steps = append(state.report.Steps, result)

		switch result.Status {
		case StatusFailed:
			if err != nil {
				state.logger.Error("step failed",
					logging.String(logging.FieldStep, step.name),
					logging.Error(err))
				return err
			}
			// Non-fatal failure (launch): logged by the step itself.
		case StatusSkipped:
			state.logger.Debug("step skipped", logging.String(logging.FieldStep, step.name))
		default:
			state.logger.Info("step finished",
				logging.String(logging.FieldStep, step.name),
				logging.Duration("duration", result.Duration))
		}
	}
	return nil
}

func (p *Pipeline) stepValidate(_ context.Context, state *runState) (string, StepStatus, error) {
	plat, err := p.host()
	if err != nil {
		return "", StatusFailed, err
	}
	state.plat = plat
	state.strategy = strategyFor(plat)

	set, err := settings.Load(filepath.Join(state.root, SettingsFile))
	if err != nil {
		return "", StatusFailed, err
	}
	if err := set.Validate(); err != nil {
		return "", StatusFailed, err
	}
	if state.opts.Debug {
		set.ApplyDebugSuffix()
	}
	state.set = set
	state.builder = build.New(p.runner, p.cfg, state.logger)
	return fmt.Sprintf("%s (%s)", set.Get("name"), plat), StatusOK, nil
}

// stepClean removes the previous output tree. Only-build mode reuses the
// previous binary, so the tree must survive.
func (p *Pipeline) stepClean(_ context.Context, state *runState) (string, StepStatus, error) {
	if state.opts.OnlyBuild {
		return "", StatusSkipped, nil
	}
	outputDir := filepath.Join(state.root, state.set.Get("output"))
	if err := os.RemoveAll(outputDir); err != nil {
		return "", StatusFailed, fmt.Errorf("clean output dir: %w", err)
	}
	return outputDir, StatusOK, nil
}

func (p *Pipeline) stepLayout(_ context.Context, state *runState) (string, StepStatus, error) {
	lay, err := layout.Resolve(state.set, state.plat, state.root)
	if err != nil {
		return "", StatusFailed, err
	}
	state.lay = lay
	return lay.PackageRoot, StatusOK, nil
}

func (p *Pipeline) stepManifests(_ context.Context, state *runState) (string, StepStatus, error) {
	if err := manifest.Render(state.set, state.lay, state.root, state.logger); err != nil {
		return "", StatusFailed, err
	}
	return "", StatusOK, nil
}

func (p *Pipeline) stepUserBuild(ctx context.Context, state *runState) (string, StepStatus, error) {
	err := state.builder.RunUserStep(ctx, state.root, state.set, state.lay, state.plat, state.opts.Debug)
	if err != nil {
		return "", StatusFailed, err
	}
	return "", StatusOK, nil
}

func (p *Pipeline) stepCompile(ctx context.Context, state *runState) (string, StepStatus, error) {
	if state.opts.OnlyBuild {
		if _, err := os.Stat(state.lay.BinaryPath); err == nil {
			return state.lay.BinaryPath, StatusSkipped, nil
		}
	}
	err := state.builder.Compile(ctx, state.set, state.lay, state.plat, state.opts.Debug, state.opts.OnlyBuild)
	if err != nil {
		return "", StatusFailed, err
	}
	if notifyErr := p.notifier.NotifyBuildCompleted(ctx, state.set.Get("name"), state.plat.String()); notifyErr != nil {
		state.logger.Warn("failed to send build notification", logging.Error(notifyErr))
	}
	return state.lay.BinaryPath, StatusOK, nil
}

func (p *Pipeline) stepSignBundle(ctx context.Context, state *runState) (string, StepStatus, error) {
	return state.strategy.signBundle(ctx, p, state)
}

func (p *Pipeline) stepAssemble(ctx context.Context, state *runState) (string, StepStatus, error) {
	if !state.opts.Package {
		return "", StatusSkipped, nil
	}
	detail, status, err := state.strategy.assemble(ctx, p, state)
	if err == nil && status == StatusOK {
		if notifyErr := p.notifier.NotifyPackageCompleted(ctx, state.set.Get("name"), state.report.Artifact); notifyErr != nil {
			state.logger.Warn("failed to send package notification", logging.Error(notifyErr))
		}
	}
	return detail, status, err
}

func (p *Pipeline) stepSignArtifact(ctx context.Context, state *runState) (string, StepStatus, error) {
	return state.strategy.signArtifact(ctx, p, state)
}

func (p *Pipeline) stepNotarize(ctx context.Context, state *runState) (string, StepStatus, error) {
	return state.strategy.notarize(ctx, p, state)
}

// stepLaunch starts the built binary detached. Launch problems never fail
// the run: the artifact already exists.
func (p *Pipeline) stepLaunch(_ context.Context, state *runState) (string, StepStatus, error) {
	if !state.opts.Run {
		return "", StatusSkipped, nil
	}
	cmd := exec.Command(state.lay.BinaryPath)
	cmd.Dir = state.root
	if err := cmd.Start(); err != nil {
		state.logger.Warn("failed to launch application",
			logging.String(logging.FieldPath, state.lay.BinaryPath),
			logging.Error(err))
		return err.Error(), StatusFailed, nil
	}
	if err := cmd.Process.Release(); err != nil {
		state.logger.Warn("failed to detach application process", logging.Error(err))
	}
	state.logger.Info("launched application", logging.String(logging.FieldPath, state.lay.BinaryPath))
	return state.lay.BinaryPath, StatusOK, nil
}

func (p *Pipeline) commandTimeout() time.Duration {
	if p.cfg == nil {
		return 0
	}
	return time.Duration(p.cfg.Build.CommandTimeout) * time.Second
}

func lastStep(report *Report) string {
	if report == nil || len(report.Steps) == 0 {
		return ""
	}
	return report.Steps[len(report.Steps)-1].Name
}
