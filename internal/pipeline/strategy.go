package pipeline

import (
	"context"
	"fmt"
	"strings"

	"socket/internal/codesign"
	"socket/internal/errs"
	"socket/internal/logging"
	"socket/internal/notary"
	"socket/internal/packaging"
	"socket/internal/platform"
)

// strategy holds the per-platform packaging operations. Operations a platform
// has no use for report skipped; the pipeline sequence itself never branches
// on the platform.
type strategy interface {
	signBundle(ctx context.Context, p *Pipeline, state *runState) (string, StepStatus, error)
	assemble(ctx context.Context, p *Pipeline, state *runState) (string, StepStatus, error)
	signArtifact(ctx context.Context, p *Pipeline, state *runState) (string, StepStatus, error)
	notarize(ctx context.Context, p *Pipeline, state *runState) (string, StepStatus, error)
}

func strategyFor(plat platform.Platform) strategy {
	switch plat {
	case platform.MacOS:
		return macStrategy{}
	case platform.Linux:
		return linuxStrategy{}
	default:
		return windowsStrategy{}
	}
}

type macStrategy struct{}

func (macStrategy) signBundle(ctx context.Context, p *Pipeline, state *runState) (string, StepStatus, error) {
	if !state.opts.CodeSign {
		return "", StatusSkipped, nil
	}
	opts := codesign.MacOptions{
		AppStore:     state.opts.AppStore,
		Entitlements: state.opts.Entitlements,
		ProjectRoot:  state.root,
		Timeout:      p.commandTimeout(),
	}
	if err := codesign.SignMacBundle(ctx, p.runner, state.set, state.lay, opts, state.logger); err != nil {
		return "", StatusFailed, err
	}
	return state.lay.PackageRoot, StatusOK, nil
}

func (macStrategy) assemble(ctx context.Context, p *Pipeline, state *runState) (string, StepStatus, error) {
	archive, err := packaging.AssembleMacZip(ctx, p.runner, state.set, state.lay, p.commandTimeout(), state.logger)
	if err != nil {
		return "", StatusFailed, err
	}
	state.report.Artifact = archive
	return archive, StatusOK, nil
}

func (macStrategy) signArtifact(context.Context, *Pipeline, *runState) (string, StepStatus, error) {
	return "", StatusSkipped, nil
}

func (macStrategy) notarize(ctx context.Context, p *Pipeline, state *runState) (string, StepStatus, error) {
	if !state.opts.Notarize {
		return "", StatusSkipped, nil
	}
	if state.report.Artifact == "" {
		return "", StatusFailed, errs.Wrap(errs.ErrConfiguration, "notarize", "archive",
			"notarization needs the packaged archive; run with --package", nil)
	}
	creds := notary.Credentials{
		Username: strings.TrimSpace(p.cfg.Apple.ID),
		Password: strings.TrimSpace(p.cfg.Apple.Password),
	}
	if creds.Username == "" || creds.Password == "" {
		return "", StatusFailed, errs.Wrap(errs.ErrConfiguration, "notarize", "credentials",
			"missing APPLE_ID or APPLE_ID_PASSWORD", nil)
	}

	opts := []notary.Option{notary.WithCommandTimeout(p.commandTimeout())}
	if p.sleep != nil {
		opts = append(opts, notary.WithSleeper(p.sleep))
	}
	if p.recorder != nil {
		opts = append(opts, notary.WithRecorder(p.recorder))
	}
	notarizer := notary.New(p.runner, state.logger, opts...)

	session, err := notarizer.Notarize(ctx, state.report.Artifact, state.set, creds)
	status := ""
	if session != nil {
		status = string(session.Status)
	}
	if notifyErr := p.notifier.NotifyNotarizationResult(ctx, state.set.Get("name"), status); notifyErr != nil {
		state.logger.Warn("failed to send notarization notification", logging.Error(notifyErr))
	}
	if err != nil {
		return status, StatusFailed, err
	}
	return status, StatusOK, nil
}

type linuxStrategy struct{}

func (linuxStrategy) signBundle(context.Context, *Pipeline, *runState) (string, StepStatus, error) {
	return "", StatusSkipped, nil
}

func (linuxStrategy) assemble(ctx context.Context, p *Pipeline, state *runState) (string, StepStatus, error) {
	artifact, err := packaging.AssembleDeb(ctx, p.runner, state.set, state.lay, p.commandTimeout(), state.logger)
	if err != nil {
		return "", StatusFailed, err
	}
	state.report.Artifact = artifact
	return artifact, StatusOK, nil
}

func (linuxStrategy) signArtifact(context.Context, *Pipeline, *runState) (string, StepStatus, error) {
	return "", StatusSkipped, nil
}

func (linuxStrategy) notarize(context.Context, *Pipeline, *runState) (string, StepStatus, error) {
	return "", StatusSkipped, nil
}

type windowsStrategy struct{}

func (windowsStrategy) signBundle(context.Context, *Pipeline, *runState) (string, StepStatus, error) {
	return "", StatusSkipped, nil
}

func (windowsStrategy) assemble(_ context.Context, _ *Pipeline, state *runState) (string, StepStatus, error) {
	result, err := packaging.AssembleAppx(state.lay, state.logger)
	if err != nil {
		return "", StatusFailed, err
	}
	state.report.Artifact = result.Path
	detail := result.Path
	if result.Skipped > 0 {
		detail = fmt.Sprintf("%s (%d of %d payloads skipped)", result.Path, result.Skipped, result.Payloads)
	}
	return detail, StatusOK, nil
}

func (windowsStrategy) signArtifact(ctx context.Context, p *Pipeline, state *runState) (string, StepStatus, error) {
	if !state.opts.CodeSign {
		return "", StatusSkipped, nil
	}
	if state.report.Artifact == "" {
		return "", StatusFailed, errs.Wrap(errs.ErrConfiguration, "sign", "artifact",
			"signing needs the packaged artifact; run with --package", nil)
	}
	err := codesign.SignAppx(ctx, p.runner, p.cfg, state.report.Artifact, p.commandTimeout(), state.logger)
	if err != nil {
		return "", StatusFailed, err
	}
	return state.report.Artifact, StatusOK, nil
}

func (windowsStrategy) notarize(context.Context, *Pipeline, *runState) (string, StepStatus, error) {
	return "", StatusSkipped, nil
}
