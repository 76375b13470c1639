package codesign

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"socket/internal/config"
	"socket/internal/errs"
	"socket/internal/execx"
	"socket/internal/fileutil"
	"socket/internal/layout"
	"socket/internal/logging"
	"socket/internal/settings"
)

// MacOptions control the macOS signing pass.
type MacOptions struct {
	// AppStore switches the signing identity to the Mac App Store prefix and
	// drops the hardened-runtime and timestamp options, which notarization
	// needs but store submission rejects.
	AppStore bool
	// Entitlements copies the project's entitlements file into the bundle
	// resources and passes it to every codesign invocation.
	Entitlements bool
	ProjectRoot  string
	Timeout      time.Duration
}

// SignMacBundle signs each configured auxiliary path, then the binary, then
// the bundle itself, as one composite shell pipeline. A nonzero result at any
// stage fails with that stage's exit code.
func SignMacBundle(ctx context.Context, runner execx.Runner, set *settings.Settings, lay layout.Layout, opts MacOptions, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}

	identity := "Developer ID Application: " + set.Get("mac_sign")
	if opts.AppStore {
		identity = "3rd Party Mac Developer Application: " + set.Get("mac_sign")
	}

	entitlements := ""
	if opts.Entitlements {
		src := filepath.Join(opts.ProjectRoot, set.Get("mac_entitlements"))
		dst := filepath.Join(lay.ResourcesDir, "entitlements.plist")
		if err := fileutil.CopyFile(src, dst); err != nil {
			return errs.Wrap(errs.ErrConfiguration, "sign", "entitlements",
				fmt.Sprintf("copy %s", src), err)
		}
		entitlements = dst
	}

	var targets []string
	if paths := strings.TrimSpace(set.Get("mac_sign_paths")); paths != "" {
		for _, aux := range strings.Split(paths, ";") {
			if aux = strings.TrimSpace(aux); aux != "" {
				targets = append(targets, filepath.Join(lay.ResourcesDir, aux))
			}
		}
	}
	targets = append(targets, lay.BinaryPath, lay.PackageRoot)

	commands := make([]string, 0, len(targets))
	for _, target := range targets {
		commands = append(commands, codesignCommand(target, identity, entitlements, !opts.AppStore))
	}
	line := strings.Join(commands, "; ")

	res, err := runner.Run(ctx, execx.Command{Line: line, Timeout: opts.Timeout})
	if err != nil {
		return errs.Wrap(errs.ErrExternalTool, "sign", "codesign", "", err)
	}
	if res.ExitCode != 0 {
		return errs.NewProcessError("sign", line, res.ExitCode, res.Output)
	}
	logger.Info("finished code signing", logging.Int("targets", len(targets)))
	return nil
}

func codesignCommand(target, identity, entitlements string, hardened bool) string {
	var b strings.Builder
	b.WriteString("codesign --force")
	if hardened {
		b.WriteString(" --options runtime --timestamp")
	}
	if entitlements != "" {
		b.WriteString(" --entitlements ")
		b.WriteString(entitlements)
	}
	fmt.Fprintf(&b, " --sign '%s' %s", identity, target)
	return b.String()
}

// SignAppx invokes the Windows signing tool over the .appx artifact with a
// timestamp server and SHA-256 digests. The tool path and certificate
// password come from the environment (config as fallback); a missing tool
// path is a configuration error.
func SignAppx(ctx context.Context, runner execx.Runner, cfg *config.Config, artifact string, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}

	signtool := strings.TrimSpace(cfg.Signing.Signtool)
	if signtool == "" {
		return errs.Wrap(errs.ErrConfiguration, "sign", "signtool",
			"missing env var SIGNTOOL, should be the path to the Windows SDK signtool.exe binary", nil)
	}

	line := fmt.Sprintf("%q sign /debug /tr %s /td sha256 /fd sha256 /f %s /p %s %s",
		signtool, cfg.Signing.TimestampURL, cfg.Signing.CertificateFile, cfg.Signing.Password, artifact)

	res, err := runner.Run(ctx, execx.Command{Line: line, Timeout: timeout})
	if err != nil {
		return errs.Wrap(errs.ErrExternalTool, "sign", "signtool", "", err)
	}
	if res.ExitCode != 0 {
		logger.Error("unable to sign package",
			logging.String(logging.FieldPath, artifact),
			logging.String("output", strings.TrimSpace(res.Output)))
		return errs.NewProcessError("sign", line, res.ExitCode, res.Output)
	}
	logger.Info("signed package", logging.String(logging.FieldPath, artifact))
	return nil
}
