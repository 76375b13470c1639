package packaging

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"socket/internal/errs"
	"socket/internal/execx"
	"socket/internal/layout"
	"socket/internal/logging"
	"socket/internal/settings"
)

// AssembleMacZip compresses the .app bundle into a zip that preserves the
// top-level folder. The archive is what later gets submitted for
// notarization; the bundle itself is always produced regardless.
func AssembleMacZip(ctx context.Context, runner execx.Runner, set *settings.Settings, lay layout.Layout, timeout time.Duration, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	archive := filepath.Join(lay.OutputDir, set.Get("executable")+".zip")
	line := fmt.Sprintf("ditto -c -k --sequesterRsrc --keepParent %s %s", lay.PackageRoot, archive)

	res, err := runner.Run(ctx, execx.Command{Line: line, Timeout: timeout})
	if err != nil {
		return "", errs.Wrap(errs.ErrExternalTool, "package", "ditto", "", err)
	}
	if res.ExitCode != 0 {
		return "", errs.NewProcessError("package", line, res.ExitCode, res.Output)
	}
	logger.Info("created zip artifact", logging.String(logging.FieldPath, archive))
	return archive, nil
}
