package packaging

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"socket/internal/errs"
	"socket/internal/execx"
	"socket/internal/layout"
	"socket/internal/logging"
	"socket/internal/settings"
)

// AssembleDeb links the installed executable into the package's system bin
// path, then drives dpkg-deb over the package root, emitting the .deb into
// the output directory.
func AssembleDeb(ctx context.Context, runner execx.Runner, set *settings.Settings, lay layout.Layout, timeout time.Duration, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	binDir := filepath.Join(lay.PackageRoot, "usr", "local", "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", binDir, err)
	}

	link := filepath.Join(binDir, set.Get("executable"))
	target := "/opt/" + set.Get("name") + "/" + set.Get("executable")
	if err := os.Remove(link); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("replace symlink %s: %w", link, err)
	}
	if err := os.Symlink(target, link); err != nil {
		return "", fmt.Errorf("create symlink %s: %w", link, err)
	}

	line := fmt.Sprintf("dpkg-deb --build --root-owner-group %s %s", lay.PackageRoot, lay.OutputDir)
	res, err := runner.Run(ctx, execx.Command{Line: line, Timeout: timeout})
	if err != nil {
		return "", errs.Wrap(errs.ErrExternalTool, "package", "dpkg-deb", "", err)
	}
	if res.ExitCode != 0 {
		return "", errs.NewProcessError("package", line, res.ExitCode, res.Output)
	}

	artifact := filepath.Join(lay.OutputDir, lay.PackageName+".deb")
	logger.Info("created deb package", logging.String(logging.FieldPath, artifact))
	return artifact, nil
}
