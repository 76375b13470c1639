package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"socket/internal/platform"
	"socket/internal/settings"
)

// Layout holds the resolved package directory skeleton for one run. It is
// computed once from validated settings plus the target platform and is
// immutable afterward.
type Layout struct {
	Platform    platform.Platform
	PackageName string

	// OutputDir is <project>/<output>, the directory distributables land in.
	OutputDir string
	// PackageRoot is the package directory inside OutputDir.
	PackageRoot string
	// BinDir is where the compiled binary is placed.
	BinDir string
	// ResourcesDir is where manifests, icons, and the user's assets live.
	ResourcesDir string
	// BuildResourcesDir is the resources path as seen by the user's build
	// step, which runs with the project root as working directory.
	BuildResourcesDir string

	Executable string
	BinaryPath string
}

// Resolve computes the platform layout and creates the directory skeleton on
// disk. Creation is idempotent: resolving over an already-populated output
// directory must not fail. Derived manifest keys (the Linux install and icon
// paths) are written back into the settings, and an unset revision defaults
// to "1" before any package name is derived from it.
func Resolve(set *settings.Settings, plat platform.Platform, projectRoot string) (Layout, error) {
	if strings.TrimSpace(set.Get("revision")) == "" {
		set.Set("revision", "1")
	}

	lay := Layout{
		Platform:   plat,
		Executable: set.Get("executable") + plat.ExecutableSuffix(),
		OutputDir:  filepath.Join(projectRoot, set.Get("output")),
	}

	switch plat {
	case platform.MacOS:
		lay.PackageName = set.Get("name") + ".app"
		lay.PackageRoot = filepath.Join(lay.OutputDir, lay.PackageName)
		lay.BinDir = filepath.Join(lay.PackageRoot, "Contents", "MacOS")
		lay.ResourcesDir = filepath.Join(lay.PackageRoot, "Contents", "Resources")
		lay.BuildResourcesDir = filepath.Join(set.Get("output"), lay.PackageName, "Contents", "Resources")

	case platform.Linux:
		// Debian package naming: <executable>_<version>-<revision>_<arch>.
		lay.PackageName = fmt.Sprintf("%s_%s-%s_%s",
			set.Get("executable"), set.Get("version"), set.Get("revision"), set.Get("arch"))
		lay.PackageRoot = filepath.Join(lay.OutputDir, lay.PackageName)
		base := filepath.Join(lay.PackageRoot, "opt", set.Get("name"))
		lay.BinDir = base
		lay.ResourcesDir = base
		lay.BuildResourcesDir = filepath.Join(set.Get("output"), lay.PackageName, "opt", set.Get("name"))

		set.Set("linux_executable_path", "/opt/"+set.Get("name")+"/"+set.Get("executable"))
		set.Set("linux_icon_path", "/usr/share/icons/hicolor/256x256/apps/"+set.Get("executable")+".png")

	case platform.Windows:
		lay.PackageName = set.Get("executable") + "-" + set.Get("version")
		lay.PackageRoot = filepath.Join(lay.OutputDir, lay.PackageName)
		lay.BinDir = lay.PackageRoot
		lay.ResourcesDir = lay.PackageRoot
		lay.BuildResourcesDir = lay.PackageRoot
	}

	lay.BinaryPath = filepath.Join(lay.BinDir, lay.Executable)

	for _, dir := range lay.skeleton() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Layout{}, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return lay, nil
}

// skeleton lists every directory the layout needs on disk.
func (l Layout) skeleton() []string {
	dirs := []string{l.BinDir, l.ResourcesDir}
	if l.Platform == platform.Linux {
		dirs = append(dirs,
			filepath.Join(l.PackageRoot, "DEBIAN"),
			filepath.Join(l.PackageRoot, "usr", "share", "applications"),
			IconDir(l.PackageRoot),
		)
	}
	return dirs
}

// IconDir returns the hicolor icon directory inside a Linux package root.
func IconDir(packageRoot string) string {
	return filepath.Join(packageRoot, "usr", "share", "icons", "hicolor", "256x256", "apps")
}
