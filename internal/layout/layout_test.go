package layout_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"socket/internal/layout"
	"socket/internal/platform"
	"socket/internal/settings"
)

func baseSettings(t *testing.T) *settings.Settings {
	t.Helper()
	s, err := settings.Parse(strings.Join([]string{
		"name: foo",
		"title: Foo",
		"executable: foo",
		"output: dist",
		"version: 1.0",
		"arch: amd64",
		"revision: 1",
		"linux_cmd: true",
		"",
	}, "\n"))
	if err != nil {
		t.Fatalf("parse settings: %v", err)
	}
	return s
}

func TestResolveLinux(t *testing.T) {
	root := t.TempDir()
	set := baseSettings(t)

	lay, err := layout.Resolve(set, platform.Linux, root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	wantPackage := filepath.Join(root, "dist", "foo_1.0-1_amd64")
	if lay.PackageRoot != wantPackage {
		t.Fatalf("package root = %q, want %q", lay.PackageRoot, wantPackage)
	}
	wantBinary := filepath.Join(wantPackage, "opt", "foo", "foo")
	if lay.BinaryPath != wantBinary {
		t.Fatalf("binary path = %q, want %q", lay.BinaryPath, wantBinary)
	}
	if lay.BuildResourcesDir != filepath.Join("dist", "foo_1.0-1_amd64", "opt", "foo") {
		t.Fatalf("build resources dir = %q", lay.BuildResourcesDir)
	}

	for _, dir := range []string{
		lay.BinDir,
		filepath.Join(wantPackage, "DEBIAN"),
		filepath.Join(wantPackage, "usr", "share", "applications"),
		layout.IconDir(wantPackage),
	} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}

	if got := set.Get("linux_executable_path"); got != "/opt/foo/foo" {
		t.Fatalf("linux_executable_path = %q", got)
	}
	if got := set.Get("linux_icon_path"); got != "/usr/share/icons/hicolor/256x256/apps/foo.png" {
		t.Fatalf("linux_icon_path = %q", got)
	}
}

func TestResolveMacOS(t *testing.T) {
	root := t.TempDir()
	set := baseSettings(t)

	lay, err := layout.Resolve(set, platform.MacOS, root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if lay.PackageName != "foo.app" {
		t.Fatalf("package name = %q", lay.PackageName)
	}
	if lay.BinDir != filepath.Join(lay.PackageRoot, "Contents", "MacOS") {
		t.Fatalf("bin dir = %q", lay.BinDir)
	}
	if lay.ResourcesDir != filepath.Join(lay.PackageRoot, "Contents", "Resources") {
		t.Fatalf("resources dir = %q", lay.ResourcesDir)
	}
	if !strings.HasPrefix(lay.BinaryPath, lay.PackageRoot) {
		t.Fatalf("binary %q must live under package root %q", lay.BinaryPath, lay.PackageRoot)
	}
}

func TestResolveWindows(t *testing.T) {
	root := t.TempDir()
	set := baseSettings(t)

	lay, err := layout.Resolve(set, platform.Windows, root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if lay.PackageName != "foo-1.0" {
		t.Fatalf("package name = %q", lay.PackageName)
	}
	if lay.BinDir != lay.PackageRoot {
		t.Fatalf("windows binary dir must be the package root")
	}
	if lay.Executable != "foo.exe" {
		t.Fatalf("executable = %q", lay.Executable)
	}
}

func TestResolveDefaultsRevision(t *testing.T) {
	root := t.TempDir()
	set := baseSettings(t)
	set.Set("revision", "")

	lay, err := layout.Resolve(set, platform.Linux, root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if set.Get("revision") != "1" {
		t.Fatalf("revision not defaulted: %q", set.Get("revision"))
	}
	if !strings.Contains(lay.PackageName, "_1.0-1_") {
		t.Fatalf("package name missing defaulted revision: %q", lay.PackageName)
	}
}

func TestResolveBinaryUnderPackageRoot(t *testing.T) {
	root := t.TempDir()
	for _, plat := range []platform.Platform{platform.MacOS, platform.Linux, platform.Windows} {
		set := baseSettings(t)
		lay, err := layout.Resolve(set, plat, root)
		if err != nil {
			t.Fatalf("resolve %v: %v", plat, err)
		}
		rel, err := filepath.Rel(lay.PackageRoot, lay.BinaryPath)
		if err != nil || strings.HasPrefix(rel, "..") {
			t.Fatalf("%v: binary %q escapes package root %q", plat, lay.BinaryPath, lay.PackageRoot)
		}
	}
}

func TestResolveIdempotent(t *testing.T) {
	root := t.TempDir()
	set := baseSettings(t)

	first, err := layout.Resolve(set, platform.Linux, root)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	// Populate the tree, then resolve again over the existing directories.
	if err := os.WriteFile(first.BinaryPath, []byte("bin"), 0o755); err != nil {
		t.Fatalf("write binary: %v", err)
	}
	second, err := layout.Resolve(set, platform.Linux, root)
	if err != nil {
		t.Fatalf("second resolve must not fail: %v", err)
	}
	if second.BinaryPath != first.BinaryPath {
		t.Fatalf("layout changed between resolves")
	}
	if _, err := os.Stat(first.BinaryPath); err != nil {
		t.Fatalf("existing binary must survive re-resolve: %v", err)
	}
}
