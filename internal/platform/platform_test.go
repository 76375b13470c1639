package platform

import (
	"errors"
	"strings"
	"testing"

	"socket/internal/errs"
)

func TestFromGOOS(t *testing.T) {
	cases := []struct {
		goos string
		want Platform
	}{
		{"darwin", MacOS},
		{"linux", Linux},
		{"windows", Windows},
	}
	for _, tc := range cases {
		got, err := fromGOOS(tc.goos)
		if err != nil {
			t.Fatalf("fromGOOS(%q): %v", tc.goos, err)
		}
		if got != tc.want {
			t.Fatalf("fromGOOS(%q) = %v, want %v", tc.goos, got, tc.want)
		}
	}
}

func TestFromGOOSUnsupported(t *testing.T) {
	_, err := fromGOOS("plan9")
	if !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestBuildCommandKeys(t *testing.T) {
	if MacOS.BuildCommandKey() != "mac_cmd" {
		t.Fatalf("unexpected mac key %q", MacOS.BuildCommandKey())
	}
	if Linux.BuildCommandKey() != "linux_cmd" {
		t.Fatalf("unexpected linux key %q", Linux.BuildCommandKey())
	}
	if Windows.BuildCommandKey() != "win_cmd" {
		t.Fatalf("unexpected windows key %q", Windows.BuildCommandKey())
	}
}

func TestDefaultCompiler(t *testing.T) {
	if Windows.DefaultCompiler() != "clang++" {
		t.Fatalf("unexpected windows compiler %q", Windows.DefaultCompiler())
	}
	if Linux.DefaultCompiler() != "/usr/bin/g++" {
		t.Fatalf("unexpected linux compiler %q", Linux.DefaultCompiler())
	}
}

func TestExecutableSuffix(t *testing.T) {
	if Windows.ExecutableSuffix() != ".exe" {
		t.Fatalf("expected .exe suffix on windows")
	}
	if MacOS.ExecutableSuffix() != "" {
		t.Fatalf("expected no suffix on macos")
	}
}

func TestSourceFilesAndFlags(t *testing.T) {
	sources := Linux.SourceFiles("/opt/socket")
	if len(sources) != 2 {
		t.Fatalf("expected two sources, got %v", sources)
	}
	for _, src := range sources {
		if !strings.HasPrefix(src, "/opt/socket/") {
			t.Fatalf("source not rooted at prefix: %q", src)
		}
	}
	if !strings.Contains(Linux.CompileFlags(""), "pkg-config") {
		t.Fatalf("linux flags should use pkg-config substitution")
	}
	if !strings.Contains(MacOS.CompileFlags(""), "WebKit") {
		t.Fatalf("mac flags should link WebKit")
	}
	if !strings.Contains(Windows.CompileFlags("/opt/socket"), "win64") {
		t.Fatalf("windows flags should reference the win64 tree")
	}
}
