package build_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"socket/internal/build"
	"socket/internal/config"
	"socket/internal/errs"
	"socket/internal/execx"
	"socket/internal/layout"
	"socket/internal/logging"
	"socket/internal/platform"
	"socket/internal/settings"
)

type fakeRunner struct {
	commands []execx.Command
	results  []execx.Result
	err      error
}

func (f *fakeRunner) Run(_ context.Context, cmd execx.Command) (execx.Result, error) {
	f.commands = append(f.commands, cmd)
	if f.err != nil {
		return execx.Result{}, f.err
	}
	if len(f.results) == 0 {
		return execx.Result{}, nil
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

func fixture(t *testing.T) (*settings.Settings, layout.Layout, string) {
	t.Helper()
	root := t.TempDir()
	set, err := settings.Parse(strings.Join([]string{
		"name: foo",
		"title: Foo",
		"executable: foo",
		"output: dist",
		"version: 1.0",
		"arch: amd64",
		"revision: 1",
		"linux_cmd: npm run build",
		"debug_flags: -g",
		"flags: -O2",
		"",
	}, "\n"))
	if err != nil {
		t.Fatalf("parse settings: %v", err)
	}
	lay, err := layout.Resolve(set, platform.Linux, root)
	if err != nil {
		t.Fatalf("resolve layout: %v", err)
	}
	return set, lay, root
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Build.Compiler = "g++"
	return &cfg
}

func TestRunUserStep(t *testing.T) {
	set, lay, root := fixture(t)
	runner := &fakeRunner{}
	orch := build.New(runner, testConfig(), logging.NewNop())

	if err := orch.RunUserStep(context.Background(), root, set, lay, platform.Linux, true); err != nil {
		t.Fatalf("user step: %v", err)
	}
	if len(runner.commands) != 1 {
		t.Fatalf("expected one invocation, got %d", len(runner.commands))
	}
	cmd := runner.commands[0]
	want := "npm run build " + filepath.Join("dist", "foo_1.0-1_amd64", "opt", "foo") + " --debug=1"
	if cmd.Line != want {
		t.Fatalf("command = %q, want %q", cmd.Line, want)
	}
	if cmd.Dir != root {
		t.Fatalf("expected project root working directory, got %q", cmd.Dir)
	}
}

func TestRunUserStepForwardsExitCode(t *testing.T) {
	set, lay, root := fixture(t)
	runner := &fakeRunner{results: []execx.Result{{ExitCode: 3, Output: "build broke"}}}
	orch := build.New(runner, testConfig(), logging.NewNop())

	err := orch.RunUserStep(context.Background(), root, set, lay, platform.Linux, false)
	if err == nil {
		t.Fatalf("expected failure")
	}
	if got := errs.ExitCode(err); got != 3 {
		t.Fatalf("expected exit code 3, got %d", got)
	}
}

func TestCompileCommandContents(t *testing.T) {
	set, lay, _ := fixture(t)
	orch := build.New(&fakeRunner{}, testConfig(), logging.NewNop())

	line := orch.CompileCommand(set, lay, platform.Linux, true)
	for _, want := range []string{
		"g++ ",
		"main.cc",
		"process_unix.cc",
		"pkg-config",
		"-g",
		"-o " + lay.BinaryPath,
		"-DDEBUG=1",
		"-DSETTINGS=\"",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("compile command missing %q:\n%s", want, line)
		}
	}
	if strings.Contains(line, " -O2") {
		t.Fatalf("release flags must not appear in debug compile:\n%s", line)
	}

	release := orch.CompileCommand(set, lay, platform.Linux, false)
	if !strings.Contains(release, "-O2") || !strings.Contains(release, "-DDEBUG=0") {
		t.Fatalf("release compile command wrong:\n%s", release)
	}
}

func TestCompileCommandEmbedsReversibleBlob(t *testing.T) {
	set, lay, _ := fixture(t)
	orch := build.New(&fakeRunner{}, testConfig(), logging.NewNop())

	line := orch.CompileCommand(set, lay, platform.Linux, false)
	marker := "-DSETTINGS=\""
	idx := strings.Index(line, marker)
	if idx < 0 {
		t.Fatalf("no settings define in %q", line)
	}
	blob := line[idx+len(marker):]
	blob = blob[:strings.Index(blob, "\"")]
	decoded, err := settings.DecodeBlob(blob)
	if err != nil {
		t.Fatalf("decode blob: %v", err)
	}
	if decoded != set.Raw() {
		t.Fatalf("blob does not round-trip")
	}
}

func TestCompileSkippedInOnlyBuildMode(t *testing.T) {
	set, lay, _ := fixture(t)
	if err := os.WriteFile(lay.BinaryPath, []byte("bin"), 0o755); err != nil {
		t.Fatalf("write binary: %v", err)
	}
	runner := &fakeRunner{}
	orch := build.New(runner, testConfig(), logging.NewNop())

	if err := orch.Compile(context.Background(), set, lay, platform.Linux, false, true); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(runner.commands) != 0 {
		t.Fatalf("compile must be skipped when the binary exists")
	}
}

func TestCompileRunsWhenBinaryMissing(t *testing.T) {
	set, lay, _ := fixture(t)
	runner := &fakeRunner{}
	orch := build.New(runner, testConfig(), logging.NewNop())

	if err := orch.Compile(context.Background(), set, lay, platform.Linux, false, true); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(runner.commands) != 1 {
		t.Fatalf("compile must run when no binary exists")
	}
}

func TestCompileFailureSurfaced(t *testing.T) {
	set, lay, _ := fixture(t)
	runner := &fakeRunner{results: []execx.Result{{ExitCode: 1, Output: "error: missing webkit"}}}
	orch := build.New(runner, testConfig(), logging.NewNop())

	err := orch.Compile(context.Background(), set, lay, platform.Linux, false, false)
	var procErr *errs.ProcessError
	if !errors.As(err, &procErr) {
		t.Fatalf("expected process error, got %v", err)
	}
	if procErr.Output != "error: missing webkit" {
		t.Fatalf("expected surfaced output, got %q", procErr.Output)
	}
}
