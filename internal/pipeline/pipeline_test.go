package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"socket/internal/config"
	"socket/internal/errs"
	"socket/internal/execx"
	"socket/internal/logging"
	"socket/internal/pipeline"
	"socket/internal/platform"
)

type fakeRunner struct {
	commands []execx.Command
	// exits maps a command-line substring to the exit code returned for it.
	exits map[string]int
}

func (f *fakeRunner) Run(_ context.Context, cmd execx.Command) (execx.Result, error) {
	f.commands = append(f.commands, cmd)
	for fragment, code := range f.exits {
		if strings.Contains(cmd.Line, fragment) {
			return execx.Result{ExitCode: code, Output: fragment + " failed"}, nil
		}
	}
	return execx.Result{}, nil
}

func (f *fakeRunner) lines() []string {
	out := make([]string, 0, len(f.commands))
	for _, cmd := range f.commands {
		out = append(out, cmd.Line)
	}
	return out
}

const projectSettings = `name: foo
title: Foo
executable: foo
output: dist
version: 1.0
arch: amd64
revision: 1
linux_cmd: true
`

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, pipeline.SettingsFile)
	if err := os.WriteFile(path, []byte(projectSettings), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	return dir
}

func newPipeline(t *testing.T, runner *fakeRunner) *pipeline.Pipeline {
	t.Helper()
	cfg := config.Default()
	return pipeline.New(&cfg, logging.NewNop(),
		pipeline.WithRunner(runner),
		pipeline.WithHostPlatform(platform.Linux),
	)
}

func TestRunLinuxPackage(t *testing.T) {
	dir := writeProject(t)
	runner := &fakeRunner{}
	pipe := newPipeline(t, runner)

	report, err := pipe.Run(context.Background(), pipeline.Options{
		ProjectRoot: dir,
		Package:     true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	pkgRoot := filepath.Join(dir, "dist", "foo_1.0-1_amd64")
	for _, want := range []string{
		filepath.Join(pkgRoot, "opt", "foo"),
		filepath.Join(pkgRoot, "DEBIAN", "control"),
		filepath.Join(pkgRoot, "usr", "share", "applications", "foo.desktop"),
	} {
		if _, statErr := os.Stat(want); statErr != nil {
			t.Fatalf("expected %s to exist: %v", want, statErr)
		}
	}

	link := filepath.Join(pkgRoot, "usr", "local", "bin", "foo")
	target, linkErr := os.Readlink(link)
	if linkErr != nil {
		t.Fatalf("expected launcher symlink at %s: %v", link, linkErr)
	}
	if target != "/opt/foo/foo" {
		t.Fatalf("symlink target = %q, want /opt/foo/foo", target)
	}

	lines := strings.Join(runner.lines(), "\n")
	buildDir := filepath.Join("dist", "foo_1.0-1_amd64", "opt", "foo")
	if !strings.Contains(lines, "true "+buildDir+" --debug=0") {
		t.Fatalf("user build command missing:\n%s", lines)
	}
	if !strings.Contains(lines, "-o "+filepath.Join(pkgRoot, "opt", "foo", "foo")) {
		t.Fatalf("compile output path missing:\n%s", lines)
	}
	if !strings.Contains(lines, "dpkg-deb --build --root-owner-group "+pkgRoot) {
		t.Fatalf("dpkg-deb invocation missing:\n%s", lines)
	}

	wantArtifact := filepath.Join(dir, "dist", "foo_1.0-1_amd64.deb")
	if report.Artifact != wantArtifact {
		t.Fatalf("artifact = %q, want %q", report.Artifact, wantArtifact)
	}

	statuses := map[string]pipeline.StepStatus{}
	for _, step := range report.Steps {
		statuses[step.Name] = step.Status
	}
	for _, name := range []string{"validate", "clean", "layout", "manifests", "user build", "compile", "package"} {
		if statuses[name] != pipeline.StatusOK {
			t.Fatalf("step %s = %s, want ok (%+v)", name, statuses[name], report.Steps)
		}
	}
	for _, name := range []string{"sign bundle", "sign artifact", "notarize", "launch"} {
		if statuses[name] != pipeline.StatusSkipped {
			t.Fatalf("step %s = %s, want skipped", name, statuses[name])
		}
	}
}

func TestRunDebugSuffixFlowsIntoLayout(t *testing.T) {
	dir := writeProject(t)
	runner := &fakeRunner{}
	pipe := newPipeline(t, runner)

	_, err := pipe.Run(context.Background(), pipeline.Options{
		ProjectRoot: dir,
		Debug:       true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	pkgRoot := filepath.Join(dir, "dist", "foo-dev_1.0-1_amd64")
	if _, statErr := os.Stat(filepath.Join(pkgRoot, "opt", "foo-dev")); statErr != nil {
		t.Fatalf("expected debug-suffixed package tree: %v", statErr)
	}

	lines := strings.Join(runner.lines(), "\n")
	if !strings.Contains(lines, "--debug=1") {
		t.Fatalf("user build should run in debug mode:\n%s", lines)
	}
	if !strings.Contains(lines, "-DDEBUG=1") {
		t.Fatalf("compile should define debug:\n%s", lines)
	}
}

func TestRunForwardsUserBuildExitCode(t *testing.T) {
	dir := writeProject(t)
	runner := &fakeRunner{exits: map[string]int{"--debug=": 2}}
	pipe := newPipeline(t, runner)

	report, err := pipe.Run(context.Background(), pipeline.Options{ProjectRoot: dir})
	if err == nil {
		t.Fatal("expected user build failure")
	}
	if got := errs.ExitCode(err); got != 2 {
		t.Fatalf("exit code = %d, want 2", got)
	}

	last := report.Steps[len(report.Steps)-1]
	if last.Name != "user build" || last.Status != pipeline.StatusFailed {
		t.Fatalf("expected user build as failed last step, got %+v", last)
	}
	for _, step := range report.Steps {
		if step.Name == "compile" {
			t.Fatal("compile must not run after a failed user build")
		}
	}
}

func TestRunMissingSettingsKeyIsConfigurationError(t *testing.T) {
	dir := t.TempDir()
	body := strings.Replace(projectSettings, "version: 1.0\n", "", 1)
	if err := os.WriteFile(filepath.Join(dir, pipeline.SettingsFile), []byte(body), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	pipe := newPipeline(t, &fakeRunner{})

	_, err := pipe.Run(context.Background(), pipeline.Options{ProjectRoot: dir})
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(err.Error(), "version") {
		t.Fatalf("error should name the missing key: %v", err)
	}
	if got := errs.ExitCode(err); got != 1 {
		t.Fatalf("exit code = %d, want 1", got)
	}
}

func TestRunOnlyBuildKeepsOutputTree(t *testing.T) {
	dir := writeProject(t)
	runner := &fakeRunner{}
	pipe := newPipeline(t, runner)

	if _, err := pipe.Run(context.Background(), pipeline.Options{ProjectRoot: dir}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	binary := filepath.Join(dir, "dist", "foo_1.0-1_amd64", "opt", "foo", "foo")
	if err := os.WriteFile(binary, []byte("previous build"), 0o755); err != nil {
		t.Fatalf("plant binary: %v", err)
	}

	report, err := pipe.Run(context.Background(), pipeline.Options{ProjectRoot: dir, OnlyBuild: true})
	if err != nil {
		t.Fatalf("only-build run: %v", err)
	}

	if _, statErr := os.Stat(binary); statErr != nil {
		t.Fatalf("only-build must keep the previous binary: %v", statErr)
	}
	for _, step := range report.Steps {
		switch step.Name {
		case "clean", "compile":
			if step.Status != pipeline.StatusSkipped {
				t.Fatalf("step %s = %s, want skipped", step.Name, step.Status)
			}
		}
	}
	for _, cmd := range runner.commands[len(runner.commands)-1:] {
		if strings.Contains(cmd.Line, "-DSETTINGS=") {
			t.Fatalf("compiler ran in only-build mode: %s", cmd.Line)
		}
	}
}

func TestRunRefusesConcurrentBuilds(t *testing.T) {
	dir := writeProject(t)
	lock := flock.New(filepath.Join(dir, ".socket.lock"))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("prepare lock: locked=%v err=%v", locked, err)
	}
	defer lock.Unlock()

	pipe := newPipeline(t, &fakeRunner{})
	if _, err := pipe.Run(context.Background(), pipeline.Options{ProjectRoot: dir}); err == nil {
		t.Fatal("expected lock contention to fail the run")
	}
}
