package execx

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// Command describes one external invocation. Line is a full shell command
// line: several pipeline steps rely on shell behaviour (";"-joined composite
// signing commands, backtick pkg-config substitution), so running through a
// shell is part of the contract.
type Command struct {
	Line string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Env entries are appended to the inherited environment.
	Env []string
	// Timeout bounds the invocation when positive.
	Timeout time.Duration
}

// Result carries what a finished process reported.
type Result struct {
	ExitCode int
	Output   string
}

// Runner abstracts command execution for testability. An error is returned
// only when the process could not run at all or the timeout fired; a nonzero
// exit is data in Result, classified by the caller.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// NewShellRunner returns the default Runner backed by the host shell.
func NewShellRunner() Runner {
	return shellRunner{}
}

type shellRunner struct{}

func (shellRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	line := strings.TrimSpace(cmd.Line)
	if line == "" {
		return Result{}, errors.New("empty command line")
	}

	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	var proc *exec.Cmd
	if runtime.GOOS == "windows" {
		proc = exec.CommandContext(runCtx, "cmd", "/c", line)
	} else {
		proc = exec.CommandContext(runCtx, "sh", "-c", line)
	}
	proc.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		proc.Env = append(proc.Environ(), cmd.Env...)
	}

	output, err := proc.CombinedOutput()
	result := Result{Output: string(output)}
	if err != nil {
		if ctxErr := runCtx.Err(); ctxErr != nil {
			return result, fmt.Errorf("command %q: %w", line, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("run command %q: %w", line, err)
	}
	return result, nil
}
