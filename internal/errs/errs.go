package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks missing or unusable settings; mapped to exit code 1.
	ErrConfiguration = errors.New("configuration error")
	// ErrExternalTool marks a nonzero exit from an invoked build/package/sign tool.
	ErrExternalTool = errors.New("external tool error")
	// ErrServiceProtocol marks notarization output that does not match the expected text.
	ErrServiceProtocol = errors.New("service protocol error")
	// ErrServiceTimeout marks the notarization poll ceiling being reached.
	ErrServiceTimeout = errors.New("service timeout")
	// ErrPartialArtifact marks a payload omission that was logged and skipped.
	ErrPartialArtifact = errors.New("partial artifact")
)

// Wrap builds an error message that includes step context while tagging it with
// the provided marker for later exit-code classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, step, operation, message string, err error) error {
	detail := buildDetail(step, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ProcessError captures a fatal nonzero exit from an external process. The
// recorded exit code is forwarded as the CLI's own exit code.
type ProcessError struct {
	Step     string
	Command  string
	ExitCode int
	Output   string
}

// NewProcessError builds a ProcessError for the given step invocation.
func NewProcessError(step, command string, exitCode int, output string) *ProcessError {
	return &ProcessError{
		Step:     strings.TrimSpace(step),
		Command:  strings.TrimSpace(command),
		ExitCode: exitCode,
		Output:   strings.TrimSpace(output),
	}
}

func (e *ProcessError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: command exited with code %d", e.Step, e.ExitCode)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

func (e *ProcessError) Unwrap() error {
	return ErrExternalTool
}

// ExitCode maps a pipeline error to the process exit code the CLI should
// terminate with. Nonzero tool exits are forwarded verbatim; everything else
// fatal exits 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var procErr *ProcessError
	if errors.As(err, &procErr) && procErr.ExitCode != 0 {
		return procErr.ExitCode
	}
	return 1
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
