//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/oshokin/nwjs-packager/internal/logger"
)

// Command is one external tool invocation.
type Command struct {
	// Name is the executable path or a name resolved through PATH.
	Name string
	// Args are passed verbatim.
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env is appended to the current environment.
	Env []string
	// Stdout and Stderr, when set, additionally receive the live streams.
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result is what a finished command left behind.
type Result struct {
	// ExitCode is the process exit status.
	ExitCode int
	// Stdout is the captured standard output.
	Stdout string
	// Stderr is the captured standard error.
	Stderr string
	// Duration is the wall time of the run.
	Duration time.Duration
}

// Runner executes external tools. Implementations block until the process exits.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// LocalRunner runs commands on the local machine.
type LocalRunner struct {
	// timeout bounds every command when positive.
	timeout time.Duration
}

// Option configures a LocalRunner.
type Option func(*LocalRunner)

// WithTimeout bounds each command run.
func WithTimeout(timeout time.Duration) Option {
	return func(r *LocalRunner) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// NewLocalRunner creates a runner for local subprocesses.
func NewLocalRunner(opts ...Option) *LocalRunner {
	r := &LocalRunner{}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run executes cmd and captures both streams. A non-zero exit code is not an
// error: callers inspect Result.ExitCode. Errors are reserved for commands
// that could not be started; a missing executable yields *ToolNotFoundError.
func (r *LocalRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	if cmd.Name == "" {
		return Result{}, errEmptyCommand
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	execCmd := exec.CommandContext(ctx, cmd.Name, cmd.Args...) //nolint:gosec // Tools come from configuration.
	execCmd.Dir = cmd.Dir

	if len(cmd.Env) > 0 {
		execCmd.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer

	execCmd.Stdout = teeWriter(&stdout, cmd.Stdout)
	execCmd.Stderr = teeWriter(&stderr, cmd.Stderr)

	logger.DebugKV(ctx, "Running external tool", "command", cmd.String(), "dir", cmd.Dir)

	startTime := time.Now()
	err := execCmd.Run()

	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(startTime),
	}

	if err == nil {
		return result, nil
	}

	// A killed process also exits non-zero; report the cancellation instead.
	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1

		return result, fmt.Errorf("run %s: %w", filepath.Base(cmd.Name), ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()

		return result, nil
	}

	result.ExitCode = -1

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return result, &ToolNotFoundError{Tool: filepath.Base(cmd.Name), Path: cmd.Name}
	}

	return result, fmt.Errorf("run %s: %w", filepath.Base(cmd.Name), err)
}

func teeWriter(capture *bytes.Buffer, live io.Writer) io.Writer {
	if live == nil {
		return capture
	}

	return io.MultiWriter(capture, live)
}
