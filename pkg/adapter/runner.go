package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"time"

	"github.com/kballard/go-shellquote"
)

// defaultWaitDelay bounds how long Wait blocks on output pipes after the
// process has been killed.
const defaultWaitDelay = 2 * time.Second

// Invocation describes a single run of an external tool.
type Invocation struct {
	// Operation is a short label used in logs, telemetry and errors (e.g. "list-metrics").
	Operation string
	Path      string
	Args      []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Env is appended to the parent environment as KEY=VALUE pairs.
	Env []string
	// Timeout bounds the run; zero means only the caller's context applies.
	Timeout time.Duration
}

// CommandLine renders the invocation as a shell-quoted command line.
func (inv Invocation) CommandLine() string {
	return shellquote.Join(append([]string{inv.Path}, inv.Args...)...)
}

// Output is the captured result of a finished process.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes tool invocations.
//
// A non-zero exit status is not an error at this level: it is reported via
// Output.ExitCode so callers can inspect the output of failed runs.
// Errors are reserved for processes that could not be started (*ConfigError),
// were killed by a deadline (*TimeoutError) or were canceled.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (*Output, error)
}

// ExecRunner runs invocations as local subprocesses.
// The zero value is ready to use.
type ExecRunner struct {
	// WaitDelay overrides how long to wait for output pipes after a kill.
	WaitDelay time.Duration
}

// NewExecRunner creates a subprocess runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run spawns the process, waits for it to exit and captures its output.
// On timeout or cancellation the whole process group is killed.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (*Output, error) {
	if inv.Path == "" {
		return nil, &ConfigError{Field: "cli_path", Reason: "executable path is empty"}
	}

	execCtx, cancel := withInvocationTimeout(ctx, inv.Timeout)
	defer cancel()

	// #nosec G204 -- path and args come from adapter configuration and typed requests.
	cmd := exec.CommandContext(execCtx, inv.Path, inv.Args...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = r.waitDelay()
	configureProcessGroup(cmd)

	start := time.Now()
	runErr := cmd.Run()

	out := &Output{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: -1,
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}

	return classifyRun(inv, out, runErr, execCtx.Err())
}

// classifyRun maps the outcome of a finished process to the runner result.
// A clean exit wins over a deadline that fired after the process finished.
func classifyRun(inv Invocation, out *Output, runErr, ctxErr error) (*Output, error) {
	if runErr == nil && out.ExitCode == 0 {
		return out, nil
	}

	if ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, &TimeoutError{
				Operation: inv.Operation,
				Command:   inv.CommandLine(),
				Timeout:   inv.Timeout,
				Err:       ctxErr,
			}
		}
		return nil, fmt.Errorf("%s canceled: %w", inv.Operation, ctxErr)
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return out, nil
		}
		if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, fs.ErrNotExist) || errors.Is(runErr, fs.ErrPermission) {
			return nil, &ConfigError{
				Field:  "cli_path",
				Reason: fmt.Sprintf("cannot execute %s", inv.Path),
				Err:    runErr,
			}
		}
		return nil, fmt.Errorf("failed to run %s: %w", inv.Operation, runErr)
	}

	return out, nil
}

func (r *ExecRunner) waitDelay() time.Duration {
	if r != nil && r.WaitDelay > 0 {
		return r.WaitDelay
	}
	return defaultWaitDelay
}

func withInvocationTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(parent, timeout)
	}
	return context.WithCancel(parent)
}

// Ensure ExecRunner implements Runner
var _ Runner = (*ExecRunner)(nil)
