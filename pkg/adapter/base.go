package adapter

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// BaseCLIAdapter provides common subprocess plumbing for adapters that wrap
// a command-line tool. Embed this struct in concrete adapter implementations.
type BaseCLIAdapter struct {
	Runner Runner
	Cfg    Config
	Logger *slog.Logger
}

// Run executes the invocation and returns its output whatever the exit status.
func (b *BaseCLIAdapter) Run(ctx context.Context, inv Invocation) (*Output, error) {
	runner := b.Runner
	if runner == nil {
		runner = NewExecRunner()
	}

	logger := b.log().With("invocation_id", uuid.NewString(), "operation", inv.Operation)
	logger.Debug("invoking semantic tool", "command", inv.CommandLine(), "dir", inv.Dir)

	out, err := runner.Run(ctx, inv)
	if err != nil {
		logger.Debug("semantic tool invocation failed", "error", err)
		return nil, err
	}

	logger.Debug("semantic tool finished", "exit_code", out.ExitCode, "duration", out.Duration)
	return out, nil
}

// Exec executes the invocation and fails with *InvocationError on a non-zero exit.
func (b *BaseCLIAdapter) Exec(ctx context.Context, inv Invocation) (*Output, error) {
	out, err := b.Run(ctx, inv)
	if err != nil {
		return nil, err
	}
	if out.ExitCode != 0 {
		return nil, &InvocationError{
			Operation: inv.Operation,
			Command:   inv.CommandLine(),
			ExitCode:  out.ExitCode,
			Stderr:    out.Stderr,
		}
	}
	return out, nil
}

func (b *BaseCLIAdapter) log() *slog.Logger {
	return LoggerOrDiscard(b.Logger)
}

// LoggerOrDiscard returns l, or a logger that drops everything when l is nil.
func LoggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
