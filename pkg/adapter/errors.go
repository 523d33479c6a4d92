package adapter

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for errors.Is checks against the typed errors below.
var (
	ErrConfig         = errors.New("adapter configuration error")
	ErrInvocation     = errors.New("semantic tool invocation failed")
	ErrTimeout        = errors.New("semantic tool invocation timed out")
	ErrParse          = errors.New("semantic tool output could not be parsed")
	ErrInvalidRequest = errors.New("invalid semantic request")
)

// maxSnippetLen bounds how much tool output is copied into error messages.
const maxSnippetLen = 512

// ConfigError reports a missing or invalid configuration value, including an
// executable that cannot be found.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := "invalid adapter configuration"
	if e.Field != "" {
		msg += fmt.Sprintf(" %q", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is matches ErrConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// InvocationError reports a tool process that exited with a non-zero status.
type InvocationError struct {
	Operation string
	Command   string
	ExitCode  int
	Stderr    string
}

func (e *InvocationError) Error() string {
	msg := fmt.Sprintf("%s failed: command exited with code %d", e.Operation, e.ExitCode)
	if s := snippet(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// Is matches ErrInvocation.
func (e *InvocationError) Is(target error) bool { return target == ErrInvocation }

// TimeoutError reports a tool process that was killed because the
// invocation deadline elapsed.
type TimeoutError struct {
	Operation string
	Command   string
	Timeout   time.Duration
	Err       error
}

func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("%s timed out after %s", e.Operation, e.Timeout)
	}
	return fmt.Sprintf("%s timed out", e.Operation)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Is matches ErrTimeout.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// ParseError reports tool output that does not have the expected shape.
type ParseError struct {
	Operation string
	Reason    string
	Output    string
	Err       error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("failed to parse %s output: %s", e.Operation, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// RequestError reports a request rejected before any tool was invoked.
type RequestError struct {
	Operation string
	Err       error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid %s request: %v", e.Operation, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Is matches ErrInvalidRequest.
func (e *RequestError) Is(target error) bool { return target == ErrInvalidRequest }

// snippet trims tool output for inclusion in an error message.
func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxSnippetLen {
		return s
	}
	return s[:maxSnippetLen] + "..."
}
