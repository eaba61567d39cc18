package resolver

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks requests rejected before any process is spawned.
	ErrValidation = errors.New("invalid resolver request")
	// ErrResolverExecution marks a resolver that could not start or exited non-zero.
	ErrResolverExecution = errors.New("resolver execution failed")
	// ErrResolverOutput marks a resolver that exited 0 but wrote something other than one JSON document.
	ErrResolverOutput = errors.New("malformed resolver output")
)

// ValidationError describes bad client input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ExecutionError carries the resolver's stderr, never its stdout.
type ExecutionError struct {
	Command  Command
	ExitCode int
	Stderr   string
	Err      error // spawn or context failure, nil for a plain non-zero exit
}

func (e *ExecutionError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	switch {
	case e.Err != nil && stderr != "":
		return fmt.Sprintf("resolver %s failed: %v: %s", e.Command, e.Err, stderr)
	case e.Err != nil:
		return fmt.Sprintf("resolver %s failed: %v", e.Command, e.Err)
	case stderr != "":
		return fmt.Sprintf("resolver %s exited with code %d: %s", e.Command, e.ExitCode, stderr)
	default:
		return fmt.Sprintf("resolver %s exited with code %d", e.Command, e.ExitCode)
	}
}

func (e *ExecutionError) Is(target error) bool { return target == ErrResolverExecution }

func (e *ExecutionError) Unwrap() error { return e.Err }

// OutputError is returned when a successful exit produced unusable stdout.
type OutputError struct {
	Command Command
	Reason  string
	Err     error
}

func (e *OutputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolver %s returned malformed output: %s: %v", e.Command, e.Reason, e.Err)
	}
	return fmt.Sprintf("resolver %s returned malformed output: %s", e.Command, e.Reason)
}

func (e *OutputError) Is(target error) bool { return target == ErrResolverOutput }

func (e *OutputError) Unwrap() error { return e.Err }
