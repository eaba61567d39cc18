package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
)

// Invoker runs one resolver command and returns its JSON output.
type Invoker interface {
	Invoke(ctx context.Context, command Command, args ...string) (json.RawMessage, error)
}

// ProcessOptions configures how the resolver tool is spawned.
type ProcessOptions struct {
	Binary   string
	BaseArgs []string // placed before the command, e.g. the script path
	WorkDir  string
	Env      []string // appended to the gateway's environment

	// Timeout bounds a single invocation. Zero means the child may run forever.
	Timeout time.Duration
	// DetachFromRequest keeps the child running after the caller's context is
	// cancelled (for example when the HTTP client disconnects).
	DetachFromRequest bool
	// MaxOutputBytes caps each of stdout and stderr. Zero means unbounded.
	MaxOutputBytes int64

	Logger  *slog.Logger
	Metrics *Metrics
}

// Outcome is the raw result of one subprocess execution.
type Outcome struct {
	ExitCode       int
	Stdout         []byte
	Stderr         []byte
	StdoutOverflow bool
	StdoutTotal    int64
	Duration       time.Duration
}

// ProcessAdapter spawns a fresh resolver process per call. It holds no state
// shared between invocations.
type ProcessAdapter struct {
	opts   ProcessOptions
	logger *slog.Logger
}

var _ Invoker = (*ProcessAdapter)(nil)

// stdoutPreviewBytes bounds how much malformed output is copied into logs.
const stdoutPreviewBytes = 512

// pipeGrace is how long output is still drained after cancellation before the
// pipes are closed on whatever descendant keeps them open.
const pipeGrace = 2 * time.Second

func NewProcessAdapter(opts ProcessOptions) *ProcessAdapter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts.Binary = strings.TrimSpace(opts.Binary)
	return &ProcessAdapter{opts: opts, logger: logger.With("component", "resolver")}
}

// Invoke runs `<binary> <baseArgs...> <command> [args...]`, waits for it to
// exit and classifies the result. A non-zero exit yields *ExecutionError with
// stderr only; exit 0 with anything but a single JSON document yields
// *OutputError.
func (a *ProcessAdapter) Invoke(ctx context.Context, command Command, args ...string) (json.RawMessage, error) {
	if err := ValidateArgs(command, args); err != nil {
		a.opts.Metrics.rejected(command)
		return nil, err
	}

	logger := a.logger.With("invocation", uuid.NewString(), "command", string(command))

	if a.opts.DetachFromRequest {
		ctx = context.WithoutCancel(ctx)
	}
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	a.opts.Metrics.started()
	outcome, runErr := a.run(ctx, command, args)
	payload, err := classify(command, outcome, runErr)
	a.opts.Metrics.finished(command, outcomeLabel(err), outcome.Duration)

	switch {
	case err == nil:
		logger.Debug("resolver invocation complete",
			"args", args,
			"output", humanize.Bytes(uint64(len(payload))),
			"duration", outcome.Duration,
		)
	case errors.Is(err, ErrResolverOutput):
		logger.Error("resolver returned malformed output",
			"args", args,
			"output", humanize.Bytes(uint64(outcome.StdoutTotal)),
			"preview", preview(outcome.Stdout),
			"duration", outcome.Duration,
			"error", err,
		)
	default:
		logger.Error("resolver invocation failed",
			"args", args,
			"exit_code", outcome.ExitCode,
			"stderr", strings.TrimSpace(string(outcome.Stderr)),
			"duration", outcome.Duration,
			"error", err,
		)
	}
	return payload, err
}

func (a *ProcessAdapter) run(ctx context.Context, command Command, args []string) (Outcome, error) {
	argv := make([]string, 0, len(a.opts.BaseArgs)+1+len(args))
	argv = append(argv, a.opts.BaseArgs...)
	argv = append(argv, string(command))
	argv = append(argv, args...)

	cmd := exec.CommandContext(ctx, a.opts.Binary, argv...)
	if a.opts.WorkDir != "" {
		cmd.Dir = a.opts.WorkDir
	}
	if len(a.opts.Env) > 0 {
		cmd.Env = append(os.Environ(), a.opts.Env...)
	}
	killProcessGroup(cmd)
	cmd.WaitDelay = pipeGrace

	outcome := Outcome{ExitCode: -1}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return outcome, fmt.Errorf("stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return outcome, fmt.Errorf("stderr pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		outcome.Duration = time.Since(start)
		return outcome, err
	}

	stdout := newLimitedBuffer(a.opts.MaxOutputBytes)
	stderr := newLimitedBuffer(a.opts.MaxOutputBytes)

	// Both pipes must be drained before Wait closes them.
	var wg conc.WaitGroup
	wg.Go(func() { _, _ = io.Copy(stdout, stdoutPipe) })
	wg.Go(func() { _, _ = io.Copy(stderr, stderrPipe) })
	drained := make(chan struct{})
	go func() {
		wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		// Cancel has killed the process group. A descendant that left the
		// group may still hold the write ends open.
		grace := time.NewTimer(pipeGrace)
		select {
		case <-drained:
		case <-grace.C:
			_ = stdoutPipe.Close()
			_ = stderrPipe.Close()
			<-drained
		}
		grace.Stop()
	}

	waitErr := cmd.Wait()
	outcome.Duration = time.Since(start)
	outcome.Stdout = stdout.Bytes()
	outcome.Stderr = stderr.Bytes()
	outcome.StdoutOverflow = stdout.Overflowed()
	outcome.StdoutTotal = stdout.Total()
	if cmd.ProcessState != nil {
		outcome.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return outcome, ctxErr
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) && !errors.Is(waitErr, exec.ErrWaitDelay) {
		return outcome, waitErr
	}
	return outcome, nil
}

func classify(command Command, outcome Outcome, runErr error) (json.RawMessage, error) {
	if runErr != nil {
		return nil, &ExecutionError{
			Command:  command,
			ExitCode: outcome.ExitCode,
			Stderr:   string(outcome.Stderr),
			Err:      runErr,
		}
	}
	if outcome.ExitCode != 0 {
		return nil, &ExecutionError{
			Command:  command,
			ExitCode: outcome.ExitCode,
			Stderr:   string(outcome.Stderr),
		}
	}
	if outcome.StdoutOverflow {
		return nil, &OutputError{
			Command: command,
			Reason:  fmt.Sprintf("output exceeded %s", humanize.Bytes(uint64(len(outcome.Stdout)))),
		}
	}

	doc := bytes.TrimSpace(outcome.Stdout)
	if len(doc) == 0 {
		return nil, &OutputError{Command: command, Reason: "empty output"}
	}
	if !json.Valid(doc) {
		var probe any
		err := json.Unmarshal(doc, &probe)
		return nil, &OutputError{Command: command, Reason: "invalid JSON", Err: err}
	}
	return json.RawMessage(append([]byte(nil), doc...)), nil
}

func preview(b []byte) string {
	if len(b) > stdoutPreviewBytes {
		return string(b[:stdoutPreviewBytes]) + "..."
	}
	return string(b)
}
