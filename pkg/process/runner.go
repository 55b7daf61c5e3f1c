package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/regaw-leinad/androidlib-go/pkg/log"
)

// Option configures an ExecRunner.
type Option func(*ExecRunner)

// WithLogger records an ExecEvent for every invocation.
func WithLogger(logger log.Logger, sessionID string) Option {
	return func(r *ExecRunner) {
		r.logger = log.OrNoop(logger)
		r.sessionID = sessionID
	}
}

// WithDetachOnTimeout leaves a timed-out child running instead of killing it.
// Its output is still drained and it is reaped when it exits.
func WithDetachOnTimeout() Option {
	return func(r *ExecRunner) {
		r.detach = true
	}
}

// ExecRunner runs invocations with os/exec.
// It is safe for concurrent use.
type ExecRunner struct {
	logger    log.Logger
	sessionID string
	detach    bool
}

// NewExecRunner creates a runner that kills timed-out processes.
func NewExecRunner(opts ...Option) *ExecRunner {
	r := &ExecRunner{logger: log.NoopLogger{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs inv. See Runner.
func (r *ExecRunner) Execute(ctx context.Context, inv Invocation) (Result, error) {
	start := time.Now()
	res, err := r.run(ctx, inv)
	res.Duration = time.Since(start)
	r.record(inv, res, err)
	return res, err
}

func (r *ExecRunner) run(ctx context.Context, inv Invocation) (Result, error) {
	if inv.Path == "" {
		return Result{}, &LaunchError{Err: ErrEmptyPath}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	cmd := exec.Command(inv.Path, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, &LaunchError{Path: inv.Path, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, &LaunchError{Path: inv.Path, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return Result{}, &LaunchError{Path: inv.Path, Err: err}
	}

	// Both streams are drained while the process runs; Wait may only be
	// called once the readers have seen EOF.
	var outBuf, errBuf bytes.Buffer
	var drainErr error
	done := make(chan struct{})
	go func() {
		drainErr = drainStreams(&outBuf, &errBuf, stdout, stderr)
		_ = cmd.Wait()
		close(done)
	}()

	runCtx := ctx
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	finish := func() (Result, error) {
		res := completed(cmd.ProcessState, outBuf.String(), errBuf.String())
		if drainErr != nil {
			return res, fmt.Errorf("%w: %s: %w", ErrOutputRead, inv.Path, drainErr)
		}
		return res, nil
	}

	select {
	case <-done:
		return finish()
	case <-runCtx.Done():
	}

	// Completion wins a tie with the deadline.
	select {
	case <-done:
		return finish()
	default:
	}

	cancelled := ctx.Err() != nil
	if cancelled || !r.detach {
		_ = killProcessGroup(cmd.Process)
		_ = stdout.Close()
		_ = stderr.Close()
	}
	if cancelled {
		return Result{}, ctx.Err()
	}
	return Result{Outcome: OutcomeTimedOut}, nil
}

// drainStreams copies stdout and stderr concurrently until both reach EOF.
// A stream closed because the process was abandoned is not an error.
func drainStreams(outBuf, errBuf *bytes.Buffer, stdout, stderr io.Reader) error {
	var streams errgroup.Group
	streams.Go(func() error { return drain(outBuf, stdout) })
	streams.Go(func() error { return drain(errBuf, stderr) })
	return streams.Wait()
}

func drain(dst *bytes.Buffer, src io.Reader) error {
	_, err := io.Copy(dst, src)
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

func completed(state *os.ProcessState, stdout, stderr string) Result {
	res := Result{
		Outcome: OutcomeCompleted,
		Stdout:  stdout,
		Stderr:  stderr,
		Text:    MergeOutput(stdout, stderr),
	}
	if state != nil {
		if code := state.ExitCode(); code >= 0 {
			res.ExitCode = &code
		}
	}
	return res
}

// MergeOutput returns the trimmed stdout, or the trimmed stderr when
// stdout is empty after trimming.
func MergeOutput(stdout, stderr string) string {
	if text := strings.TrimSpace(stdout); text != "" {
		return text
	}
	return strings.TrimSpace(stderr)
}

func (r *ExecRunner) record(inv Invocation, res Result, err error) {
	outcome := res.Outcome.String()
	var launchErr *LaunchError
	switch {
	case errors.As(err, &launchErr):
		outcome = "LAUNCH_FAILED"
	case errors.Is(err, ErrOutputRead):
		outcome = "OUTPUT_FAILED"
	case err != nil:
		outcome = "CANCELLED"
	}

	r.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: r.sessionID,
		Component: log.ComponentProcess,
		Category:  log.CategoryExec,
		Exec: &log.ExecEvent{
			Path:        inv.Path,
			Args:        inv.Args,
			Outcome:     outcome,
			ExitCode:    res.ExitCode,
			Duration:    res.Duration,
			StdoutBytes: len(res.Stdout),
			StderrBytes: len(res.Stderr),
		},
	})
}
