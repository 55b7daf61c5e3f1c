package process

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// NoTimeout disables the timeout of an Invocation.
const NoTimeout time.Duration = 0

// Process errors.
var (
	// ErrEmptyPath is returned (wrapped in a LaunchError) for an Invocation without a path.
	ErrEmptyPath = errors.New("empty executable path")

	// ErrOutputRead is returned when a completed process's output could
	// not be read in full.
	ErrOutputRead = errors.New("reading process output failed")
)

// Invocation describes one run of an external program.
type Invocation struct {
	// Path is the executable. Bare names are resolved through $PATH.
	Path string

	// Args are passed to the program verbatim.
	Args []string

	// Timeout bounds the run. NoTimeout waits indefinitely.
	Timeout time.Duration

	// Dir is the working directory (empty for the caller's).
	Dir string

	// Env overrides the environment when non-nil.
	Env []string
}

// String returns the command line for display.
func (inv Invocation) String() string {
	s := inv.Path
	for _, a := range inv.Args {
		s += " " + a
	}
	return s
}

// Outcome distinguishes the two results of a run.
type Outcome uint8

const (
	// OutcomeCompleted indicates the process exited and its streams were drained.
	OutcomeCompleted Outcome = iota

	// OutcomeTimedOut indicates the timeout elapsed before completion.
	OutcomeTimedOut
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "COMPLETED"
	case OutcomeTimedOut:
		return "TIMED_OUT"
	default:
		return "UNKNOWN"
	}
}

// Result is the outcome of an Invocation.
type Result struct {
	Outcome Outcome

	// ExitCode is nil when the outcome is not completed or the code is
	// unknown (for example when the process was killed by a signal).
	ExitCode *int

	// Text is the merged output: trimmed stdout, or trimmed stderr when
	// stdout is empty. Empty for timed-out runs.
	Text string

	// Stdout and Stderr are the raw captured streams of a completed run.
	Stdout string
	Stderr string

	// Duration is the wall time from launch to outcome.
	Duration time.Duration
}

// Completed returns true if the process ran to completion.
func (r Result) Completed() bool {
	return r.Outcome == OutcomeCompleted
}

// TimedOut returns true if the run exceeded its timeout.
func (r Result) TimedOut() bool {
	return r.Outcome == OutcomeTimedOut
}

// Success returns true for a completed run with exit code 0.
func (r Result) Success() bool {
	return r.Completed() && r.ExitCode != nil && *r.ExitCode == 0
}

// LaunchError reports that the executable could not be started.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %q: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Runner executes invocations.
type Runner interface {
	// Execute runs inv and blocks until it completes, times out, or ctx is
	// done. Cancellation of ctx terminates the process and returns ctx.Err().
	// If the output of a completed process cannot be read in full, the
	// partial Result is returned with an error wrapping ErrOutputRead.
	Execute(ctx context.Context, inv Invocation) (Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, inv Invocation) (Result, error)

// Execute calls f(ctx, inv).
func (f RunnerFunc) Execute(ctx context.Context, inv Invocation) (Result, error) {
	return f(ctx, inv)
}

// Compile-time interface satisfaction checks.
var (
	_ Runner = RunnerFunc(nil)
	_ Runner = (*ExecRunner)(nil)
)
