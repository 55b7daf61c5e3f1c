// Package process runs external tools and captures their output safely.
//
// A bridge tool may hang, write heavily to both output streams, or never
// exit. Runner.Execute drains stdout and stderr concurrently so the child
// never blocks on a full pipe, bounds the whole run by an optional timeout,
// and reports one of two outcomes:
//
//   - OutcomeCompleted: the process exited and both streams reached EOF.
//     Result.Text holds the trimmed stdout, or the trimmed stderr when
//     stdout is empty. A non-zero exit code is not an error.
//   - OutcomeTimedOut: the timeout elapsed first. No text is returned.
//
// Failing to launch the executable at all is reported as a *LaunchError,
// never as an outcome.
//
// # Timeout Disposition
//
// By default the timed-out child is killed together with its process group,
// the pipes are closed and the child is reaped in the background. Use
// WithDetachOnTimeout to leave the child running instead.
package process
