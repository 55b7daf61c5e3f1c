//go:build unix

package process

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sh(script string, timeout time.Duration) Invocation {
	return Invocation{Path: "/bin/sh", Args: []string{"-c", script}, Timeout: timeout}
}

func TestExecuteMergesOutput(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"stdout only", "echo '  hello  '", "hello"},
		{"stderr only", "echo oops >&2", "oops"},
		{"stdout preferred", "echo out; echo err >&2", "out"},
		{"whitespace stdout falls back", "printf '   \\n'; echo err >&2", "err"},
		{"no output", "true", ""},
	}

	r := NewExecRunner()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Execute(context.Background(), sh(tt.script, 5*time.Second))
			require.NoError(t, err)
			require.True(t, res.Completed())
			assert.Equal(t, tt.want, res.Text)
		})
	}
}

func TestExecuteReportsExitCode(t *testing.T) {
	res, err := NewExecRunner().Execute(context.Background(), sh("echo fail; exit 3", 5*time.Second))
	require.NoError(t, err, "non-zero exit is not an error")
	require.True(t, res.Completed())
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 3, *res.ExitCode)
	assert.False(t, res.Success())
	assert.Equal(t, "fail", res.Text)
}

func TestExecuteSuccess(t *testing.T) {
	res, err := NewExecRunner().Execute(context.Background(), sh("exit 0", NoTimeout))
	require.NoError(t, err)
	assert.True(t, res.Success())
}

func TestExecuteDrainsLargeOutputOnBothStreams(t *testing.T) {
	// Far larger than a pipe buffer on either stream.
	const size = 512 * 1024
	script := "head -c 524288 /dev/zero | tr '\\0' a; head -c 524288 /dev/zero | tr '\\0' b >&2"

	res, err := NewExecRunner().Execute(context.Background(), sh(script, 20*time.Second))
	require.NoError(t, err)
	require.True(t, res.Completed(), "large output must not deadlock")
	assert.Len(t, res.Stdout, size)
	assert.Len(t, res.Stderr, size)
	assert.Equal(t, strings.Repeat("a", size), res.Text)
}

func TestExecuteTimesOutWhileFlooding(t *testing.T) {
	timeout := 300 * time.Millisecond
	script := "while :; do echo out; echo err >&2; done"

	start := time.Now()
	res, err := NewExecRunner().Execute(context.Background(), sh(script, timeout))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.True(t, res.TimedOut())
	assert.Empty(t, res.Text)
	assert.Nil(t, res.ExitCode)
	assert.Less(t, elapsed, timeout+2*time.Second)
}

func TestExecuteTimesOutWhenChildHoldsPipes(t *testing.T) {
	// The shell exits at once but the background sleep keeps stdout open,
	// so the streams never complete.
	start := time.Now()
	res, err := NewExecRunner().Execute(context.Background(), sh("sleep 30 & echo started", 300*time.Millisecond))
	require.NoError(t, err)
	assert.True(t, res.TimedOut())
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestExecuteDetachOnTimeout(t *testing.T) {
	res, err := NewExecRunner(WithDetachOnTimeout()).Execute(context.Background(), sh("sleep 1", 100*time.Millisecond))
	require.NoError(t, err)
	assert.True(t, res.TimedOut())
}

func TestExecuteLaunchError(t *testing.T) {
	r := NewExecRunner()

	t.Run("missing executable", func(t *testing.T) {
		_, err := r.Execute(context.Background(), Invocation{Path: "/nonexistent/bridge-tool", Args: []string{"devices"}})
		var launchErr *LaunchError
		require.ErrorAs(t, err, &launchErr)
		assert.Equal(t, "/nonexistent/bridge-tool", launchErr.Path)
	})

	t.Run("not on PATH", func(t *testing.T) {
		_, err := r.Execute(context.Background(), Invocation{Path: "definitely-not-a-bridge-tool-xyz"})
		assert.True(t, errors.Is(err, exec.ErrNotFound), "got %v", err)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := r.Execute(context.Background(), Invocation{})
		assert.ErrorIs(t, err, ErrEmptyPath)
	})
}

func TestExecuteCancelledContext(t *testing.T) {
	r := NewExecRunner()

	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := r.Execute(ctx, sh("echo never", NoTimeout))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("while running", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(100*time.Millisecond, cancel)

		start := time.Now()
		_, err := r.Execute(ctx, sh("sleep 30", NoTimeout))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), 3*time.Second)
	})
}

func TestExecuteRecordsEvents(t *testing.T) {
	rec := &recorder{}
	r := NewExecRunner(WithLogger(rec, "sess-1"))

	_, _ = r.Execute(context.Background(), sh("exit 2", 5*time.Second))
	_, _ = r.Execute(context.Background(), Invocation{Path: "/nonexistent/tool"})

	events := rec.all()
	require.Len(t, events, 2)
	assert.Equal(t, "sess-1", events[0].SessionID)
	require.NotNil(t, events[0].Exec)
	assert.Equal(t, "COMPLETED", events[0].Exec.Outcome)
	require.NotNil(t, events[0].Exec.ExitCode)
	assert.Equal(t, 2, *events[0].Exec.ExitCode)
	assert.Equal(t, "LAUNCH_FAILED", events[1].Exec.Outcome)
}
