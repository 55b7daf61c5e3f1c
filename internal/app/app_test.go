package app

import (
	"bytes"
	"context"
	"flag"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regaw-leinad/androidlib-go/internal/config"
	"github.com/regaw-leinad/androidlib-go/pkg/controller"
	"github.com/regaw-leinad/androidlib-go/pkg/log"
	"github.com/regaw-leinad/androidlib-go/pkg/process"
)

func TestFlagsOverrideConfig(t *testing.T) {
	var f Flags
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f.Register(fs)
	require.NoError(t, fs.Parse([]string{
		"-adb", "/opt/adb",
		"-fastboot", "none",
		"-timeout", "3s",
		"-mdns",
		"-no-hotplug",
		"-state", "/tmp/state.json",
		"-log-level", "debug",
	}))

	cfg, err := f.Load()
	require.NoError(t, err)

	assert.Equal(t, "/opt/adb", cfg.Bridge.Path)
	assert.Equal(t, "", cfg.Bridge.BootloaderPath)
	assert.Equal(t, 3*time.Second, cfg.Bridge.Timeout)
	assert.True(t, cfg.Monitor.MDNS)
	assert.False(t, cfg.Monitor.Hotplug)
	assert.Equal(t, "/tmp/state.json", cfg.State.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestFlagsKeepFileValues(t *testing.T) {
	cfg := config.Default()
	cfg.Bridge.BootloaderPath = "/opt/fastboot"

	var f Flags
	f.Apply(cfg)
	assert.Equal(t, "/opt/fastboot", cfg.Bridge.BootloaderPath)
	assert.True(t, cfg.Monitor.Hotplug)
}

func TestFlagsInvalidLevel(t *testing.T) {
	f := Flags{LogLevel: "loud"}
	_, err := f.Load()
	var le *config.LoadError
	assert.ErrorAs(t, err, &le)
}

func TestEventLoggerNoop(t *testing.T) {
	logger, closeFn, err := EventLogger(config.LoggingConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, log.NoopLogger{}, logger)
	assert.NoError(t, closeFn())
}

func TestEventLoggerFileAndConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.alog")
	var console bytes.Buffer

	logger, closeFn, err := EventLogger(config.LoggingConfig{Events: path, Console: true}, &console)
	require.NoError(t, err)

	logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: "s1",
		Component: log.ComponentMonitor,
		Category:  log.CategoryPresence,
		DeviceID:  "A",
		Presence:  &log.PresenceEvent{Action: log.PresenceAdded, State: "device"},
	})
	require.NoError(t, closeFn())

	assert.Contains(t, console.String(), "device_id=A")

	r, err := log.NewReader(path)
	require.NoError(t, err)
	defer r.Close()
	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "A", ev.DeviceID)
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestOpenAppliesOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.alog")
	cfg := config.Default()
	cfg.Logging.Events = path
	cfg.Bridge.BootloaderPath = ""

	runner := process.RunnerFunc(func(ctx context.Context, inv process.Invocation) (process.Result, error) {
		code := 0
		return process.Result{Outcome: process.OutcomeCompleted, ExitCode: &code}, nil
	})
	c, closeLog, err := Open(cfg, nil, controller.WithRunner(runner), controller.WithSessionID("s1"))
	require.NoError(t, err)
	assert.Equal(t, "s1", c.ID())

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, closeLog())
}
