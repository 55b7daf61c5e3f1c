package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cc := cfg.ControllerConfig()
	assert.Equal(t, "adb", cc.BridgePath)
	assert.Equal(t, "fastboot", cc.BootloaderPath)
	assert.Equal(t, 250*time.Millisecond, cc.PollInterval)
	assert.True(t, cc.Hotplug)
	assert.False(t, cc.MDNS)
	assert.NoError(t, cc.Validate())
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
bridge:
  path: /opt/platform-tools/adb
  bootloader_path: ""
  timeout: 30s
  expected_version: "1.0"
monitor:
  poll_interval: 100ms
  hotplug: false
  mdns: true
  mdns_interface: wlan0
logging:
  level: debug
  events: /tmp/adb.alog
state:
  path: /var/lib/adbwatch/state.json
`))
	require.NoError(t, err)

	assert.Equal(t, "/opt/platform-tools/adb", cfg.Bridge.Path)
	assert.Equal(t, "", cfg.Bridge.BootloaderPath)
	assert.Equal(t, 30*time.Second, cfg.Bridge.Timeout)
	assert.Equal(t, "1.0", cfg.Bridge.ExpectedVersion)
	// Unset fields keep their defaults.
	assert.Equal(t, time.Second, cfg.Bridge.StopGrace)
	assert.Equal(t, 750*time.Millisecond, cfg.Monitor.SettleDelay)

	cc := cfg.ControllerConfig()
	assert.Equal(t, 100*time.Millisecond, cc.PollInterval)
	assert.False(t, cc.Hotplug)
	assert.True(t, cc.MDNS)
	assert.Equal(t, "wlan0", cc.MDNSInterface)
	assert.Equal(t, "/var/lib/adbwatch/state.json", cc.StatePath)
	assert.Equal(t, "/tmp/adb.alog", cfg.Logging.Events)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"malformed", "bridge: [", "failed to parse YAML"},
		{"bad duration", "bridge:\n  timeout: soon\n", "failed to parse YAML"},
		{"empty path", "bridge:\n  path: \"\"\n", "bridge.path is required"},
		{"negative timeout", "bridge:\n  timeout: -1s\n", "bridge.timeout must not be negative"},
		{"bad version", "bridge:\n  expected_version: one\n", "bridge.expected_version is invalid"},
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"manifest without dir", "resources:\n  manifest:\n    adb: abc\n", "resources.dir is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "adbwatch.yaml")
		require.NoError(t, os.WriteFile(path, []byte("resources:\n  dir: /opt/tools\n  manifest:\n    adb: \"\"\n"), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		cc := cfg.ControllerConfig()
		assert.Equal(t, "/opt/tools", cc.ResourceDir)
		assert.Contains(t, cc.Manifest, "adb")
	})

	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nope.yaml")
		_, err := Load(path)

		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, path, le.File)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0644))

		_, err := Load(path)
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, path, le.File)
	})
}
