// Package bridge builds invocations of the device bridge tools.
//
// The bridge tool (adb) and the bootloader tool (fastboot) share the same
// addressing convention: global flags, then "-s <serial>" to target one
// device, then the subcommand. Tool only constructs process.Invocation
// values; running them is the caller's concern.
package bridge

import (
	"strings"
	"time"

	"github.com/regaw-leinad/androidlib-go/pkg/process"
)

// DefaultTimeout bounds commands that have no explicit timeout.
const DefaultTimeout = 10 * time.Second

// Output markers printed by the bridge tool.
const (
	// DaemonStartedMarker is printed by start-server when it launched the daemon.
	DaemonStartedMarker = "daemon started successfully"

	// NotExistMarker is printed by pull when the remote path is missing.
	NotExistMarker = " does not exist"
)

// RebootMode selects the target of a reboot.
type RebootMode string

// Reboot targets.
const (
	RebootSystem     RebootMode = ""
	RebootRecovery   RebootMode = "recovery"
	RebootBootloader RebootMode = "bootloader"
)

// Tool describes one bridge executable.
type Tool struct {
	// Path to the executable, or a bare name resolved through $PATH.
	Path string

	// Timeout applied to every invocation built by this tool.
	Timeout time.Duration
}

// New creates a Tool. A non-positive timeout selects DefaultTimeout.
func New(path string, timeout time.Duration) Tool {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return Tool{Path: path, Timeout: timeout}
}

// Enabled reports whether the tool has a path configured.
func (t Tool) Enabled() bool {
	return t.Path != ""
}

// WithTimeout returns a copy of t using d.
func (t Tool) WithTimeout(d time.Duration) Tool {
	t.Timeout = d
	return t
}

// Command builds an invocation of a global subcommand.
func (t Tool) Command(args ...string) process.Invocation {
	return process.Invocation{
		Path:    t.Path,
		Args:    append([]string(nil), args...),
		Timeout: t.Timeout,
	}
}

// DeviceCommand builds an invocation addressed to one device.
// An empty serial leaves addressing to the tool's default device.
func (t Tool) DeviceCommand(serial string, args ...string) process.Invocation {
	if serial == "" {
		return t.Command(args...)
	}
	return t.Command(append([]string{"-s", serial}, args...)...)
}

// Devices lists attached devices.
func (t Tool) Devices() process.Invocation {
	return t.Command("devices")
}

// StartServer starts the bridge daemon if it is not already running.
func (t Tool) StartServer() process.Invocation {
	return t.Command("start-server")
}

// KillServer stops the bridge daemon.
func (t Tool) KillServer() process.Invocation {
	return t.Command("kill-server")
}

// Version reports the tool version.
func (t Tool) Version() process.Invocation {
	return t.Command("version")
}

// Shell runs a command on the device.
func (t Tool) Shell(serial string, args ...string) process.Invocation {
	return t.DeviceCommand(serial, append([]string{"shell"}, args...)...)
}

// Reboot restarts the device into mode.
func (t Tool) Reboot(serial string, mode RebootMode) process.Invocation {
	if mode == RebootSystem {
		return t.DeviceCommand(serial, "reboot")
	}
	return t.DeviceCommand(serial, "reboot", string(mode))
}

// Pull copies remote from the device to local.
func (t Tool) Pull(serial, remote, local string) process.Invocation {
	return t.DeviceCommand(serial, "pull", remote, local)
}

// StartedDaemon reports whether start-server output says it launched the daemon.
func StartedDaemon(text string) bool {
	return strings.Contains(text, DaemonStartedMarker)
}

// PullMissing reports whether pull output says the remote path is missing.
func PullMissing(text string) bool {
	return strings.Contains(text, NotExistMarker)
}
