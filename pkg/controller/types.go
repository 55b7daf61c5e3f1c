package controller

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/regaw-leinad/androidlib-go/pkg/bridge"
	"github.com/regaw-leinad/androidlib-go/pkg/monitor"
	"github.com/regaw-leinad/androidlib-go/pkg/process"
	"github.com/regaw-leinad/androidlib-go/pkg/resources"
	"github.com/regaw-leinad/androidlib-go/pkg/session"
	"github.com/regaw-leinad/androidlib-go/pkg/version"
)

// Controller errors.
var (
	ErrClosed         = errors.New("controller closed")
	ErrCommandTimeout = errors.New("command timed out")
	ErrCommandFailed  = errors.New("command failed")
	ErrNotConnected   = errors.New("device not connected")
	ErrInvalidConfig  = errors.New("invalid controller config")
)

// CommandError describes a device command that exited unsuccessfully.
type CommandError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *CommandError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s: exit code %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s: exit code %d: %s", e.Command, e.ExitCode, e.Output)
}

// Is reports ErrCommandFailed.
func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailed
}

// Config configures a Controller.
type Config struct {
	// BridgePath is the bridge executable, resolved in ResourceDir first
	// and then on $PATH.
	BridgePath string

	// BootloaderPath is the bootloader-mode executable. Empty disables
	// bootloader enumeration.
	BootloaderPath string

	// CommandTimeout bounds every tool invocation. Zero selects
	// bridge.DefaultTimeout.
	CommandTimeout time.Duration

	// ExpectedVersion is the bridge version requirement. Empty disables
	// the version check.
	ExpectedVersion string

	// StopGrace is waited after stopping an owned server.
	StopGrace time.Duration

	// PollInterval is the re-check interval while waiting for devices.
	PollInterval time.Duration

	// SettleDelay is the follow-up delay after a hot-plug signal.
	SettleDelay time.Duration

	// ResourceDir holds extracted or installed tools. Optional.
	ResourceDir string

	// Resources are bundled tools extracted into ResourceDir. Optional.
	Resources fs.FS

	// Manifest lists the bundled tools and their digests.
	Manifest resources.Manifest

	// StatePath is the JSON file for the last known devices. Empty
	// disables persistence.
	StatePath string

	// Hotplug enables kernel USB hot-plug notifications in Watch.
	Hotplug bool

	// MDNS enables wireless-debugging discovery notifications in Watch.
	MDNS bool

	// MDNSInterface restricts mDNS browsing to one interface.
	MDNSInterface string

	// DetachOnTimeout leaves timed-out processes running instead of
	// killing them.
	DetachOnTimeout bool
}

// DefaultConfig returns a config for adb and fastboot on $PATH.
func DefaultConfig() Config {
	return Config{
		BridgePath:      "adb",
		BootloaderPath:  "fastboot",
		CommandTimeout:  bridge.DefaultTimeout,
		ExpectedVersion: version.Expected,
		StopGrace:       session.DefaultStopGrace,
		PollInterval:    monitor.DefaultPollInterval,
		SettleDelay:     monitor.DefaultSettleDelay,
		Hotplug:         true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BridgePath == "" {
		return fmt.Errorf("%w: bridge path is required", ErrInvalidConfig)
	}
	if c.CommandTimeout < process.NoTimeout {
		return fmt.Errorf("%w: negative command timeout", ErrInvalidConfig)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("%w: negative poll interval", ErrInvalidConfig)
	}
	if c.ExpectedVersion != "" {
		if _, err := (version.BridgeVersion{}).Satisfies(c.ExpectedVersion); err != nil {
			return fmt.Errorf("%w: expected version: %v", ErrInvalidConfig, err)
		}
	}
	if c.Resources != nil && c.ResourceDir == "" {
		return fmt.Errorf("%w: bundled resources need a resource directory", ErrInvalidConfig)
	}
	return nil
}
