package controller

import (
	"context"
	"fmt"

	"github.com/regaw-leinad/androidlib-go/pkg/bridge"
	"github.com/regaw-leinad/androidlib-go/pkg/devicelist"
	"github.com/regaw-leinad/androidlib-go/pkg/process"
	"github.com/regaw-leinad/androidlib-go/pkg/registry"
)

// Device is a handle for one attached device. It stays valid after the
// device disappears; commands then fail with ErrNotConnected.
type Device struct {
	c      *Controller
	serial registry.DeviceID
}

// Serial returns the device identifier.
func (d *Device) Serial() registry.DeviceID {
	return d.serial
}

// State returns the state column from the last reconciliation pass.
func (d *Device) State() devicelist.State {
	return d.c.monitor.DeviceState(d.serial)
}

// Connected returns true if the device is present.
func (d *Device) Connected() bool {
	return d.c.registry.Contains(d.serial)
}

func (d *Device) String() string {
	return fmt.Sprintf("%s (%s)", d.serial, d.State())
}

// Shell runs a shell command on the device. A non-zero exit code is
// reported in the result, not as an error.
func (d *Device) Shell(ctx context.Context, args ...string) (process.Result, error) {
	res, err := d.run(ctx, d.c.bridge.Shell(string(d.serial), args...))
	if err != nil {
		return process.Result{}, err
	}
	if res.TimedOut() {
		return res, fmt.Errorf("%w: shell %v", ErrCommandTimeout, args)
	}
	return res, nil
}

// Reboot restarts the device into the system image.
func (d *Device) Reboot(ctx context.Context) error {
	return d.reboot(ctx, bridge.RebootSystem)
}

// RebootRecovery restarts the device into recovery.
func (d *Device) RebootRecovery(ctx context.Context) error {
	return d.reboot(ctx, bridge.RebootRecovery)
}

// RebootBootloader restarts the device into the bootloader.
func (d *Device) RebootBootloader(ctx context.Context) error {
	return d.reboot(ctx, bridge.RebootBootloader)
}

// reboot uses the bootloader tool for devices in bootloader mode.
func (d *Device) reboot(ctx context.Context, mode bridge.RebootMode) error {
	tool := d.c.bridge
	if d.State().InBootloader() && d.c.bootloader.Enabled() {
		tool = d.c.bootloader
	}
	_, err := d.check(ctx, tool.Reboot(string(d.serial), mode))
	return err
}

// Pull copies a file from the device. It returns false without error when
// the remote file does not exist.
func (d *Device) Pull(ctx context.Context, remote, local string) (bool, error) {
	inv := d.c.bridge.Pull(string(d.serial), remote, local)
	res, err := d.run(ctx, inv)
	if err != nil {
		return false, err
	}
	if res.TimedOut() {
		return false, fmt.Errorf("%w: %s", ErrCommandTimeout, inv)
	}
	if bridge.PullMissing(res.Text) {
		return false, nil
	}
	if !res.Success() {
		return false, commandError(inv, res)
	}
	return true, nil
}

// PullDirectory copies a directory from the device. It returns true if
// the tool exited cleanly.
func (d *Device) PullDirectory(ctx context.Context, remote, local string) (bool, error) {
	inv := d.c.bridge.Pull(string(d.serial), remote, local)
	res, err := d.run(ctx, inv)
	if err != nil {
		return false, err
	}
	if res.TimedOut() {
		return false, fmt.Errorf("%w: %s", ErrCommandTimeout, inv)
	}
	return res.Success(), nil
}

func (d *Device) run(ctx context.Context, inv process.Invocation) (process.Result, error) {
	if !d.Connected() {
		return process.Result{}, fmt.Errorf("%w: %s", ErrNotConnected, d.serial)
	}
	return d.c.Execute(ctx, inv)
}

// check runs inv and turns timeouts and non-zero exits into errors.
func (d *Device) check(ctx context.Context, inv process.Invocation) (process.Result, error) {
	res, err := d.run(ctx, inv)
	if err != nil {
		return res, err
	}
	if res.TimedOut() {
		return res, fmt.Errorf("%w: %s", ErrCommandTimeout, inv)
	}
	if !res.Success() {
		return res, commandError(inv, res)
	}
	return res, nil
}

func commandError(inv process.Invocation, res process.Result) error {
	code := -1
	if res.ExitCode != nil {
		code = *res.ExitCode
	}
	return &CommandError{Command: inv.String(), ExitCode: code, Output: res.Text}
}
