package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/regaw-leinad/androidlib-go/pkg/controller"
	"github.com/regaw-leinad/androidlib-go/pkg/process"
	"github.com/regaw-leinad/androidlib-go/pkg/registry"
)

func cmdDevices(ctx context.Context, c *controller.Controller) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	printDevices(c)
	return nil
}

func printDevices(c *controller.Controller) {
	ids := c.ConnectedDevices()
	if len(ids) == 0 {
		fmt.Println("No devices connected")
		return
	}
	for _, id := range ids {
		dev, ok := c.GetDevice(id)
		if !ok {
			continue
		}
		fmt.Printf("%-24s %s\n", id, dev.State())
	}
}

func cmdWait(ctx context.Context, c *controller.Controller) error {
	if waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, waitTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := c.WaitUntilPresent(ctx); err != nil {
		return err
	}
	dev, _ := c.FirstDevice()
	log.Printf("Device present after %s", time.Since(start).Round(time.Millisecond))
	if dev != nil {
		fmt.Println(dev.Serial())
	}
	return nil
}

func cmdWatch(ctx context.Context, c *controller.Controller) error {
	c.Subscribe(
		func(id registry.DeviceID) { printChange("+", c, id) },
		func(id registry.DeviceID) { printChange("-", c, id) },
	)
	log.Println("Watching for devices (Ctrl-C to stop)")

	err := c.Watch(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func printChange(sign string, c *controller.Controller, id registry.DeviceID) {
	state := ""
	if dev, ok := c.GetDevice(id); ok {
		state = string(dev.State())
	}
	fmt.Printf("%s %s %s %s\n", time.Now().Format("15:04:05"), sign, id, state)
}

func cmdExec(ctx context.Context, c *controller.Controller, args []string) error {
	if len(args) > 0 && args[0] == "--" {
		args = args[1:]
	}
	if len(args) == 0 {
		return errors.New("exec requires arguments")
	}

	res, err := c.Execute(ctx, c.Bridge().Command(args...))
	if err != nil {
		return err
	}
	if res.TimedOut() {
		return fmt.Errorf("%s timed out", strings.Join(args, " "))
	}
	fmt.Fprint(os.Stdout, res.Stdout)
	fmt.Fprint(os.Stderr, res.Stderr)
	if !res.Success() {
		return exitError(res)
	}
	return nil
}

func cmdShell(ctx context.Context, c *controller.Controller, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: shell <serial> <command...>")
	}
	if err := c.Start(ctx); err != nil {
		return err
	}

	dev, ok := c.GetDevice(registry.DeviceID(args[0]))
	if !ok {
		return fmt.Errorf("%w: %s", controller.ErrNotConnected, args[0])
	}
	res, err := dev.Shell(ctx, args[1:]...)
	if err != nil {
		return err
	}
	fmt.Println(res.Text)
	if !res.Success() {
		return exitError(res)
	}
	return nil
}

func cmdKnown(c *controller.Controller) error {
	known := c.KnownDevices()
	if len(known) == 0 {
		fmt.Println("No known devices")
		return nil
	}
	for _, d := range known {
		fmt.Printf("%-24s %-12s last seen %s\n", d.Serial, d.State, d.LastSeen.Format(time.RFC3339))
	}
	return nil
}

func exitError(res process.Result) error {
	if res.ExitCode == nil {
		return errors.New("command did not exit cleanly")
	}
	return fmt.Errorf("exit code %d", *res.ExitCode)
}
