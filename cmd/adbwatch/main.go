// Command adbwatch lists, waits for and watches devices attached through
// the Android debug bridge.
//
// Usage:
//
//	adbwatch [flags] [command] [args]
//
// Commands:
//
//	devices              List connected devices (default)
//	wait                 Block until a device is connected
//	watch                Print devices as they come and go
//	exec -- <args>       Run the bridge tool with arbitrary arguments
//	shell <serial> <cmd> Run a shell command on a device
//	known                List devices remembered in the state file
//
// Flags:
//
//	-config string      Configuration file path
//	-log-level string   Log level: debug, info, warn, error
//	-events string      Capture session events to this .alog file
//	-state string       Persist last known devices to this JSON file
//	-adb string         Bridge tool path
//	-fastboot string    Bootloader tool path, or "none"
//	-timeout duration   Per-command timeout
//	-wait-timeout dur   Give up waiting after this long (wait command)
//	-mdns               Watch for wireless-debugging devices
//	-no-hotplug         Disable kernel hot-plug notifications
//	-interactive        Enable interactive command mode
//
// Examples:
//
//	# List devices once
//	adbwatch devices
//
//	# Wait up to a minute for a device, then run a command on it
//	adbwatch -wait-timeout 1m wait && adbwatch shell emulator-5554 getprop
//
//	# Watch with event capture
//	adbwatch -events session.alog watch
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/regaw-leinad/androidlib-go/cmd/adbwatch/interactive"
	"github.com/regaw-leinad/androidlib-go/internal/app"
	"github.com/regaw-leinad/androidlib-go/pkg/controller"
)

var (
	flags       app.Flags
	waitTimeout time.Duration
	interact    bool
)

func init() {
	flags.Register(flag.CommandLine)
	flag.DurationVar(&waitTimeout, "wait-timeout", 0, "Give up waiting after this long (0 waits forever)")
	flag.BoolVar(&interact, "interactive", false, "Enable interactive command mode")
}

func main() {
	flag.Parse()

	cfg, err := flags.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	app.SetupLogging(cfg.Logging.Level)

	c, closeLog, err := app.Open(cfg, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to create controller: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	if interact {
		runErr = runInteractive(ctx, cancel, c)
	} else {
		runErr = run(ctx, c, flag.Args())
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := c.Close(shutdownCtx); err != nil {
		log.Printf("Error closing session: %v", err)
	}
	shutdownCancel()
	if err := closeLog(); err != nil {
		log.Printf("Error closing event log: %v", err)
	}

	if runErr != nil {
		if errors.Is(runErr, context.DeadlineExceeded) {
			fmt.Fprintln(os.Stderr, "Timed out")
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

func runInteractive(ctx context.Context, cancel context.CancelFunc, c *controller.Controller) error {
	shell, err := interactive.New(c)
	if err != nil {
		return err
	}
	// Redirect log output through readline to avoid interfering with input
	log.SetOutput(shell.Stdout())

	go func() {
		if err := c.Watch(ctx); err != nil {
			log.Printf("Watch stopped: %v", err)
		}
	}()

	shell.Run(ctx, cancel)
	return nil
}

func run(ctx context.Context, c *controller.Controller, args []string) error {
	cmd := "devices"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "devices":
		return cmdDevices(ctx, c)
	case "wait":
		return cmdWait(ctx, c)
	case "watch":
		return cmdWatch(ctx, c)
	case "exec":
		return cmdExec(ctx, c, args)
	case "shell":
		return cmdShell(ctx, c, args)
	case "known":
		return cmdKnown(c)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}
