// Package interactive provides the interactive command-line interface
// for adbwatch.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/regaw-leinad/androidlib-go/pkg/bridge"
	"github.com/regaw-leinad/androidlib-go/pkg/controller"
	"github.com/regaw-leinad/androidlib-go/pkg/eventbus"
	"github.com/regaw-leinad/androidlib-go/pkg/registry"
)

// Shell handles interactive mode for adbwatch.
type Shell struct {
	c   *controller.Controller
	rl  *readline.Instance
	out io.Writer

	sub eventbus.SubscriptionID
}

// New creates a new interactive shell handler.
func New(c *controller.Controller) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "adb> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	s := newShell(c, rl.Stdout())
	s.rl = rl
	return s, nil
}

func newShell(c *controller.Controller, out io.Writer) *Shell {
	s := &Shell{c: c, out: out}
	// Presence changes are printed as they happen.
	s.sub = c.Subscribe(
		func(id registry.DeviceID) { fmt.Fprintf(s.out, "[+] %s\n", id) },
		func(id registry.DeviceID) { fmt.Fprintf(s.out, "[-] %s\n", id) },
	)
	return s
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("devices"),
		readline.PcItem("refresh"),
		readline.PcItem("wait"),
		readline.PcItem("state"),
		readline.PcItem("known"),
		readline.PcItem("shell"),
		readline.PcItem("reboot",
			readline.PcItem("recovery"),
			readline.PcItem("bootloader"),
		),
		readline.PcItem("pull"),
		readline.PcItem("exec"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()
	defer func() { _ = s.c.Unsubscribe(s.sub) }()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if s.Execute(ctx, line) {
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Execute runs one command line. It returns true when the user asked to quit.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()

	case "devices", "d", "ls":
		s.cmdDevices()

	case "refresh", "r":
		s.cmdRefresh(ctx)

	case "wait", "w":
		s.cmdWait(ctx, args)

	case "state":
		s.cmdState()

	case "known":
		s.cmdKnown()

	case "shell", "sh":
		s.cmdShell(ctx, args)

	case "reboot":
		s.cmdReboot(ctx, args)

	case "pull":
		s.cmdPull(ctx, args)

	case "exec":
		s.cmdExec(ctx, args)

	case "quit", "exit", "q":
		return true

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
adbwatch Commands:
  Devices:
    devices                   - List connected devices
    refresh                   - Re-enumerate devices now
    wait [duration]           - Wait until a device is connected
    known                     - List devices remembered in the state file

  Device Commands:
    shell <serial> <cmd...>   - Run a shell command on a device
    reboot <serial> [mode]    - Reboot (mode: recovery, bootloader)
    pull <serial> <remote> <local> - Copy a file from a device

  Session:
    state                     - Show bridge server state
    exec <args...>            - Run the bridge tool with arbitrary arguments

  General:
    help                      - Show this help
    quit                      - Exit`)
}

func (s *Shell) cmdDevices() {
	ids := s.c.ConnectedDevices()
	if len(ids) == 0 {
		fmt.Fprintln(s.out, "No devices connected")
		return
	}
	for _, id := range ids {
		dev, ok := s.c.GetDevice(id)
		if !ok {
			continue
		}
		fmt.Fprintf(s.out, "  %-24s %s\n", id, dev.State())
	}
}

func (s *Shell) cmdRefresh(ctx context.Context) {
	if err := s.c.Refresh(ctx); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	s.cmdDevices()
}

func (s *Shell) cmdWait(ctx context.Context, args []string) {
	timeout := 30 * time.Second
	if len(args) > 0 {
		d, err := time.ParseDuration(args[0])
		if err != nil {
			fmt.Fprintf(s.out, "Invalid duration: %v\n", err)
			return
		}
		timeout = d
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.c.WaitUntilPresent(ctx); err != nil {
		if ctx.Err() == nil {
			fmt.Fprintf(s.out, "Wait failed: %v\n", err)
			return
		}
		fmt.Fprintf(s.out, "No device after %s\n", timeout)
		return
	}
	s.cmdDevices()
}

func (s *Shell) cmdState() {
	fmt.Fprintf(s.out, "Session:  %s\n", s.c.ID())
	fmt.Fprintf(s.out, "Server:   %s\n", s.c.SessionState())
	if v := s.c.BridgeVersion(); v != "" {
		fmt.Fprintf(s.out, "Version:  %s\n", v)
	}
	fmt.Fprintf(s.out, "Bridge:   %s\n", s.c.Bridge().Path)
	if bl := s.c.Bootloader(); bl.Enabled() {
		fmt.Fprintf(s.out, "Bootldr:  %s\n", bl.Path)
	}
	fmt.Fprintf(s.out, "Devices:  %d\n", len(s.c.ConnectedDevices()))
}

func (s *Shell) cmdKnown() {
	known := s.c.KnownDevices()
	if len(known) == 0 {
		fmt.Fprintln(s.out, "No known devices")
		return
	}
	for _, d := range known {
		mark := " "
		if d.Connected {
			mark = "*"
		}
		fmt.Fprintf(s.out, "%s %-24s %-12s %s\n", mark, d.Serial, d.State, d.LastSeen.Format(time.RFC3339))
	}
}

// device looks up the device named by args[0].
func (s *Shell) device(args []string, usage string) (*controller.Device, bool) {
	if len(args) == 0 {
		fmt.Fprintf(s.out, "Usage: %s\n", usage)
		return nil, false
	}
	dev, ok := s.c.GetDevice(registry.DeviceID(args[0]))
	if !ok {
		fmt.Fprintf(s.out, "Device not connected: %s\n", args[0])
		return nil, false
	}
	return dev, true
}

func (s *Shell) cmdShell(ctx context.Context, args []string) {
	const usage = "shell <serial> <cmd...>"
	dev, ok := s.device(args, usage)
	if !ok {
		return
	}
	if len(args) < 2 {
		fmt.Fprintf(s.out, "Usage: %s\n", usage)
		return
	}

	res, err := dev.Shell(ctx, args[1:]...)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if res.Text != "" {
		fmt.Fprintln(s.out, res.Text)
	}
	if !res.Success() && res.ExitCode != nil {
		fmt.Fprintf(s.out, "(exit code %d)\n", *res.ExitCode)
	}
}

func (s *Shell) cmdReboot(ctx context.Context, args []string) {
	dev, ok := s.device(args, "reboot <serial> [recovery|bootloader]")
	if !ok {
		return
	}

	mode := bridge.RebootSystem
	if len(args) > 1 {
		mode = bridge.RebootMode(strings.ToLower(args[1]))
	}

	var err error
	switch mode {
	case bridge.RebootSystem:
		err = dev.Reboot(ctx)
	case bridge.RebootRecovery:
		err = dev.RebootRecovery(ctx)
	case bridge.RebootBootloader:
		err = dev.RebootBootloader(ctx)
	default:
		fmt.Fprintf(s.out, "Unknown reboot mode: %s\n", args[1])
		return
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Rebooting %s\n", dev.Serial())
}

func (s *Shell) cmdPull(ctx context.Context, args []string) {
	const usage = "pull <serial> <remote> <local>"
	dev, ok := s.device(args, usage)
	if !ok {
		return
	}
	if len(args) != 3 {
		fmt.Fprintf(s.out, "Usage: %s\n", usage)
		return
	}

	found, err := dev.Pull(ctx, args[1], args[2])
	switch {
	case err != nil:
		fmt.Fprintf(s.out, "Error: %v\n", err)
	case !found:
		fmt.Fprintf(s.out, "%s does not exist on %s\n", args[1], dev.Serial())
	default:
		fmt.Fprintf(s.out, "Pulled %s to %s\n", args[1], args[2])
	}
}

func (s *Shell) cmdExec(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, "Usage: exec <args...>")
		return
	}
	res, err := s.c.Execute(ctx, s.c.Bridge().Command(args...))
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if res.TimedOut() {
		fmt.Fprintln(s.out, "Timed out")
		return
	}
	fmt.Fprintln(s.out, res.Text)
}
