// Package app wires configuration, event capture and the controller for
// the adbwatch commands.
package app

import (
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"log/slog"
	"time"

	"github.com/regaw-leinad/androidlib-go/internal/config"
	"github.com/regaw-leinad/androidlib-go/pkg/controller"
	"github.com/regaw-leinad/androidlib-go/pkg/log"
)

// Flags are the command-line overrides shared by the commands. Zero
// values leave the file configuration untouched.
type Flags struct {
	ConfigFile string
	LogLevel   string
	Events     string
	StatePath  string
	Bridge     string
	Bootloader string
	Timeout    time.Duration
	MDNS       bool
	NoHotplug  bool
	Console    bool
}

// Register adds the flags to fs.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.ConfigFile, "config", "", "Configuration file path")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&f.Events, "events", "", "Capture session events to this .alog file")
	fs.StringVar(&f.StatePath, "state", "", "Persist last known devices to this JSON file")
	fs.StringVar(&f.Bridge, "adb", "", "Bridge tool path (default: adb on $PATH)")
	fs.StringVar(&f.Bootloader, "fastboot", "", "Bootloader tool path, or \"none\" to disable")
	fs.DurationVar(&f.Timeout, "timeout", 0, "Per-command timeout")
	fs.BoolVar(&f.MDNS, "mdns", false, "Watch for wireless-debugging devices over mDNS")
	fs.BoolVar(&f.NoHotplug, "no-hotplug", false, "Disable kernel hot-plug notifications")
	fs.BoolVar(&f.Console, "console-events", false, "Print captured events to stderr")
}

// Load reads the configuration file and applies the overrides.
func (f *Flags) Load() (*config.Config, error) {
	cfg, err := config.Load(f.ConfigFile)
	if err != nil {
		return nil, err
	}
	f.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Apply copies the set flags into cfg.
func (f *Flags) Apply(cfg *config.Config) {
	if f.LogLevel != "" {
		cfg.Logging.Level = f.LogLevel
	}
	if f.Events != "" {
		cfg.Logging.Events = f.Events
	}
	if f.Console {
		cfg.Logging.Console = true
	}
	if f.StatePath != "" {
		cfg.State.Path = f.StatePath
	}
	if f.Bridge != "" {
		cfg.Bridge.Path = f.Bridge
	}
	switch f.Bootloader {
	case "":
	case "none":
		cfg.Bridge.BootloaderPath = ""
	default:
		cfg.Bridge.BootloaderPath = f.Bootloader
	}
	if f.Timeout > 0 {
		cfg.Bridge.Timeout = f.Timeout
	}
	if f.MDNS {
		cfg.Monitor.MDNS = true
	}
	if f.NoHotplug {
		cfg.Monitor.Hotplug = false
	}
}

// SetupLogging configures the standard logger for level.
func SetupLogging(level string) {
	stdlog.SetFlags(stdlog.Ltime | stdlog.Lmicroseconds)

	switch level {
	case "debug":
		stdlog.SetFlags(stdlog.Ltime | stdlog.Lmicroseconds | stdlog.Lshortfile)
	case "warn", "error":
		stdlog.SetFlags(stdlog.Ltime)
	}
}

// EventLogger builds the event capture logger. The returned close
// function flushes and closes the capture file.
func EventLogger(cfg config.LoggingConfig, console io.Writer) (log.Logger, func() error, error) {
	var (
		loggers []log.Logger
		file    *log.FileLogger
	)

	if cfg.Events != "" {
		fl, err := log.NewFileLogger(cfg.Events)
		if err != nil {
			return nil, nil, fmt.Errorf("open event log: %w", err)
		}
		file = fl
		loggers = append(loggers, fl)
	}
	if cfg.Console && console != nil {
		handler := slog.NewTextHandler(console, &slog.HandlerOptions{Level: slog.LevelDebug})
		loggers = append(loggers, log.NewSlogAdapter(slog.New(handler)))
	}

	closeFn := func() error {
		if file == nil {
			return nil
		}
		return file.Close()
	}

	switch len(loggers) {
	case 0:
		return log.NoopLogger{}, closeFn, nil
	case 1:
		return loggers[0], closeFn, nil
	default:
		return log.NewMultiLogger(loggers...), closeFn, nil
	}
}

// Open creates a controller from cfg with event capture attached. The
// close function closes the capture file; call it after Controller.Close.
func Open(cfg *config.Config, console io.Writer, opts ...controller.Option) (*controller.Controller, func() error, error) {
	logger, closeLog, err := EventLogger(cfg.Logging, console)
	if err != nil {
		return nil, nil, err
	}

	opts = append([]controller.Option{controller.WithLogger(logger)}, opts...)
	c, err := controller.New(cfg.ControllerConfig(), opts...)
	if err != nil {
		_ = closeLog()
		return nil, nil, err
	}
	return c, closeLog, nil
}
