// Package config loads the YAML configuration shared by the commands.
package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/regaw-leinad/androidlib-go/pkg/bridge"
	"github.com/regaw-leinad/androidlib-go/pkg/controller"
	"github.com/regaw-leinad/androidlib-go/pkg/monitor"
	"github.com/regaw-leinad/androidlib-go/pkg/resources"
	"github.com/regaw-leinad/androidlib-go/pkg/session"
	"github.com/regaw-leinad/androidlib-go/pkg/version"
)

// Config is the file format.
type Config struct {
	Bridge    BridgeConfig    `yaml:"bridge"`
	Resources ResourcesConfig `yaml:"resources"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Logging   LoggingConfig   `yaml:"logging"`
	State     StateConfig     `yaml:"state"`
}

// BridgeConfig configures the tools and the server session.
type BridgeConfig struct {
	Path            string        `yaml:"path"`
	BootloaderPath  string        `yaml:"bootloader_path"`
	Timeout         time.Duration `yaml:"timeout"`
	ExpectedVersion string        `yaml:"expected_version"`
	StopGrace       time.Duration `yaml:"stop_grace"`
	DetachOnTimeout bool          `yaml:"detach_on_timeout"`
}

// ResourcesConfig points at a directory of installed tools.
type ResourcesConfig struct {
	Dir string `yaml:"dir"`

	// Manifest maps tool names to hex BLAKE2b-256 digests.
	Manifest map[string]string `yaml:"manifest"`
}

// MonitorConfig configures presence monitoring.
type MonitorConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval"`
	SettleDelay   time.Duration `yaml:"settle_delay"`
	Hotplug       bool          `yaml:"hotplug"`
	MDNS          bool          `yaml:"mdns"`
	MDNSInterface string        `yaml:"mdns_interface"`
}

// LoggingConfig configures operational logging and event capture.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Events is the .alog file receiving captured events. Empty disables
	// capture.
	Events string `yaml:"events"`

	// Console mirrors captured events to stderr at debug level.
	Console bool `yaml:"console"`
}

// StateConfig configures the last-known-devices file.
type StateConfig struct {
	Path string `yaml:"path"`
}

// LoadError reports a configuration that could not be read or is invalid.
type LoadError struct {
	// File is the path to the file that failed to load.
	File string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.File == "" {
		return msg
	}
	return e.File + ": " + msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Bridge: BridgeConfig{
			Path:            "adb",
			BootloaderPath:  "fastboot",
			Timeout:         bridge.DefaultTimeout,
			ExpectedVersion: version.Expected,
			StopGrace:       session.DefaultStopGrace,
		},
		Monitor: MonitorConfig{
			PollInterval: monitor.DefaultPollInterval,
			SettleDelay:  monitor.DefaultSettleDelay,
			Hotplug:      true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Parse decodes data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &LoadError{
			Message: "failed to parse YAML",
			Cause:   err,
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads a configuration file. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{
			File:    path,
			Message: "failed to read file",
			Cause:   err,
		}
	}

	cfg, err := Parse(data)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{
			File:    path,
			Message: err.Error(),
		}
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Bridge.Path) == "" {
		return &LoadError{Message: "bridge.path is required"}
	}
	if c.Bridge.Timeout < 0 {
		return &LoadError{Message: "bridge.timeout must not be negative"}
	}
	if c.Bridge.StopGrace < 0 {
		return &LoadError{Message: "bridge.stop_grace must not be negative"}
	}
	if _, err := (version.BridgeVersion{}).Satisfies(c.Bridge.ExpectedVersion); err != nil {
		return &LoadError{Message: "bridge.expected_version is invalid", Cause: err}
	}
	if c.Monitor.PollInterval < 0 {
		return &LoadError{Message: "monitor.poll_interval must not be negative"}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return &LoadError{Message: "logging.level must be debug, info, warn or error"}
	}
	for name := range c.Resources.Manifest {
		if c.Resources.Dir == "" {
			return &LoadError{Message: "resources.manifest lists " + name + " but resources.dir is empty"}
		}
	}
	return nil
}

// ControllerConfig converts the file format into a controller config.
func (c *Config) ControllerConfig() controller.Config {
	cfg := controller.Config{
		BridgePath:      c.Bridge.Path,
		BootloaderPath:  c.Bridge.BootloaderPath,
		CommandTimeout:  c.Bridge.Timeout,
		ExpectedVersion: c.Bridge.ExpectedVersion,
		StopGrace:       c.Bridge.StopGrace,
		DetachOnTimeout: c.Bridge.DetachOnTimeout,
		PollInterval:    c.Monitor.PollInterval,
		SettleDelay:     c.Monitor.SettleDelay,
		Hotplug:         c.Monitor.Hotplug,
		MDNS:            c.Monitor.MDNS,
		MDNSInterface:   c.Monitor.MDNSInterface,
		ResourceDir:     c.Resources.Dir,
		StatePath:       c.State.Path,
	}
	if len(c.Resources.Manifest) > 0 {
		cfg.Manifest = resources.Manifest(c.Resources.Manifest)
	}
	return cfg
}
