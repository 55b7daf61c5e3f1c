package log

import (
	"time"
)

// Event represents a captured session event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the controller session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Component that produced the event.
	Component Component `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// DeviceID is the device serial, when the event concerns one device.
	DeviceID string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Exec        *ExecEvent        `cbor:"6,keyasint,omitempty"`
	Presence    *PresenceEvent    `cbor:"7,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"8,keyasint,omitempty"`
	Hotplug     *HotplugEvent     `cbor:"9,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"10,keyasint,omitempty"`
}

// Component identifies the part of the library that captured the event.
type Component uint8

const (
	// ComponentProcess is the process runner.
	ComponentProcess Component = 0
	// ComponentMonitor is the presence monitor.
	ComponentMonitor Component = 1
	// ComponentSession is the bridge server lifecycle.
	ComponentSession Component = 2
	// ComponentNotifier is a change notifier.
	ComponentNotifier Component = 3
	// ComponentController is the controller facade.
	ComponentController Component = 4
)

// String returns the component name.
func (c Component) String() string {
	switch c {
	case ComponentProcess:
		return "PROCESS"
	case ComponentMonitor:
		return "MONITOR"
	case ComponentSession:
		return "SESSION"
	case ComponentNotifier:
		return "NOTIFIER"
	case ComponentController:
		return "CONTROLLER"
	default:
		return "UNKNOWN"
	}
}

// ParseComponent returns the component for a name produced by String.
func ParseComponent(s string) (Component, bool) {
	for c := ComponentProcess; c <= ComponentController; c++ {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryExec indicates a process invocation.
	CategoryExec Category = 0
	// CategoryPresence indicates a registry change.
	CategoryPresence Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryHotplug indicates a notifier signal.
	CategoryHotplug Category = 3
	// CategoryError indicates an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryExec:
		return "EXEC"
	case CategoryPresence:
		return "PRESENCE"
	case CategoryState:
		return "STATE"
	case CategoryHotplug:
		return "HOTPLUG"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory returns the category for a name produced by String.
func ParseCategory(s string) (Category, bool) {
	for c := CategoryExec; c <= CategoryError; c++ {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// ExecEvent captures one bridge tool invocation.
type ExecEvent struct {
	// Path is the executable that was launched.
	Path string `cbor:"1,keyasint"`

	// Args are the arguments passed to it.
	Args []string `cbor:"2,keyasint,omitempty"`

	// Outcome is COMPLETED, TIMED_OUT, CANCELLED, LAUNCH_FAILED or
	// OUTPUT_FAILED.
	Outcome string `cbor:"3,keyasint"`

	// ExitCode is set when the process completed with a known code.
	ExitCode *int `cbor:"4,keyasint,omitempty"`

	// Duration from launch to outcome. Stored as nanoseconds.
	Duration time.Duration `cbor:"5,keyasint"`

	// StdoutBytes and StderrBytes are the captured stream sizes.
	StdoutBytes int `cbor:"6,keyasint,omitempty"`
	StderrBytes int `cbor:"7,keyasint,omitempty"`
}

// PresenceEvent captures a device entering or leaving the registry.
type PresenceEvent struct {
	// Action is ADDED or REMOVED.
	Action PresenceAction `cbor:"1,keyasint"`

	// State is the state column last reported for the device.
	State string `cbor:"2,keyasint,omitempty"`
}

// PresenceAction indicates the direction of a registry change.
type PresenceAction uint8

const (
	// PresenceAdded indicates the device appeared.
	PresenceAdded PresenceAction = 0
	// PresenceRemoved indicates the device disappeared.
	PresenceRemoved PresenceAction = 1
)

// String returns the action name.
func (p PresenceAction) String() string {
	switch p {
	case PresenceAdded:
		return "ADDED"
	case PresenceRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures session and monitor lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityServer indicates a bridge server state change.
	StateEntityServer StateEntity = 0
	// StateEntityMonitor indicates a monitor state change.
	StateEntityMonitor StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityServer:
		return "SERVER"
	case StateEntityMonitor:
		return "MONITOR"
	default:
		return "UNKNOWN"
	}
}

// HotplugEvent captures a change signal delivered by a notifier.
type HotplugEvent struct {
	// Source names the notifier (uevent, mdns, poll).
	Source string `cbor:"1,keyasint"`

	// Action is the raw action reported by the source (add, remove).
	Action string `cbor:"2,keyasint,omitempty"`

	// Detail is a source-specific description (device path, instance name).
	Detail string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures errors at any component.
type ErrorEventData struct {
	// Component where the error occurred.
	Component Component `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
