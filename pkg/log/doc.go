// Package log provides structured event capture for bridge sessions.
//
// This package defines the Logger interface and Event types for recording
// what the library does with the bridge tool: every process invocation,
// every device that appears or disappears, session state transitions,
// hot-plug signals and errors. It is separate from operational logging
// (slog or the standard log package) and produces a machine-readable trace
// for debugging flaky device connections.
//
// # Basic Usage
//
//	// Console trace while developing
//	c, _ := controller.New(cfg, controller.WithLogger(log.NewSlogAdapter(slog.Default())))
//
//	// Capture file plus console
//	capture, _ := log.NewFileLogger("/var/log/adbwatch/session.alog")
//	defer capture.Close()
//	c, _ := controller.New(cfg, controller.WithLogger(log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    capture,
//	)))
//
// # Event Types
//
// Events carry exactly one payload:
//   - Exec: a bridge tool invocation and its outcome (ExecEvent)
//   - Presence: a device added to or removed from the registry (PresenceEvent)
//   - StateChange: session or monitor lifecycle transitions (StateChangeEvent)
//   - Hotplug: a change signal from a notifier (HotplugEvent)
//   - Error: failures at any component (ErrorEventData)
//
// # File Format
//
// Capture files (.alog) are a plain concatenation of CBOR items, one per
// event, so a file can be read while it is still being appended to. The
// adbwatch-log command views, filters, summarizes and exports them.
package log
