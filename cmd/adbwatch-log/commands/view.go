// Package commands implements the adbwatch-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/regaw-leinad/androidlib-go/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Component *log.Component
	Category  *log.Category
	DeviceID  string
}

func (f ViewFilter) logFilter() log.Filter {
	return log.Filter{
		Component: f.Component,
		Category:  f.Category,
		DeviceID:  f.DeviceID,
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session:id] COMPONENT Type [device]
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	header := fmt.Sprintf("%s [session:%s] %-10s %s", ts, shortenID(event.SessionID), event.Component.String(), eventType(event))
	if event.DeviceID != "" {
		header += " " + event.DeviceID
	}
	fmt.Fprintln(w, header)

	switch {
	case event.Exec != nil:
		formatExecDetails(w, event.Exec)
	case event.Presence != nil:
		if event.Presence.State != "" {
			fmt.Fprintf(w, "  State: %s\n", event.Presence.State)
		}
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Hotplug != nil:
		fmt.Fprintf(w, "  Source: %s\n", event.Hotplug.Source)
		if event.Hotplug.Detail != "" {
			fmt.Fprintf(w, "  Detail: %s\n", event.Hotplug.Detail)
		}
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// eventType returns a short label for the event payload.
func eventType(event log.Event) string {
	switch {
	case event.Exec != nil:
		return "Exec " + event.Exec.Outcome
	case event.Presence != nil:
		return "Device " + event.Presence.Action.String()
	case event.StateChange != nil:
		return "State " + event.StateChange.Entity.String()
	case event.Hotplug != nil:
		return "Hotplug " + event.Hotplug.Action
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenID returns the first 8 characters of a session ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatExecDetails(w io.Writer, ex *log.ExecEvent) {
	fmt.Fprintf(w, "  Command: %s\n", strings.TrimSpace(ex.Path+" "+strings.Join(ex.Args, " ")))
	if ex.ExitCode != nil {
		fmt.Fprintf(w, "  Exit: %d\n", *ex.ExitCode)
	}
	fmt.Fprintf(w, "  Duration: %s\n", formatDuration(ex.Duration))
	if ex.StdoutBytes > 0 || ex.StderrBytes > 0 {
		fmt.Fprintf(w, "  Output: %d bytes stdout, %d bytes stderr\n", ex.StdoutBytes, ex.StderrBytes)
	}
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Component: %s\n", err.Component.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseComponentFlag parses a component name (case-insensitive).
func ParseComponentFlag(s string) (log.Component, error) {
	c, ok := log.ParseComponent(strings.ToUpper(s))
	if !ok {
		return 0, fmt.Errorf("invalid component: %s (must be process, monitor, session, notifier, or controller)", s)
	}
	return c, nil
}

// ParseCategoryFlag parses a category name (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	c, ok := log.ParseCategory(strings.ToUpper(s))
	if !ok {
		return 0, fmt.Errorf("invalid category: %s (must be exec, presence, state, hotplug, or error)", s)
	}
	return c, nil
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter.logFilter())
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for event, err := range reader.Events() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
	if reader.Truncated() {
		fmt.Fprintln(output, "(capture ends in a partial event)")
	}

	return nil
}
