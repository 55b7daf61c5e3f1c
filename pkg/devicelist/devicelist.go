// Package devicelist parses the device listings printed by the bridge tools.
//
// Both `adb devices` and `fastboot devices` print one device per line as
// "<serial>\t<state>", optionally preceded by a header and daemon status
// lines. Parse is tolerant: unknown lines are skipped rather than failing
// the whole listing.
package devicelist

import (
	"strings"
)

// Header is the first line printed by `adb devices`.
const Header = "List of devices attached"

// State is the connection state column of a listing line.
type State string

// Known states. Anything else parses as StateUnknown.
const (
	StateDevice        State = "device"
	StateRecovery      State = "recovery"
	StateBootloader    State = "bootloader"
	StateFastboot      State = "fastboot"
	StateOffline       State = "offline"
	StateUnauthorized  State = "unauthorized"
	StateAuthorizing   State = "authorizing"
	StateConnecting    State = "connecting"
	StateSideload      State = "sideload"
	StateRescue        State = "rescue"
	StateHost          State = "host"
	StateNoPermissions State = "no permissions"
	StateUnknown       State = "unknown"
)

var knownStates = map[State]bool{
	StateDevice:        true,
	StateRecovery:      true,
	StateBootloader:    true,
	StateFastboot:      true,
	StateOffline:       true,
	StateUnauthorized:  true,
	StateAuthorizing:   true,
	StateConnecting:    true,
	StateSideload:      true,
	StateRescue:        true,
	StateHost:          true,
	StateNoPermissions: true,
}

// Online reports whether the device accepts commands in normal mode.
func (s State) Online() bool {
	return s == StateDevice
}

// InBootloader reports whether the device is in bootloader mode.
func (s State) InBootloader() bool {
	return s == StateBootloader || s == StateFastboot
}

// ParseState maps a state column to a State.
func ParseState(s string) State {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, string(StateNoPermissions)) {
		return StateNoPermissions
	}
	st := State(s)
	if knownStates[st] {
		return st
	}
	return StateUnknown
}

// Entry is one device line.
type Entry struct {
	// Serial is the device identifier (first column).
	Serial string

	// State is the parsed state column.
	State State

	// Attributes holds key:value pairs printed by `devices -l`
	// (product, model, device, transport_id, usb).
	Attributes map[string]string
}

// Parse extracts device entries from listing text.
//
// Blank lines, the header and daemon status lines ("* daemon started
// successfully") are skipped. A line is a device line when it contains a
// tab, or when its second whitespace-separated field is a known state.
// The serial is the text before the first tab or whitespace run.
func Parse(text string) []Entry {
	var entries []Entry
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, Header) || strings.HasPrefix(trimmed, "*") {
			continue
		}
		if e, ok := parseLine(line); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

func parseLine(line string) (Entry, bool) {
	if i := strings.IndexByte(line, '\t'); i >= 0 {
		serial := strings.TrimSpace(line[:i])
		if serial == "" || strings.ContainsAny(serial, " ") {
			return Entry{}, false
		}
		rest := strings.TrimSpace(line[i+1:])
		state, attrs := splitStateAndAttributes(rest)
		return Entry{Serial: serial, State: state, Attributes: attrs}, true
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Entry{}, false
	}
	rest := strings.Join(fields[1:], " ")
	state, attrs := splitStateAndAttributes(rest)
	if state == StateUnknown {
		return Entry{}, false
	}
	return Entry{Serial: fields[0], State: state, Attributes: attrs}, true
}

// splitStateAndAttributes separates "device usb:1-1 product:x" into the
// state and its attributes.
func splitStateAndAttributes(rest string) (State, map[string]string) {
	if strings.HasPrefix(rest, string(StateNoPermissions)) {
		return StateNoPermissions, nil
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return StateUnknown, nil
	}
	state := ParseState(fields[0])

	var attrs map[string]string
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, ":")
		if !ok || k == "" {
			continue
		}
		if attrs == nil {
			attrs = make(map[string]string)
		}
		attrs[k] = v
	}
	return state, attrs
}

// Serials returns the serials of entries in order, without duplicates.
func Serials(entries []Entry) []string {
	seen := make(map[string]bool, len(entries))
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if seen[e.Serial] {
			continue
		}
		seen[e.Serial] = true
		out = append(out, e.Serial)
	}
	return out
}
