package notify

import (
	"bytes"
	"strings"
	"time"
)

// UeventMessage is a parsed kernel uevent.
type UeventMessage struct {
	Action  string
	DevPath string
	Env     map[string]string
}

// ParseUevent parses a kernel uevent datagram of the form
// "action@devpath\0KEY=value\0...". Messages re-broadcast by udev (prefixed
// with "libudev") are rejected.
func ParseUevent(data []byte) (UeventMessage, bool) {
	parts := bytes.Split(data, []byte{0})
	if len(parts) == 0 {
		return UeventMessage{}, false
	}

	action, devpath, ok := strings.Cut(string(parts[0]), "@")
	if !ok || action == "" || devpath == "" {
		return UeventMessage{}, false
	}

	msg := UeventMessage{Action: action, DevPath: devpath, Env: make(map[string]string, len(parts))}
	for _, p := range parts[1:] {
		k, v, ok := strings.Cut(string(p), "=")
		if !ok || k == "" {
			continue
		}
		msg.Env[k] = v
	}
	if a := msg.Env["ACTION"]; a != "" {
		msg.Action = a
	}
	return msg, true
}

// usbDevice reports whether the message is an add or remove of a whole USB
// device. Per-interface events of the same device are ignored.
func (m UeventMessage) usbDevice(subsystems map[string]bool) bool {
	if m.Action != "add" && m.Action != "remove" {
		return false
	}
	if !subsystems[m.Env["SUBSYSTEM"]] {
		return false
	}
	if devType, ok := m.Env["DEVTYPE"]; ok && m.Env["SUBSYSTEM"] == "usb" {
		return devType == "usb_device"
	}
	return true
}

func (m UeventMessage) change(now time.Time) Change {
	detail := m.DevPath
	if product := m.Env["PRODUCT"]; product != "" {
		detail += " product=" + product
	}
	action := ActionAdd
	if m.Action == "remove" {
		action = ActionRemove
	}
	return Change{Source: "uevent", Action: action, Detail: detail, Time: now}
}

// UeventNotifier watches kernel hot-plug events.
type UeventNotifier struct {
	subsystems  map[string]bool
	readTimeout time.Duration
}

// NewUevent creates a notifier for the given subsystems ("usb" by default).
func NewUevent(subsystems ...string) *UeventNotifier {
	if len(subsystems) == 0 {
		subsystems = []string{"usb"}
	}
	set := make(map[string]bool, len(subsystems))
	for _, s := range subsystems {
		set[s] = true
	}
	return &UeventNotifier{subsystems: set, readTimeout: 500 * time.Millisecond}
}

// Name returns "uevent".
func (u *UeventNotifier) Name() string { return "uevent" }
