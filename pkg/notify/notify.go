// Package notify delivers hints that the set of attached devices may have
// changed.
//
// A Notifier never reports which devices are present; it only signals that
// a fresh enumeration is worthwhile. Three implementations are provided:
//
//   - Uevent: kernel USB hot-plug events over netlink (Linux only)
//   - MDNS: wireless-debugging services appearing on the local network
//   - Poll: a fixed-interval ticker, portable to every platform
package notify

import (
	"context"
	"errors"
	"time"
)

// ErrUnsupported is returned by notifiers that cannot run on this platform.
var ErrUnsupported = errors.New("change notifier not supported on this platform")

// Action describes what the source observed.
type Action string

// Actions reported by the notifiers.
const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
	ActionTick   Action = "tick"
)

// Change is one signal from a notifier.
type Change struct {
	// Source is the notifier name.
	Source string

	// Action is what happened.
	Action Action

	// Detail is source specific: a device path or a service instance.
	Detail string

	// Time the change was observed.
	Time time.Time
}

// Notifier produces change signals.
type Notifier interface {
	// Name identifies the notifier in logs.
	Name() string

	// Changes starts watching. The returned channel is closed when ctx is
	// done or the source fails. An error means the notifier could not start.
	Changes(ctx context.Context) (<-chan Change, error)
}

// Poll signals at a fixed interval.
type Poll struct {
	interval time.Duration
}

// NewPoll creates a poll notifier. A non-positive interval selects one second.
func NewPoll(interval time.Duration) *Poll {
	if interval <= 0 {
		interval = time.Second
	}
	return &Poll{interval: interval}
}

// Name returns "poll".
func (p *Poll) Name() string { return "poll" }

// Interval returns the tick interval.
func (p *Poll) Interval() time.Duration { return p.interval }

// Changes ticks until ctx is done. Ticks are dropped while the previous one
// is still unread.
func (p *Poll) Changes(ctx context.Context) (<-chan Change, error) {
	out := make(chan Change, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				select {
				case out <- Change{Source: p.Name(), Action: ActionTick, Time: now}:
				default:
				}
			}
		}
	}()
	return out, nil
}

// Compile-time interface satisfaction checks.
var (
	_ Notifier = (*Poll)(nil)
	_ Notifier = (*UeventNotifier)(nil)
	_ Notifier = (*MDNS)(nil)
)
