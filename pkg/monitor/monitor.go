package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/regaw-leinad/androidlib-go/pkg/bridge"
	"github.com/regaw-leinad/androidlib-go/pkg/devicelist"
	"github.com/regaw-leinad/androidlib-go/pkg/eventbus"
	"github.com/regaw-leinad/androidlib-go/pkg/log"
	"github.com/regaw-leinad/androidlib-go/pkg/process"
	"github.com/regaw-leinad/androidlib-go/pkg/registry"
	"github.com/regaw-leinad/androidlib-go/pkg/retry"
)

// Monitor defaults.
const (
	// DefaultPollInterval is the re-check interval of WaitUntilPresent.
	DefaultPollInterval = 250 * time.Millisecond

	// DefaultSettleDelay is the follow-up pass delay after a hot-plug signal.
	DefaultSettleDelay = 750 * time.Millisecond
)

// Monitor errors.
var (
	ErrEnumerationTimeout = errors.New("device enumeration timed out")
	ErrEnumerationFailed  = errors.New("device enumeration failed")
	ErrAlreadyRunning     = errors.New("monitor already running")

	// ErrNotStarted wraps a failure of the Starter. The session decides
	// itself whether to try again, so the monitor does not retry it.
	ErrNotStarted = errors.New("bridge server not started")
)

// permanent reports whether a failed pass will fail the same way when
// repeated: the bridge tool cannot be launched, or the server could not be
// started. Enumeration failures and timeouts are worth retrying.
func permanent(err error) bool {
	var launchErr *process.LaunchError
	return errors.Is(err, ErrNotStarted) || errors.As(err, &launchErr)
}

// Starter makes sure the bridge server is up before enumeration.
type Starter interface {
	EnsureStarted(ctx context.Context) error
}

// Config configures a Monitor.
type Config struct {
	// Bridge is the normal-mode tool. Required.
	Bridge bridge.Tool

	// Bootloader is the bootloader-mode tool. An empty path disables it.
	Bootloader bridge.Tool

	// PollInterval for WaitUntilPresent and the poll fallback.
	PollInterval time.Duration

	// SettleDelay before the follow-up pass after a hot-plug signal.
	// Negative disables the follow-up.
	SettleDelay time.Duration
}

// Pass is the result of one reconciliation.
type Pass struct {
	Added    []registry.DeviceID
	Removed  []registry.DeviceID
	Snapshot registry.Snapshot
	States   map[registry.DeviceID]devicelist.State

	// BootloaderErr is set when the bootloader listing failed and the
	// previous bootloader-mode devices were carried over.
	BootloaderErr error
}

// Changed returns true if the pass added or removed devices.
func (p Pass) Changed() bool {
	return len(p.Added) > 0 || len(p.Removed) > 0
}

// Monitor reconciles the registry with the attached devices.
type Monitor struct {
	runner   process.Runner
	registry *registry.Registry
	bus      *eventbus.Bus
	config   Config

	starter   Starter
	logger    log.Logger
	sessionID string
	backoff   *retry.Backoff

	// passMu serializes reconciliation passes.
	passMu sync.Mutex

	stateMu sync.RWMutex
	states  map[registry.DeviceID]devicelist.State

	observers []func(Pass)

	watching atomic.Bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithStarter runs s.EnsureStarted before every pass.
func WithStarter(s Starter) Option {
	return func(m *Monitor) { m.starter = s }
}

// WithLogger records presence, hot-plug and error events.
func WithLogger(logger log.Logger, sessionID string) Option {
	return func(m *Monitor) {
		m.logger = log.OrNoop(logger)
		m.sessionID = sessionID
	}
}

// WithObserver calls fn after every successful pass, while passes are
// still serialized.
func WithObserver(fn func(Pass)) Option {
	return func(m *Monitor) { m.observers = append(m.observers, fn) }
}

// WithBackoff sets the retry schedule of Run after failed passes.
func WithBackoff(b *retry.Backoff) Option {
	return func(m *Monitor) { m.backoff = b }
}

// New creates a monitor over reg and bus.
func New(runner process.Runner, reg *registry.Registry, bus *eventbus.Bus, config Config, opts ...Option) *Monitor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.SettleDelay == 0 {
		config.SettleDelay = DefaultSettleDelay
	}
	m := &Monitor{
		runner:   runner,
		registry: reg,
		bus:      bus,
		config:   config,
		logger:   log.NoopLogger{},
		backoff:  retry.NewBackoff(),
		states:   make(map[registry.DeviceID]devicelist.State),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DeviceState returns the state column last seen for id, or
// devicelist.StateUnknown when the device is not present.
func (m *Monitor) DeviceState(id registry.DeviceID) devicelist.State {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	if st, ok := m.states[id]; ok {
		return st
	}
	return devicelist.StateUnknown
}

// Watching returns true while Run is active.
func (m *Monitor) Watching() bool {
	return m.watching.Load()
}

// Reconcile runs one enumeration pass. A failed normal-mode enumeration
// leaves the registry untouched.
func (m *Monitor) Reconcile(ctx context.Context) (Pass, error) {
	m.passMu.Lock()
	defer m.passMu.Unlock()

	if m.starter != nil {
		if err := m.starter.EnsureStarted(ctx); err != nil {
			m.logError(err, "ensure started")
			return Pass{}, fmt.Errorf("%w: %w", ErrNotStarted, err)
		}
	}

	normal, err := m.enumerate(ctx, m.config.Bridge)
	if err != nil {
		m.logError(err, "enumerate devices")
		return Pass{}, fmt.Errorf("enumerate devices: %w", err)
	}

	pass := Pass{}
	states := make(map[registry.DeviceID]devicelist.State, len(normal))

	if m.config.Bootloader.Enabled() {
		bootloader, err := m.enumerate(ctx, m.config.Bootloader)
		switch {
		case err != nil && ctx.Err() != nil:
			return Pass{}, ctx.Err()
		case err != nil:
			pass.BootloaderErr = err
			m.logError(err, "enumerate bootloader devices")
			// A tool that cannot launch lists nothing. Any other failure
			// keeps the bootloader devices from the previous pass.
			var launchErr *process.LaunchError
			if !errors.As(err, &launchErr) {
				for id, st := range m.previousBootloaderStates() {
					states[id] = st
				}
			}
		default:
			for _, e := range bootloader {
				states[registry.DeviceID(e.Serial)] = e.State
			}
		}
	}

	// Normal-mode state wins when a device shows up in both listings.
	for _, e := range normal {
		states[registry.DeviceID(e.Serial)] = e.State
	}

	ids := make([]registry.DeviceID, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}
	snapshot := registry.NewSnapshot(ids...)

	added, removed := m.registry.Update(snapshot)

	m.stateMu.Lock()
	m.states = states
	m.stateMu.Unlock()

	m.bus.Publish(added, removed)
	m.logPresence(added, removed, states)

	pass.Added = added
	pass.Removed = removed
	pass.Snapshot = snapshot
	pass.States = states
	for _, fn := range m.observers {
		fn(pass)
	}
	return pass, nil
}

func (m *Monitor) enumerate(ctx context.Context, tool bridge.Tool) ([]devicelist.Entry, error) {
	res, err := m.runner.Execute(ctx, tool.Devices())
	if err != nil {
		return nil, err
	}
	if res.TimedOut() {
		return nil, fmt.Errorf("%w: %s", ErrEnumerationTimeout, tool.Path)
	}
	if res.ExitCode != nil && *res.ExitCode != 0 {
		return nil, fmt.Errorf("%w: %s exited %d: %s", ErrEnumerationFailed, tool.Path, *res.ExitCode, res.Text)
	}
	return devicelist.Parse(res.Text), nil
}

func (m *Monitor) previousBootloaderStates() map[registry.DeviceID]devicelist.State {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()

	out := make(map[registry.DeviceID]devicelist.State)
	for id, st := range m.states {
		if st.InBootloader() {
			out[id] = st
		}
	}
	return out
}

// WaitUntilPresent returns nil once at least one device is present, or
// ctx.Err() when ctx is done first. It returns immediately in either case
// if the condition already holds. While Run is active the registry is
// only re-read; otherwise every check runs a reconciliation pass.
//
// A pass that fails because the bridge tool cannot be launched or the
// server cannot be started ends the wait with that error. Other failed
// passes are retried at the next check.
func (m *Monitor) WaitUntilPresent(ctx context.Context) error {
	if m.registry.Len() > 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	for {
		if !m.Watching() {
			_, err := m.Reconcile(ctx)
			if err != nil && ctx.Err() == nil && permanent(err) {
				return err
			}
		}
		if m.registry.Len() > 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *Monitor) logPresence(added, removed []registry.DeviceID, states map[registry.DeviceID]devicelist.State) {
	now := time.Now()
	emit := func(id registry.DeviceID, action log.PresenceAction) {
		m.logger.Log(log.Event{
			Timestamp: now,
			SessionID: m.sessionID,
			Component: log.ComponentMonitor,
			Category:  log.CategoryPresence,
			DeviceID:  string(id),
			Presence:  &log.PresenceEvent{Action: action, State: string(states[id])},
		})
	}
	for _, id := range added {
		emit(id, log.PresenceAdded)
	}
	for _, id := range removed {
		emit(id, log.PresenceRemoved)
	}
}

func (m *Monitor) logError(err error, context string) {
	m.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: m.sessionID,
		Component: log.ComponentMonitor,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Component: log.ComponentMonitor,
			Message:   err.Error(),
			Context:   context,
		},
	})
}
