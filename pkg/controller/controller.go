package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/regaw-leinad/androidlib-go/pkg/bridge"
	"github.com/regaw-leinad/androidlib-go/pkg/eventbus"
	"github.com/regaw-leinad/androidlib-go/pkg/log"
	"github.com/regaw-leinad/androidlib-go/pkg/monitor"
	"github.com/regaw-leinad/androidlib-go/pkg/notify"
	"github.com/regaw-leinad/androidlib-go/pkg/persistence"
	"github.com/regaw-leinad/androidlib-go/pkg/process"
	"github.com/regaw-leinad/androidlib-go/pkg/registry"
	"github.com/regaw-leinad/androidlib-go/pkg/resources"
	"github.com/regaw-leinad/androidlib-go/pkg/session"
)

// Controller is one bridge session. It is safe for concurrent use.
type Controller struct {
	config Config
	id     string
	logger log.Logger
	runner process.Runner

	bridge     bridge.Tool
	bootloader bridge.Tool
	cache      *resources.Cache

	registry *registry.Registry
	bus      *eventbus.Bus
	session  *session.Session
	monitor  *monitor.Monitor

	store      *persistence.StateStore
	presenceMu sync.Mutex
	presence   *persistence.PresenceState

	notifiers    []notify.Notifier
	notifiersSet bool

	mu          sync.Mutex
	closed      bool
	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithRunner replaces the process runner, mainly for tests.
func WithRunner(r process.Runner) Option {
	return func(c *Controller) { c.runner = r }
}

// WithLogger captures session events.
func WithLogger(l log.Logger) Option {
	return func(c *Controller) { c.logger = log.OrNoop(l) }
}

// WithNotifiers replaces the change notifiers used by Watch. An empty
// list makes Watch poll.
func WithNotifiers(n ...notify.Notifier) Option {
	return func(c *Controller) {
		c.notifiers = n
		c.notifiersSet = true
	}
}

// WithSessionID sets the session ID instead of a random UUID.
func WithSessionID(id string) Option {
	return func(c *Controller) { c.id = id }
}

// New creates a controller. No tool is launched until the first query
// that needs one.
func New(config Config, opts ...Option) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		config:   config,
		id:       uuid.NewString(),
		logger:   log.NoopLogger{},
		registry: registry.New(),
		bus:      eventbus.New(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.runner == nil {
		runnerOpts := []process.Option{process.WithLogger(c.logger, c.id)}
		if config.DetachOnTimeout {
			runnerOpts = append(runnerOpts, process.WithDetachOnTimeout())
		}
		c.runner = process.NewExecRunner(runnerOpts...)
	}

	var sessionCache session.ResourceCache
	if config.ResourceDir != "" {
		c.cache = resources.New(config.ResourceDir, config.Resources, config.Manifest)
		if config.Resources != nil {
			if err := c.cache.Ensure(); err != nil {
				return nil, fmt.Errorf("extract resources: %w", err)
			}
		}
		sessionCache = c.cache
	}

	c.bridge = bridge.New(c.cache.Resolve(config.BridgePath), config.CommandTimeout)
	if config.BootloaderPath != "" {
		c.bootloader = bridge.New(c.cache.Resolve(config.BootloaderPath), config.CommandTimeout)
	}

	c.session = session.New(c.runner, session.Config{
		Tool:            c.bridge,
		ExpectedVersion: config.ExpectedVersion,
		StopGrace:       config.StopGrace,
		Cache:           sessionCache,
	}, session.WithLogger(c.logger, c.id))

	c.monitor = monitor.New(c.runner, c.registry, c.bus, monitor.Config{
		Bridge:       c.bridge,
		Bootloader:   c.bootloader,
		PollInterval: config.PollInterval,
		SettleDelay:  config.SettleDelay,
	},
		monitor.WithStarter(c.session),
		monitor.WithLogger(c.logger, c.id),
		monitor.WithObserver(c.observe),
	)

	if config.StatePath != "" {
		c.store = persistence.NewStateStore(config.StatePath)
		previous, err := c.store.Load()
		if err != nil {
			c.logError(err, "load state")
		}
		c.presence = previous
	}
	if c.presence == nil {
		c.presence = &persistence.PresenceState{}
	}
	c.presence.SessionID = c.id

	return c, nil
}

// ID returns the session ID recorded in captured events.
func (c *Controller) ID() string {
	return c.id
}

// Bridge returns the bridge tool, for building custom invocations.
func (c *Controller) Bridge() bridge.Tool {
	return c.bridge
}

// Bootloader returns the bootloader tool. Its path is empty when disabled.
func (c *Controller) Bootloader() bridge.Tool {
	return c.bootloader
}

// SessionState returns the bridge server state.
func (c *Controller) SessionState() session.State {
	return c.session.State()
}

// BridgeVersion returns the version reported by the running server.
func (c *Controller) BridgeVersion() string {
	return c.session.ReportedVersion()
}

// Start makes sure the bridge server is running and enumerates once.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if err := c.session.EnsureStarted(ctx); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// Refresh runs one reconciliation pass.
func (c *Controller) Refresh(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	_, err := c.monitor.Reconcile(ctx)
	return err
}

// ConnectedDevices returns the present devices in sorted order.
func (c *Controller) ConnectedDevices() []registry.DeviceID {
	return c.registry.Read().IDs()
}

// HasConnectedDevices returns true if at least one device is present.
func (c *Controller) HasConnectedDevices() bool {
	return c.registry.Len() > 0
}

// IsDeviceConnected returns true if id is present.
func (c *Controller) IsDeviceConnected(id registry.DeviceID) bool {
	return c.registry.Contains(id)
}

// GetDevice returns a handle for id if it is present.
func (c *Controller) GetDevice(id registry.DeviceID) (*Device, bool) {
	if !c.registry.Contains(id) {
		return nil, false
	}
	return &Device{c: c, serial: id}, true
}

// FirstDevice returns the present device with the lowest serial.
func (c *Controller) FirstDevice() (*Device, bool) {
	ids := c.ConnectedDevices()
	if len(ids) == 0 {
		return nil, false
	}
	return &Device{c: c, serial: ids[0]}, true
}

// WaitUntilPresent blocks until a device is present or ctx is done.
func (c *Controller) WaitUntilPresent(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.monitor.WaitUntilPresent(ctx)
}

// Subscribe registers presence callbacks. Callbacks run on the goroutine
// that completed the reconciliation pass and must not block.
func (c *Controller) Subscribe(onAdded, onRemoved eventbus.Handler) eventbus.SubscriptionID {
	return c.bus.Subscribe(onAdded, onRemoved)
}

// Unsubscribe removes a subscription.
func (c *Controller) Unsubscribe(id eventbus.SubscriptionID) error {
	return c.bus.Unsubscribe(id)
}

// Execute runs an arbitrary invocation through the session's runner.
func (c *Controller) Execute(ctx context.Context, inv process.Invocation) (process.Result, error) {
	if err := c.checkOpen(); err != nil {
		return process.Result{}, err
	}
	return c.runner.Execute(ctx, inv)
}

// Watch keeps the registry current from change notifications until ctx
// is done or the controller is closed. Only one Watch runs at a time.
func (c *Controller) Watch(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.watchCancel != nil {
		c.mu.Unlock()
		return monitor.ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.watchCancel = cancel
	c.watchDone = done
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		c.watchCancel = nil
		c.watchDone = nil
		c.mu.Unlock()
		close(done)
	}()

	return c.monitor.Run(ctx, c.watchNotifiers()...)
}

func (c *Controller) watchNotifiers() []notify.Notifier {
	if c.notifiersSet {
		return c.notifiers
	}
	var out []notify.Notifier
	if c.config.Hotplug {
		out = append(out, notify.NewUevent())
	}
	if c.config.MDNS {
		out = append(out, notify.NewMDNS(notify.MDNSConfig{Interface: c.config.MDNSInterface}))
	}
	return out
}

// KnownDevices returns every device seen by this or a previous session
// sharing the state file.
func (c *Controller) KnownDevices() []persistence.DeviceRecord {
	c.presenceMu.Lock()
	defer c.presenceMu.Unlock()
	out := make([]persistence.DeviceRecord, len(c.presence.Devices))
	copy(out, c.presence.Devices)
	return out
}

// Close stops watching, saves the device state and stops the bridge
// server if this controller started it. Close is idempotent.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel, done := c.watchCancel, c.watchDone
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
		}
	}

	var errs []error
	if err := c.saveState(); err != nil {
		errs = append(errs, fmt.Errorf("save state: %w", err))
	}
	if err := c.session.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop bridge server: %w", err))
	}
	return errors.Join(errs...)
}

func (c *Controller) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// observe runs after every reconciliation pass.
func (c *Controller) observe(pass monitor.Pass) {
	present := make(map[string]string, len(pass.States))
	for id, st := range pass.States {
		present[string(id)] = string(st)
	}

	c.presenceMu.Lock()
	c.presence.Observe(present, time.Now())
	c.presenceMu.Unlock()

	if pass.Changed() {
		if err := c.saveState(); err != nil {
			c.logError(err, "save state")
		}
	}
}

func (c *Controller) saveState() error {
	if c.store == nil {
		return nil
	}
	c.presenceMu.Lock()
	defer c.presenceMu.Unlock()

	c.presence.BridgeVersion = c.session.ReportedVersion()
	c.presence.SavedAt = time.Now()
	return c.store.Save(c.presence)
}

func (c *Controller) logError(err error, context string) {
	c.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: c.id,
		Component: log.ComponentController,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Component: log.ComponentController,
			Message:   err.Error(),
			Context:   context,
		},
	})
}
