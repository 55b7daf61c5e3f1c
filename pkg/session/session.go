// Package session manages the lifetime of the bridge server.
//
// The bridge tool talks to a background daemon. A Session makes sure the
// daemon is running and speaks the expected version before devices are
// enumerated, and stops it again on shutdown, but only when this session
// was the one that started it.
//
// # Version Mismatch
//
// When the installed tool reports an unexpected version, the session stops
// the server it started, clears the extracted tool cache, restarts, and
// checks once more. A second mismatch moves the session to StateFailed;
// every later EnsureStarted returns that failure until Reset is called.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/regaw-leinad/androidlib-go/pkg/bridge"
	"github.com/regaw-leinad/androidlib-go/pkg/log"
	"github.com/regaw-leinad/androidlib-go/pkg/process"
	"github.com/regaw-leinad/androidlib-go/pkg/retry"
	"github.com/regaw-leinad/androidlib-go/pkg/version"
)

// DefaultStopGrace is how long Stop waits after kill-server.
const DefaultStopGrace = time.Second

// Session errors.
var (
	ErrVersionMismatch = errors.New("bridge version mismatch")
	ErrStartTimeout    = errors.New("bridge server start timed out")
	ErrStartFailed     = errors.New("bridge server failed to start")
)

// VersionMismatchError reports the versions involved in a mismatch.
type VersionMismatchError struct {
	Expected string
	Reported string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("bridge version mismatch: expected %s, tool reports %s", e.Expected, e.Reported)
}

// Is makes errors.Is(err, ErrVersionMismatch) match.
func (e *VersionMismatchError) Is(target error) bool {
	return target == ErrVersionMismatch
}

// State represents the server lifecycle state.
type State uint8

const (
	// StateIdle indicates no server is associated with the session.
	StateIdle State = iota

	// StateStarting indicates a start attempt is in progress.
	StateStarting

	// StateRunning indicates the server is up and its version checked.
	StateRunning

	// StateStopping indicates the owned server is being stopped.
	StateStopping

	// StateFailed indicates the version could not be reconciled.
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// ResourceCache is the extracted tool cache cleared on version mismatch.
type ResourceCache interface {
	Clear() error
	Ensure() error
}

// Config configures a Session.
type Config struct {
	// Tool is the bridge executable.
	Tool bridge.Tool

	// ExpectedVersion is a version requirement ("1.0.41" or "1.0").
	// Empty disables the version check.
	ExpectedVersion string

	// StopGrace is waited after kill-server. Zero selects DefaultStopGrace.
	StopGrace time.Duration

	// Cache is optional.
	Cache ResourceCache
}

// Session owns the bridge server lifecycle. It is safe for concurrent use.
type Session struct {
	runner    process.Runner
	config    Config
	logger    log.Logger
	sessionID string

	flight singleflight.Group

	// opMu serializes start and stop attempts.
	opMu sync.Mutex

	mu       sync.RWMutex
	state    State
	owned    bool
	failure  error
	reported string

	onStateChange func(oldState, newState State)
}

// Option configures a Session.
type Option func(*Session)

// WithLogger records state changes as events.
func WithLogger(logger log.Logger, sessionID string) Option {
	return func(s *Session) {
		s.logger = log.OrNoop(logger)
		s.sessionID = sessionID
	}
}

// New creates an idle session.
func New(runner process.Runner, config Config, opts ...Option) *Session {
	if config.StopGrace <= 0 {
		config.StopGrace = DefaultStopGrace
	}
	s := &Session{
		runner: runner,
		config: config,
		logger: log.NoopLogger{},
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnStateChange sets a callback for state transitions.
func (s *Session) OnStateChange(fn func(oldState, newState State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStateChange = fn
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Owned returns true if this session started the running server.
func (s *Session) Owned() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owned
}

// Err returns the stored failure of a failed session.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failure
}

// ReportedVersion returns the version reported by the last check.
func (s *Session) ReportedVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reported
}

// EnsureStarted makes sure the server is running with the expected version.
// Concurrent callers share a single attempt. ctx bounds only the caller's
// wait; the shared attempt is bounded by the tool's command timeout.
func (s *Session) EnsureStarted(ctx context.Context) error {
	s.mu.RLock()
	state, failure := s.state, s.failure
	s.mu.RUnlock()

	switch state {
	case StateRunning:
		return nil
	case StateFailed:
		return failure
	}

	ch := s.flight.DoChan("start", func() (any, error) {
		return nil, s.start(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) start(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	// A previous attempt may have finished while this one queued.
	switch s.State() {
	case StateRunning:
		return nil
	case StateFailed:
		return s.Err()
	}

	s.setState(StateStarting, "ensure started")

	if err := s.launch(ctx); err != nil {
		s.setState(StateIdle, err.Error())
		return err
	}

	mismatch, err := s.checkVersion(ctx)
	if err != nil {
		_ = s.stopOwned(ctx)
		s.setState(StateIdle, err.Error())
		return err
	}
	if mismatch == nil {
		s.setState(StateRunning, "")
		return nil
	}

	// One local restart with a fresh copy of the tools. The mismatched
	// server is stopped even when another process started it.
	_ = s.killServer(ctx)
	if err := s.refreshCache(); err != nil {
		return s.fail(fmt.Errorf("%w (cache refresh failed: %v)", mismatch, err))
	}
	if err := s.launch(ctx); err != nil {
		s.setState(StateIdle, err.Error())
		return err
	}
	mismatch, err = s.checkVersion(ctx)
	if err != nil {
		_ = s.stopOwned(ctx)
		s.setState(StateIdle, err.Error())
		return err
	}
	if mismatch != nil {
		_ = s.stopOwned(ctx)
		return s.fail(mismatch)
	}

	s.setState(StateRunning, "restarted after version mismatch")
	return nil
}

// launch runs start-server. Ownership is taken when the tool reports that
// it launched the daemon; an already running server is not ours to stop.
func (s *Session) launch(ctx context.Context) error {
	res, err := s.runner.Execute(ctx, s.config.Tool.StartServer())
	if err != nil {
		return err
	}
	if res.TimedOut() {
		return ErrStartTimeout
	}
	if !res.Success() {
		return fmt.Errorf("%w: %s", ErrStartFailed, res.Text)
	}

	if bridge.StartedDaemon(res.Stdout) || bridge.StartedDaemon(res.Stderr) {
		s.mu.Lock()
		s.owned = true
		s.mu.Unlock()
	}
	return nil
}

// checkVersion returns a *VersionMismatchError when the tool version does
// not satisfy the requirement, or an error if it could not be determined.
func (s *Session) checkVersion(ctx context.Context) (*VersionMismatchError, error) {
	if s.config.ExpectedVersion == "" {
		return nil, nil
	}

	res, err := s.runner.Execute(ctx, s.config.Tool.Version())
	if err != nil {
		return nil, fmt.Errorf("version check: %w", err)
	}
	if res.TimedOut() {
		return nil, fmt.Errorf("version check: %w", ErrStartTimeout)
	}

	reported, err := version.FromOutput(res.Text)
	if err != nil {
		return nil, fmt.Errorf("version check: %w", err)
	}

	s.mu.Lock()
	s.reported = reported.String()
	s.mu.Unlock()

	ok, err := reported.Satisfies(s.config.ExpectedVersion)
	if err != nil {
		return nil, fmt.Errorf("version check: %w", err)
	}
	if !ok {
		return &VersionMismatchError{Expected: s.config.ExpectedVersion, Reported: reported.String()}, nil
	}
	return nil, nil
}

func (s *Session) refreshCache() error {
	if s.config.Cache == nil {
		return nil
	}
	if err := s.config.Cache.Clear(); err != nil {
		return err
	}
	return s.config.Cache.Ensure()
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.failure = err
	s.mu.Unlock()
	s.setState(StateFailed, err.Error())
	return err
}

// Stop stops the server if this session started it, then waits the grace
// period. A session that does not own the server only forgets it.
func (s *Session) Stop(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if !s.Owned() {
		if s.State() == StateRunning {
			s.setState(StateIdle, "released")
		}
		return nil
	}

	s.setState(StateStopping, "stop")
	err := s.stopOwned(ctx)
	s.setState(StateIdle, "stopped")
	return err
}

// stopOwned runs kill-server when the server is owned. Callers hold opMu.
func (s *Session) stopOwned(ctx context.Context) error {
	if !s.Owned() {
		return nil
	}
	return s.killServer(ctx)
}

// killServer runs kill-server, gives up ownership and waits the grace
// period. Callers hold opMu.
func (s *Session) killServer(ctx context.Context) error {
	res, err := s.runner.Execute(ctx, s.config.Tool.KillServer())
	if err == nil && res.TimedOut() {
		err = fmt.Errorf("kill-server: %w", ErrStartTimeout)
	}

	s.mu.Lock()
	s.owned = false
	s.mu.Unlock()

	if err != nil {
		return err
	}
	return retry.Sleep(ctx, s.config.StopGrace)
}

// Reset clears a failed state so the next EnsureStarted tries again.
func (s *Session) Reset() {
	s.mu.Lock()
	if s.state != StateFailed {
		s.mu.Unlock()
		return
	}
	s.failure = nil
	s.mu.Unlock()
	s.setState(StateIdle, "reset")
}

func (s *Session) setState(newState State, reason string) {
	s.mu.Lock()
	oldState := s.state
	if oldState == newState {
		s.mu.Unlock()
		return
	}
	s.state = newState
	callback := s.onStateChange
	s.mu.Unlock()

	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.sessionID,
		Component: log.ComponentSession,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityServer,
			OldState: oldState.String(),
			NewState: newState.String(),
			Reason:   reason,
		},
	})

	if callback != nil {
		callback(oldState, newState)
	}
}
