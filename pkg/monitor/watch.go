package monitor

import (
	"context"
	"strings"
	"time"

	"github.com/regaw-leinad/androidlib-go/pkg/log"
	"github.com/regaw-leinad/androidlib-go/pkg/notify"
)

// Run reconciles once, then again whenever a notifier signals a change,
// until ctx is done. Signals arriving during a pass are coalesced into a
// single follow-up pass. Hot-plug signals also schedule a settle pass,
// since a device may enumerate some time after the kernel reports it.
//
// Notifiers that fail to start are logged and skipped. If none start, or
// all of them stop, Run falls back to polling at the configured interval.
// Failed enumerations are retried with exponential backoff. A pass that
// fails because the bridge tool cannot be launched or the server cannot
// be started stops Run with that error.
//
// Run returns nil when ctx is done and ErrAlreadyRunning if another Run is
// active.
func (m *Monitor) Run(ctx context.Context, notifiers ...notify.Notifier) error {
	if !m.watching.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer m.watching.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	w := &watcher{
		m:       m,
		ctx:     ctx,
		trigger: make(chan struct{}, 1),
		ended:   make(chan string, len(notifiers)+1),
	}
	defer func() {
		cancel()
		w.wait()
		m.logState("WATCHING", "STOPPED", "")
	}()

	for _, n := range notifiers {
		w.start(n)
	}
	if w.active == 0 {
		w.startPoll("no notifier available")
	}
	m.logState("STOPPED", "WATCHING", w.sources())

	m.backoff.Reset()
	w.signal()

	var (
		retry  *time.Timer
		retryC <-chan time.Time
	)
	defer func() {
		if retry != nil {
			retry.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case name := <-w.ended:
			w.active--
			if ctx.Err() == nil && w.active == 0 {
				w.startPoll(name + " stopped")
			}
			continue
		case <-w.trigger:
		case <-retryC:
			retryC = nil
		}

		if _, err := m.Reconcile(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if permanent(err) {
				return err
			}
			if retry != nil {
				retry.Stop()
			}
			retry = time.NewTimer(m.backoff.Next())
			retryC = retry.C
			continue
		}
		m.backoff.Reset()
		if retry != nil {
			retry.Stop()
			retryC = nil
		}
	}
}

// watcher holds the per-Run forwarding state. Only the Run goroutine
// touches active and names.
type watcher struct {
	m       *Monitor
	ctx     context.Context
	trigger chan struct{}
	ended   chan string

	active int
	names  []string
	done   []chan struct{}
}

func (w *watcher) signal() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

func (w *watcher) start(n notify.Notifier) bool {
	ch, err := n.Changes(w.ctx)
	if err != nil {
		w.m.logNotifierError(n.Name(), err)
		return false
	}
	w.active++
	w.names = append(w.names, n.Name())

	done := make(chan struct{})
	w.done = append(w.done, done)
	go w.forward(n.Name(), ch, done)
	return true
}

func (w *watcher) startPoll(reason string) {
	poll := notify.NewPoll(w.m.config.PollInterval)
	if !w.start(poll) {
		return
	}
	w.m.logState("WATCHING", "POLLING", reason)
}

func (w *watcher) forward(name string, ch <-chan notify.Change, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case c, ok := <-ch:
			if !ok {
				select {
				case w.ended <- name:
				case <-w.ctx.Done():
				}
				return
			}
			if c.Action != notify.ActionTick {
				w.m.logHotplug(c)
				if d := w.m.config.SettleDelay; d > 0 {
					time.AfterFunc(d, w.signal)
				}
			}
			w.signal()
		}
	}
}

func (w *watcher) wait() {
	for _, done := range w.done {
		<-done
	}
}

func (w *watcher) sources() string {
	return strings.Join(w.names, ",")
}

func (m *Monitor) logHotplug(c notify.Change) {
	m.logger.Log(log.Event{
		Timestamp: c.Time,
		SessionID: m.sessionID,
		Component: log.ComponentNotifier,
		Category:  log.CategoryHotplug,
		Hotplug: &log.HotplugEvent{
			Source: c.Source,
			Action: string(c.Action),
			Detail: c.Detail,
		},
	})
}

func (m *Monitor) logNotifierError(name string, err error) {
	m.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: m.sessionID,
		Component: log.ComponentNotifier,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Component: log.ComponentNotifier,
			Message:   err.Error(),
			Context:   "start " + name,
		},
	})
}

func (m *Monitor) logState(oldState, newState, reason string) {
	m.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: m.sessionID,
		Component: log.ComponentMonitor,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityMonitor,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}
