// Package eventbus fans out device presence changes to subscribers.
//
// Publish takes a snapshot of the subscriber list under the lock and calls
// handlers outside it, so handlers may subscribe or unsubscribe without
// deadlocking. A subscriber added while a Publish is dispatching is not
// guaranteed to see that event.
package eventbus

import (
	"errors"
	"sync"

	"github.com/regaw-leinad/androidlib-go/pkg/registry"
)

// ErrSubscriptionNotFound is returned when unsubscribing an unknown ID.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// Handler receives one device identifier.
type Handler func(id registry.DeviceID)

// SubscriptionID identifies a registered handler pair.
type SubscriptionID uint64

type subscriber struct {
	id        SubscriptionID
	onAdded   Handler
	onRemoved Handler
}

// Bus delivers added/removed notifications to subscribers in registration
// order. It is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscriber
	nextID SubscriptionID
}

// New creates a bus without subscribers.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers a handler pair. Either handler may be nil.
func (b *Bus) Subscribe(onAdded, onRemoved Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs = append(b.subs, subscriber{id: b.nextID, onAdded: onAdded, onRemoved: onRemoved})
	return b.nextID
}

// Unsubscribe removes a handler pair.
func (b *Bus) Unsubscribe(id SubscriptionID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			// Copy so in-flight snapshots keep their view.
			next := make([]subscriber, 0, len(b.subs)-1)
			next = append(next, b.subs[:i]...)
			b.subs = append(next, b.subs[i+1:]...)
			return nil
		}
	}
	return ErrSubscriptionNotFound
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish calls, for each subscriber in registration order, onAdded for
// every identifier in added and then onRemoved for every identifier in
// removed. Handlers run on the caller's goroutine.
func (b *Bus) Publish(added, removed []registry.DeviceID) {
	if len(added) == 0 && len(removed) == 0 {
		return
	}

	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, s := range subs {
		if s.onAdded != nil {
			for _, id := range added {
				s.onAdded(id)
			}
		}
		if s.onRemoved != nil {
			for _, id := range removed {
				s.onRemoved(id)
			}
		}
	}
}
