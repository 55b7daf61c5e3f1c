// Package registry holds the set of currently attached devices.
//
// The registry is updated wholesale: every enumeration pass produces a
// candidate Snapshot and Update replaces the current one, reporting the
// identifiers that appeared and disappeared. Readers always observe a
// complete snapshot, never a partially applied update.
package registry

import (
	"sort"
	"sync"
)

// DeviceID identifies a device. Equality is exact string match.
type DeviceID string

// Snapshot is an immutable set of device identifiers.
// The zero value is an empty snapshot.
type Snapshot struct {
	ids map[DeviceID]struct{}
}

// NewSnapshot creates a snapshot from ids. Duplicates collapse.
func NewSnapshot(ids ...DeviceID) Snapshot {
	set := make(map[DeviceID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return Snapshot{ids: set}
}

// Union returns a snapshot holding the identifiers of s and other.
func (s Snapshot) Union(other Snapshot) Snapshot {
	set := make(map[DeviceID]struct{}, len(s.ids)+len(other.ids))
	for id := range s.ids {
		set[id] = struct{}{}
	}
	for id := range other.ids {
		set[id] = struct{}{}
	}
	return Snapshot{ids: set}
}

// Contains reports whether id is in the snapshot.
func (s Snapshot) Contains(id DeviceID) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of identifiers.
func (s Snapshot) Len() int {
	return len(s.ids)
}

// IDs returns the identifiers in ascending order.
func (s Snapshot) IDs() []DeviceID {
	out := make([]DeviceID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sortIDs(out)
	return out
}

// Strings returns the identifiers as sorted strings.
func (s Snapshot) Strings() []string {
	ids := s.IDs()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// Equal reports whether both snapshots hold the same identifiers.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s.ids) != len(other.ids) {
		return false
	}
	for id := range s.ids {
		if _, ok := other.ids[id]; !ok {
			return false
		}
	}
	return true
}

// Diff returns the identifiers in next but not in s (added) and those in s
// but not in next (removed), both sorted.
func (s Snapshot) Diff(next Snapshot) (added, removed []DeviceID) {
	for id := range next.ids {
		if _, ok := s.ids[id]; !ok {
			added = append(added, id)
		}
	}
	for id := range s.ids {
		if _, ok := next.ids[id]; !ok {
			removed = append(removed, id)
		}
	}
	sortIDs(added)
	sortIDs(removed)
	return added, removed
}

func sortIDs(ids []DeviceID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// Registry is the mutex-guarded current snapshot.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	current Snapshot
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{current: NewSnapshot()}
}

// Update replaces the current snapshot with candidate and returns what
// changed. Diff and replacement happen under one lock acquisition.
func (r *Registry) Update(candidate Snapshot) (added, removed []DeviceID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	added, removed = r.current.Diff(candidate)
	r.current = candidate
	return added, removed
}

// Read returns the current snapshot.
func (r *Registry) Read() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Contains reports whether id is currently present.
func (r *Registry) Contains(id DeviceID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.Contains(id)
}

// Len returns the number of present devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.Len()
}
