package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// ErrUnsupportedVersion is returned by Load for files written by a newer
// format version.
var ErrUnsupportedVersion = errors.New("unsupported state file version")

// PresenceState is the persisted view of a controller session.
type PresenceState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// SessionID identifies the controller session that wrote the file.
	SessionID string `json:"session_id,omitempty"`

	// BridgeVersion is the version reported by the bridge server, if known.
	BridgeVersion string `json:"bridge_version,omitempty"`

	// Devices are the known devices, sorted by serial.
	Devices []DeviceRecord `json:"devices,omitempty"`
}

// DeviceRecord is one device seen by the session.
type DeviceRecord struct {
	// Serial is the device identifier.
	Serial string `json:"serial"`

	// State is the last state column reported by the tools.
	State string `json:"state,omitempty"`

	// Connected is true if the device was present when the state was saved.
	Connected bool `json:"connected"`

	// FirstSeen is when the device was first observed.
	FirstSeen time.Time `json:"first_seen"`

	// LastSeen is when the device was last observed present.
	LastSeen time.Time `json:"last_seen"`
}

// Device returns the record for serial.
func (s *PresenceState) Device(serial string) (DeviceRecord, bool) {
	for _, d := range s.Devices {
		if d.Serial == serial {
			return d, true
		}
	}
	return DeviceRecord{}, false
}

// Observe merges the devices present at now into the state. Devices that
// are no longer present keep their record with Connected cleared.
func (s *PresenceState) Observe(present map[string]string, now time.Time) {
	index := make(map[string]int, len(s.Devices))
	for i, d := range s.Devices {
		index[d.Serial] = i
		s.Devices[i].Connected = false
	}

	for serial, state := range present {
		if i, ok := index[serial]; ok {
			s.Devices[i].State = state
			s.Devices[i].Connected = true
			s.Devices[i].LastSeen = now
			continue
		}
		s.Devices = append(s.Devices, DeviceRecord{
			Serial:    serial,
			State:     state,
			Connected: true,
			FirstSeen: now,
			LastSeen:  now,
		})
	}

	sort.Slice(s.Devices, func(i, j int) bool {
		return s.Devices[i].Serial < s.Devices[j].Serial
	})
}

// StateStore manages persistence of presence state to a JSON file.
type StateStore struct {
	mu   sync.Mutex
	path string
}

// NewStateStore creates a new state store.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Path returns the state file path.
func (s *StateStore) Path() string {
	return s.path
}

// Save persists the state to disk.
func (s *StateStore) Save(state *PresenceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Ensure parent directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	state.SavedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	// Write through a temp file so readers never see a partial state.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load reads the state from disk.
// Returns nil, nil if the file doesn't exist (empty state).
func (s *StateStore) Load() (*PresenceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &PresenceState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if state.Version > StateVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, state.Version)
	}

	return state, nil
}

// Clear removes the state file.
func (s *StateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
