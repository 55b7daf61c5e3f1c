package log

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeEvents(t *testing.T, events ...Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.alog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return path
}

func readAll(t *testing.T, path string, filter Filter) []Event {
	t.Helper()
	r, err := NewFilteredReader(path, filter)
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer r.Close()

	var out []Event
	for {
		e, err := r.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		out = append(out, e)
	}
}

func TestReaderFilters(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	path := writeEvents(t,
		Event{Timestamp: base, SessionID: "a", Component: ComponentProcess, Category: CategoryExec,
			Exec: &ExecEvent{Path: "adb", Outcome: "COMPLETED"}},
		Event{Timestamp: base.Add(time.Second), SessionID: "a", Component: ComponentMonitor, Category: CategoryPresence,
			DeviceID: "emulator-5554", Presence: &PresenceEvent{Action: PresenceAdded, State: "device"}},
		Event{Timestamp: base.Add(2 * time.Second), SessionID: "b", Component: ComponentMonitor, Category: CategoryPresence,
			DeviceID: "R58M123", Presence: &PresenceEvent{Action: PresenceRemoved}},
		Event{Timestamp: base.Add(3 * time.Second), SessionID: "b", Component: ComponentSession, Category: CategoryState,
			StateChange: &StateChangeEvent{Entity: StateEntityServer, OldState: "STARTING", NewState: "RUNNING"}},
	)

	presence := CategoryPresence
	session := ComponentSession
	start := base.Add(time.Second)
	end := base.Add(3 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"by session", Filter{SessionID: "a"}, 2},
		{"by category", Filter{Category: &presence}, 2},
		{"by component", Filter{Component: &session}, 1},
		{"by device", Filter{DeviceID: "R58M123"}, 1},
		{"by time window", Filter{TimeStart: &start, TimeEnd: &end}, 2},
		{"combined", Filter{SessionID: "b", Category: &presence}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := readAll(t, path, tt.filter)
			if len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.alog")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseNames(t *testing.T) {
	for c := ComponentProcess; c <= ComponentController; c++ {
		got, ok := ParseComponent(c.String())
		if !ok || got != c {
			t.Errorf("ParseComponent(%q) = %v, %v", c.String(), got, ok)
		}
	}
	for c := CategoryExec; c <= CategoryError; c++ {
		got, ok := ParseCategory(c.String())
		if !ok || got != c {
			t.Errorf("ParseCategory(%q) = %v, %v", c.String(), got, ok)
		}
	}
	if _, ok := ParseCategory("BOGUS"); ok {
		t.Error("ParseCategory accepted an unknown name")
	}
}

func TestReaderToleratesPartialTail(t *testing.T) {
	path := writeEvents(t,
		Event{Timestamp: time.Now(), DeviceID: "one", Presence: &PresenceEvent{Action: PresenceAdded}},
		Event{Timestamp: time.Now(), DeviceID: "two", Presence: &PresenceEvent{Action: PresenceAdded}},
	)

	// Chop the last few bytes off, as if the writer were mid-event.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)-3], 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	var got []string
	for e, err := range r.Events() {
		if err != nil {
			t.Fatalf("Events failed: %v", err)
		}
		got = append(got, e.DeviceID)
	}
	if len(got) != 1 || got[0] != "one" {
		t.Errorf("events: got %v, want [one]", got)
	}
	if !r.Truncated() {
		t.Error("Truncated should be true")
	}
}

func TestReaderEventsStopsEarly(t *testing.T) {
	path := writeEvents(t,
		Event{Timestamp: time.Now(), DeviceID: "a"},
		Event{Timestamp: time.Now(), DeviceID: "b"},
		Event{Timestamp: time.Now(), DeviceID: "c"},
	)
	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	for range r.Events() {
		break
	}
	next, err := r.Next()
	if err != nil || next.DeviceID != "b" {
		t.Errorf("Next after break: got %q, %v; want b", next.DeviceID, err)
	}
	if r.Truncated() {
		t.Error("Truncated should be false for a complete file")
	}
}
