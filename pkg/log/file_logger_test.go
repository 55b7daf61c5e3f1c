package log

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFileLoggerCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.alog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("log file was not created")
	}
}

func TestFileLoggerWritesCBOR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.alog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	code := 0
	event := Event{
		Timestamp: time.Now(),
		SessionID: "sess-123",
		Component: ComponentProcess,
		Category:  CategoryExec,
		Exec: &ExecEvent{
			Path:     "adb",
			Args:     []string{"devices"},
			Outcome:  "COMPLETED",
			ExitCode: &code,
			Duration: 12 * time.Millisecond,
		},
	}

	logger.Log(event)
	logger.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("log file is empty")
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if decoded.SessionID != event.SessionID {
		t.Errorf("SessionID: got %q, want %q", decoded.SessionID, event.SessionID)
	}
	if decoded.Exec == nil {
		t.Fatal("Exec is nil")
	}
	if decoded.Exec.ExitCode == nil || *decoded.Exec.ExitCode != 0 {
		t.Errorf("ExitCode: got %v, want 0", decoded.Exec.ExitCode)
	}
	if decoded.Exec.Duration != event.Exec.Duration {
		t.Errorf("Duration: got %v, want %v", decoded.Exec.Duration, event.Exec.Duration)
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.alog")

	for _, serial := range []string{"first", "second"} {
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger failed: %v", err)
		}
		logger.Log(Event{
			Timestamp: time.Now(),
			Component: ComponentMonitor,
			Category:  CategoryPresence,
			DeviceID:  serial,
			Presence:  &PresenceEvent{Action: PresenceAdded},
		})
		logger.Close()
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	var got []string
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		got = append(got, event.DeviceID)
	}
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("events: got %v, want [first second]", got)
	}
}

func TestFileLoggerCloseIsIdempotent(t *testing.T) {
	logger, err := NewFileLogger(filepath.Join(t.TempDir(), "test.alog"))
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	// Logging after close is ignored rather than panicking.
	logger.Log(Event{Timestamp: time.Now()})
}

func TestFileLoggerConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.alog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	const writers, perWriter = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				logger.Log(Event{
					Timestamp: time.Now(),
					Component: ComponentNotifier,
					Category:  CategoryHotplug,
					Hotplug:   &HotplugEvent{Source: "poll"},
				})
			}
		}()
	}
	wg.Wait()
	logger.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		if _, err := reader.Next(); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("Next failed after %d events: %v", count, err)
		}
		count++
	}
	if count != writers*perWriter {
		t.Errorf("event count: got %d, want %d", count, writers*perWriter)
	}
}

func TestFileLoggerCreatesParentAndStampsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captures", "nested", "test.alog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	stamp := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	logger.now = func() time.Time { return stamp }

	logger.Log(Event{Category: CategoryHotplug, Hotplug: &HotplugEvent{Source: "uevent"}})
	if got := logger.Written(); got != 1 {
		t.Errorf("Written: got %d, want 1", got)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	events := readAll(t, path, Filter{})
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if !events[0].Timestamp.Equal(stamp) {
		t.Errorf("Timestamp: got %v, want %v", events[0].Timestamp, stamp)
	}
}

func TestFileLoggerReportsWriteError(t *testing.T) {
	logger, err := NewFileLogger(filepath.Join(t.TempDir(), "test.alog"))
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	// Closing the file underneath the logger makes the next write fail.
	logger.file.Close()

	logger.Log(Event{Timestamp: time.Now()})
	logger.Log(Event{Timestamp: time.Now()})

	if logger.Err() == nil {
		t.Fatal("expected a write error")
	}
	if logger.Written() != 0 {
		t.Errorf("Written: got %d, want 0", logger.Written())
	}
	if err := logger.Close(); err == nil {
		t.Error("Close should report the write error")
	}
}
