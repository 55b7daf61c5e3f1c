package log

import (
	"bytes"
	"testing"
	"time"
)

func TestEncodeDecodeKeepsNanoseconds(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 123456789, time.UTC)
	data, err := EncodeEvent(Event{Timestamp: ts, Category: CategoryError,
		Error: &ErrorEventData{Component: ComponentSession, Message: "boom", Context: "start-server"}})
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("Timestamp: got %v, want %v", got.Timestamp, ts)
	}
	if got.Error == nil || got.Error.Context != "start-server" {
		t.Errorf("Error payload: got %+v", got.Error)
	}
}

func TestEncodingIsDeterministic(t *testing.T) {
	e := Event{Timestamp: time.Unix(0, 0).UTC(), SessionID: "s", DeviceID: "d",
		Presence: &PresenceEvent{Action: PresenceAdded, State: "device"}}

	a, err := EncodeEvent(e)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	b, _ := EncodeEvent(e)
	if !bytes.Equal(a, b) {
		t.Error("two encodings of the same event differ")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := DecodeEvent([]byte{0xff, 0x00}); err == nil {
		t.Error("expected error decoding garbage")
	}
}
