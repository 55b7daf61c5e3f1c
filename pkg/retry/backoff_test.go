package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	t.Run("DefaultSequence", func(t *testing.T) {
		cfg := Config{}

		expected := []time.Duration{
			500 * time.Millisecond,
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
			16 * time.Second,
			30 * time.Second,
			30 * time.Second, // Should stay at max
		}

		for i, exp := range expected {
			if got := cfg.Base(i); got != exp {
				t.Errorf("Attempt %d: base = %v, want %v", i, got, exp)
			}
		}
	})

	t.Run("NoJitter", func(t *testing.T) {
		b := NewBackoffWithConfig(Config{Initial: 10 * time.Millisecond, Max: 25 * time.Millisecond, Jitter: -1})
		for i, want := range []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 25 * time.Millisecond} {
			if got := b.Next(); got != want {
				t.Errorf("Next %d = %v, want %v", i, got, want)
			}
		}
	})

	t.Run("JitterBounds", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			d := NewBackoff().Next()
			lo := time.Duration(float64(InitialBackoff) * (1 - JitterFactor))
			hi := time.Duration(float64(InitialBackoff) * (1 + JitterFactor))
			if d < lo || d > hi {
				t.Fatalf("first delay %v outside [%v, %v]", d, lo, hi)
			}
		}
	})

	t.Run("JitterNeverExceedsMax", func(t *testing.T) {
		b := NewBackoffWithConfig(Config{Initial: time.Second, Max: time.Second, Jitter: 1})
		for i := 0; i < 100; i++ {
			if d := b.Next(); d > time.Second {
				t.Fatalf("delay %v exceeds max", d)
			}
		}
	})

	t.Run("Reset", func(t *testing.T) {
		b := NewBackoffWithConfig(Config{Jitter: -1})
		for i := 0; i < 5; i++ {
			b.Next()
		}
		if b.Attempts() != 5 {
			t.Errorf("Attempts = %d, want 5", b.Attempts())
		}

		b.Reset()

		if b.Attempts() != 0 {
			t.Errorf("Attempts after reset = %d, want 0", b.Attempts())
		}
		if d := b.Next(); d != InitialBackoff {
			t.Errorf("Next after reset = %v, want %v", d, InitialBackoff)
		}
	})
}

func TestSleep(t *testing.T) {
	t.Run("Elapses", func(t *testing.T) {
		if err := Sleep(context.Background(), 5*time.Millisecond); err != nil {
			t.Errorf("Sleep returned %v", err)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		start := time.Now()
		err := Sleep(ctx, time.Hour)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Sleep error = %v, want context.Canceled", err)
		}
		if time.Since(start) > time.Second {
			t.Error("Sleep did not return promptly on cancellation")
		}
	})
}
