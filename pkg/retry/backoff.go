// Package retry computes delays for re-running failed bridge operations.
package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Defaults for failed enumeration passes. A bridge server that is still
// coming up usually answers within a second or two, so the first retries
// are quick; a missing binary keeps failing and settles at MaxBackoff.
const (
	InitialBackoff    = 500 * time.Millisecond
	MaxBackoff        = 30 * time.Second
	BackoffMultiplier = 2.0
	JitterFactor      = 0.25
)

// Config describes an exponential backoff schedule. Zero fields select
// the package defaults; a negative Jitter disables jitter.
type Config struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

func (c Config) withDefaults() Config {
	if c.Initial <= 0 {
		c.Initial = InitialBackoff
	}
	if c.Max <= 0 {
		c.Max = MaxBackoff
	}
	if c.Max < c.Initial {
		c.Max = c.Initial
	}
	if c.Multiplier <= 1 {
		c.Multiplier = BackoffMultiplier
	}
	switch {
	case c.Jitter < 0:
		c.Jitter = 0
	case c.Jitter == 0:
		c.Jitter = JitterFactor
	case c.Jitter > 1:
		c.Jitter = 1
	}
	return c
}

// Base returns the un-jittered delay before retry number attempt
// (zero-based).
func (c Config) Base(attempt int) time.Duration {
	c = c.withDefaults()
	if attempt <= 0 {
		return c.Initial
	}
	d := float64(c.Initial) * math.Pow(c.Multiplier, float64(attempt))
	if d >= float64(c.Max) || math.IsInf(d, 0) {
		return c.Max
	}
	return time.Duration(d)
}

// Backoff walks a Config schedule. It is safe for concurrent use.
type Backoff struct {
	mu       sync.Mutex
	config   Config
	attempts int
}

// NewBackoff returns a Backoff with the default schedule.
func NewBackoff() *Backoff {
	return NewBackoffWithConfig(Config{})
}

// NewBackoffWithConfig returns a Backoff following cfg.
func NewBackoffWithConfig(cfg Config) *Backoff {
	return &Backoff{config: cfg.withDefaults()}
}

// Next returns the delay before the next attempt and advances the
// schedule. The delay is the base delay spread by up to Jitter in either
// direction, and never exceeds Max.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	base := b.config.Base(b.attempts)
	b.attempts++

	if b.config.Jitter == 0 {
		return base
	}
	spread := b.config.Jitter * (2*rand.Float64() - 1)
	return min(time.Duration(float64(base)*(1+spread)), b.config.Max)
}

// Reset returns to the start of the schedule after a successful attempt.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts = 0
}

// Attempts returns the number of delays handed out since the last Reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// Sleep waits for d or until ctx is done, whichever comes first.
// It returns ctx.Err() if the context ended the wait.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
