package realtime

import (
	"context"
	"time"
)

// Source is a push transport. Run blocks until ctx ends, delivering each
// payload and reporting connection state changes. Reconnecting is the
// source's job.
type Source interface {
	Run(ctx context.Context, deliver func([]byte), state func(connected bool)) error
}

// Backoff doubles the reconnect delay from Min up to Max.
type Backoff struct {
	Min time.Duration
	Max time.Duration

	current time.Duration
}

// Next returns the delay to wait before the next attempt.
func (b *Backoff) Next() time.Duration {
	if b.Min <= 0 {
		b.Min = 500 * time.Millisecond
	}
	if b.Max < b.Min {
		b.Max = b.Min
	}
	if b.current == 0 {
		b.current = b.Min
		return b.current
	}
	b.current *= 2
	if b.current > b.Max {
		b.current = b.Max
	}
	return b.current
}

// Reset starts the next failure sequence from Min again.
func (b *Backoff) Reset() {
	b.current = 0
}

// wait sleeps for d or until ctx ends, reporting whether to continue.
func wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
