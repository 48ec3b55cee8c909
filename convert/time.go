package convert

import "time"

// TimeProvider abstracts the clock so retry sleeps and progress timing can
// be tested deterministically.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	Sleep(d time.Duration)
}

// DefaultTimeProvider uses the standard library time functions.
type DefaultTimeProvider struct{}

// Now returns the current time.
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// Since returns the duration since t.
func (DefaultTimeProvider) Since(t time.Time) time.Duration { return time.Since(t) }

// Sleep blocks for d.
func (DefaultTimeProvider) Sleep(d time.Duration) { time.Sleep(d) }
