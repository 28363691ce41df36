package types

import "time"

// Clock abstracts time operations so the acquire poll loop and the in-memory
// store can be driven deterministically in tests.
type Clock interface {
	// Now returns the current local time.
	Now() time.Time

	// Since returns the time elapsed since t (equivalent to Now().Sub(t)).
	Since(t time.Time) time.Duration

	// After waits for the duration to elapse and then sends the current time
	// on the returned channel.
	After(d time.Duration) <-chan time.Time

	// Sleep pauses the current goroutine for at least the duration d.
	// A negative or zero duration causes Sleep to return immediately.
	Sleep(d time.Duration)
}

// standardClock implements Clock using the time package.
type standardClock struct{}

// NewStandardClock returns a Clock backed by the time package.
func NewStandardClock() Clock {
	return standardClock{}
}

func (standardClock) Now() time.Time                         { return time.Now() }
func (standardClock) Since(t time.Time) time.Duration        { return time.Since(t) }
func (standardClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (standardClock) Sleep(d time.Duration)                  { time.Sleep(d) }
