package services

import "time"

// Clock supplies the current time. Injected so window-boundary behavior is
// testable without real waiting.
type Clock interface {
	Now() time.Time
}

// Sleeper blocks the calling goroutine for the given duration. The friction
// delay must only ever stall the request being processed, never a shared
// resource, so the production implementation is a plain time.Sleep.
type Sleeper interface {
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by the wall clock.
func SystemClock() Clock { return systemClock{} }

type stdSleeper struct{}

func (stdSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// StdSleeper returns a Sleeper backed by time.Sleep.
func StdSleeper() Sleeper { return stdSleeper{} }
