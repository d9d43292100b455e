// Package pacer pads a run up to a minimum wall-clock duration.
//
// Consumers of the tool expect every run to take at least a configured amount
// of time, even when the input is tiny or already cached. Elapsed time is only
// ever stretched, never shortened.
package pacer

import "time"

// Clock supplies the current time and blocking sleeps.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the real wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep implements Clock.
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }

// EnforceMinimumDuration blocks until at least min has elapsed since start,
// according to clock. It returns how long it slept, which is zero when the
// floor had already been reached or min is not positive.
func EnforceMinimumDuration(clock Clock, start time.Time, min time.Duration) time.Duration {
	remaining := min - clock.Now().Sub(start)
	if remaining <= 0 {
		return 0
	}
	clock.Sleep(remaining)
	return remaining
}

// Seconds converts a floor expressed in (possibly fractional) seconds.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
