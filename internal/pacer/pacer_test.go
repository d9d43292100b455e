package pacer

import (
	"testing"
	"time"
)

// fakeClock advances only when Sleep is called or the test moves it.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func TestEnforceMinimumDuration(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		elapsed   time.Duration
		min       time.Duration
		wantSleep time.Duration
	}{
		{"fast run padded", 2 * time.Second, 10 * time.Second, 8 * time.Second},
		{"nothing elapsed", 0, 10 * time.Second, 10 * time.Second},
		{"exactly at floor", 10 * time.Second, 10 * time.Second, 0},
		{"slow run untouched", 15 * time.Second, 10 * time.Second, 0},
		{"zero floor", 0, 0, 0},
		{"negative floor", time.Second, -time.Second, 0},
		{"sub-second floor", 100 * time.Millisecond, 250 * time.Millisecond, 150 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{now: start.Add(tt.elapsed)}

			slept := EnforceMinimumDuration(clock, start, tt.min)

			if slept != tt.wantSleep {
				t.Errorf("slept: got %v, want %v", slept, tt.wantSleep)
			}
			if tt.wantSleep == 0 && len(clock.sleeps) != 0 {
				t.Errorf("expected no Sleep call, got %v", clock.sleeps)
			}
			if tt.min > 0 {
				if elapsed := clock.Now().Sub(start); elapsed < tt.min {
					t.Errorf("elapsed after pacing: got %v, want >= %v", elapsed, tt.min)
				}
			}
		})
	}
}

func TestEnforceMinimumDuration_SystemClock(t *testing.T) {
	start := time.Now()
	EnforceMinimumDuration(SystemClock{}, start, 30*time.Millisecond)
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("elapsed: got %v, want >= 30ms", elapsed)
	}
}

func TestSeconds(t *testing.T) {
	if got := Seconds(10); got != 10*time.Second {
		t.Errorf("Seconds(10): got %v", got)
	}
	if got := Seconds(0.5); got != 500*time.Millisecond {
		t.Errorf("Seconds(0.5): got %v", got)
	}
}
