// Package ratelimit tracks per-session call volume in three rolling windows
// (minute/hour/day) plus minimum inter-call spacing.
//
// Windows are rolling timestamp lists, monotonically pruned on each check.
// Checks are deterministic: given identical timestamp history and config the
// outcome is reproducible, so the caller always passes in the clock.
//
// A Tracker is not safe for concurrent use; the session registry serializes
// access per session id.
package ratelimit

import (
	"time"

	"github.com/pkozlov/marketguard/internal/policy"
)

// Window names the quota window a blocked check tripped on.
type Window string

const (
	WindowMinute   Window = "minute"
	WindowHour     Window = "hour"
	WindowDay      Window = "day"
	WindowInterval Window = "interval" // burst spacing, not a quota window
)

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Window     Window
	Current    int
	Limit      int
	RetryAfter time.Duration
}

// Counts is a read-only snapshot of the rolling window counters.
type Counts struct {
	Minute   int       `json:"calls_last_minute"`
	Hour     int       `json:"calls_last_hour"`
	Day      int       `json:"calls_last_day"`
	LastCall time.Time `json:"last_call"`
}

type window struct {
	name   Window
	length time.Duration
	limit  int
	calls  []time.Time
}

// Tracker holds the rolling windows for one session.
type Tracker struct {
	windows  [3]window
	interval time.Duration
	lastCall time.Time
}

// NewTracker creates a Tracker from the rate limiting policy.
func NewTracker(cfg policy.RateLimiting) *Tracker {
	return &Tracker{
		windows: [3]window{
			{name: WindowMinute, length: time.Minute, limit: cfg.MaxCallsPerMinute},
			{name: WindowHour, length: time.Hour, limit: cfg.MaxCallsPerHour},
			{name: WindowDay, length: 24 * time.Hour, limit: cfg.MaxCallsPerDay},
		},
		interval: time.Duration(cfg.MinRequestIntervalSeconds) * time.Second,
	}
}

// Check prunes expired entries, then either blocks (quota or burst spacing)
// or records the call in all three windows and allows it.
//
// When a quota window is violated, RetryAfter is the wait until the oldest
// entry in the tightest violated window leaves it.
func (t *Tracker) Check(now time.Time) Result {
	t.prune(now)

	// Windows are ordered tightest first, so the first violation wins.
	for i := range t.windows {
		w := &t.windows[i]
		if len(w.calls) >= w.limit {
			oldest := w.calls[0]
			return Result{
				Window:     w.name,
				Current:    len(w.calls),
				Limit:      w.limit,
				RetryAfter: oldest.Add(w.length).Sub(now),
			}
		}
	}

	if t.interval > 0 && !t.lastCall.IsZero() {
		if since := now.Sub(t.lastCall); since < t.interval {
			return Result{
				Window:     WindowInterval,
				RetryAfter: t.interval - since,
			}
		}
	}

	for i := range t.windows {
		t.windows[i].calls = append(t.windows[i].calls, now)
	}
	t.lastCall = now
	return Result{Allowed: true}
}

// Snapshot returns the current window counters after pruning. Read-only with
// respect to recorded calls.
func (t *Tracker) Snapshot(now time.Time) Counts {
	t.prune(now)
	return Counts{
		Minute:   len(t.windows[0].calls),
		Hour:     len(t.windows[1].calls),
		Day:      len(t.windows[2].calls),
		LastCall: t.lastCall,
	}
}

func (t *Tracker) prune(now time.Time) {
	for i := range t.windows {
		w := &t.windows[i]
		cutoff := now.Add(-w.length)
		keep := 0
		for keep < len(w.calls) && !w.calls[keep].After(cutoff) {
			keep++
		}
		if keep > 0 {
			w.calls = w.calls[keep:]
		}
	}
}
