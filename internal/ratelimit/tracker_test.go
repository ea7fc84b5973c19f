package ratelimit

import (
	"testing"
	"time"

	"github.com/pkozlov/marketguard/internal/policy"
)

var base = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func newTracker() *Tracker {
	return NewTracker(policy.DefaultConfig().RateLimiting)
}

func TestMinuteQuotaBlocksSixteenthCall(t *testing.T) {
	tr := newTracker()

	// 15 calls spaced 2s apart, all inside one minute window.
	for i := 0; i < 15; i++ {
		res := tr.Check(base.Add(time.Duration(i) * 2 * time.Second))
		if !res.Allowed {
			t.Fatalf("call %d: expected Allowed, got blocked on %s", i+1, res.Window)
		}
	}

	res := tr.Check(base.Add(30 * time.Second))
	if res.Allowed {
		t.Fatal("16th call within the minute should be blocked")
	}
	if res.Window != WindowMinute {
		t.Errorf("blocked on %s, want %s", res.Window, WindowMinute)
	}
	if res.RetryAfter <= 0 {
		t.Errorf("retry-after must be positive, got %s", res.RetryAfter)
	}
	// Oldest entry at base expires at base+60s; check happened at base+30s.
	if res.RetryAfter != 30*time.Second {
		t.Errorf("retry-after = %s, want 30s", res.RetryAfter)
	}
}

func TestWindowBoundaryRestoresAllowed(t *testing.T) {
	tr := newTracker()
	for i := 0; i < 15; i++ {
		tr.Check(base.Add(time.Duration(i) * 2 * time.Second))
	}
	if res := tr.Check(base.Add(30 * time.Second)); res.Allowed {
		t.Fatal("expected block while window is full")
	}

	// Past the minute boundary of the oldest entry the quota frees up.
	res := tr.Check(base.Add(61 * time.Second))
	if !res.Allowed {
		t.Fatalf("expected Allowed after window boundary, blocked on %s", res.Window)
	}
}

func TestBurstSpacingBlocksRapidCalls(t *testing.T) {
	tr := newTracker()
	if res := tr.Check(base); !res.Allowed {
		t.Fatal("first call should be allowed")
	}
	res := tr.Check(base.Add(300 * time.Millisecond))
	if res.Allowed {
		t.Fatal("call within min interval should be blocked")
	}
	if res.Window != WindowInterval {
		t.Errorf("blocked on %s, want %s", res.Window, WindowInterval)
	}
	if res.RetryAfter != 700*time.Millisecond {
		t.Errorf("retry-after = %s, want 700ms", res.RetryAfter)
	}

	// Burst rejections are not recorded: the next properly spaced call passes.
	if res := tr.Check(base.Add(time.Second)); !res.Allowed {
		t.Errorf("expected Allowed after spacing, blocked on %s", res.Window)
	}
}

func TestHourQuota(t *testing.T) {
	cfg := policy.RateLimiting{
		MaxCallsPerMinute:         1000, // out of the way
		MaxCallsPerHour:           3,
		MaxCallsPerDay:            3000,
		MinRequestIntervalSeconds: 0,
	}
	// Config like this fails policy validation, but the tracker itself only
	// cares about the numbers.
	tr := NewTracker(cfg)

	for i := 0; i < 3; i++ {
		if res := tr.Check(base.Add(time.Duration(i) * 10 * time.Minute)); !res.Allowed {
			t.Fatalf("call %d: expected Allowed", i+1)
		}
	}
	res := tr.Check(base.Add(35 * time.Minute))
	if res.Allowed || res.Window != WindowHour {
		t.Fatalf("expected hour-window block, got %+v", res)
	}
	// Oldest at base expires at base+1h.
	if res.RetryAfter != 25*time.Minute {
		t.Errorf("retry-after = %s, want 25m", res.RetryAfter)
	}
}

func TestTightestViolatedWindowWins(t *testing.T) {
	cfg := policy.RateLimiting{
		MaxCallsPerMinute:         2,
		MaxCallsPerHour:           2,
		MaxCallsPerDay:            2,
		MinRequestIntervalSeconds: 0,
	}
	tr := NewTracker(cfg)
	tr.Check(base)
	tr.Check(base.Add(time.Second))

	// All three windows are at quota; the minute window is reported.
	res := tr.Check(base.Add(2 * time.Second))
	if res.Allowed || res.Window != WindowMinute {
		t.Fatalf("expected minute-window block, got %+v", res)
	}
}

func TestSnapshotCountsPerWindow(t *testing.T) {
	tr := newTracker()
	tr.Check(base)
	tr.Check(base.Add(2 * time.Second))
	tr.Check(base.Add(4 * time.Second))

	// Two minutes later the minute window has drained, hour and day have not.
	c := tr.Snapshot(base.Add(2 * time.Minute))
	if c.Minute != 0 {
		t.Errorf("minute count = %d, want 0", c.Minute)
	}
	if c.Hour != 3 || c.Day != 3 {
		t.Errorf("hour/day = %d/%d, want 3/3", c.Hour, c.Day)
	}
	if !c.LastCall.Equal(base.Add(4 * time.Second)) {
		t.Errorf("last call = %s", c.LastCall)
	}
}

func TestDeterministicOutcome(t *testing.T) {
	run := func() Result {
		tr := newTracker()
		for i := 0; i < 15; i++ {
			tr.Check(base.Add(time.Duration(i) * 2 * time.Second))
		}
		return tr.Check(base.Add(40 * time.Second))
	}
	a, b := run(), run()
	if a != b {
		t.Fatalf("identical histories produced different results: %+v vs %+v", a, b)
	}
}
