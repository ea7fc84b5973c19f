// Package session is the process-wide registry of per-session guard state:
// rolling rate windows, violation history, and last decision reasons, keyed
// by an opaque session id.
//
// Access to one session's mutable state is serialized through the session
// mutex; distinct sessions share nothing and proceed in parallel. Idle
// sessions are evicted after the configured TTL to bound memory.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkozlov/marketguard/internal/policy"
	"github.com/pkozlov/marketguard/internal/ratelimit"
)

// historyCap bounds the per-session violation history. The audit log keeps
// the full record; the in-memory tail serves the status query.
const historyCap = 50

// Violation is one logged policy rejection for a session.
type Violation struct {
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	Reason    string    `json:"reason"`
	Input     string    `json:"input,omitempty"`
}

// Session holds the mutable guard state for one session id.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu             sync.Mutex
	tracker        *ratelimit.Tracker
	lastSeen       time.Time
	violations     []Violation
	violationCount int
	lastReason     string
}

// CheckRate runs a rate limit check under the session lock.
func (s *Session) CheckRate(now time.Time) ratelimit.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
	return s.tracker.Check(now)
}

// RecordViolation appends a violation and bumps the cumulative count.
func (s *Session) RecordViolation(v Violation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.violationCount++
	s.lastReason = v.Reason
	s.violations = append(s.violations, v)
	if len(s.violations) > historyCap {
		s.violations = s.violations[len(s.violations)-historyCap:]
	}
}

// RecordOutcome notes the reason code of the latest decision.
func (s *Session) RecordOutcome(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReason = reason
}

// Stats is a read-only snapshot of session counters for the status query.
type Stats struct {
	SessionID      string           `json:"session_id"`
	CreatedAt      time.Time        `json:"created_at"`
	Rate           ratelimit.Counts `json:"rate"`
	ViolationCount int              `json:"violation_count"`
	LastReason     string           `json:"last_reason,omitempty"`
	Violations     []Violation      `json:"violations,omitempty"`
}

// Stats snapshots the session without side effects beyond window pruning.
func (s *Session) Stats(now time.Time) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	violations := make([]Violation, len(s.violations))
	copy(violations, s.violations)
	return Stats{
		SessionID:      s.ID,
		CreatedAt:      s.CreatedAt,
		Rate:           s.tracker.Snapshot(now),
		ViolationCount: s.violationCount,
		LastReason:     s.lastReason,
		Violations:     violations,
	}
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Registry is the process-wide session store.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	rateCfg  policy.RateLimiting
	ttl      time.Duration
}

// NewRegistry creates an empty registry with the given policy.
func NewRegistry(cfg *policy.Config) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		rateCfg:  cfg.RateLimiting,
		ttl:      time.Duration(cfg.Sessions.IdleTTLMinutes) * time.Minute,
	}
}

// Get returns the session for id, creating it on first interaction.
func (r *Registry) Get(id string, now time.Time) *Session {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s = &Session{
		ID:        id,
		CreatedAt: now,
		tracker:   ratelimit.NewTracker(r.rateCfg),
		lastSeen:  now,
	}
	r.sessions[id] = s
	return s
}

// Lookup returns the session for id without creating it.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle longer than the TTL and returns how many were
// removed.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, s := range r.sessions {
		if s.idleSince(now) >= r.ttl {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Run sweeps idle sessions periodically. Blocks until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	interval := r.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

// NewID generates an opaque session id.
func NewID() string {
	return "sess-" + uuid.NewString()
}
