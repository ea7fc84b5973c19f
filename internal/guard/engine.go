// Package guard composes symbol validation, rate limiting, content
// classification, and response sanitation into one per-request decision.
//
// Each request walks the pipeline Received → Validated → RateChecked →
// ContentChecked → Dispatched → Sanitized → Delivered; the first failing
// check short-circuits to a terminal rejection. Every rejection except an
// upstream failure writes a violation record and bumps the session's
// violation count.
package guard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pkozlov/marketguard/internal/audit"
	"github.com/pkozlov/marketguard/internal/content"
	"github.com/pkozlov/marketguard/internal/policy"
	"github.com/pkozlov/marketguard/internal/ratelimit"
	"github.com/pkozlov/marketguard/internal/sanitize"
	"github.com/pkozlov/marketguard/internal/session"
	"github.com/pkozlov/marketguard/internal/symbol"
)

// DefaultSession is used when the caller supplies no session id.
const DefaultSession = "default"

// Dispatch hands the validated request to the external data layer.
// It is the sole step with an external side effect; failures are reported
// as upstream errors, never as guardrail violations.
type Dispatch func(ctx context.Context, req Request, symbols []string) (string, error)

// snapshot bundles one immutable policy view with the matchers compiled
// from it. Swapped atomically on hot-reload; every request sees exactly one
// snapshot end to end.
type snapshot struct {
	cfg       *policy.Config
	hash      string
	validator *symbol.Validator
	filter    *content.Filter
	sanitizer *sanitize.Sanitizer
}

// Engine is the guardrails orchestrator.
type Engine struct {
	snap     atomic.Pointer[snapshot]
	sessions *session.Registry
	auditLog *audit.Log // optional
	log      zerolog.Logger
	now      func() time.Time
}

// New builds an Engine from a validated policy. The audit log may be nil.
func New(cfg *policy.Config, hash string, sessions *session.Registry, auditLog *audit.Log, logger zerolog.Logger) (*Engine, error) {
	e := &Engine{
		sessions: sessions,
		auditLog: auditLog,
		log:      logger,
		now:      time.Now,
	}
	if err := e.Swap(cfg, hash); err != nil {
		return nil, err
	}
	return e, nil
}

// Swap replaces the active policy snapshot. Used at startup and by the
// policy file watcher; in-flight requests keep the snapshot they started
// with.
func (e *Engine) Swap(cfg *policy.Config, hash string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	filter, err := content.New(cfg.ContentFiltering, cfg.Security.MaxInputLength)
	if err != nil {
		return err
	}
	e.snap.Store(&snapshot{
		cfg:       cfg,
		hash:      hash,
		validator: symbol.New(cfg.SymbolValidation),
		filter:    filter,
		sanitizer: sanitize.New(cfg.ResponseFiltering),
	})
	e.log.Info().Str("policy_hash", hash).Msg("policy snapshot active")
	return nil
}

// PolicyHash returns the hash of the active policy snapshot.
func (e *Engine) PolicyHash() string {
	return e.snap.Load().hash
}

// Stats returns the status snapshot for a session, if it exists.
func (e *Engine) Stats(sessionID string) (session.Stats, bool) {
	s, ok := e.sessions.Lookup(sessionID)
	if !ok {
		return session.Stats{}, false
	}
	return s.Stats(e.now()), true
}

// Evaluate runs one request through the full pipeline. dispatch is invoked
// only after every check passes; its result is sanitized before delivery.
func (e *Engine) Evaluate(ctx context.Context, req Request, dispatch Dispatch) Decision {
	snap := e.snap.Load()
	now := e.now()

	if req.SessionID == "" {
		req.SessionID = DefaultSession
	}
	sess := e.sessions.Get(req.SessionID, now)

	// Validated
	symbols, d := e.checkSymbols(snap, sess, req, now)
	if d != nil {
		return *d
	}
	var warnings []string
	if len(req.Symbols) > len(symbols) {
		warnings = append(warnings, fmt.Sprintf("proceeding with %d of %d symbols", len(symbols), len(req.Symbols)))
	}

	if d := e.checkArgs(sess, req, now); d != nil {
		return *d
	}

	// RateChecked
	if res := sess.CheckRate(now); !res.Allowed {
		detail := "requests arriving too quickly"
		if res.Window != ratelimit.WindowInterval {
			detail = fmt.Sprintf("rate limit: %d/%d calls in %s window", res.Current, res.Limit, res.Window)
		}
		d := Decision{
			Outcome:    Blocked,
			Reason:     ReasonRateLimited,
			Detail:     detail,
			Risk:       content.RiskLow,
			RetryAfter: res.RetryAfter,
		}
		e.recordViolation(sess, req, CategoryRate, d, now)
		return d
	}

	// ContentChecked
	assessment := snap.filter.Classify(req.Query)
	if assessment.Blocked {
		d := Decision{
			Outcome: Blocked,
			Reason:  blockReason(assessment.Category),
			Detail:  assessment.Detail,
			Risk:    assessment.Risk,
		}
		category := CategoryContent
		if assessment.Category == content.CategoryInjection {
			category = CategoryInjection
		}
		e.recordViolation(sess, req, category, d, now)
		return d
	}
	if assessment.Risk != content.RiskLow {
		warnings = append(warnings, "query touches high-risk financial concepts")
	}

	// Dispatched: the only step with an external side effect, bounded by the
	// configured timeout. Failures here are not guardrail violations.
	var payload string
	if dispatch != nil {
		timeout := time.Duration(snap.cfg.Security.TimeoutSeconds) * time.Second
		dctx, cancel := context.WithTimeout(ctx, timeout)
		out, err := dispatch(dctx, req, symbols)
		cancel()
		if err != nil {
			sess.RecordOutcome(ReasonUpstreamError)
			e.log.Warn().Str("session", req.SessionID).Str("tool", req.Tool).Err(err).Msg("upstream failure")
			detail := err.Error()
			if errors.Is(err, context.DeadlineExceeded) {
				detail = fmt.Sprintf("upstream timed out after %s", timeout)
			}
			return Decision{
				Outcome: Blocked,
				Reason:  ReasonUpstreamError,
				Detail:  detail,
				Risk:    assessment.Risk,
			}
		}
		payload = out
	}

	// Sanitized → Delivered
	payload = snap.sanitizer.Finalize(payload, assessment.Risk)
	outcome := Allowed
	if len(warnings) > 0 {
		outcome = AllowedWithWarning
	}
	sess.RecordOutcome(string(outcome))

	return Decision{
		Outcome:  outcome,
		Risk:     assessment.Risk,
		Payload:  payload,
		Warnings: warnings,
		Symbols:  symbols,
	}
}

// Check runs validation and classification without touching rate windows or
// dispatching. Dry-run surface for the guard_check tool.
func (e *Engine) Check(req Request) Decision {
	snap := e.snap.Load()

	if len(req.Symbols) > 0 {
		accepted, rejected := snap.validator.Validate(req.Symbols)
		if len(rejected) > 0 && !snap.cfg.SymbolValidation.PartialAccept {
			return symbolDecision(rejected)
		}
		if len(rejected) > 0 && len(accepted) == 0 {
			return symbolDecision(rejected)
		}
	}

	assessment := snap.filter.Classify(req.Query)
	if assessment.Blocked {
		return Decision{
			Outcome: Blocked,
			Reason:  blockReason(assessment.Category),
			Detail:  assessment.Detail,
			Risk:    assessment.Risk,
		}
	}
	return Decision{Outcome: Allowed, Risk: assessment.Risk}
}

func (e *Engine) checkSymbols(snap *snapshot, sess *session.Session, req Request, now time.Time) ([]string, *Decision) {
	if len(req.Symbols) == 0 {
		return nil, nil
	}
	accepted, rejected := snap.validator.Validate(req.Symbols)
	if len(rejected) == 0 {
		return accepted, nil
	}

	// Strict policy rejects the whole request on any bad symbol; partial
	// acceptance proceeds with the valid subset and a warning.
	if snap.cfg.SymbolValidation.PartialAccept && len(accepted) > 0 {
		return accepted, nil
	}

	d := symbolDecision(rejected)
	e.recordViolation(sess, req, CategorySymbol, d, now)
	return nil, &d
}

func (e *Engine) checkArgs(sess *session.Session, req Request, now time.Time) *Decision {
	var err error
	switch {
	case req.Period != "" || req.Interval != "":
		err = symbol.ValidatePeriodInterval(req.Period, req.Interval)
	case req.Metric != "":
		err = symbol.ValidateMetric(req.Metric)
	}
	if err == nil {
		return nil
	}
	d := Decision{
		Outcome: Blocked,
		Reason:  ReasonInvalidArgument,
		Detail:  err.Error(),
		Risk:    content.RiskLow,
	}
	e.recordViolation(sess, req, CategorySymbol, d, now)
	return &d
}

func (e *Engine) recordViolation(sess *session.Session, req Request, category string, d Decision, now time.Time) {
	offending := req.Query
	if category == CategorySymbol {
		offending = strings.Join(req.Symbols, ",")
	}

	sess.RecordViolation(session.Violation{
		Timestamp: now,
		Category:  category,
		Reason:    d.Reason,
		Input:     audit.RedactInput(offending),
	})

	e.log.Warn().
		Str("session", req.SessionID).
		Str("tool", req.Tool).
		Str("category", category).
		Str("reason", d.Reason).
		Msg("guardrail violation")

	if e.auditLog != nil {
		if err := e.auditLog.Record(audit.Entry{
			Timestamp: now.UTC().Format(time.RFC3339Nano),
			SessionID: req.SessionID,
			Category:  category,
			Reason:    d.Reason,
			Decision:  string(d.Outcome),
			Input:     offending,
			RiskLevel: string(d.Risk),
		}); err != nil {
			e.log.Error().Err(err).Msg("audit write failed")
		}
	}
}

func symbolDecision(rejected []symbol.Rejection) Decision {
	reason := ReasonInvalidSymbol
	for _, r := range rejected {
		if r.Reason == symbol.ReasonTooMany {
			reason = ReasonTooManySymbols
			break
		}
	}
	parts := make([]string, 0, len(rejected))
	for _, r := range rejected {
		parts = append(parts, fmt.Sprintf("%s (%s)", r.Symbol, r.Reason))
	}
	return Decision{
		Outcome: Blocked,
		Reason:  reason,
		Detail:  "rejected symbols: " + strings.Join(parts, ", "),
		Risk:    content.RiskLow,
	}
}

func blockReason(c content.Category) string {
	switch c {
	case content.CategoryInjection:
		return ReasonSecurityViolation
	case content.CategoryAdvice:
		return ReasonAdviceRequest
	case content.CategoryLength:
		return ReasonExcessiveRequest
	default:
		return ReasonContentBlocked
	}
}
