package guard

import (
	"time"

	"github.com/pkozlov/marketguard/internal/content"
)

// Outcome is the per-request guard verdict.
type Outcome string

const (
	Allowed            Outcome = "allowed"
	Blocked            Outcome = "blocked"
	AllowedWithWarning Outcome = "allowed_with_warning"
)

// Reason codes for rejected or annotated requests.
const (
	ReasonInvalidSymbol     = "invalid_symbol"
	ReasonTooManySymbols    = "too_many_symbols"
	ReasonInvalidArgument   = "invalid_argument"
	ReasonRateLimited       = "rate_limited"
	ReasonContentBlocked    = "content_blocked"
	ReasonAdviceRequest     = "advice_request"
	ReasonSecurityViolation = "security_violation"
	ReasonExcessiveRequest  = "excessive_request"
	ReasonUpstreamError     = "upstream_error"
)

// Violation categories as recorded in session history and the audit log.
const (
	CategoryContent   = "content"
	CategoryRate      = "rate"
	CategorySymbol    = "symbol"
	CategoryInjection = "injection"
)

// Decision is the immutable outcome of one request through the pipeline.
// Consumed by the caller to decide whether to proceed.
type Decision struct {
	Outcome    Outcome       `json:"outcome"`
	Reason     string        `json:"reason,omitempty"`
	Detail     string        `json:"detail,omitempty"`
	Risk       content.Risk  `json:"risk_level"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Payload    string        `json:"payload,omitempty"`
	Warnings   []string      `json:"warnings,omitempty"`
	Symbols    []string      `json:"symbols,omitempty"` // accepted subset forwarded to dispatch
}

// Proceed reports whether the caller may use the payload.
func (d Decision) Proceed() bool {
	return d.Outcome != Blocked
}

// Request is one inbound tool invocation or chat turn.
type Request struct {
	SessionID string
	Tool      string
	Query     string
	Symbols   []string
	Period    string
	Interval  string
	Metric    string
}
