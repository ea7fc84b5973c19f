// Package symbol validates ticker symbols and tool arguments against the
// configured format rule and blocklist. Validation is pure: no I/O, no
// provider lookups.
package symbol

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkozlov/marketguard/internal/policy"
)

// symbolPattern matches 1-5 uppercase alphanumerics with an optional single
// "." or "-" share-class suffix (BRK.B, BF-B).
var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{1,5}([.\-][A-Z]{1,2})?$`)

// Reason classifies why a symbol was rejected.
type Reason string

const (
	ReasonEmpty   Reason = "empty"
	ReasonFormat  Reason = "invalid_format"
	ReasonBlocked Reason = "blocked"
	ReasonTooMany Reason = "too_many_symbols"
)

// Rejection records one rejected symbol and why.
type Rejection struct {
	Symbol string `json:"symbol"`
	Reason Reason `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// Validator checks ticker symbols against the configured policy.
type Validator struct {
	blocked       map[string]bool
	maxPerRequest int
}

// New builds a Validator from the symbol validation policy.
func New(cfg policy.SymbolValidation) *Validator {
	blocked := make(map[string]bool, len(cfg.BlockedSymbols))
	for _, s := range cfg.BlockedSymbols {
		blocked[strings.ToUpper(strings.TrimSpace(s))] = true
	}
	return &Validator{
		blocked:       blocked,
		maxPerRequest: cfg.MaxSymbolsPerRequest,
	}
}

// Normalize trims whitespace and upcases a raw symbol.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidateOne validates a single symbol. Returns the normalized symbol on
// success or a Rejection on failure.
func (v *Validator) ValidateOne(raw string) (string, *Rejection) {
	sym := Normalize(raw)
	if sym == "" {
		return "", &Rejection{Symbol: raw, Reason: ReasonEmpty, Detail: "symbol cannot be empty"}
	}
	if !symbolPattern.MatchString(sym) {
		return "", &Rejection{
			Symbol: sym,
			Reason: ReasonFormat,
			Detail: "must be 1-5 uppercase alphanumerics with optional .X or -X class suffix",
		}
	}
	if v.blocked[sym] {
		return "", &Rejection{Symbol: sym, Reason: ReasonBlocked, Detail: "symbol is blocklisted"}
	}
	return sym, nil
}

// Validate validates a list of symbols. Symbols beyond the per-request cap
// are rejected with ReasonTooMany, never silently truncated. Empty input
// yields an empty accepted list, not an error.
func (v *Validator) Validate(symbols []string) (accepted []string, rejected []Rejection) {
	for i, raw := range symbols {
		if i >= v.maxPerRequest {
			rejected = append(rejected, Rejection{
				Symbol: Normalize(raw),
				Reason: ReasonTooMany,
				Detail: fmt.Sprintf("request exceeds the %d-symbol limit", v.maxPerRequest),
			})
			continue
		}
		sym, rej := v.ValidateOne(raw)
		if rej != nil {
			rejected = append(rejected, *rej)
			continue
		}
		accepted = append(accepted, sym)
	}
	return accepted, rejected
}

// MaxPerRequest returns the configured per-request symbol cap.
func (v *Validator) MaxPerRequest() int {
	return v.maxPerRequest
}
