// Package sanitize finalizes outbound text: control characters are stripped,
// overlong output is truncated on a rune boundary with an explicit marker,
// and a disclaimer block is appended for risk-sensitive responses.
//
// Finalize is a fixed point: running it on an already-finalized output is a
// no-op, so double sanitation cannot stack markers or disclaimers.
package sanitize

import (
	"strings"
	"unicode"

	"github.com/pkozlov/marketguard/internal/content"
	"github.com/pkozlov/marketguard/internal/policy"
)

// TruncationMarker flags output that was cut at the length limit.
const TruncationMarker = "\n[output truncated]"

// disclaimerHeader opens every disclaimer block; its presence marks an
// already-finalized output.
const disclaimerHeader = "\n\n---\nDisclaimer:"

// disclaimers by risk level. Factual numeric content above the block is
// never altered.
var disclaimers = map[content.Risk]string{
	content.RiskMedium: disclaimerHeader + " this data is for informational purposes only and is not investment advice. " +
		"Market conditions can change rapidly. Consult a licensed financial advisor before making investment decisions.",
	content.RiskHigh: disclaimerHeader + " this involves high-risk financial concepts. " +
		"Past performance does not guarantee future results. Consult a licensed financial advisor before making any investment decision.",
}

// Sanitizer applies the response filtering policy.
type Sanitizer struct {
	maxLength      int
	addDisclaimers bool
}

// New builds a Sanitizer from the response filtering policy.
func New(cfg policy.ResponseFiltering) *Sanitizer {
	return &Sanitizer{
		maxLength:      cfg.MaxResponseLength,
		addDisclaimers: cfg.AddDisclaimers,
	}
}

// Finalize strips control characters, truncates to the configured length,
// and appends the disclaimer for risk >= Medium.
func (s *Sanitizer) Finalize(raw string, risk content.Risk) string {
	out := stripControl(raw)

	disclaimer := ""
	if s.addDisclaimers && risk != content.RiskLow {
		if d, ok := disclaimers[risk]; ok && !strings.Contains(out, disclaimerHeader) {
			disclaimer = d
		}
	}

	limit := s.maxLength
	if limit > 0 && len(out)+len(disclaimer) > limit {
		if !strings.HasSuffix(out, TruncationMarker) {
			cut := limit - len(disclaimer) - len(TruncationMarker)
			if cut < 0 {
				cut = 0
			}
			out = truncateRunes(out, cut) + TruncationMarker
		}
	}

	return out + disclaimer
}

// truncateRunes cuts s to at most max bytes without splitting a multibyte
// rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// stripControl removes control characters except newline and tab.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
