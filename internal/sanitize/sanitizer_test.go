package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pkozlov/marketguard/internal/content"
	"github.com/pkozlov/marketguard/internal/policy"
)

func newSanitizer(maxLen int) *Sanitizer {
	cfg := policy.DefaultConfig().ResponseFiltering
	if maxLen > 0 {
		cfg.MaxResponseLength = maxLen
	}
	return New(cfg)
}

func TestLowRiskPassesThrough(t *testing.T) {
	s := newSanitizer(0)
	in := "AAPL: 189.84 (+1.2%)"
	if got := s.Finalize(in, content.RiskLow); got != in {
		t.Errorf("low-risk output altered: %q", got)
	}
}

func TestMediumRiskGetsDisclaimer(t *testing.T) {
	s := newSanitizer(0)
	got := s.Finalize("margin requirements are broker-specific", content.RiskMedium)
	if !strings.Contains(got, "not investment advice") {
		t.Errorf("missing disclaimer: %q", got)
	}
	if !strings.HasPrefix(got, "margin requirements") {
		t.Errorf("factual content altered: %q", got)
	}
}

func TestHighRiskGetsStrongerDisclaimer(t *testing.T) {
	s := newSanitizer(0)
	got := s.Finalize("options chains for TSLA", content.RiskHigh)
	if !strings.Contains(got, "high-risk financial concepts") {
		t.Errorf("missing high-risk disclaimer: %q", got)
	}
}

func TestFinalizeIsAFixedPoint(t *testing.T) {
	s := newSanitizer(600)
	inputs := []string{
		"short factual line",
		strings.Repeat("data ", 300), // forces truncation
		"ctrl\x00chars\x1bhere",
	}
	risks := []content.Risk{content.RiskLow, content.RiskMedium, content.RiskHigh}
	for _, in := range inputs {
		for _, r := range risks {
			once := s.Finalize(in, r)
			twice := s.Finalize(once, r)
			if once != twice {
				t.Errorf("not idempotent for risk %s:\n once: %q\ntwice: %q", r, once, twice)
			}
		}
	}
}

func TestTruncationIsMarkedExplicitly(t *testing.T) {
	s := newSanitizer(600)
	got := s.Finalize(strings.Repeat("x", 5000), content.RiskLow)
	if len(got) > 600 {
		t.Errorf("output length %d exceeds limit 600", len(got))
	}
	if !strings.HasSuffix(got, TruncationMarker) {
		t.Errorf("truncation not marked: %q", got)
	}
}

func TestTruncationRespectsRuneBoundaries(t *testing.T) {
	s := newSanitizer(602)
	got := s.Finalize(strings.Repeat("é", 1000), content.RiskLow)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a multibyte rune: %q", got)
	}
}

func TestControlCharactersStripped(t *testing.T) {
	s := newSanitizer(0)
	got := s.Finalize("a\x00b\x1bc\nd\te", content.RiskLow)
	if got != "abc\nd\te" {
		t.Errorf("got %q, want control chars gone and whitespace kept", got)
	}
}

func TestDisclaimersCanBeDisabled(t *testing.T) {
	cfg := policy.DefaultConfig().ResponseFiltering
	cfg.AddDisclaimers = false
	s := New(cfg)
	got := s.Finalize("options data", content.RiskHigh)
	if strings.Contains(got, "Disclaimer") {
		t.Errorf("disclaimer added despite being disabled: %q", got)
	}
}
