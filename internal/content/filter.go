// Package content classifies free-text queries with lexical scans: blocked
// keywords, investment-advice phrasings, high-risk terms, and injection
// patterns. Keyword and pattern lists come from policy configuration so the
// detection data can be swapped without touching the decision pipeline.
package content

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkozlov/marketguard/internal/policy"
)

// Risk is the coarse sensitivity classification of a query.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// riskRank maps risk to a comparable integer for monotonic escalation.
var riskRank = map[Risk]int{
	RiskLow:    0,
	RiskMedium: 1,
	RiskHigh:   2,
}

// Max returns the higher of two risk levels.
func Max(a, b Risk) Risk {
	if riskRank[b] > riskRank[a] {
		return b
	}
	return a
}

// Category names a scan that matched.
type Category string

const (
	CategoryInjection Category = "injection"
	CategoryAdvice    Category = "investment_advice"
	CategoryKeyword   Category = "blocked_keyword"
	CategoryHighRisk  Category = "high_risk"
	CategoryLength    Category = "excessive_length"
)

// injectionPatterns detect SQL/script/shell metacharacters and
// code-execution keywords. Structural, not configurable: a policy file must
// not be able to disable the security scan.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`['"].*['"].*;`),
	regexp.MustCompile(`(?i)<script.*?>`),
	regexp.MustCompile(`(?i)\b(union|select|insert|update|delete|drop)\s`),
	regexp.MustCompile(`(?i)\b(system|exec|eval|import)\s*\(`),
	regexp.MustCompile(`(?i)(__\w+__|\.\./)`),
	regexp.MustCompile("[`]|[$][(]"),
}

// softRiskWords nudge an otherwise clean query to Medium.
var softRiskWords = []string{"volatile", "risky", "speculation", "gamble"}

// Assessment is the outcome of classifying one query.
type Assessment struct {
	Blocked  bool
	Category Category   // blocking category, empty when allowed
	Risk     Risk
	Matched  []Category // every scan that matched, block or not
	Detail   string
}

// Filter runs the lexical scans over a case-folded copy of the input.
type Filter struct {
	keywords []string
	highRisk []string
	advice   []*regexp.Regexp
	maxInput int
}

// New compiles a Filter from the content filtering policy.
func New(cfg policy.ContentFiltering, maxInput int) (*Filter, error) {
	f := &Filter{maxInput: maxInput}
	for _, k := range cfg.BlockedKeywords {
		f.keywords = append(f.keywords, strings.ToLower(k))
	}
	for _, term := range cfg.HighRiskTerms {
		f.highRisk = append(f.highRisk, strings.ToLower(term))
	}
	for _, p := range cfg.AdvicePatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("advice pattern %q: %w", p, err)
		}
		f.advice = append(f.advice, re)
	}
	return f, nil
}

// Classify runs every scan over the query. All scans run regardless of
// earlier matches; when more than one blocking scan fires, the reported
// category follows the priority injection > advice > keyword.
func (f *Filter) Classify(text string) Assessment {
	a := Assessment{Risk: RiskLow}
	if strings.TrimSpace(text) == "" {
		return a
	}

	if f.maxInput > 0 && len(text) > f.maxInput {
		return Assessment{
			Blocked:  true,
			Category: CategoryLength,
			Risk:     RiskMedium,
			Matched:  []Category{CategoryLength},
			Detail:   fmt.Sprintf("query exceeds %d characters", f.maxInput),
		}
	}

	lower := strings.ToLower(text)

	injected, injDetail := f.scanInjection(text)
	advice, advDetail := f.scanAdvice(text)
	keyword, kwDetail := f.scanKeywords(lower)
	riskTerms := f.scanHighRisk(lower)

	if injected {
		a.Matched = append(a.Matched, CategoryInjection)
	}
	if advice {
		a.Matched = append(a.Matched, CategoryAdvice)
	}
	if keyword {
		a.Matched = append(a.Matched, CategoryKeyword)
	}
	if len(riskTerms) > 0 {
		a.Matched = append(a.Matched, CategoryHighRisk)
	}

	// High-risk terms never block; they raise the risk level.
	switch {
	case len(riskTerms) >= 2:
		a.Risk = RiskHigh
	case len(riskTerms) == 1:
		a.Risk = RiskMedium
	default:
		for _, w := range softRiskWords {
			if strings.Contains(lower, w) {
				a.Risk = RiskMedium
				break
			}
		}
	}

	switch {
	case injected:
		a.Blocked = true
		a.Category = CategoryInjection
		a.Risk = RiskHigh
		a.Detail = injDetail
	case advice:
		a.Blocked = true
		a.Category = CategoryAdvice
		a.Risk = Max(a.Risk, RiskHigh)
		a.Detail = advDetail
	case keyword:
		a.Blocked = true
		a.Category = CategoryKeyword
		a.Risk = Max(a.Risk, RiskHigh)
		a.Detail = kwDetail
	}

	return a
}

func (f *Filter) scanInjection(text string) (bool, string) {
	for _, re := range injectionPatterns {
		if re.MatchString(text) {
			return true, "suspicious pattern: " + re.String()
		}
	}
	return false, ""
}

func (f *Filter) scanAdvice(text string) (bool, string) {
	for _, re := range f.advice {
		if re.MatchString(text) {
			return true, "advice request pattern: " + re.String()
		}
	}
	return false, ""
}

func (f *Filter) scanKeywords(lower string) (bool, string) {
	for _, k := range f.keywords {
		if strings.Contains(lower, k) {
			return true, "blocked keyword: " + k
		}
	}
	return false, ""
}

func (f *Filter) scanHighRisk(lower string) []string {
	var matched []string
	for _, term := range f.highRisk {
		if containsWord(lower, term) {
			matched = append(matched, term)
		}
	}
	return matched
}

// containsWord reports whether term occurs in text on word boundaries, so
// "margin" does not fire on "marginal" and "options" does not fire inside
// identifiers.
func containsWord(text, term string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], term)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(term)
		beforeOK := start == 0 || !isWordByte(text[start-1])
		afterOK := end == len(text) || !isWordByte(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
