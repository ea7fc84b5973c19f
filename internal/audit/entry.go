package audit

import "strings"

// Entry is one violation record in the audit log.
// Append-only; PrevHash chains each entry to its predecessor.
type Entry struct {
	Timestamp string `json:"ts"`
	SessionID string `json:"session_id"`
	Category  string `json:"category"` // content | rate | symbol | injection
	Reason    string `json:"reason"`
	Decision  string `json:"decision"`
	Input     string `json:"input,omitempty"`
	RiskLevel string `json:"risk_level,omitempty"`
	PrevHash  string `json:"prev_hash"`
}

// inputCap bounds how much of the offending input is retained.
const inputCap = 120

// RedactInput truncates offending input for the log and flattens newlines so
// one entry stays one JSONL line's worth of text.
func RedactInput(input string) string {
	input = strings.ReplaceAll(input, "\n", " ")
	input = strings.ReplaceAll(input, "\r", " ")
	runes := []rune(input)
	if len(runes) <= inputCap {
		return input
	}
	return string(runes[:inputCap]) + "…"
}
