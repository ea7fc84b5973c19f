package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ConfigError indicates a malformed or inconsistent policy document.
// It is fatal at startup: the engine must not run with undefined thresholds.
type ConfigError struct {
	Field  string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("policy config: %s: %s", e.Field, e.Detail)
}

// RateLimiting holds per-session call volume thresholds.
type RateLimiting struct {
	MaxCallsPerMinute         int `yaml:"max_calls_per_minute"`
	MaxCallsPerHour           int `yaml:"max_calls_per_hour"`
	MaxCallsPerDay            int `yaml:"max_calls_per_day"`
	MinRequestIntervalSeconds int `yaml:"min_request_interval_seconds"`
}

// ContentFiltering holds the lexical lists the content filter is built from.
// The lists are data, not logic: detection strategy can be upgraded by
// swapping them without touching the decision pipeline.
type ContentFiltering struct {
	BlockedKeywords []string `yaml:"blocked_keywords"`
	HighRiskTerms   []string `yaml:"high_risk_terms"`
	AdvicePatterns  []string `yaml:"advice_patterns"`
}

// SymbolValidation holds ticker validation rules.
type SymbolValidation struct {
	MaxSymbolsPerRequest int      `yaml:"max_symbols_per_request"`
	BlockedSymbols       []string `yaml:"blocked_symbols"`
	// PartialAccept proceeds with the valid subset of a mixed symbol list
	// instead of rejecting the whole request. Default is strict.
	PartialAccept bool `yaml:"partial_accept"`
}

// Security holds input hardening settings.
type Security struct {
	SanitizeInputs bool `yaml:"sanitize_inputs"`
	MaxInputLength int  `yaml:"max_input_length"`
	TimeoutSeconds int  `yaml:"timeout_seconds"`
}

// ResponseFiltering holds outbound sanitation settings.
type ResponseFiltering struct {
	AddDisclaimers    bool `yaml:"add_disclaimers"`
	MaxResponseLength int  `yaml:"max_response_length"`
}

// Sessions holds registry lifecycle settings.
type Sessions struct {
	IdleTTLMinutes int `yaml:"idle_ttl_minutes"`
}

// Config holds all configurable policy parameters. Loaded once at startup
// and treated as an immutable snapshot for the lifetime of a request.
type Config struct {
	RateLimiting      RateLimiting      `yaml:"rate_limiting"`
	ContentFiltering  ContentFiltering  `yaml:"content_filtering"`
	SymbolValidation  SymbolValidation  `yaml:"symbol_validation"`
	Security          Security          `yaml:"security"`
	ResponseFiltering ResponseFiltering `yaml:"response_filtering"`
	Sessions          Sessions          `yaml:"sessions"`
}

// DefaultConfig returns the built-in policy.
func DefaultConfig() *Config {
	return &Config{
		RateLimiting: RateLimiting{
			MaxCallsPerMinute:         15,
			MaxCallsPerHour:           200,
			MaxCallsPerDay:            2000,
			MinRequestIntervalSeconds: 1,
		},
		ContentFiltering: ContentFiltering{
			BlockedKeywords: []string{
				"pump and dump", "insider trading", "market manipulation",
				"guaranteed returns", "risk-free investment", "get rich quick",
				"sure thing", "hot tip", "insider info",
			},
			HighRiskTerms: []string{
				"options", "derivatives", "leverage", "margin", "short selling",
				"penny stocks", "crypto", "cryptocurrency", "forex",
				"day trading", "swing trading", "futures", "commodities",
				"warrants", "cfds", "binary options",
			},
			AdvicePatterns: []string{
				`should\s+i\s+(buy|sell)`,
				`what\s+should\s+i\s+invest`,
				`is\s+\S+\s+a\s+good\s+(buy|investment)`,
				`recommend\s+(buying|selling|investing)`,
				`(investment|trading|financial)\s+advice`,
				`stock\s+tip`,
				`hot\s+stock`,
				`next\s+big\s+thing`,
				`(buy|sell)\s+now`,
			},
		},
		SymbolValidation: SymbolValidation{
			MaxSymbolsPerRequest: 10,
			BlockedSymbols:       []string{"SCAM", "FAKE", "TEST", "FRAUD", "PONZI"},
		},
		Security: Security{
			SanitizeInputs: true,
			MaxInputLength: 2000,
			TimeoutSeconds: 45,
		},
		ResponseFiltering: ResponseFiltering{
			AddDisclaimers:    true,
			MaxResponseLength: 15000,
		},
		Sessions: Sessions{
			IdleTTLMinutes: 60,
		},
	}
}

// Load loads policy configuration from a YAML file.
// Missing file returns defaults. Invalid YAML or an inconsistent document
// returns an error; the caller must treat it as fatal.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithHash(path)
	return cfg, err
}

// LoadWithHash loads policy configuration and returns its SHA-256 hash.
// The hash is computed over the raw YAML bytes on disk; when no file exists
// (defaults used), the hash is the SHA-256 of empty input.
func LoadWithHash(path string) (*Config, string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return defaultsWithHash()
		}
		path = filepath.Join(home, ".marketguard", "policy.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultsWithHash()
		}
		return nil, "", fmt.Errorf("failed to read policy config: %w", err)
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	// Start with defaults, YAML overwrites only specified fields
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse policy config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, hash, nil
}

func defaultsWithHash() (*Config, string, error) {
	h := sha256.Sum256(nil)
	return DefaultConfig(), "sha256:" + hex.EncodeToString(h[:]), nil
}

// Validate checks internal consistency of the policy document.
// All thresholds must be positive and the window allowances strictly ordered
// (minute ≤ hour ≤ day). Pattern lists must compile.
func (c *Config) Validate() error {
	rl := c.RateLimiting
	if rl.MaxCallsPerMinute <= 0 {
		return &ConfigError{"rate_limiting.max_calls_per_minute", "must be positive"}
	}
	if rl.MaxCallsPerHour <= 0 {
		return &ConfigError{"rate_limiting.max_calls_per_hour", "must be positive"}
	}
	if rl.MaxCallsPerDay <= 0 {
		return &ConfigError{"rate_limiting.max_calls_per_day", "must be positive"}
	}
	if rl.MinRequestIntervalSeconds < 0 {
		return &ConfigError{"rate_limiting.min_request_interval_seconds", "must not be negative"}
	}
	if rl.MaxCallsPerMinute > rl.MaxCallsPerHour {
		return &ConfigError{"rate_limiting", "minute allowance exceeds hour allowance"}
	}
	if rl.MaxCallsPerHour > rl.MaxCallsPerDay {
		return &ConfigError{"rate_limiting", "hour allowance exceeds day allowance"}
	}

	if c.SymbolValidation.MaxSymbolsPerRequest <= 0 {
		return &ConfigError{"symbol_validation.max_symbols_per_request", "must be positive"}
	}
	if c.Security.MaxInputLength <= 0 {
		return &ConfigError{"security.max_input_length", "must be positive"}
	}
	if c.Security.TimeoutSeconds <= 0 {
		return &ConfigError{"security.timeout_seconds", "must be positive"}
	}
	// The limit must leave room for the disclaimer block and truncation marker.
	if c.ResponseFiltering.MaxResponseLength < 512 {
		return &ConfigError{"response_filtering.max_response_length", "must be at least 512"}
	}
	if c.Sessions.IdleTTLMinutes <= 0 {
		return &ConfigError{"sessions.idle_ttl_minutes", "must be positive"}
	}

	for _, p := range c.ContentFiltering.AdvicePatterns {
		if _, err := regexp.Compile("(?i)" + p); err != nil {
			return &ConfigError{"content_filtering.advice_patterns", fmt.Sprintf("bad pattern %q: %v", p, err)}
		}
	}

	return nil
}
