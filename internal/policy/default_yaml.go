package policy

// DefaultConfigYAML returns a commented YAML string for init-policy.
func DefaultConfigYAML() string {
	return `# marketguard policy configuration
# Generated by: marketguard init-policy
#
# Every request passes the pipeline in this order:
#   1. Symbol validation -> reject invalid or excess symbols
#   2. Rate limiting     -> reject over-quota or burst calls
#   3. Content filtering -> reject advice requests, blocked keywords, injection
#   4. Dispatch          -> market data fetch (sole external step)
#   5. Response sanitation -> truncation, disclaimers

# Per-session call volume thresholds. Allowances must be ordered:
# max_calls_per_minute <= max_calls_per_hour <= max_calls_per_day.
rate_limiting:
  max_calls_per_minute: 15
  max_calls_per_hour: 200
  max_calls_per_day: 2000
  min_request_interval_seconds: 1

# Lexical lists driving the content filter. These are data, not logic:
# swap them freely without touching the pipeline.
content_filtering:
  blocked_keywords:
    - pump and dump
    - insider trading
    - market manipulation
    - guaranteed returns
    - risk-free investment
    - get rich quick
    - sure thing
    - hot tip
    - insider info
  high_risk_terms:
    - options
    - derivatives
    - leverage
    - margin
    - short selling
    - penny stocks
    - crypto
    - cryptocurrency
    - forex
    - day trading
    - swing trading
    - futures
    - commodities
    - warrants
    - cfds
    - binary options
  # Case-insensitive regular expressions matching recommendation requests.
  advice_patterns:
    - should\s+i\s+(buy|sell)
    - what\s+should\s+i\s+invest
    - is\s+\S+\s+a\s+good\s+(buy|investment)
    - recommend\s+(buying|selling|investing)
    - (investment|trading|financial)\s+advice
    - stock\s+tip
    - hot\s+stock
    - next\s+big\s+thing
    - (buy|sell)\s+now

symbol_validation:
  max_symbols_per_request: 10
  blocked_symbols: [SCAM, FAKE, TEST, FRAUD, PONZI]
  # partial_accept: proceed with the valid subset of a mixed list instead of
  # rejecting the whole request. Default strict.
  partial_accept: false

security:
  sanitize_inputs: true
  max_input_length: 2000
  timeout_seconds: 45

response_filtering:
  add_disclaimers: true
  max_response_length: 15000

sessions:
  idle_ttl_minutes: 60
`
}
