package symbol

import (
	"fmt"
	"strings"
)

// validPeriods are the accepted history lookback windows.
var validPeriods = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}

// validIntervals are the accepted history bar sizes.
var validIntervals = []string{"1m", "2m", "5m", "15m", "30m", "60m", "90m", "1h", "1d", "5d", "1wk", "1mo", "3mo"}

// incompatible pairs short intervals with long periods (too many points) and
// long intervals with short periods (too few).
var incompatible = []struct {
	intervals []string
	periods   []string
}{
	{[]string{"1m", "2m", "5m"}, []string{"1y", "2y", "5y", "10y", "max"}},
	{[]string{"15m", "30m"}, []string{"2y", "5y", "10y", "max"}},
	{[]string{"60m", "90m"}, []string{"5y", "10y", "max"}},
	{[]string{"1d", "5d", "1wk"}, []string{"1d"}},
	{[]string{"1mo", "3mo"}, []string{"1d", "5d", "1mo"}},
}

// validMetrics are the fields a cross-symbol comparison can rank by.
var validMetrics = []string{
	"current_price", "market_cap", "pe_ratio", "dividend_yield",
	"volume", "average_volume", "fifty_two_week_high", "fifty_two_week_low",
}

// ValidatePeriodInterval checks a period/interval pair for history requests.
func ValidatePeriodInterval(period, interval string) error {
	period = strings.ToLower(strings.TrimSpace(period))
	interval = strings.ToLower(strings.TrimSpace(interval))

	if !contains(validPeriods, period) {
		return fmt.Errorf("invalid period %q, valid: %s", period, strings.Join(validPeriods, ", "))
	}
	if !contains(validIntervals, interval) {
		return fmt.Errorf("invalid interval %q, valid: %s", interval, strings.Join(validIntervals, ", "))
	}
	for _, combo := range incompatible {
		if contains(combo.intervals, interval) && contains(combo.periods, period) {
			return fmt.Errorf("incompatible combination: %s interval with %s period", interval, period)
		}
	}
	return nil
}

// ValidateMetric checks a comparison metric name.
func ValidateMetric(metric string) error {
	m := strings.ToLower(strings.TrimSpace(metric))
	if !contains(validMetrics, m) {
		return fmt.Errorf("invalid metric %q, valid: %s", metric, strings.Join(validMetrics, ", "))
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
