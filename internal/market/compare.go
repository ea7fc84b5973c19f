package market

import (
	"context"
	"sort"
	"time"
)

// MetricEntry is one instrument's value in a comparison.
type MetricEntry struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Value  float64 `json:"metric_value"`
	Err    string  `json:"error,omitempty"`
}

// Comparison ranks instruments by one metric, highest first.
type Comparison struct {
	Metric string        `json:"metric"`
	AsOf   time.Time     `json:"comparison_date"`
	Stocks []MetricEntry `json:"stocks"`
}

// Compare fetches quotes for the given symbols and ranks them by metric.
// Per-symbol fetch failures are recorded inline rather than failing the
// whole comparison; the caller sees which symbols came up empty.
func Compare(ctx context.Context, p Provider, symbols []string, metric string) (*Comparison, error) {
	cmp := &Comparison{Metric: metric, AsOf: time.Now().UTC()}
	for _, sym := range symbols {
		q, err := p.Quote(ctx, sym)
		if err != nil {
			if ctx.Err() != nil {
				// Cancellation aborts the whole comparison.
				return nil, ctx.Err()
			}
			cmp.Stocks = append(cmp.Stocks, MetricEntry{Symbol: sym, Err: err.Error()})
			continue
		}
		cmp.Stocks = append(cmp.Stocks, MetricEntry{
			Symbol: q.Symbol,
			Name:   q.Name,
			Value:  metricValue(q, metric),
		})
	}
	sort.SliceStable(cmp.Stocks, func(i, j int) bool {
		return cmp.Stocks[i].Value > cmp.Stocks[j].Value
	})
	return cmp, nil
}

func metricValue(q *Quote, metric string) float64 {
	switch metric {
	case "current_price":
		return q.CurrentPrice
	case "market_cap":
		return float64(q.MarketCap)
	case "pe_ratio":
		return q.PERatio
	case "dividend_yield":
		return q.DividendYield
	case "volume":
		return float64(q.Volume)
	case "average_volume":
		return float64(q.AverageVolume)
	case "fifty_two_week_high":
		return q.FiftyTwoWeekHigh
	case "fifty_two_week_low":
		return q.FiftyTwoWeekLow
	default:
		return 0
	}
}
