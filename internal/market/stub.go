package market

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"
)

// StubProvider serves deterministic synthetic data derived from the symbol.
// Used in tests and demo mode; identical requests always return identical
// payloads.
type StubProvider struct {
	// Err, when set, is returned from every call. Models an unavailable
	// upstream in tests.
	Err error
	// Delay, when set, is waited before responding unless the context
	// expires first. Models a slow upstream.
	Delay time.Duration
}

func (s *StubProvider) wait(ctx context.Context) error {
	if s.Err != nil {
		return s.Err
	}
	if s.Delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.Delay):
		}
	}
	return ctx.Err()
}

// Quote returns a synthetic quote for the symbol.
func (s *StubProvider) Quote(ctx context.Context, symbol string) (*Quote, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	seed := seedFor(symbol)
	price := 20 + float64(seed%98000)/100
	return &Quote{
		Symbol:           symbol,
		Name:             symbol + " Holdings",
		CurrentPrice:     price,
		PreviousClose:    price * 0.995,
		MarketCap:        int64(seed%900+100) * 1_000_000_000,
		PERatio:          8 + float64(seed%4200)/100,
		DividendYield:    float64(seed%500) / 10000,
		FiftyTwoWeekHigh: price * 1.3,
		FiftyTwoWeekLow:  price * 0.7,
		Volume:           int64(seed%50+1) * 1_000_000,
		AverageVolume:    int64(seed%40+5) * 1_000_000,
		Sector:           "Synthetic",
		Industry:         "Test Data",
		RetrievedAt:      time.Now().UTC(),
	}, nil
}

// History returns a synthetic OHLCV series.
func (s *StubProvider) History(ctx context.Context, symbol, period, interval string) (*History, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	seed := seedFor(symbol)
	base := 20 + float64(seed%98000)/100
	h := &History{Symbol: symbol, Period: period, Interval: interval}
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		drift := float64((seed>>uint(i%16))%7) - 3
		open := base + drift
		h.Bars = append(h.Bars, Bar{
			Date:   day.AddDate(0, 0, i).Format("2006-01-02"),
			Open:   open,
			High:   open + 1.5,
			Low:    open - 1.2,
			Close:  open + 0.4,
			Volume: int64(seed%30+1) * 100_000,
		})
	}
	return h, nil
}

// Indices returns synthetic summaries for the fixed index set.
func (s *StubProvider) Indices(ctx context.Context) ([]IndexQuote, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	out := make([]IndexQuote, 0, len(Indices))
	for _, idx := range Indices {
		seed := seedFor(idx.Symbol)
		price := 1000 + float64(seed%40000)/10
		change := float64(seed%200)/10 - 10
		out = append(out, IndexQuote{
			Symbol:        idx.Symbol,
			Name:          idx.Name,
			Price:         price,
			Change:        change,
			ChangePercent: change / price * 100,
		})
	}
	return out, nil
}

func seedFor(symbol string) uint64 {
	h := fnv.New64a()
	fmt.Fprint(h, symbol)
	return h.Sum64()
}
