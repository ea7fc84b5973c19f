// Package market is the data access layer: quote, history, and index
// lookups behind a Provider interface, plus a flat-file store for fetched
// results. The guard pipeline validates everything going in and annotates
// everything coming out; this package stays thin on purpose.
package market

import (
	"context"
	"time"
)

// Quote is a point-in-time snapshot of one instrument.
type Quote struct {
	Symbol           string    `json:"symbol"`
	Name             string    `json:"name"`
	CurrentPrice     float64   `json:"current_price"`
	PreviousClose    float64   `json:"previous_close"`
	MarketCap        int64     `json:"market_cap"`
	PERatio          float64   `json:"pe_ratio"`
	DividendYield    float64   `json:"dividend_yield"`
	FiftyTwoWeekHigh float64   `json:"fifty_two_week_high"`
	FiftyTwoWeekLow  float64   `json:"fifty_two_week_low"`
	Volume           int64     `json:"volume"`
	AverageVolume    int64     `json:"average_volume"`
	Sector           string    `json:"sector"`
	Industry         string    `json:"industry"`
	RetrievedAt      time.Time `json:"retrieved_at"`
}

// Bar is one OHLCV observation.
type Bar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// History is an OHLCV series for one symbol.
type History struct {
	Symbol   string `json:"symbol"`
	Period   string `json:"period"`
	Interval string `json:"interval"`
	Bars     []Bar  `json:"data"`
}

// IndexQuote summarizes one market index.
type IndexQuote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"current_price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}

// Index is one entry of the fixed index set served by the summary tool.
type Index struct {
	Symbol string
	Name   string
}

// Indices is the fixed set of tracked market indices.
var Indices = []Index{
	{"^GSPC", "S&P 500"},
	{"^DJI", "Dow Jones"},
	{"^IXIC", "NASDAQ"},
	{"^RUT", "Russell 2000"},
	{"^VIX", "VIX"},
}

// Provider fetches market data. Implementations may block on the network;
// the guard wraps every call in the configured timeout.
type Provider interface {
	Quote(ctx context.Context, symbol string) (*Quote, error)
	History(ctx context.Context, symbol, period, interval string) (*History, error)
	Indices(ctx context.Context) ([]IndexQuote, error)
}
