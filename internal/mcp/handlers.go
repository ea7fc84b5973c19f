package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pkozlov/marketguard/internal/guard"
	"github.com/pkozlov/marketguard/internal/market"
)

// --- Input/Output types ---

// QuoteInput defines parameters for the market_quote tool.
type QuoteInput struct {
	Symbols   []string `json:"symbols" jsonschema:"ticker symbols to quote"`
	Query     string   `json:"query,omitempty" jsonschema:"free-text context for the request"`
	SessionID string   `json:"session_id,omitempty" jsonschema:"session identifier for rate limiting"`
	Save      bool     `json:"save,omitempty" jsonschema:"persist the fetched data to the data directory"`
}

// HistoryInput defines parameters for the market_history tool.
type HistoryInput struct {
	Symbol    string `json:"symbol" jsonschema:"ticker symbol"`
	Period    string `json:"period,omitempty" jsonschema:"lookback period (1d/5d/1mo/3mo/6mo/1y/2y/5y/max)"`
	Interval  string `json:"interval,omitempty" jsonschema:"bar interval (1m/5m/15m/30m/1h/1d/1wk/1mo)"`
	Query     string `json:"query,omitempty" jsonschema:"free-text context for the request"`
	SessionID string `json:"session_id,omitempty" jsonschema:"session identifier for rate limiting"`
	Save      bool   `json:"save,omitempty" jsonschema:"persist the fetched data to the data directory"`
}

// CompareInput defines parameters for the market_compare tool.
type CompareInput struct {
	Symbols   []string `json:"symbols" jsonschema:"ticker symbols to compare"`
	Metric    string   `json:"metric,omitempty" jsonschema:"comparison metric (current_price/market_cap/pe_ratio/dividend_yield/volume)"`
	Query     string   `json:"query,omitempty" jsonschema:"free-text context for the request"`
	SessionID string   `json:"session_id,omitempty" jsonschema:"session identifier for rate limiting"`
}

// SummaryInput defines parameters for the market_summary tool.
type SummaryInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"session identifier for rate limiting"`
}

// DataOutput carries a guarded tool result or block details.
type DataOutput struct {
	Data       string   `json:"data,omitempty"`
	SavedAs    string   `json:"saved_as,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	RiskLevel  string   `json:"risk_level,omitempty"`
	Blocked    bool     `json:"blocked,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Detail     string   `json:"detail,omitempty"`
	RetryAfter string   `json:"retry_after,omitempty"`
}

// CheckInput defines parameters for the guard_check tool.
type CheckInput struct {
	Query   string   `json:"query,omitempty" jsonschema:"free-text query to screen"`
	Symbols []string `json:"symbols,omitempty" jsonschema:"ticker symbols to screen"`
}

// CheckOutput contains the dry-run decision.
type CheckOutput struct {
	Outcome   string `json:"outcome"`
	Reason    string `json:"reason,omitempty"`
	Detail    string `json:"detail,omitempty"`
	RiskLevel string `json:"risk_level"`
}

// StatusInput defines parameters for the guard_status tool.
type StatusInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"session identifier, defaults to the shared session"`
}

// StatusOutput reports session counters and violation history.
type StatusOutput struct {
	Found          bool            `json:"found"`
	SessionID      string          `json:"session_id"`
	CallsLastMin   int             `json:"calls_last_minute"`
	CallsLastHour  int             `json:"calls_last_hour"`
	CallsLastDay   int             `json:"calls_last_day"`
	ViolationCount int             `json:"violation_count"`
	LastReason     string          `json:"last_reason,omitempty"`
	Violations     []ViolationItem `json:"violations,omitempty"`
}

// ViolationItem describes one recorded violation, newest last.
type ViolationItem struct {
	Timestamp string `json:"timestamp"`
	Category  string `json:"category"`
	Reason    string `json:"reason"`
}

// SavedListInput is empty, no parameters needed.
type SavedListInput struct{}

// SavedListOutput lists saved data files.
type SavedListOutput struct {
	Files []string `json:"files"`
}

// SavedReadInput defines parameters for the market_saved_read tool.
type SavedReadInput struct {
	Name string `json:"name" jsonschema:"saved file name, e.g. AAPL_quote.json"`
}

// SavedReadOutput returns one saved file's content.
type SavedReadOutput struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// --- Handlers ---

func (s *Server) handleQuote(ctx context.Context, req *mcpsdk.CallToolRequest, input QuoteInput) (*mcpsdk.CallToolResult, DataOutput, error) {
	var fetched any
	d := s.engine.Evaluate(ctx, guard.Request{
		SessionID: input.SessionID,
		Tool:      "market_quote",
		Query:     input.Query,
		Symbols:   input.Symbols,
	}, func(ctx context.Context, gr guard.Request, symbols []string) (string, error) {
		quotes := make([]*market.Quote, 0, len(symbols))
		for _, sym := range symbols {
			q, err := s.provider.Quote(ctx, sym)
			if err != nil {
				return "", fmt.Errorf("quote %s: %w", sym, err)
			}
			quotes = append(quotes, q)
		}
		fetched = quotes
		return marshalJSON(quotes)
	})

	out, result := s.finishData(d)
	if result == nil && input.Save && s.store != nil && fetched != nil {
		name := strings.Join(d.Symbols, "_") + "_quote.json"
		if path, err := s.store.Save(name, fetched); err != nil {
			s.log.Warn().Err(err).Msg("save failed")
		} else {
			out.SavedAs = path
		}
	}
	return result, out, nil
}

func (s *Server) handleHistory(ctx context.Context, req *mcpsdk.CallToolRequest, input HistoryInput) (*mcpsdk.CallToolResult, DataOutput, error) {
	period := input.Period
	if period == "" {
		period = "1mo"
	}
	interval := input.Interval
	if interval == "" {
		interval = "1d"
	}

	var fetched *market.History
	d := s.engine.Evaluate(ctx, guard.Request{
		SessionID: input.SessionID,
		Tool:      "market_history",
		Query:     input.Query,
		Symbols:   []string{input.Symbol},
		Period:    period,
		Interval:  interval,
	}, func(ctx context.Context, gr guard.Request, symbols []string) (string, error) {
		h, err := s.provider.History(ctx, symbols[0], period, interval)
		if err != nil {
			return "", fmt.Errorf("history %s: %w", symbols[0], err)
		}
		fetched = h
		return marshalJSON(h)
	})

	out, result := s.finishData(d)
	if result == nil && input.Save && s.store != nil && fetched != nil {
		name := fmt.Sprintf("%s_history_%s_%s.json", fetched.Symbol, period, interval)
		if path, err := s.store.Save(name, fetched); err != nil {
			s.log.Warn().Err(err).Msg("save failed")
		} else {
			out.SavedAs = path
		}
	}
	return result, out, nil
}

func (s *Server) handleCompare(ctx context.Context, req *mcpsdk.CallToolRequest, input CompareInput) (*mcpsdk.CallToolResult, DataOutput, error) {
	metric := input.Metric
	if metric == "" {
		metric = "current_price"
	}

	d := s.engine.Evaluate(ctx, guard.Request{
		SessionID: input.SessionID,
		Tool:      "market_compare",
		Query:     input.Query,
		Symbols:   input.Symbols,
		Metric:    metric,
	}, func(ctx context.Context, gr guard.Request, symbols []string) (string, error) {
		cmp, err := market.Compare(ctx, s.provider, symbols, metric)
		if err != nil {
			return "", err
		}
		return marshalJSON(cmp)
	})

	out, result := s.finishData(d)
	return result, out, nil
}

func (s *Server) handleSummary(ctx context.Context, req *mcpsdk.CallToolRequest, input SummaryInput) (*mcpsdk.CallToolResult, DataOutput, error) {
	d := s.engine.Evaluate(ctx, guard.Request{
		SessionID: input.SessionID,
		Tool:      "market_summary",
	}, func(ctx context.Context, gr guard.Request, symbols []string) (string, error) {
		idx, err := s.provider.Indices(ctx)
		if err != nil {
			return "", err
		}
		return marshalJSON(idx)
	})

	out, result := s.finishData(d)
	return result, out, nil
}

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	d := s.engine.Check(guard.Request{Query: input.Query, Symbols: input.Symbols})
	return nil, CheckOutput{
		Outcome:   string(d.Outcome),
		Reason:    d.Reason,
		Detail:    d.Detail,
		RiskLevel: string(d.Risk),
	}, nil
}

func (s *Server) handleStatus(ctx context.Context, req *mcpsdk.CallToolRequest, input StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	id := input.SessionID
	if id == "" {
		id = guard.DefaultSession
	}
	stats, ok := s.engine.Stats(id)
	if !ok {
		return nil, StatusOutput{SessionID: id}, nil
	}

	out := StatusOutput{
		Found:          true,
		SessionID:      stats.SessionID,
		CallsLastMin:   stats.Rate.Minute,
		CallsLastHour:  stats.Rate.Hour,
		CallsLastDay:   stats.Rate.Day,
		ViolationCount: stats.ViolationCount,
		LastReason:     stats.LastReason,
	}
	for _, v := range stats.Violations {
		out.Violations = append(out.Violations, ViolationItem{
			Timestamp: v.Timestamp.UTC().Format(time.RFC3339),
			Category:  v.Category,
			Reason:    v.Reason,
		})
	}
	return nil, out, nil
}

func (s *Server) handleSavedList(ctx context.Context, req *mcpsdk.CallToolRequest, input SavedListInput) (*mcpsdk.CallToolResult, SavedListOutput, error) {
	names, err := s.store.List()
	if err != nil {
		return nil, SavedListOutput{}, err
	}
	return nil, SavedListOutput{Files: names}, nil
}

func (s *Server) handleSavedRead(ctx context.Context, req *mcpsdk.CallToolRequest, input SavedReadInput) (*mcpsdk.CallToolResult, SavedReadOutput, error) {
	data, err := s.store.Read(input.Name)
	if err != nil {
		return nil, SavedReadOutput{}, err
	}
	return nil, SavedReadOutput{Name: input.Name, Data: string(data)}, nil
}

// --- Helpers ---

// finishData maps a guard decision to the shared data output shape. Blocked
// decisions return a non-nil tool result flagged as an error.
func (s *Server) finishData(d guard.Decision) (DataOutput, *mcpsdk.CallToolResult) {
	if !d.Proceed() {
		out := DataOutput{
			Blocked: true,
			Reason:  d.Reason,
			Detail:  d.Detail,
		}
		if d.RetryAfter > 0 {
			out.RetryAfter = d.RetryAfter.Round(time.Millisecond).String()
		}
		return out, &mcpsdk.CallToolResult{IsError: true}
	}
	return DataOutput{
		Data:      d.Payload,
		Warnings:  d.Warnings,
		RiskLevel: string(d.Risk),
	}, nil
}

func marshalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode response: %w", err)
	}
	return string(data), nil
}
