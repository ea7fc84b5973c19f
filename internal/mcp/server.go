// Package mcp exposes the guarded market data tools over the Model Context
// Protocol on stdio. Every data tool routes through the guardrails engine;
// blocked requests come back as tool errors with a structured reason.
package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/pkozlov/marketguard/internal/audit"
	"github.com/pkozlov/marketguard/internal/guard"
	"github.com/pkozlov/marketguard/internal/market"
	"github.com/pkozlov/marketguard/internal/policy"
	"github.com/pkozlov/marketguard/internal/session"
)

// Config holds MCP server configuration.
type Config struct {
	PolicyPath   string
	AuditLogPath string
	DataDir      string
	Provider     market.Provider
	Logger       zerolog.Logger
}

// Server wraps the MCP SDK server with guardrails enforcement.
type Server struct {
	mcpServer *mcpsdk.Server
	engine    *guard.Engine
	sessions  *session.Registry
	provider  market.Provider
	store     *market.Store
	auditLog  *audit.Log
	log       zerolog.Logger
}

// New creates an MCP server with loaded policy and registered tools.
func New(cfg Config) (*Server, error) {
	policyCfg, hash, err := policy.LoadWithHash(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	var auditLog *audit.Log
	if cfg.AuditLogPath != "" {
		auditLog, err = audit.Open(cfg.AuditLogPath)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
	}

	var store *market.Store
	if cfg.DataDir != "" {
		store, err = market.NewStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open data store: %w", err)
		}
	}

	sessions := session.NewRegistry(policyCfg)
	engine, err := guard.New(policyCfg, hash, sessions, auditLog, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	provider := cfg.Provider
	if provider == nil {
		provider = &market.StubProvider{}
	}

	s := &Server{
		engine:   engine,
		sessions: sessions,
		provider: provider,
		store:    store,
		auditLog: auditLog,
		log:      cfg.Logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "marketguard",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Engine returns the guardrails engine, for policy hot-reload wiring.
func (s *Server) Engine() *guard.Engine {
	return s.engine
}

// Sessions returns the session registry, for the idle sweeper.
func (s *Server) Sessions() *session.Registry {
	return s.sessions
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close closes the audit log if configured.
func (s *Server) Close() error {
	if s.auditLog != nil {
		return s.auditLog.Close()
	}
	return nil
}

// registerTools adds all marketguard tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "market_quote",
		Description: "Fetch current quotes for up to the configured number of ticker symbols. Requests are validated, rate limited, and content filtered; blocked requests return an error with the reason.",
	}, s.handleQuote)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "market_history",
		Description: "Fetch historical OHLCV bars for one symbol over a period and interval (e.g. period=1mo interval=1d).",
	}, s.handleHistory)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "market_compare",
		Description: "Compare multiple symbols on a single metric (current_price, market_cap, pe_ratio, dividend_yield, volume) and rank them.",
	}, s.handleCompare)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "market_summary",
		Description: "Summarize the major market indices (S&P 500, Dow, Nasdaq, Russell 2000, VIX).",
	}, s.handleSummary)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "guard_check",
		Description: "Check whether a query and symbol list would pass the guardrails without executing anything (dry-run). Does not count against rate limits.",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "guard_status",
		Description: "Report rate limit counters and violation history for a session.",
	}, s.handleStatus)

	if s.store != nil {
		mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
			Name:        "market_saved_list",
			Description: "List saved market data files.",
		}, s.handleSavedList)

		mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
			Name:        "market_saved_read",
			Description: "Read one saved market data file by name.",
		}, s.handleSavedRead)
	}
}
