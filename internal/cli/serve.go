package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	guardmcp "github.com/pkozlov/marketguard/internal/mcp"
	"github.com/pkozlov/marketguard/internal/policy"
)

var (
	servePolicy   string
	serveAuditLog string
	serveDataDir  string
	serveLogLevel string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&servePolicy, "policy", "", "Path to policy YAML (default ~/.marketguard/policy.yaml)")
	serveCmd.Flags().StringVar(&serveAuditLog, "audit-log", "", "Path to the append-only violation log (disabled if empty)")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "", "Directory for saved market data (saving disabled if empty)")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "Log level (debug|info|warn|error)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the guarded MCP tool server on stdio",
	Long: "Runs marketguard as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes guarded tools: market_quote, market_history, market_compare,\n" +
		"market_summary, guard_check, guard_status.\n\n" +
		"The policy file is watched for changes and hot-reloaded; an invalid\n" +
		"update is rejected and the running policy stays active.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger(serveLogLevel)

	srv, err := guardmcp.New(guardmcp.Config{
		PolicyPath:   servePolicy,
		AuditLogPath: serveAuditLog,
		DataDir:      serveDataDir,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info().Msg("shutting down")
		cancel()
	}()

	watcher, err := policy.NewWatcher(servePolicy,
		func(cfg *policy.Config, hash string) {
			if err := srv.Engine().Swap(cfg, hash); err != nil {
				logger.Error().Err(err).Msg("rejected policy update")
			}
		},
		func(err error) {
			logger.Error().Err(err).Msg("policy reload failed")
		},
	)
	if err != nil {
		return err
	}
	go watcher.Run(ctx)
	go srv.Sessions().Run(ctx)

	logger.Info().Str("policy_hash", srv.Engine().PolicyHash()).Msg("marketguard MCP server running on stdio")
	return srv.Run(ctx)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(lvl).With().Timestamp().Logger()
}
