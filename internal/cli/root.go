// Package cli wires the marketguard commands: the stdio MCP server, a
// dry-run policy check, audit chain verification, and policy scaffolding.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "marketguard",
	Short: "Guardrails for AI-driven market data access",
	Long:  "Validates symbols, enforces rate limits, screens queries for advice solicitation and injection attempts, and sanitizes outbound data. Runs as an MCP server over stdio.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
