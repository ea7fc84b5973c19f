// marketguard — guardrails for AI-driven market data access.
// Validates symbols, enforces rate limits, screens queries, and sanitizes
// responses. Runs as an MCP server over stdio.
package main

import (
	"github.com/joho/godotenv"

	"github.com/pkozlov/marketguard/internal/cli"
)

func main() {
	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	cli.Execute()
}
