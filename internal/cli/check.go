package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pkozlov/marketguard/internal/guard"
	"github.com/pkozlov/marketguard/internal/policy"
	"github.com/pkozlov/marketguard/internal/session"
)

var (
	checkPolicy  string
	checkQuery   string
	checkSymbols []string
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkPolicy, "policy", "", "Path to policy YAML (optional)")
	checkCmd.Flags().StringVar(&checkQuery, "query", "", "Free-text query to screen")
	checkCmd.Flags().StringSliceVar(&checkSymbols, "symbols", nil, "Ticker symbols to screen")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Dry-run a query and symbol list through the guardrails",
	Long: "Screens a query and symbol list against the active policy without\n" +
		"fetching anything or counting against rate limits.\n\n" +
		"Exit code 0 if the request would be allowed, 1 if it would be blocked.",
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, hash, err := policy.LoadWithHash(checkPolicy)
	if err != nil {
		return err
	}

	engine, err := guard.New(cfg, hash, session.NewRegistry(cfg), nil, zerolog.Nop())
	if err != nil {
		return err
	}

	d := engine.Check(guard.Request{Query: checkQuery, Symbols: checkSymbols})
	out, _ := json.MarshalIndent(d, "", "  ")
	fmt.Println(string(out))

	if !d.Proceed() {
		os.Exit(1)
	}
	return nil
}
