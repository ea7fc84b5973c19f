package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkozlov/marketguard/internal/audit"
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the append-only violation log",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <log-file>",
	Short: "Verify the violation log hash chain",
	Long: "Walks the violation log and checks each entry's prev_hash against the\n" +
		"hash of the preceding line. A broken chain means the log was edited.",
	Args: cobra.ExactArgs(1),
	RunE: runAuditVerify,
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	count, err := audit.Verify(args[0])
	if err != nil {
		return fmt.Errorf("chain verification failed after %d entries: %w", count, err)
	}
	fmt.Printf("OK: %d entries, chain intact\n", count)
	return nil
}
