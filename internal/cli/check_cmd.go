package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jontk/permd/internal/reconcile"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single reconciliation pass and exit",
	Long: `Scan every watched directory once, fix any permission drift found,
and exit. Useful for cron jobs and for verifying a configuration
before running the daemon.

Exits non-zero when a watch directory could not be scanned.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogging(cfg)

	if err := reportValidation(cfg.Validate()); err != nil {
		return err
	}

	reconciler, err := reconcile.New(cfg)
	if err != nil {
		return err
	}

	sum := reconciler.RunPass(context.Background())
	fmt.Printf("Scanned %d directories, fixed %d violations\n", sum.RootsScanned, sum.Violations)

	if sum.RootErrors > 0 {
		return fmt.Errorf("%d watch directories could not be scanned", sum.RootErrors)
	}
	return nil
}
