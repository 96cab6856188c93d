package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"custodia-hq/custodia/pkg/cli"
	"custodia-hq/custodia/pkg/config"
	"custodia-hq/custodia/pkg/custody"
	"custodia-hq/custodia/pkg/custody/integrity"
	"custodia-hq/custodia/pkg/telemetry/logging"
)

var verifyFlags struct {
	itemID string
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify custody chain integrity",
	Long: `Re-walk every custody chain in the database, recompute each event's
digest, and cross-check chain heads against the anchor log.

Exits non-zero if any chain fails verification.

Examples:
  # Verify every item
  custodia verify

  # Verify a single item
  custodia verify --item 7d9f1c2e-...`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyFlags.itemID, "item", "", "verify a single item by ID")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	if _, err := logging.Setup(logging.Config{Level: level, Format: "text", Writer: os.Stderr}); err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	ctx := context.Background()
	comps, err := buildStore(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("verify", err)
	}
	defer comps.close()

	if verifyFlags.itemID != "" {
		return verifyOne(comps, verifyFlags.itemID)
	}

	sweeper := integrity.NewSweeper(comps.store, comps.anchors, nil)
	report, err := sweeper.Sweep(ctx)
	if err != nil {
		return cli.NewCommandError("verify", err)
	}

	if report.OK() {
		fmt.Printf("✓ All %d chains verified\n", report.Checked)
		return nil
	}

	fmt.Printf("✗ %d of %d chains failed verification:\n", len(report.Failures), report.Checked)
	for _, f := range report.Failures {
		fmt.Printf("  %s: %s at sequence %d (%s)\n", f.ItemID, f.Kind, f.Sequence, f.Detail)
	}
	return fmt.Errorf("integrity verification failed")
}

func verifyOne(comps *components, itemID string) error {
	err := comps.store.Verify(itemID)
	if err == nil {
		fmt.Printf("✓ Chain verified for item %s\n", itemID)
		return nil
	}

	if ierr, ok := custody.AsIntegrityError(err); ok {
		fmt.Printf("✗ Chain %s at sequence %d for item %s\n", ierr.Kind, ierr.Sequence, itemID)
		return fmt.Errorf("integrity verification failed")
	}
	return cli.NewCommandError("verify", err)
}
