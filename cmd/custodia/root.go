package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "custodia",
	Short: "Custodia - evidence custody ledger",
	Long: `Custodia is an evidence custody ledger for legal practices.

Each evidence item carries an append-only chain of custody events. Every
event is hash-linked to its predecessor, so the full history of who held
an item, when, and why is tamper-evident and reproducible in court.

It provides:
  - Hash-chained custody event recording with tamper detection
  - A custody state machine (collected, transferred, analyzed, ...)
  - Automatic admissibility classification
  - Multi-predicate queries over the evidence collection
  - JSON and CSV export for discovery productions`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
