package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"custodia-hq/custodia/pkg/cli"
	"custodia-hq/custodia/pkg/config"
	"custodia-hq/custodia/pkg/custody/export"
	"custodia-hq/custodia/pkg/telemetry/logging"
)

var exportFlags struct {
	format string
	out    string
	items  []string
	pretty bool
	header bool
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export evidence items with their full custody history",
	Long: `Export evidence dossiers (item metadata plus every custody event,
including hashes) for discovery production or archival.

Examples:
  # Everything, pretty JSON to a file
  custodia export --format json --pretty --out dossiers.json

  # Two specific items as CSV on stdout
  custodia export --format csv --item 4f1c... --item 9a2e...`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFlags.format, "format", "f", "json", "output format (json, csv)")
	exportCmd.Flags().StringVar(&exportFlags.out, "out", "", "output file (default stdout)")
	exportCmd.Flags().StringSliceVar(&exportFlags.items, "item", nil, "item IDs to export (default all)")
	exportCmd.Flags().BoolVar(&exportFlags.pretty, "pretty", false, "indent JSON output")
	exportCmd.Flags().BoolVar(&exportFlags.header, "header", true, "include CSV header row")
}

func runExport(cmd *cobra.Command, args []string) error {
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
		return cli.NewCommandError("export", err)
	}
	defer comps.close()

	dossiers, err := export.Collect(comps.store, exportFlags.items)
	if err != nil {
		return cli.NewCommandError("export", err)
	}

	out := os.Stdout
	if exportFlags.out != "" {
		f, err := os.Create(exportFlags.out)
		if err != nil {
			return cli.NewCommandError("export", err)
		}
		defer f.Close()
		out = f
	}

	switch exportFlags.format {
	case "json":
		exp := export.NewJSONExporter(exportFlags.pretty)
		if err := exp.Export(ctx, dossiers, out); err != nil {
			return cli.NewCommandError("export", err)
		}
	case "csv":
		exp := export.NewCSVExporter(exportFlags.header)
		if err := exp.Export(ctx, dossiers, out); err != nil {
			return cli.NewCommandError("export", err)
		}
	default:
		return fmt.Errorf("unknown export format %q", exportFlags.format)
	}

	if exportFlags.out != "" {
		fmt.Printf("Exported %d dossier(s) to %s\n", len(dossiers), exportFlags.out)
	}
	return nil
}
