package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"custodia-hq/custodia/pkg/cli"
	"custodia-hq/custodia/pkg/config"
	"custodia-hq/custodia/pkg/custody"
	"custodia-hq/custodia/pkg/telemetry/logging"
)

var queryFlags struct {
	search        string
	evidenceType  string
	admissibility string
	caseID        string
	custodian     string
	location      string
	collectedBy   string
	from          string
	to            string
	tags          []string
	limit         int
	offset        int
	sortBy        string
	sortOrder     string
	output        string
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the evidence collection",
	Long: `Query evidence items with multi-predicate filters. All given
predicates must match; omitted predicates are unconstrained.

Examples:
  # Everything for one case
  custodia query --case-id CASE-2041

  # Admissible physical evidence held by a custodian
  custodia query --type physical --admissibility admissible --custodian "Det. Reyes"

  # Items collected in a date range, newest first
  custodia query --from 2026-01-01T00:00:00Z --to 2026-03-01T00:00:00Z \
    --sort-by collection_date --sort-order desc

  # JSON output for scripting
  custodia query --case-id CASE-2041 --output json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVar(&queryFlags.search, "search", "", "substring match on title and description")
	queryCmd.Flags().StringVar(&queryFlags.evidenceType, "type", "", "evidence type (physical, digital, document, photo, audio, video)")
	queryCmd.Flags().StringVar(&queryFlags.admissibility, "admissibility", "", "admissibility status (pending, admissible, challenged, excluded)")
	queryCmd.Flags().StringVar(&queryFlags.caseID, "case-id", "", "case identifier")
	queryCmd.Flags().StringVar(&queryFlags.custodian, "custodian", "", "current custodian")
	queryCmd.Flags().StringVar(&queryFlags.location, "location", "", "storage or collection location")
	queryCmd.Flags().StringVar(&queryFlags.collectedBy, "collected-by", "", "collecting officer")
	queryCmd.Flags().StringVar(&queryFlags.from, "from", "", "collection date lower bound (RFC 3339)")
	queryCmd.Flags().StringVar(&queryFlags.to, "to", "", "collection date upper bound (RFC 3339)")
	queryCmd.Flags().StringSliceVar(&queryFlags.tags, "tag", nil, "match items carrying any of these tags")
	queryCmd.Flags().IntVar(&queryFlags.limit, "limit", 0, "maximum results (default 100)")
	queryCmd.Flags().IntVar(&queryFlags.offset, "offset", 0, "results to skip")
	queryCmd.Flags().StringVar(&queryFlags.sortBy, "sort-by", "", "sort field (title, case_id, collection_date, updated_at)")
	queryCmd.Flags().StringVar(&queryFlags.sortOrder, "sort-order", "", "sort order (asc, desc)")
	queryCmd.Flags().StringVarP(&queryFlags.output, "output", "o", "table", "output format (table, json)")
}

func runQuery(cmd *cobra.Command, args []string) error {
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

	filter, err := filterFromFlags()
	if err != nil {
		return cli.NewCommandError("query", err)
	}

	ctx := context.Background()
	comps, err := buildStore(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("query", err)
	}
	defer comps.close()

	items, err := comps.store.Query(ctx, filter)
	if err != nil {
		return cli.NewCommandError("query", err)
	}

	switch queryFlags.output {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	case "table":
		printItemTable(items)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", queryFlags.output)
	}
}

// filterFromFlags builds the query filter from command flags.
func filterFromFlags() (*custody.Filter, error) {
	filter := &custody.Filter{
		Search:        queryFlags.search,
		Type:          custody.EvidenceType(queryFlags.evidenceType),
		Admissibility: custody.AdmissibilityStatus(queryFlags.admissibility),
		CaseID:        queryFlags.caseID,
		Custodian:     queryFlags.custodian,
		Location:      queryFlags.location,
		CollectedBy:   queryFlags.collectedBy,
		Tags:          queryFlags.tags,
		Limit:         queryFlags.limit,
		Offset:        queryFlags.offset,
		SortBy:        queryFlags.sortBy,
		SortOrder:     queryFlags.sortOrder,
	}

	if queryFlags.from != "" {
		t, err := time.Parse(time.RFC3339, queryFlags.from)
		if err != nil {
			return nil, fmt.Errorf("invalid --from %q: %w", queryFlags.from, err)
		}
		filter.CollectedFrom = &t
	}
	if queryFlags.to != "" {
		t, err := time.Parse(time.RFC3339, queryFlags.to)
		if err != nil {
			return nil, fmt.Errorf("invalid --to %q: %w", queryFlags.to, err)
		}
		filter.CollectedTo = &t
	}

	return filter, nil
}

// printItemTable renders items as an aligned text table.
func printItemTable(items []*custody.EvidenceItem) {
	if len(items) == 0 {
		fmt.Println("No items matched.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tTYPE\tCASE\tCUSTODIAN\tADMISSIBILITY\tCOLLECTED")
	for _, item := range items {
		collected := ""
		if !item.CollectionDate.IsZero() {
			collected = item.CollectionDate.UTC().Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(item.ID),
			truncate(item.Title, 32),
			item.Type,
			item.CaseID,
			item.Custodian,
			item.Admissibility,
			collected,
		)
	}
	_ = w.Flush()
	fmt.Printf("\n%d item(s)\n", len(items))
}

// shortID abbreviates a UUID for table display.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// truncate shortens s to max runes with an ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
