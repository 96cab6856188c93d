package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"custodia-hq/custodia/pkg/custody"
)

// CSVExporter exports custody events to CSV format, one row per event.
// Item metadata is repeated on every row so the file stands alone as a
// custody log.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{
		IncludeHeader: includeHeader,
	}
}

// Export writes the events of every dossier to the provided writer in CSV
// format, in dossier order and ascending sequence within each item.
func (e *CSVExporter) Export(ctx context.Context, dossiers []*Dossier, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(e.getHeaderRow()); err != nil {
			return custody.NewExportError("csv", len(dossiers), err)
		}
	}

	for _, dossier := range dossiers {
		for _, event := range dossier.History {
			row := e.eventToRow(dossier.Item, event)
			if err := writer.Write(row); err != nil {
				return custody.NewExportError("csv", len(dossiers), err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return custody.NewExportError("csv", len(dossiers), err)
	}
	return nil
}

// getHeaderRow returns the CSV header row.
func (e *CSVExporter) getHeaderRow() []string {
	return []string{
		"item_id", "title", "type", "case_id", "tags",
		"collection_date", "collected_by", "location",
		"custodian", "admissibility",
		"sequence", "timestamp", "actor", "action",
		"from_custodian", "to_custodian", "notes",
		"prior_hash", "hash",
	}
}

// eventToRow flattens one event, with its item's metadata, to a CSV row.
func (e *CSVExporter) eventToRow(item *custody.EvidenceItem, event *custody.CustodyEvent) []string {
	formatTime := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	}

	return []string{
		item.ID,
		item.Title,
		string(item.Type),
		item.CaseID,
		strings.Join(item.Tags, ","),
		formatTime(item.CollectionDate),
		item.CollectedBy,
		item.Location,
		item.Custodian,
		string(item.Admissibility),
		fmt.Sprintf("%d", event.Sequence),
		formatTime(event.Timestamp),
		event.Actor,
		string(event.Action),
		event.FromCustodian,
		event.ToCustodian,
		event.Notes,
		event.PriorHash,
		event.Hash,
	}
}
