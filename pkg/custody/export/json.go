package export

import (
	"context"
	"encoding/json"
	"io"

	"custodia-hq/custodia/pkg/custody"
)

// JSONExporter exports custody dossiers to JSON format.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{
		Pretty: pretty,
	}
}

// Export writes custody dossiers to the provided writer as a JSON array.
// If Pretty is true, the JSON will be indented for readability.
func (e *JSONExporter) Export(ctx context.Context, dossiers []*Dossier, w io.Writer) error {
	if len(dossiers) == 0 {
		// Write empty array
		_, err := w.Write([]byte("[]"))
		return err
	}

	var data []byte
	var err error

	if e.Pretty {
		data, err = json.MarshalIndent(dossiers, "", "  ")
	} else {
		data, err = json.Marshal(dossiers)
	}
	if err != nil {
		return custody.NewExportError("json", len(dossiers), err)
	}

	_, err = w.Write(data)
	if err != nil {
		return custody.NewExportError("json", len(dossiers), err)
	}

	return nil
}

// ExportStream exports custody dossiers from a channel as a JSON array.
// This is memory-efficient for large productions as it streams dossiers
// one at a time instead of loading all of them in memory.
func (e *JSONExporter) ExportStream(ctx context.Context, dossiersCh <-chan *Dossier, w io.Writer) error {
	// Write opening bracket
	if _, err := w.Write([]byte("[")); err != nil {
		return custody.NewExportError("json", 0, err)
	}

	first := true
	count := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case dossier, ok := <-dossiersCh:
			if !ok {
				// Channel closed - write closing bracket and return
				if _, err := w.Write([]byte("]")); err != nil {
					return custody.NewExportError("json", count, err)
				}
				return nil
			}

			// Write comma and newline before all but first dossier
			if !first {
				if _, err := w.Write([]byte(",")); err != nil {
					return custody.NewExportError("json", count, err)
				}
				if e.Pretty {
					if _, err := w.Write([]byte("\n")); err != nil {
						return custody.NewExportError("json", count, err)
					}
				}
			}
			first = false

			data, err := e.serializeDossier(dossier)
			if err != nil {
				return custody.NewExportError("json", count, err)
			}

			if _, err := w.Write(data); err != nil {
				return custody.NewExportError("json", count, err)
			}

			count++
		}
	}
}

// serializeDossier serializes a single dossier to JSON.
func (e *JSONExporter) serializeDossier(dossier *Dossier) ([]byte, error) {
	if e.Pretty {
		return json.MarshalIndent(dossier, "  ", "  ")
	}
	return json.Marshal(dossier)
}
