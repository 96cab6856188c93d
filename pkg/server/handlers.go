package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"custodia-hq/custodia/pkg/custody"
	"custodia-hq/custodia/pkg/custody/export"
	"custodia-hq/custodia/pkg/custody/ledger"
	"custodia-hq/custodia/pkg/custody/query"
	"custodia-hq/custodia/pkg/custody/store"
)

// handleIntake enters a new evidence item into custody.
//
// POST /evidence
func (s *Server) handleIntake(w http.ResponseWriter, r *http.Request) {
	var in store.IntakeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, validationError{fmt.Errorf("invalid request body: %w", err)})
		return
	}

	item, err := s.store.Intake(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// handleQuery evaluates filter parameters over the collection.
//
// GET /evidence
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, validationError{err})
		return
	}

	start := time.Now()
	items, err := s.store.Query(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.ObserveQueryDuration(time.Since(start))

	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

// handleGet returns one item.
//
// GET /evidence/{id}
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	item, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleUpdate amends an item's descriptive fields. Custody state and
// admissibility are derived from the ledger and cannot be set here.
//
// PATCH /evidence/{id}
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var in store.DetailsInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, validationError{fmt.Errorf("invalid request body: %w", err)})
		return
	}

	item, err := s.store.UpdateDetails(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleRecordEvent appends a custody event to an item's chain.
//
// POST /evidence/{id}/events
func (s *Server) handleRecordEvent(w http.ResponseWriter, r *http.Request) {
	var in ledger.EventInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, validationError{fmt.Errorf("invalid request body: %w", err)})
		return
	}

	event, err := s.store.RecordEvent(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.metrics.RecordAppendError(appendErrorKind(err))
		writeError(w, err)
		return
	}

	s.metrics.RecordAppend(string(event.Action))
	writeJSON(w, http.StatusCreated, event)
}

// handleHistory returns an item's custody history in ascending sequence
// order.
//
// GET /evidence/{id}/events
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.store.History(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": history,
		"count":  len(history),
	})
}

// verifyResponse is the wire shape of a chain verification result.
type verifyResponse struct {
	OK               bool   `json:"ok"`
	BrokenAtSequence *int64 `json:"brokenAtSequence,omitempty"`
	Kind             string `json:"kind,omitempty"`
}

// handleVerify re-walks an item's hash chain.
//
// GET /evidence/{id}/verify
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	err := s.store.Verify(r.PathValue("id"))
	if err == nil {
		writeJSON(w, http.StatusOK, verifyResponse{OK: true})
		return
	}

	if ierr, ok := custody.AsIntegrityError(err); ok {
		s.metrics.RecordVerifyFailure(string(ierr.Kind))
		seq := ierr.Sequence
		writeJSON(w, http.StatusOK, verifyResponse{
			OK:               false,
			BrokenAtSequence: &seq,
			Kind:             string(ierr.Kind),
		})
		return
	}

	writeError(w, err)
}

// handleAnchors returns the item's recorded chain-head anchors.
//
// GET /evidence/{id}/anchors
func (s *Server) handleAnchors(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")
	if _, err := s.store.Get(itemID); err != nil {
		writeError(w, err)
		return
	}

	if s.anchors == nil {
		writeJSON(w, http.StatusOK, map[string]any{"anchors": []any{}, "count": 0})
		return
	}

	anchors, err := s.anchors.List(r.Context(), itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"anchors": anchors,
		"count":   len(anchors),
	})
}

// handleExport streams the full collection as a discovery production.
//
// GET /export?format=json|csv
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	dossiers, err := export.Collect(s.store, nil)
	if err != nil {
		writeError(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		pretty, _ := strconv.ParseBool(r.URL.Query().Get("pretty"))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="custody-export.json"`)
		if err := export.NewJSONExporter(pretty).Export(r.Context(), dossiers, w); err != nil {
			writeError(w, err)
		}
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="custody-export.csv"`)
		if err := export.NewCSVExporter(true).Export(r.Context(), dossiers, w); err != nil {
			writeError(w, err)
		}
	default:
		writeError(w, validationError{fmt.Errorf("unknown export format %q", format)})
	}
}

// handleSweep runs an on-demand integrity sweep over every chain.
//
// POST /integrity/sweep
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	report, err := s.sweeper.Sweep(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// parseFilter builds a query filter from URL parameters.
func parseFilter(r *http.Request) (*custody.Filter, error) {
	q := r.URL.Query()
	filter := &custody.Filter{
		Search:      q.Get("search"),
		CaseID:      q.Get("case_id"),
		Custodian:   q.Get("custodian"),
		Location:    q.Get("location"),
		CollectedBy: q.Get("collected_by"),
		SortBy:      q.Get("sort_by"),
		SortOrder:   q.Get("sort_order"),
	}

	if val := q.Get("type"); val != "" {
		filter.Type = custody.EvidenceType(val)
	}
	if val := q.Get("admissibility"); val != "" {
		filter.Admissibility = custody.AdmissibilityStatus(val)
	}
	if val := q.Get("collected_from"); val != "" {
		t, err := time.Parse(time.RFC3339, val)
		if err != nil {
			return nil, fmt.Errorf("invalid collected_from %q: %w", val, err)
		}
		filter.CollectedFrom = &t
	}
	if val := q.Get("collected_to"); val != "" {
		t, err := time.Parse(time.RFC3339, val)
		if err != nil {
			return nil, fmt.Errorf("invalid collected_to %q: %w", val, err)
		}
		filter.CollectedTo = &t
	}
	if val := q.Get("tags"); val != "" {
		filter.Tags = strings.Split(val, ",")
	}
	if val := q.Get("has_anchor"); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return nil, fmt.Errorf("invalid has_anchor %q: %w", val, err)
		}
		filter.HasIntegrityAnchor = &b
	}
	if val := q.Get("limit"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid limit %q: %w", val, err)
		}
		filter.Limit = n
	}
	if val := q.Get("offset"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid offset %q: %w", val, err)
		}
		filter.Offset = n
	}

	// HTTP responses are always paginated; page past DefaultLimit with
	// limit/offset.
	query.ApplyDefaults(filter)

	return filter, nil
}

// appendErrorKind extracts the error kind label for metrics.
func appendErrorKind(err error) string {
	if lerr, ok := custody.AsLedgerError(err); ok {
		return string(lerr.Kind)
	}
	return "other"
}
