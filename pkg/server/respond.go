package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"custodia-hq/custodia/pkg/custody"
	"custodia-hq/custodia/pkg/custody/store"
)

// apiError is the error payload inside the response envelope.
type apiError struct {
	Code         string                  `json:"code"`
	Message      string                  `json:"message"`
	ItemID       string                  `json:"item_id,omitempty"`
	ValidActions []custody.CustodyAction `json:"valid_actions,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// writeError maps a domain error onto the API's error envelope.
//
// Ledger errors carry the mapping:
//   - invalid_transition, item_destroyed  -> 409 Conflict
//   - out_of_order_timestamp, invalid_custodian -> 422 Unprocessable Entity
//   - item_not_found -> 404 Not Found
//
// Query validation failures map to 400; anything unrecognized is a 500
// with no internal detail exposed.
func writeError(w http.ResponseWriter, err error) {
	if lerr, ok := custody.AsLedgerError(err); ok {
		writeJSON(w, ledgerErrorStatus(lerr), map[string]apiError{"error": {
			Code:         string(lerr.Kind),
			Message:      lerr.Error(),
			ItemID:       lerr.ItemID,
			ValidActions: lerr.ValidActions,
		}})
		return
	}

	var qerr *custody.QueryError
	if errors.As(err, &qerr) {
		writeJSON(w, http.StatusBadRequest, map[string]apiError{"error": {
			Code:    "invalid_query",
			Message: qerr.Error(),
		}})
		return
	}

	var ierr *store.InputError
	if errors.As(err, &ierr) {
		writeJSON(w, http.StatusBadRequest, map[string]apiError{"error": {
			Code:    "invalid_request",
			Message: ierr.Error(),
		}})
		return
	}

	var verr validationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]apiError{"error": {
			Code:    "invalid_request",
			Message: verr.Error(),
		}})
		return
	}

	slog.Error("unhandled error in handler", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]apiError{"error": {
		Code:    "internal_error",
		Message: "An internal error occurred. Please try again later.",
	}})
}

// ledgerErrorStatus maps a ledger error kind to an HTTP status code.
func ledgerErrorStatus(err *custody.LedgerError) int {
	switch err.Kind {
	case custody.KindInvalidTransition, custody.KindItemDestroyed:
		return http.StatusConflict
	case custody.KindOutOfOrderTimestamp, custody.KindInvalidCustodian:
		return http.StatusUnprocessableEntity
	case custody.KindItemNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// validationError marks a request-shape problem as a client error.
type validationError struct {
	err error
}

func (e validationError) Error() string { return e.err.Error() }
func (e validationError) Unwrap() error { return e.err }
