package custody

import (
	"errors"
	"fmt"
	"strings"
)

// LedgerErrorKind is the machine-readable category of a ledger error,
// used by the HTTP layer to map errors to status codes.
type LedgerErrorKind string

const (
	// KindInvalidTransition marks an action illegal from the current
	// custody state. Recoverable: the caller may choose a valid action.
	KindInvalidTransition LedgerErrorKind = "invalid_transition"

	// KindItemDestroyed marks an append attempted after the terminal
	// Destroyed event. Fatal for the operation, never retried.
	KindItemDestroyed LedgerErrorKind = "item_destroyed"

	// KindOutOfOrderTimestamp marks a timestamp preceding the last event's.
	// Recoverable: the caller may supply a corrected timestamp. Timestamps
	// are never silently clamped.
	KindOutOfOrderTimestamp LedgerErrorKind = "out_of_order_timestamp"

	// KindInvalidCustodian marks a custodian field violation: ToCustodian
	// missing for a custody-setting action, or present for Destroyed.
	KindInvalidCustodian LedgerErrorKind = "invalid_custodian"

	// KindItemNotFound marks an operation against an unknown item.
	KindItemNotFound LedgerErrorKind = "item_not_found"
)

// LedgerError is a typed, recoverable rejection from the custody ledger.
type LedgerError struct {
	Kind      LedgerErrorKind
	ItemID    string
	State     CustodyAction // last applied action, empty while Unassigned
	Attempted CustodyAction
	// ValidActions lists the actions legal from the current state, so the
	// caller can surface them with the rejection.
	ValidActions []CustodyAction
	Message      string
}

// Error implements the error interface.
func (e *LedgerError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ledger error [kind=%s, item=%s]", e.Kind, e.ItemID)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.ValidActions) > 0 {
		actions := make([]string, len(e.ValidActions))
		for i, a := range e.ValidActions {
			actions[i] = string(a)
		}
		fmt.Fprintf(&b, " (valid actions: %s)", strings.Join(actions, ", "))
	}
	return b.String()
}

// NewInvalidTransition creates a LedgerError for an action illegal from the
// current custody state.
func NewInvalidTransition(itemID string, state, attempted CustodyAction, valid []CustodyAction) *LedgerError {
	stateName := string(state)
	if stateName == "" {
		stateName = "unassigned"
	}
	return &LedgerError{
		Kind:         KindInvalidTransition,
		ItemID:       itemID,
		State:        state,
		Attempted:    attempted,
		ValidActions: valid,
		Message:      fmt.Sprintf("action %q is not valid from state %q", attempted, stateName),
	}
}

// NewItemDestroyed creates a LedgerError for an append after the terminal state.
func NewItemDestroyed(itemID string, attempted CustodyAction) *LedgerError {
	return &LedgerError{
		Kind:      KindItemDestroyed,
		ItemID:    itemID,
		State:     ActionDestroyed,
		Attempted: attempted,
		Message:   "item is destroyed; its chain is terminal",
	}
}

// NewOutOfOrderTimestamp creates a LedgerError for a backdated timestamp.
func NewOutOfOrderTimestamp(itemID, message string) *LedgerError {
	return &LedgerError{
		Kind:    KindOutOfOrderTimestamp,
		ItemID:  itemID,
		Message: message,
	}
}

// NewInvalidCustodian creates a LedgerError for a custodian field violation.
func NewInvalidCustodian(itemID string, attempted CustodyAction, message string) *LedgerError {
	return &LedgerError{
		Kind:      KindInvalidCustodian,
		ItemID:    itemID,
		Attempted: attempted,
		Message:   message,
	}
}

// NewItemNotFound creates a LedgerError for an unknown item.
func NewItemNotFound(itemID string) *LedgerError {
	return &LedgerError{
		Kind:    KindItemNotFound,
		ItemID:  itemID,
		Message: "no such evidence item",
	}
}

// AsLedgerError unwraps err to a *LedgerError if there is one in the chain.
func AsLedgerError(err error) (*LedgerError, bool) {
	var le *LedgerError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// IntegrityErrorKind distinguishes the two ways a chain can fail verification.
type IntegrityErrorKind string

const (
	// IntegrityBroken marks a digest mismatch: a stored event no longer
	// reproduces its recorded hash.
	IntegrityBroken IntegrityErrorKind = "broken"

	// IntegrityOutOfOrder marks non-contiguous sequence numbers.
	IntegrityOutOfOrder IntegrityErrorKind = "out_of_order"
)

// IntegrityError reports a tamper-evidence failure at a specific sequence.
// Integrity failures are never auto-repaired and never retried; the item is
// flagged for manual forensic review.
type IntegrityError struct {
	ItemID   string
	Kind     IntegrityErrorKind
	Sequence int64
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity error [kind=%s, item=%s, sequence=%d]", e.Kind, e.ItemID, e.Sequence)
}

// NewIntegrityBroken creates an IntegrityError for a digest mismatch.
func NewIntegrityBroken(itemID string, sequence int64) *IntegrityError {
	return &IntegrityError{ItemID: itemID, Kind: IntegrityBroken, Sequence: sequence}
}

// NewIntegrityOutOfOrder creates an IntegrityError for a sequence gap or repeat.
func NewIntegrityOutOfOrder(itemID string, sequence int64) *IntegrityError {
	return &IntegrityError{ItemID: itemID, Kind: IntegrityOutOfOrder, Sequence: sequence}
}

// AsIntegrityError unwraps err to an *IntegrityError if there is one in the chain.
func AsIntegrityError(err error) (*IntegrityError, bool) {
	var ie *IntegrityError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// StorageError represents an error from the persistence backend.
type StorageError struct {
	Backend   string // "sqlite", "memory"
	Operation string // "save_item", "append_event", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// QueryError represents an error during filter validation or evaluation.
type QueryError struct {
	Filter *Filter
	Cause  error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// NewQueryError creates a new QueryError.
func NewQueryError(filter *Filter, cause error) *QueryError {
	return &QueryError{
		Filter: filter,
		Cause:  cause,
	}
}

// ExportError represents an error during evidence export.
type ExportError struct {
	Format      string
	RecordCount int
	Cause       error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [format=%s, record_count=%d]: %v", e.Format, e.RecordCount, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, recordCount int, cause error) *ExportError {
	return &ExportError{
		Format:      format,
		RecordCount: recordCount,
		Cause:       cause,
	}
}
