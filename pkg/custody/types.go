package custody

import (
	"context"
	"time"
)

// EvidenceType classifies the physical or digital nature of an evidence item.
type EvidenceType string

const (
	TypePhysical EvidenceType = "physical"
	TypeDocument EvidenceType = "document"
	TypeDigital  EvidenceType = "digital"
	TypePhoto    EvidenceType = "photo"
	TypeVideo    EvidenceType = "video"
	TypeAudio    EvidenceType = "audio"
	TypeOther    EvidenceType = "other"
)

// Valid reports whether t is a known evidence type.
func (t EvidenceType) Valid() bool {
	switch t {
	case TypePhysical, TypeDocument, TypeDigital, TypePhoto, TypeVideo, TypeAudio, TypeOther:
		return true
	}
	return false
}

// CustodyAction identifies what happened to an item in a custody event.
type CustodyAction string

const (
	ActionCollected   CustodyAction = "collected"
	ActionTransferred CustodyAction = "transferred"
	ActionAnalyzed    CustodyAction = "analyzed"
	ActionStored      CustodyAction = "stored"
	ActionPresented   CustodyAction = "presented"
	ActionReturned    CustodyAction = "returned"
	ActionDestroyed   CustodyAction = "destroyed"
)

// Valid reports whether a is a known custody action.
func (a CustodyAction) Valid() bool {
	switch a {
	case ActionCollected, ActionTransferred, ActionAnalyzed, ActionStored,
		ActionPresented, ActionReturned, ActionDestroyed:
		return true
	}
	return false
}

// SetsCustodian reports whether the action changes the item's current
// holder. Only Collected and Transferred set the custodian; Analyzed,
// Stored, Presented, and Returned append to history without moving custody.
func (a CustodyAction) SetsCustodian() bool {
	return a == ActionCollected || a == ActionTransferred
}

// AdmissibilityStatus is the evidentiary status derived from the ledger.
type AdmissibilityStatus string

const (
	AdmissibilityPending    AdmissibilityStatus = "pending"
	AdmissibilityAdmissible AdmissibilityStatus = "admissible"
	AdmissibilityChallenged AdmissibilityStatus = "challenged"
	AdmissibilityExcluded   AdmissibilityStatus = "excluded"
)

// Valid reports whether s is a known admissibility status.
func (s AdmissibilityStatus) Valid() bool {
	switch s {
	case AdmissibilityPending, AdmissibilityAdmissible, AdmissibilityChallenged, AdmissibilityExcluded:
		return true
	}
	return false
}

// UnassignedCustodian is the sentinel custodian for an item with no
// custody-setting event.
const UnassignedCustodian = "Unassigned"

// GenesisHash is the prior-hash sentinel for the first event of a chain.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// CustodyEvent is one immutable transfer/action record in an item's chain.
// Events are created only by the ledger and never mutated afterwards;
// corrections are modeled as new events referencing the earlier sequence.
type CustodyEvent struct {
	ItemID        string        `json:"item_id"`
	Sequence      int64         `json:"sequence"`
	Timestamp     time.Time     `json:"timestamp"`
	Actor         string        `json:"actor"`
	Action        CustodyAction `json:"action"`
	FromCustodian string        `json:"from_custodian,omitempty"`
	ToCustodian   string        `json:"to_custodian,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	PriorHash     string        `json:"prior_hash"`
	Hash          string        `json:"hash"`
}

// EvidenceItem represents one artifact entered into a matter.
//
// Custodian, Admissibility, and AnchorHash are projections derived from the
// event chain; they are refreshed by the store on every append and must
// never be edited directly.
type EvidenceItem struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Type        EvidenceType `json:"type"`
	CaseID      string       `json:"case_id"`
	Tags        []string     `json:"tags,omitempty"`

	// Provenance
	CollectionDate time.Time `json:"collection_date"`
	CollectedBy    string    `json:"collected_by"`
	Location       string    `json:"location"`

	// Ledger-derived projections
	Custodian     string              `json:"custodian"`
	Admissibility AdmissibilityStatus `json:"admissibility"`
	AnchorHash    string              `json:"blockchain_hash,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the item so callers can hand copies out
// without exposing internal state to mutation.
func (i *EvidenceItem) Clone() *EvidenceItem {
	c := *i
	if i.Tags != nil {
		c.Tags = make([]string, len(i.Tags))
		copy(c.Tags, i.Tags)
	}
	return &c
}

// Filter is an immutable query specification over the evidence collection.
// All set predicates are AND-ed; zero values impose no constraint.
type Filter struct {
	// Search matches case-insensitively against title and description.
	Search string `json:"search,omitempty"`

	Type          EvidenceType        `json:"type,omitempty"`
	Admissibility AdmissibilityStatus `json:"admissibility,omitempty"`

	// Substring predicates, case-insensitive.
	CaseID      string `json:"case_id,omitempty"`
	Custodian   string `json:"custodian,omitempty"`
	Location    string `json:"location,omitempty"`
	CollectedBy string `json:"collected_by,omitempty"`

	// CollectedFrom/CollectedTo bound the collection date, inclusive.
	CollectedFrom *time.Time `json:"collected_from,omitempty"`
	CollectedTo   *time.Time `json:"collected_to,omitempty"`

	// Tags matches items carrying any of the listed tags.
	Tags []string `json:"tags,omitempty"`

	// HasIntegrityAnchor, when set, requires the presence (true) or
	// absence (false) of a chain-head anchor hash.
	HasIntegrityAnchor *bool `json:"has_integrity_anchor,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Sorting. Empty SortBy preserves input order.
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

// Storage defines the persistence backend for items and custody events.
// Implementations must be safe for concurrent use.
//
// AppendEvent must atomically insert the event and update the item's
// projection row: either both are visible afterwards or neither is. The
// event table enforces uniqueness on (item_id, sequence).
type Storage interface {
	// CreateItem atomically inserts a new item projection together with
	// its first custody event. An item row never exists without at least
	// one ledger event.
	CreateItem(ctx context.Context, item *EvidenceItem, first *CustodyEvent) error

	// UpdateItem rewrites an existing item projection row.
	UpdateItem(ctx context.Context, item *EvidenceItem) error

	// AppendEvent atomically persists a custody event together with the
	// refreshed item projection.
	AppendEvent(ctx context.Context, event *CustodyEvent, item *EvidenceItem) error

	// Events returns the full event history for an item in ascending
	// sequence order.
	Events(ctx context.Context, itemID string) ([]*CustodyEvent, error)

	// AllEvents returns every stored event grouped by item, each group in
	// ascending sequence order. Used to rebuild in-memory state at startup.
	AllEvents(ctx context.Context) (map[string][]*CustodyEvent, error)

	// Items returns all item projections.
	Items(ctx context.Context) ([]*EvidenceItem, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the backend.
	Close() error
}
