package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"custodia-hq/custodia/pkg/custody"
	"custodia-hq/custodia/pkg/custody/anchor"
	"custodia-hq/custodia/pkg/custody/classifier"
	"custodia-hq/custodia/pkg/custody/ledger"
	"custodia-hq/custodia/pkg/custody/query"
)

// IntakeInput carries the fields needed to enter a new item into custody.
type IntakeInput struct {
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Type        custody.EvidenceType `json:"type"`
	CaseID      string               `json:"case_id"`
	Tags        []string             `json:"tags,omitempty"`

	CollectionDate time.Time `json:"collection_date"`
	CollectedBy    string    `json:"collected_by"`
	Location       string    `json:"location"`

	// Actor is who performs the intake; required.
	Actor string `json:"actor"`

	// Custodian is who takes initial custody. Defaults to Actor.
	Custodian string `json:"custodian,omitempty"`

	Notes string `json:"notes,omitempty"`

	// Timestamp of the Collected event. Defaults to the current time.
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// DetailsInput amends descriptive fields. Nil pointers leave a field
// unchanged; a nil Tags slice leaves tags unchanged.
type DetailsInput struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Location    *string  `json:"location,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// entry pairs an item with the mutex that guards its projection. Per-item
// locking lets appends to different items proceed fully in parallel while
// readers always see either the whole append or none of it.
type entry struct {
	mu   sync.RWMutex
	item *custody.EvidenceItem
}

// Store is the aggregate root over the evidence collection.
type Store struct {
	storage    custody.Storage
	ledger     *ledger.Ledger
	classifier *classifier.Classifier
	anchors    anchor.Log
	logger     *slog.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	order   []string // intake order, preserved by Query
}

// New creates a store. The anchor log may be nil, in which case no anchors
// are recorded and items carry no integrity anchor.
func New(storage custody.Storage, led *ledger.Ledger, cls *classifier.Classifier, anchors anchor.Log) *Store {
	if cls == nil {
		cls = classifier.New(nil)
	}
	return &Store{
		storage:    storage,
		ledger:     led,
		classifier: cls,
		anchors:    anchors,
		logger:     slog.Default().With("component", "custody.store"),
		entries:    make(map[string]*entry),
		order:      []string{},
	}
}

// Load seeds the store and ledger from storage. Call once at startup.
// Items are ordered by creation time so query order is stable across
// restarts.
func (s *Store) Load(ctx context.Context) error {
	if err := s.ledger.Load(ctx); err != nil {
		return err
	}

	items, err := s.storage.Items(ctx)
	if err != nil {
		return fmt.Errorf("loading evidence items: %w", err)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.entries[item.ID] = &entry{item: item}
		s.order = append(s.order, item.ID)
	}

	s.logger.Info("evidence store loaded", "items", len(items))
	return nil
}

// Intake creates a new evidence item and appends its first Collected event
// in one atomic step. An item never exists without at least one ledger
// event.
func (s *Store) Intake(ctx context.Context, in IntakeInput) (*custody.EvidenceItem, error) {
	if err := validateIntake(in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	timestamp := in.Timestamp
	if timestamp.IsZero() {
		timestamp = now
	}
	custodian := in.Custodian
	if custodian == "" {
		custodian = in.Actor
	}

	item := &custody.EvidenceItem{
		ID:             uuid.New().String(),
		Title:          in.Title,
		Description:    in.Description,
		Type:           in.Type,
		CaseID:         in.CaseID,
		Tags:           in.Tags,
		CollectionDate: in.CollectionDate,
		CollectedBy:    in.CollectedBy,
		Location:       in.Location,
		Custodian:      custody.UnassignedCustodian,
		Admissibility:  custody.AdmissibilityPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	event, err := s.ledger.Intake(ctx, item, ledger.EventInput{
		Actor:       in.Actor,
		Action:      custody.ActionCollected,
		ToCustodian: custodian,
		Notes:       in.Notes,
		Timestamp:   timestamp,
	})
	if err != nil {
		return nil, err
	}

	s.reclassify(ctx, item)
	s.recordAnchor(ctx, event)

	s.mu.Lock()
	s.entries[item.ID] = &entry{item: item}
	s.order = append(s.order, item.ID)
	s.mu.Unlock()

	return item.Clone(), nil
}

// RecordEvent appends a custody event to an existing item, re-evaluates
// admissibility, and refreshes the cached projections.
func (s *Store) RecordEvent(ctx context.Context, itemID string, in ledger.EventInput) (*custody.CustodyEvent, error) {
	e, err := s.entry(itemID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	event, err := s.ledger.Append(ctx, e.item, in)
	if err != nil {
		return nil, err
	}

	s.reclassify(ctx, e.item)
	s.recordAnchor(ctx, event)

	return event, nil
}

// Get returns a copy of the item, or an item-not-found ledger error.
func (s *Store) Get(itemID string) (*custody.EvidenceItem, error) {
	e, err := s.entry(itemID)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.item.Clone(), nil
}

// History returns the item's full custody history in ascending sequence
// order.
func (s *Store) History(itemID string) ([]*custody.CustodyEvent, error) {
	if _, err := s.entry(itemID); err != nil {
		return nil, err
	}
	return s.ledger.History(itemID), nil
}

// Verify re-walks the item's chain and reports the first integrity
// failure, if any.
func (s *Store) Verify(itemID string) error {
	if _, err := s.entry(itemID); err != nil {
		return err
	}
	return s.ledger.Verify(itemID)
}

// Query evaluates a filter over the collection. The snapshot preserves
// intake order; each returned item is a copy.
func (s *Store) Query(ctx context.Context, filter *custody.Filter) ([]*custody.EvidenceItem, error) {
	if filter == nil {
		filter = &custody.Filter{}
	}
	if err := query.Validate(filter); err != nil {
		return nil, err
	}
	return query.Evaluate(s.snapshot(), filter), nil
}

// UpdateDetails amends descriptive fields only. Custody and admissibility
// fields are ledger-derived and cannot be set here, but amendments to
// collection metadata can change the classification, so the item is
// re-evaluated afterwards.
func (s *Store) UpdateDetails(ctx context.Context, itemID string, in DetailsInput) (*custody.EvidenceItem, error) {
	e, err := s.entry(itemID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	updated := e.item.Clone()
	if in.Title != nil {
		updated.Title = *in.Title
	}
	if in.Description != nil {
		updated.Description = *in.Description
	}
	if in.Location != nil {
		updated.Location = *in.Location
	}
	if in.Tags != nil {
		updated.Tags = append([]string(nil), in.Tags...)
	}
	updated.UpdatedAt = time.Now().UTC()
	updated.Admissibility = s.cls().Classify(updated, s.ledger.History(itemID))

	if err := s.storage.UpdateItem(ctx, updated); err != nil {
		return nil, err
	}

	*e.item = *updated
	return updated.Clone(), nil
}

// Rebuild recomputes every item projection by replaying the event table
// and persists the result. The projections are caches: the event chain is
// the only source of truth.
func (s *Store) Rebuild(ctx context.Context) error {
	s.mu.RLock()
	ids := append([]string(nil), s.order...)
	s.mu.RUnlock()

	for _, id := range ids {
		e, err := s.entry(id)
		if err != nil {
			return err
		}

		e.mu.Lock()
		history := s.ledger.History(id)
		rebuilt := e.item.Clone()
		rebuilt.Custodian = deriveCustodian(history)
		if n := len(history); n > 0 {
			rebuilt.AnchorHash = history[n-1].Hash
		}
		rebuilt.Admissibility = s.cls().Classify(rebuilt, history)

		if err := s.storage.UpdateItem(ctx, rebuilt); err != nil {
			e.mu.Unlock()
			return err
		}
		*e.item = *rebuilt
		e.mu.Unlock()
	}

	s.logger.Info("item projections rebuilt", "items", len(ids))
	return nil
}

// Items returns copies of all items in intake order.
func (s *Store) Items() []*custody.EvidenceItem {
	return s.snapshot()
}

// ItemIDs returns all item IDs in intake order.
func (s *Store) ItemIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// SetClassifierConfig swaps the admissibility thresholds, typically after
// a configuration reload. Call Rebuild afterwards to re-evaluate existing
// items under the new thresholds.
func (s *Store) SetClassifierConfig(cfg *classifier.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classifier = classifier.New(cfg)
}

// cls returns the current classifier under the store lock; the classifier
// itself is immutable once built.
func (s *Store) cls() *classifier.Classifier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.classifier
}

// entry looks up the item entry, mapping absence to KindItemNotFound.
func (s *Store) entry(itemID string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[itemID]
	if !ok {
		return nil, custody.NewItemNotFound(itemID)
	}
	return e, nil
}

// snapshot copies every item under its read lock, preserving intake order.
func (s *Store) snapshot() []*custody.EvidenceItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]*custody.EvidenceItem, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		e.mu.RLock()
		items = append(items, e.item.Clone())
		e.mu.RUnlock()
	}
	return items
}

// reclassify re-runs the classifier and persists the projection when the
// status changed. The caller holds the item's write lock. A persistence
// failure here is logged, not returned: the event is already committed and
// the projection is rebuildable by replay.
func (s *Store) reclassify(ctx context.Context, item *custody.EvidenceItem) {
	status := s.cls().Classify(item, s.ledger.History(item.ID))
	if status == item.Admissibility {
		return
	}

	item.Admissibility = status
	if err := s.storage.UpdateItem(ctx, item); err != nil {
		s.logger.Warn("failed to persist admissibility projection",
			"item_id", item.ID,
			"status", status,
			"error", err,
		)
	}
}

// recordAnchor appends the new chain head to the anchor log. Anchoring is
// supplementary tamper evidence; a failure is logged, not returned.
func (s *Store) recordAnchor(ctx context.Context, event *custody.CustodyEvent) {
	if s.anchors == nil {
		return
	}

	err := s.anchors.Record(ctx, &anchor.Anchor{
		ItemID:     event.ItemID,
		Sequence:   event.Sequence,
		Hash:       event.Hash,
		AnchoredAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("failed to record chain anchor",
			"item_id", event.ItemID,
			"sequence", event.Sequence,
			"error", err,
		)
	}
}

// deriveCustodian replays a history to find the current holder: the
// to-custodian of the most recent custody-setting event, or the sentinel.
func deriveCustodian(history []*custody.CustodyEvent) string {
	custodian := custody.UnassignedCustodian
	for _, event := range history {
		if event.Action.SetsCustodian() {
			custodian = event.ToCustodian
		}
	}
	return custodian
}

// InputError reports a malformed intake or amendment request.
type InputError struct {
	Message string
}

// Error implements the error interface.
func (e *InputError) Error() string {
	return e.Message
}

// validateIntake checks the intake fields before any ID is assigned.
func validateIntake(in IntakeInput) error {
	if in.Title == "" {
		return &InputError{Message: "intake: title is required"}
	}
	if !in.Type.Valid() {
		return &InputError{Message: fmt.Sprintf("intake: invalid evidence type %q", in.Type)}
	}
	if in.CaseID == "" {
		return &InputError{Message: "intake: case_id is required"}
	}
	if in.Actor == "" {
		return &InputError{Message: "intake: actor is required"}
	}
	return nil
}
