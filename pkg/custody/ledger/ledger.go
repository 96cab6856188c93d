package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"custodia-hq/custodia/pkg/custody"
	"custodia-hq/custodia/pkg/custody/hashchain"
)

// EventInput carries the caller-supplied fields of a custody event. The
// ledger assigns sequence, prior hash, and digest itself.
type EventInput struct {
	Actor         string                `json:"actor"`
	Action        custody.CustodyAction `json:"action"`
	FromCustodian string                `json:"from_custodian,omitempty"`
	ToCustodian   string                `json:"to_custodian,omitempty"`
	Notes         string                `json:"notes,omitempty"`
	Timestamp     time.Time             `json:"timestamp"`
}

// chain holds one item's in-memory event sequence. The mutex serializes
// appends to the item; reads take it briefly to copy the slice header.
type chain struct {
	mu     sync.RWMutex
	events []*custody.CustodyEvent
}

// Ledger is the only writer of custody events. It owns the in-memory
// chains and commits every append synchronously to storage before making
// it visible to readers.
type Ledger struct {
	storage custody.Storage
	logger  *slog.Logger

	mu     sync.RWMutex
	chains map[string]*chain
}

// New creates a ledger backed by the given storage.
func New(storage custody.Storage) *Ledger {
	return &Ledger{
		storage: storage,
		logger:  slog.Default().With("component", "custody.ledger"),
		chains:  make(map[string]*chain),
	}
}

// Load seeds the in-memory chains from storage. Call once at startup,
// before the ledger is shared. Loaded chains are verified so a tampered
// database is caught before the service starts answering.
func (l *Ledger) Load(ctx context.Context) error {
	byItem, err := l.storage.AllEvents(ctx)
	if err != nil {
		return fmt.Errorf("loading custody chains: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0
	broken := 0
	for itemID, events := range byItem {
		// A chain that fails verification is still loaded: the item must
		// remain visible so the classifier can exclude it and verification
		// can report where the break is. It only stops accepting appends.
		if err := hashchain.VerifyChain(events); err != nil {
			broken++
			l.logger.Error("custody chain failed verification on load",
				"item_id", itemID,
				"error", err,
			)
		}
		l.chains[itemID] = &chain{events: events}
		total += len(events)
	}

	l.logger.Info("custody chains loaded",
		"items", len(byItem),
		"events", total,
		"broken", broken,
	)
	return nil
}

// Intake records the first event of a new item's chain and persists it
// atomically with the item projection. The action must be Collected and the
// item must have no prior events; everything else follows Append semantics.
func (l *Ledger) Intake(ctx context.Context, item *custody.EvidenceItem, in EventInput) (*custody.CustodyEvent, error) {
	if err := validateInput(item.ID, in); err != nil {
		return nil, err
	}
	if in.Action != custody.ActionCollected {
		return nil, custody.NewInvalidTransition(item.ID, "", in.Action, ValidActions(""))
	}

	c := l.chainFor(item.ID)
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.events) > 0 {
		return nil, custody.NewInvalidTransition(item.ID, c.events[len(c.events)-1].Action,
			in.Action, ValidActions(c.events[len(c.events)-1].Action))
	}

	timestamp := in.Timestamp.UTC()
	event := &custody.CustodyEvent{
		ItemID:      item.ID,
		Sequence:    0,
		Timestamp:   timestamp,
		Actor:       in.Actor,
		Action:      in.Action,
		ToCustodian: in.ToCustodian,
		Notes:       in.Notes,
		PriorHash:   custody.GenesisHash,
	}
	event.Hash = hashchain.Digest(event, custody.GenesisHash)

	projection := item.Clone()
	projection.Custodian = in.ToCustodian
	projection.AnchorHash = event.Hash
	projection.UpdatedAt = timestamp

	if err := l.storage.CreateItem(ctx, projection, event); err != nil {
		l.logger.Error("intake commit failed",
			"item_id", item.ID,
			"error", err,
		)
		return nil, err
	}

	c.events = append(c.events, event)
	*item = *projection

	l.logger.Info("evidence item entered into custody",
		"item_id", item.ID,
		"actor", in.Actor,
		"custodian", in.ToCustodian,
	)

	return event, nil
}

// Append validates, persists, and records a custody event for item. The
// item's cached custodian and anchor hash are refreshed atomically with the
// append: callers must hold whatever lock guards the item projection.
//
// A nil error means the event was committed to storage and is visible in
// History. Any error means nothing changed: no sequence was consumed and
// the item was not touched.
func (l *Ledger) Append(ctx context.Context, item *custody.EvidenceItem, in EventInput) (*custody.CustodyEvent, error) {
	if err := validateInput(item.ID, in); err != nil {
		return nil, err
	}

	c := l.chainFor(item.ID)
	c.mu.Lock()
	defer c.mu.Unlock()

	state := custody.CustodyAction("")
	priorHash := custody.GenesisHash
	var lastTimestamp time.Time
	if n := len(c.events); n > 0 {
		last := c.events[n-1]
		state = last.Action
		priorHash = last.Hash
		lastTimestamp = last.Timestamp
	}

	// Never extend a chain that fails verification. Appending on top of
	// tampered history would hash-link new events to a corrupt record.
	if err := hashchain.VerifyChain(c.events); err != nil {
		return nil, err
	}

	if state == custody.ActionDestroyed {
		return nil, custody.NewItemDestroyed(item.ID, in.Action)
	}
	if !legalTransition(state, in.Action) {
		return nil, custody.NewInvalidTransition(item.ID, state, in.Action, ValidActions(state))
	}

	timestamp := in.Timestamp.UTC()
	if !lastTimestamp.IsZero() && timestamp.Before(lastTimestamp) {
		return nil, custody.NewOutOfOrderTimestamp(item.ID, fmt.Sprintf(
			"timestamp %s precedes last event at %s",
			timestamp.Format(time.RFC3339Nano), lastTimestamp.Format(time.RFC3339Nano)))
	}

	event := &custody.CustodyEvent{
		ItemID:        item.ID,
		Sequence:      int64(len(c.events)),
		Timestamp:     timestamp,
		Actor:         in.Actor,
		Action:        in.Action,
		FromCustodian: in.FromCustodian,
		ToCustodian:   in.ToCustodian,
		Notes:         in.Notes,
		PriorHash:     priorHash,
	}
	event.Hash = hashchain.Digest(event, priorHash)

	// Refresh the projection on a copy so a failed commit leaves the
	// caller's item untouched.
	projection := item.Clone()
	if in.Action.SetsCustodian() {
		projection.Custodian = in.ToCustodian
	}
	projection.AnchorHash = event.Hash
	projection.UpdatedAt = timestamp

	if err := l.storage.AppendEvent(ctx, event, projection); err != nil {
		l.logger.Error("append commit failed",
			"item_id", item.ID,
			"sequence", event.Sequence,
			"action", in.Action,
			"error", err,
		)
		return nil, err
	}

	c.events = append(c.events, event)
	*item = *projection

	l.logger.Info("custody event appended",
		"item_id", item.ID,
		"sequence", event.Sequence,
		"action", in.Action,
		"actor", in.Actor,
	)

	return event, nil
}

// History returns the item's events in ascending sequence order. The
// returned slice is a copy; callers cannot mutate ledger state through it.
func (l *Ledger) History(itemID string) []*custody.CustodyEvent {
	l.mu.RLock()
	c, ok := l.chains[itemID]
	l.mu.RUnlock()
	if !ok {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	events := make([]*custody.CustodyEvent, len(c.events))
	copy(events, c.events)
	return events
}

// State returns the item's current custody state: the action of its most
// recent event, or the zero value if the item has no events.
func (l *Ledger) State(itemID string) custody.CustodyAction {
	l.mu.RLock()
	c, ok := l.chains[itemID]
	l.mu.RUnlock()
	if !ok {
		return ""
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.events) == 0 {
		return ""
	}
	return c.events[len(c.events)-1].Action
}

// Verify re-walks the item's full chain and reports the first integrity
// failure, if any. Verification never repairs: a broken chain is evidence
// of tampering and is surfaced, not fixed.
func (l *Ledger) Verify(itemID string) error {
	return hashchain.VerifyChain(l.History(itemID))
}

// chainFor returns the item's chain, creating an empty one on first use.
func (l *Ledger) chainFor(itemID string) *chain {
	l.mu.RLock()
	c, ok := l.chains[itemID]
	l.mu.RUnlock()
	if ok {
		return c
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok = l.chains[itemID]; ok {
		return c
	}
	c = &chain{}
	l.chains[itemID] = c
	return c
}

// validateInput checks the caller-supplied fields before any state is read.
func validateInput(itemID string, in EventInput) error {
	if !in.Action.Valid() {
		return &custody.LedgerError{
			Kind:      custody.KindInvalidTransition,
			ItemID:    itemID,
			Attempted: in.Action,
			Message:   fmt.Sprintf("unknown custody action %q", in.Action),
		}
	}
	if in.Actor == "" {
		return custody.NewInvalidCustodian(itemID, in.Action, "actor is required")
	}
	if in.Timestamp.IsZero() {
		return custody.NewOutOfOrderTimestamp(itemID, "timestamp is required")
	}

	switch {
	case in.Action.SetsCustodian() && in.ToCustodian == "":
		return custody.NewInvalidCustodian(itemID, in.Action,
			fmt.Sprintf("to_custodian is required for action %q", in.Action))
	case in.Action == custody.ActionDestroyed && in.ToCustodian != "":
		return custody.NewInvalidCustodian(itemID, in.Action,
			"to_custodian is not allowed for a destruction event")
	}

	return nil
}
