package storage

import (
	"context"
	"fmt"
	"sync"

	"custodia-hq/custodia/pkg/custody"
)

// MemoryStorage implements custody.Storage with in-process maps. It is
// intended for tests and ephemeral deployments; nothing survives a restart.
type MemoryStorage struct {
	mu     sync.RWMutex
	items  map[string]*custody.EvidenceItem
	events map[string][]*custody.CustodyEvent
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		items:  make(map[string]*custody.EvidenceItem),
		events: make(map[string][]*custody.CustodyEvent),
	}
}

// CreateItem inserts a new item projection together with its first event.
func (s *MemoryStorage) CreateItem(ctx context.Context, item *custody.EvidenceItem, first *custody.CustodyEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; exists {
		return custody.NewStorageError("memory", "create_item",
			fmt.Errorf("item %s already exists", item.ID))
	}
	if first.Sequence != 0 {
		return custody.NewStorageError("memory", "create_item",
			fmt.Errorf("first event for item %s has sequence %d", item.ID, first.Sequence))
	}

	eventCopy := *first
	s.items[item.ID] = item.Clone()
	s.events[item.ID] = []*custody.CustodyEvent{&eventCopy}
	return nil
}

// UpdateItem rewrites an existing item projection.
func (s *MemoryStorage) UpdateItem(ctx context.Context, item *custody.EvidenceItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; !exists {
		return custody.NewStorageError("memory", "update_item",
			fmt.Errorf("item %s does not exist", item.ID))
	}
	s.items[item.ID] = item.Clone()
	return nil
}

// AppendEvent persists an event and the refreshed projection atomically.
// The (item_id, sequence) pair is enforced unique, matching the SQLite
// backend's primary key.
func (s *MemoryStorage) AppendEvent(ctx context.Context, event *custody.CustodyEvent, item *custody.EvidenceItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := s.events[event.ItemID]
	if event.Sequence != int64(len(chain)) {
		return custody.NewStorageError("memory", "append_event",
			fmt.Errorf("sequence %d conflicts with chain length %d for item %s",
				event.Sequence, len(chain), event.ItemID))
	}

	eventCopy := *event
	s.events[event.ItemID] = append(chain, &eventCopy)
	s.items[item.ID] = item.Clone()
	return nil
}

// Events returns the item's history in ascending sequence order.
func (s *MemoryStorage) Events(ctx context.Context, itemID string) ([]*custody.CustodyEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.events[itemID]
	out := make([]*custody.CustodyEvent, len(chain))
	for i, event := range chain {
		eventCopy := *event
		out[i] = &eventCopy
	}
	return out, nil
}

// AllEvents returns every stored event grouped by item.
func (s *MemoryStorage) AllEvents(ctx context.Context) (map[string][]*custody.CustodyEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]*custody.CustodyEvent, len(s.events))
	for itemID, chain := range s.events {
		events := make([]*custody.CustodyEvent, len(chain))
		for i, event := range chain {
			eventCopy := *event
			events[i] = &eventCopy
		}
		out[itemID] = events
	}
	return out, nil
}

// Items returns all item projections.
func (s *MemoryStorage) Items(ctx context.Context) ([]*custody.EvidenceItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*custody.EvidenceItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item.Clone())
	}
	return out, nil
}

// Ping always succeeds for the in-memory backend.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close releases the backing maps.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]*custody.EvidenceItem)
	s.events = make(map[string][]*custody.CustodyEvent)
	return nil
}

// Size returns the number of items in storage (for testing).
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}
