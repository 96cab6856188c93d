package storage

import (
	"context"
	"testing"
	"time"

	"custodia-hq/custodia/pkg/custody"
)

func testItem(id string) *custody.EvidenceItem {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &custody.EvidenceItem{
		ID:            id,
		Title:         "Hard drive, 2TB",
		Type:          custody.TypeDigital,
		CaseID:        "CASE-2041",
		Custodian:     "Officer Chen",
		Admissibility: custody.AdmissibilityPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func testEvent(itemID string, seq int64) *custody.CustodyEvent {
	return &custody.CustodyEvent{
		ItemID:    itemID,
		Sequence:  seq,
		Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(seq) * time.Hour),
		Actor:     "Officer Chen",
		Action:    custody.ActionStored,
		PriorHash: custody.GenesisHash,
		Hash:      "test-hash",
	}
}

func TestMemoryStorage_CreateItem(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	first := testEvent("item-1", 0)
	first.Action = custody.ActionCollected
	if err := s.CreateItem(ctx, testItem("item-1"), first); err != nil {
		t.Fatalf("CreateItem() failed: %v", err)
	}

	items, err := s.Items(ctx)
	if err != nil {
		t.Fatalf("Items() failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Items() returned %d items, want 1", len(items))
	}

	events, err := s.Events(ctx, "item-1")
	if err != nil {
		t.Fatalf("Events() failed: %v", err)
	}
	if len(events) != 1 || events[0].Action != custody.ActionCollected {
		t.Errorf("Events() = %v, want the single collected event", events)
	}
}

func TestMemoryStorage_CreateItem_Duplicate(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	if err := s.CreateItem(ctx, testItem("item-1"), testEvent("item-1", 0)); err != nil {
		t.Fatalf("CreateItem() failed: %v", err)
	}
	if err := s.CreateItem(ctx, testItem("item-1"), testEvent("item-1", 0)); err == nil {
		t.Error("duplicate CreateItem() = nil, want error")
	}
}

func TestMemoryStorage_CreateItem_RejectsNonZeroSequence(t *testing.T) {
	s := NewMemoryStorage()
	if err := s.CreateItem(context.Background(), testItem("item-1"), testEvent("item-1", 3)); err == nil {
		t.Error("CreateItem() with sequence 3 = nil, want error")
	}
}

func TestMemoryStorage_AppendEvent(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	item := testItem("item-1")
	if err := s.CreateItem(ctx, item, testEvent("item-1", 0)); err != nil {
		t.Fatalf("CreateItem() failed: %v", err)
	}

	item.Custodian = "Det. Reyes"
	if err := s.AppendEvent(ctx, testEvent("item-1", 1), item); err != nil {
		t.Fatalf("AppendEvent() failed: %v", err)
	}

	// Event and projection land together.
	events, _ := s.Events(ctx, "item-1")
	if len(events) != 2 {
		t.Errorf("Events() returned %d events, want 2", len(events))
	}
	items, _ := s.Items(ctx)
	if items[0].Custodian != "Det. Reyes" {
		t.Errorf("projection custodian = %s, want Det. Reyes", items[0].Custodian)
	}
}

func TestMemoryStorage_AppendEvent_SequenceConflict(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	item := testItem("item-1")
	if err := s.CreateItem(ctx, item, testEvent("item-1", 0)); err != nil {
		t.Fatalf("CreateItem() failed: %v", err)
	}

	tests := []struct {
		name string
		seq  int64
	}{
		{"replayed sequence", 0},
		{"gapped sequence", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.AppendEvent(ctx, testEvent("item-1", tt.seq), item); err == nil {
				t.Errorf("AppendEvent(seq=%d) = nil, want error", tt.seq)
			}
		})
	}
}

func TestMemoryStorage_UpdateItem_Unknown(t *testing.T) {
	s := NewMemoryStorage()
	if err := s.UpdateItem(context.Background(), testItem("ghost")); err == nil {
		t.Error("UpdateItem() on unknown item = nil, want error")
	}
}

func TestMemoryStorage_AllEvents(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	for _, id := range []string{"item-1", "item-2"} {
		item := testItem(id)
		if err := s.CreateItem(ctx, item, testEvent(id, 0)); err != nil {
			t.Fatalf("CreateItem(%s) failed: %v", id, err)
		}
		if err := s.AppendEvent(ctx, testEvent(id, 1), item); err != nil {
			t.Fatalf("AppendEvent(%s) failed: %v", id, err)
		}
	}

	all, err := s.AllEvents(ctx)
	if err != nil {
		t.Fatalf("AllEvents() failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("AllEvents() returned %d chains, want 2", len(all))
	}
	for id, events := range all {
		if len(events) != 2 {
			t.Errorf("chain %s has %d events, want 2", id, len(events))
		}
	}
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	if err := s.CreateItem(ctx, testItem("item-1"), testEvent("item-1", 0)); err != nil {
		t.Fatalf("CreateItem() failed: %v", err)
	}

	items, _ := s.Items(ctx)
	items[0].Title = "mutated"
	again, _ := s.Items(ctx)
	if again[0].Title == "mutated" {
		t.Error("mutating a returned item mutated storage")
	}

	events, _ := s.Events(ctx, "item-1")
	events[0].Notes = "mutated"
	eventsAgain, _ := s.Events(ctx, "item-1")
	if eventsAgain[0].Notes == "mutated" {
		t.Error("mutating a returned event mutated storage")
	}
}

func TestMemoryStorage_Close(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	if err := s.CreateItem(ctx, testItem("item-1"), testEvent("item-1", 0)); err != nil {
		t.Fatalf("CreateItem() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if s.Size() != 0 {
		t.Errorf("Size() after Close = %d, want 0", s.Size())
	}
}
