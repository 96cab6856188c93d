package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"custodia-hq/custodia/pkg/custody"
)

// newTestSQLite opens a SQLite backend in a temp directory and closes it
// when the test ends.
func newTestSQLite(t *testing.T) *SQLiteStorage {
	t.Helper()

	config := DefaultSQLiteConfig()
	config.Path = filepath.Join(t.TempDir(), "custody.db")

	s, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStorage_RoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	item := testItem("item-1")
	item.Description = "Seized under warrant 41-B"
	item.Tags = []string{"electronics", "seized"}
	item.CollectionDate = time.Date(2026, 2, 27, 14, 30, 0, 0, time.UTC)
	item.CollectedBy = "Det. Reyes"
	item.Location = "Digital forensics lab"
	item.AnchorHash = "abc123"

	first := testEvent("item-1", 0)
	first.Action = custody.ActionCollected
	first.ToCustodian = "Det. Reyes"
	first.Notes = "intake at front desk"

	if err := s.CreateItem(ctx, item, first); err != nil {
		t.Fatalf("CreateItem() failed: %v", err)
	}

	items, err := s.Items(ctx)
	if err != nil {
		t.Fatalf("Items() failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Items() returned %d items, want 1", len(items))
	}

	got := items[0]
	if got.Title != item.Title || got.Description != item.Description {
		t.Errorf("item fields did not round-trip: got %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "electronics" {
		t.Errorf("Tags = %v, want %v", got.Tags, item.Tags)
	}
	if !got.CollectionDate.Equal(item.CollectionDate) {
		t.Errorf("CollectionDate = %v, want %v", got.CollectionDate, item.CollectionDate)
	}
	if got.AnchorHash != "abc123" {
		t.Errorf("AnchorHash = %s, want abc123", got.AnchorHash)
	}

	events, err := s.Events(ctx, "item-1")
	if err != nil {
		t.Fatalf("Events() failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Events() returned %d events, want 1", len(events))
	}
	if events[0].ToCustodian != "Det. Reyes" || events[0].Notes != "intake at front desk" {
		t.Errorf("event fields did not round-trip: got %+v", events[0])
	}
	if !events[0].Timestamp.Equal(first.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", events[0].Timestamp, first.Timestamp)
	}
}

func TestSQLiteStorage_SurvivesReopen(t *testing.T) {
	config := DefaultSQLiteConfig()
	config.Path = filepath.Join(t.TempDir(), "custody.db")
	ctx := context.Background()

	s, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() failed: %v", err)
	}

	item := testItem("item-1")
	if err := s.CreateItem(ctx, item, testEvent("item-1", 0)); err != nil {
		t.Fatalf("CreateItem() failed: %v", err)
	}
	if err := s.AppendEvent(ctx, testEvent("item-1", 1), item); err != nil {
		t.Fatalf("AppendEvent() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	reopened, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() on existing file failed: %v", err)
	}
	defer reopened.Close()

	all, err := reopened.AllEvents(ctx)
	if err != nil {
		t.Fatalf("AllEvents() failed: %v", err)
	}
	if len(all["item-1"]) != 2 {
		t.Errorf("chain has %d events after reopen, want 2", len(all["item-1"]))
	}
	for i, event := range all["item-1"] {
		if event.Sequence != int64(i) {
			t.Errorf("event %d has sequence %d, want ascending order", i, event.Sequence)
		}
	}
}

func TestSQLiteStorage_SequenceReuseRejected(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	item := testItem("item-1")
	if err := s.CreateItem(ctx, item, testEvent("item-1", 0)); err != nil {
		t.Fatalf("CreateItem() failed: %v", err)
	}
	if err := s.AppendEvent(ctx, testEvent("item-1", 1), item); err != nil {
		t.Fatalf("AppendEvent() failed: %v", err)
	}

	// The (item_id, sequence) primary key rejects the replay and the whole
	// transaction rolls back.
	if err := s.AppendEvent(ctx, testEvent("item-1", 1), item); err == nil {
		t.Fatal("AppendEvent() with reused sequence = nil, want error")
	}

	events, _ := s.Events(ctx, "item-1")
	if len(events) != 2 {
		t.Errorf("chain has %d events after rejected replay, want 2", len(events))
	}
}

func TestSQLiteStorage_UpdateItem(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	item := testItem("item-1")
	if err := s.CreateItem(ctx, item, testEvent("item-1", 0)); err != nil {
		t.Fatalf("CreateItem() failed: %v", err)
	}

	item.Title = "Hard drive, 2TB (re-labeled)"
	item.Admissibility = custody.AdmissibilityAdmissible
	if err := s.UpdateItem(ctx, item); err != nil {
		t.Fatalf("UpdateItem() failed: %v", err)
	}

	items, _ := s.Items(ctx)
	if items[0].Title != item.Title {
		t.Errorf("Title = %s, want %s", items[0].Title, item.Title)
	}
	if items[0].Admissibility != custody.AdmissibilityAdmissible {
		t.Errorf("Admissibility = %s, want admissible", items[0].Admissibility)
	}
}

func TestSQLiteStorage_UpdateItem_Unknown(t *testing.T) {
	s := newTestSQLite(t)
	if err := s.UpdateItem(context.Background(), testItem("ghost")); err == nil {
		t.Error("UpdateItem() on unknown item = nil, want error")
	}
}

func TestSQLiteStorage_Ping(t *testing.T) {
	s := newTestSQLite(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() = %v, want nil", err)
	}
}
