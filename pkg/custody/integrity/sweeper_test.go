package integrity

import (
	"context"
	"testing"
	"time"

	"custodia-hq/custodia/pkg/custody"
	"custodia-hq/custodia/pkg/custody/anchor"
	"custodia-hq/custodia/pkg/custody/classifier"
	"custodia-hq/custodia/pkg/custody/hashchain"
	"custodia-hq/custodia/pkg/custody/ledger"
	"custodia-hq/custodia/pkg/custody/storage"
	"custodia-hq/custodia/pkg/custody/store"
)

var collectedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// seedItem intakes one item with a second event and returns its ID.
func seedItem(t *testing.T, s *store.Store, title string) string {
	t.Helper()

	item, err := s.Intake(context.Background(), store.IntakeInput{
		Title:          title,
		Type:           custody.TypePhysical,
		CaseID:         "CASE-2041",
		CollectionDate: collectedAt,
		CollectedBy:    "Officer Chen",
		Location:       "Evidence locker 4",
		Actor:          "Officer Chen",
		Timestamp:      collectedAt,
	})
	if err != nil {
		t.Fatalf("Intake() failed: %v", err)
	}

	_, err = s.RecordEvent(context.Background(), item.ID, ledger.EventInput{
		Actor:     "Officer Chen",
		Action:    custody.ActionStored,
		Timestamp: collectedAt.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("RecordEvent() failed: %v", err)
	}
	return item.ID
}

func TestSweep_Clean(t *testing.T) {
	st := storage.NewMemoryStorage()
	anchors := anchor.NewMemoryLog()
	s := store.New(st, ledger.New(st), classifier.New(nil), anchors)

	seedItem(t, s, "Kitchen knife")
	seedItem(t, s, "Laptop, silver")

	sweeper := NewSweeper(s, anchors, nil)
	report, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() failed: %v", err)
	}

	if !report.OK() {
		t.Errorf("Sweep() found failures on a clean collection: %+v", report.Failures)
	}
	if report.Checked != 2 {
		t.Errorf("Checked = %d, want 2", report.Checked)
	}
}

func TestSweep_BrokenChain(t *testing.T) {
	// Seed storage with a tampered chain, then load a store over it.
	st := storage.NewMemoryStorage()
	ctx := context.Background()

	item := &custody.EvidenceItem{
		ID: "item-1", Title: "Kitchen knife", Type: custody.TypePhysical,
		CaseID: "CASE-2041", Custodian: "Officer Chen",
		Admissibility: custody.AdmissibilityPending,
		CreatedAt:     collectedAt, UpdatedAt: collectedAt,
	}
	first := &custody.CustodyEvent{
		ItemID: "item-1", Sequence: 0, Timestamp: collectedAt,
		Actor: "Officer Chen", Action: custody.ActionCollected,
		ToCustodian: "Officer Chen", PriorHash: custody.GenesisHash,
	}
	first.Hash = hashchain.Digest(first, custody.GenesisHash)
	first.Notes = "edited after hashing"
	if err := st.CreateItem(ctx, item, first); err != nil {
		t.Fatalf("CreateItem() failed: %v", err)
	}

	s := store.New(st, ledger.New(st), classifier.New(nil), nil)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	sweeper := NewSweeper(s, nil, nil)
	report, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep() failed: %v", err)
	}

	if len(report.Failures) != 1 {
		t.Fatalf("Sweep() found %d failures, want 1", len(report.Failures))
	}
	f := report.Failures[0]
	if f.Kind != FailureChainBroken {
		t.Errorf("Kind = %s, want %s", f.Kind, FailureChainBroken)
	}
	if f.ItemID != "item-1" || f.Sequence != 0 {
		t.Errorf("failure = %+v, want item-1 at sequence 0", f)
	}
}

func TestSweep_AnchorDrift(t *testing.T) {
	st := storage.NewMemoryStorage()
	anchors := anchor.NewMemoryLog()
	s := store.New(st, ledger.New(st), classifier.New(nil), anchors)
	ctx := context.Background()

	id := seedItem(t, s, "Kitchen knife")

	// Record a bogus later anchor, as if the chain head changed behind the
	// anchor log's back.
	if err := anchors.Record(ctx, &anchor.Anchor{
		ItemID: id, Sequence: 9, Hash: "not-the-chain-head", AnchoredAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	sweeper := NewSweeper(s, anchors, nil)
	report, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep() failed: %v", err)
	}

	if len(report.Failures) != 1 {
		t.Fatalf("Sweep() found %d failures, want 1", len(report.Failures))
	}
	if report.Failures[0].Kind != FailureAnchorDrift {
		t.Errorf("Kind = %s, want %s", report.Failures[0].Kind, FailureAnchorDrift)
	}
}

func TestSweep_AnchorMissing(t *testing.T) {
	st := storage.NewMemoryStorage()
	s := store.New(st, ledger.New(st), classifier.New(nil), nil) // no anchoring at append time
	seedItem(t, s, "Kitchen knife")

	// Sweeping against an empty anchor log reports the gap.
	sweeper := NewSweeper(s, anchor.NewMemoryLog(), nil)
	report, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() failed: %v", err)
	}

	if len(report.Failures) != 1 {
		t.Fatalf("Sweep() found %d failures, want 1", len(report.Failures))
	}
	if report.Failures[0].Kind != FailureAnchorMissing {
		t.Errorf("Kind = %s, want %s", report.Failures[0].Kind, FailureAnchorMissing)
	}
}

func TestSweep_NoAnchorLogSkipsAnchorChecks(t *testing.T) {
	st := storage.NewMemoryStorage()
	s := store.New(st, ledger.New(st), classifier.New(nil), nil)
	seedItem(t, s, "Kitchen knife")

	sweeper := NewSweeper(s, nil, nil)
	report, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() failed: %v", err)
	}
	if !report.OK() {
		t.Errorf("Sweep() without an anchor log reported failures: %+v", report.Failures)
	}
}

func TestSweep_Cancellation(t *testing.T) {
	st := storage.NewMemoryStorage()
	s := store.New(st, ledger.New(st), classifier.New(nil), nil)
	seedItem(t, s, "Kitchen knife")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sweeper := NewSweeper(s, nil, nil)
	if _, err := sweeper.Sweep(ctx); err == nil {
		t.Error("Sweep() with cancelled context = nil, want error")
	}
}

func TestScheduler(t *testing.T) {
	st := storage.NewMemoryStorage()
	s := store.New(st, ledger.New(st), classifier.New(nil), nil)
	sweeper := NewSweeper(s, nil, nil)

	sched := NewScheduler(sweeper, "0 3 * * *")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !sched.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}
	if next := sched.NextRun(); next == nil || next.IsZero() {
		t.Error("NextRun() is unset while running")
	}

	sched.Stop()
	if sched.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}

func TestScheduler_EmptyScheduleDisabled(t *testing.T) {
	st := storage.NewMemoryStorage()
	s := store.New(st, ledger.New(st), classifier.New(nil), nil)
	sweeper := NewSweeper(s, nil, nil)

	sched := NewScheduler(sweeper, "")
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start() with empty schedule = %v, want nil", err)
	}
	if sched.IsRunning() {
		t.Error("IsRunning() = true with no schedule configured")
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	st := storage.NewMemoryStorage()
	s := store.New(st, ledger.New(st), classifier.New(nil), nil)
	sweeper := NewSweeper(s, nil, nil)

	sched := NewScheduler(sweeper, "not a cron expression")
	if err := sched.Start(context.Background()); err == nil {
		t.Error("Start() with invalid schedule = nil, want error")
	}
}
