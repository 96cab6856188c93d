package store

import (
	"context"
	"testing"
	"time"

	"custodia-hq/custodia/pkg/custody"
	"custodia-hq/custodia/pkg/custody/anchor"
	"custodia-hq/custodia/pkg/custody/classifier"
	"custodia-hq/custodia/pkg/custody/ledger"
	"custodia-hq/custodia/pkg/custody/storage"
)

var collectedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// newTestStore builds a store over memory storage with an in-memory anchor
// log.
func newTestStore() (*Store, *storage.MemoryStorage, *anchor.MemoryLog) {
	st := storage.NewMemoryStorage()
	anchors := anchor.NewMemoryLog()
	s := New(st, ledger.New(st), classifier.New(nil), anchors)
	return s, st, anchors
}

func testIntake() IntakeInput {
	return IntakeInput{
		Title:          "Kitchen knife",
		Description:    "Recovered from scene",
		Type:           custody.TypePhysical,
		CaseID:         "CASE-2041",
		Tags:           []string{"weapon"},
		CollectionDate: collectedAt,
		CollectedBy:    "Officer Chen",
		Location:       "Evidence locker 4",
		Actor:          "Officer Chen",
		Timestamp:      collectedAt,
	}
}

func TestIntake(t *testing.T) {
	s, _, anchors := newTestStore()
	ctx := context.Background()

	item, err := s.Intake(ctx, testIntake())
	if err != nil {
		t.Fatalf("Intake() failed: %v", err)
	}

	if item.ID == "" {
		t.Error("item has no ID")
	}
	if item.Custodian != "Officer Chen" {
		t.Errorf("Custodian = %s, want the actor by default", item.Custodian)
	}
	if item.Admissibility != custody.AdmissibilityPending {
		t.Errorf("Admissibility = %s, want pending after one event", item.Admissibility)
	}
	if item.AnchorHash == "" {
		t.Error("AnchorHash not set after intake")
	}

	history, err := s.History(item.ID)
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if len(history) != 1 || history[0].Action != custody.ActionCollected {
		t.Errorf("history = %v, want the single collected event", history)
	}

	// The chain head was anchored.
	latest, err := anchors.Latest(ctx, item.ID)
	if err != nil {
		t.Fatalf("Latest() failed: %v", err)
	}
	if latest == nil || latest.Hash != item.AnchorHash {
		t.Errorf("anchor = %+v, want hash %s", latest, item.AnchorHash)
	}
}

func TestIntake_ExplicitCustodian(t *testing.T) {
	s, _, _ := newTestStore()

	in := testIntake()
	in.Custodian = "Det. Reyes"
	item, err := s.Intake(context.Background(), in)
	if err != nil {
		t.Fatalf("Intake() failed: %v", err)
	}
	if item.Custodian != "Det. Reyes" {
		t.Errorf("Custodian = %s, want Det. Reyes", item.Custodian)
	}
}

func TestIntake_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *IntakeInput)
	}{
		{"missing title", func(in *IntakeInput) { in.Title = "" }},
		{"invalid type", func(in *IntakeInput) { in.Type = "hologram" }},
		{"missing case id", func(in *IntakeInput) { in.CaseID = "" }},
		{"missing actor", func(in *IntakeInput) { in.Actor = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestStore()
			in := testIntake()
			tt.mutate(&in)

			_, err := s.Intake(context.Background(), in)
			if err == nil {
				t.Fatal("Intake() = nil, want error")
			}
			if _, ok := err.(*InputError); !ok {
				t.Errorf("Intake() returned %T, want *InputError", err)
			}
		})
	}
}

func TestRecordEvent_CustodianFollowsTransfers(t *testing.T) {
	s, _, _ := newTestStore()
	ctx := context.Background()

	item, err := s.Intake(ctx, testIntake())
	if err != nil {
		t.Fatalf("Intake() failed: %v", err)
	}

	steps := []struct {
		input         ledger.EventInput
		wantCustodian string
	}{
		{
			ledger.EventInput{
				Actor: "Officer Chen", Action: custody.ActionTransferred,
				FromCustodian: "Officer Chen", ToCustodian: "Lab Tech Okafor",
				Timestamp: collectedAt.Add(time.Hour),
			},
			"Lab Tech Okafor",
		},
		{
			ledger.EventInput{
				Actor: "Lab Tech Okafor", Action: custody.ActionAnalyzed,
				Timestamp: collectedAt.Add(2 * time.Hour),
			},
			"Lab Tech Okafor",
		},
		{
			ledger.EventInput{
				Actor: "Lab Tech Okafor", Action: custody.ActionTransferred,
				FromCustodian: "Lab Tech Okafor", ToCustodian: "Clerk Mabry",
				Timestamp: collectedAt.Add(3 * time.Hour),
			},
			"Clerk Mabry",
		},
		{
			ledger.EventInput{
				Actor: "Clerk Mabry", Action: custody.ActionStored,
				Timestamp: collectedAt.Add(4 * time.Hour),
			},
			"Clerk Mabry",
		},
	}

	for i, step := range steps {
		if _, err := s.RecordEvent(ctx, item.ID, step.input); err != nil {
			t.Fatalf("RecordEvent(step %d) failed: %v", i, err)
		}
		got, err := s.Get(item.ID)
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if got.Custodian != step.wantCustodian {
			t.Errorf("step %d: Custodian = %s, want %s", i, got.Custodian, step.wantCustodian)
		}
	}

	if err := s.Verify(item.ID); err != nil {
		t.Errorf("Verify() = %v, want nil", err)
	}
}

func TestRecordEvent_Reclassifies(t *testing.T) {
	s, _, _ := newTestStore()
	ctx := context.Background()

	item, err := s.Intake(ctx, testIntake())
	if err != nil {
		t.Fatalf("Intake() failed: %v", err)
	}
	if item.Admissibility != custody.AdmissibilityPending {
		t.Fatalf("Admissibility after intake = %s, want pending", item.Admissibility)
	}

	if _, err := s.RecordEvent(ctx, item.ID, ledger.EventInput{
		Actor: "Officer Chen", Action: custody.ActionStored,
		Timestamp: collectedAt.Add(time.Hour),
	}); err != nil {
		t.Fatalf("RecordEvent() failed: %v", err)
	}

	got, _ := s.Get(item.ID)
	if got.Admissibility != custody.AdmissibilityAdmissible {
		t.Errorf("Admissibility = %s, want admissible with two events", got.Admissibility)
	}

	// A challenge note flips the classification.
	if _, err := s.RecordEvent(ctx, item.ID, ledger.EventInput{
		Actor: "Defense Counsel", Action: custody.ActionAnalyzed,
		Notes:     "[challenge] seal integrity disputed",
		Timestamp: collectedAt.Add(2 * time.Hour),
	}); err != nil {
		t.Fatalf("RecordEvent() failed: %v", err)
	}

	got, _ = s.Get(item.ID)
	if got.Admissibility != custody.AdmissibilityChallenged {
		t.Errorf("Admissibility = %s, want challenged", got.Admissibility)
	}
}

func TestRecordEvent_UnknownItem(t *testing.T) {
	s, _, _ := newTestStore()

	_, err := s.RecordEvent(context.Background(), "ghost", ledger.EventInput{
		Actor: "Officer Chen", Action: custody.ActionStored, Timestamp: collectedAt,
	})
	lerr, ok := custody.AsLedgerError(err)
	if !ok || lerr.Kind != custody.KindItemNotFound {
		t.Errorf("RecordEvent(unknown) = %v, want item_not_found", err)
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	s, _, _ := newTestStore()

	item, err := s.Intake(context.Background(), testIntake())
	if err != nil {
		t.Fatalf("Intake() failed: %v", err)
	}

	got, _ := s.Get(item.ID)
	got.Title = "mutated"

	again, _ := s.Get(item.ID)
	if again.Title == "mutated" {
		t.Error("mutating a returned item mutated store state")
	}
}

func TestUpdateDetails(t *testing.T) {
	s, _, _ := newTestStore()
	ctx := context.Background()

	item, err := s.Intake(ctx, testIntake())
	if err != nil {
		t.Fatalf("Intake() failed: %v", err)
	}

	title := "Kitchen knife (exhibit 12)"
	location := "Court exhibit room"
	updated, err := s.UpdateDetails(ctx, item.ID, DetailsInput{
		Title:    &title,
		Location: &location,
		Tags:     []string{"weapon", "exhibit"},
	})
	if err != nil {
		t.Fatalf("UpdateDetails() failed: %v", err)
	}

	if updated.Title != title || updated.Location != location {
		t.Errorf("UpdateDetails() = %+v, want amended fields", updated)
	}
	if len(updated.Tags) != 2 {
		t.Errorf("Tags = %v, want replaced", updated.Tags)
	}
	// Untouched fields survive.
	if updated.Description != "Recovered from scene" {
		t.Errorf("Description = %s, want unchanged", updated.Description)
	}
	if updated.Custodian != item.Custodian {
		t.Errorf("Custodian = %s, want ledger-derived value untouched", updated.Custodian)
	}
}

func TestUpdateDetails_ReclassifiesOnMetadataChange(t *testing.T) {
	s, _, _ := newTestStore()
	ctx := context.Background()

	// Intake without a storage location: two events but still pending.
	in := testIntake()
	in.Location = ""
	item, err := s.Intake(ctx, in)
	if err != nil {
		t.Fatalf("Intake() failed: %v", err)
	}
	if _, err := s.RecordEvent(ctx, item.ID, ledger.EventInput{
		Actor: "Officer Chen", Action: custody.ActionStored,
		Timestamp: collectedAt.Add(time.Hour),
	}); err != nil {
		t.Fatalf("RecordEvent() failed: %v", err)
	}

	got, _ := s.Get(item.ID)
	if got.Admissibility != custody.AdmissibilityPending {
		t.Fatalf("Admissibility = %s, want pending without location", got.Admissibility)
	}

	location := "Evidence locker 4"
	updated, err := s.UpdateDetails(ctx, item.ID, DetailsInput{Location: &location})
	if err != nil {
		t.Fatalf("UpdateDetails() failed: %v", err)
	}
	if updated.Admissibility != custody.AdmissibilityAdmissible {
		t.Errorf("Admissibility = %s, want admissible once metadata is complete", updated.Admissibility)
	}
}

func TestQuery(t *testing.T) {
	s, _, _ := newTestStore()
	ctx := context.Background()

	first, err := s.Intake(ctx, testIntake())
	if err != nil {
		t.Fatalf("Intake() failed: %v", err)
	}

	second := testIntake()
	second.Title = "Laptop, silver"
	second.Type = custody.TypeDigital
	second.CaseID = "CASE-1988"
	if _, err := s.Intake(ctx, second); err != nil {
		t.Fatalf("Intake() failed: %v", err)
	}

	all, err := s.Query(ctx, nil)
	if err != nil {
		t.Fatalf("Query(nil) failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Query(nil) returned %d items, want 2", len(all))
	}
	if all[0].ID != first.ID {
		t.Error("Query() did not preserve intake order")
	}

	digital, err := s.Query(ctx, &custody.Filter{Type: custody.TypeDigital})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(digital) != 1 || digital[0].Title != "Laptop, silver" {
		t.Errorf("Query(type=digital) = %v, want the laptop", digital)
	}

	if _, err := s.Query(ctx, &custody.Filter{SortBy: "bogus"}); err == nil {
		t.Error("Query() with invalid filter = nil, want QueryError")
	}
}

func TestLoad_RestoresCollection(t *testing.T) {
	st := storage.NewMemoryStorage()
	ctx := context.Background()

	s := New(st, ledger.New(st), classifier.New(nil), nil)
	item, err := s.Intake(ctx, testIntake())
	if err != nil {
		t.Fatalf("Intake() failed: %v", err)
	}
	if _, err := s.RecordEvent(ctx, item.ID, ledger.EventInput{
		Actor: "Officer Chen", Action: custody.ActionStored,
		Timestamp: collectedAt.Add(time.Hour),
	}); err != nil {
		t.Fatalf("RecordEvent() failed: %v", err)
	}

	reloaded := New(st, ledger.New(st), classifier.New(nil), nil)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	got, err := reloaded.Get(item.ID)
	if err != nil {
		t.Fatalf("Get() after reload failed: %v", err)
	}
	if got.Custodian != "Officer Chen" {
		t.Errorf("Custodian after reload = %s, want Officer Chen", got.Custodian)
	}
	history, _ := reloaded.History(item.ID)
	if len(history) != 2 {
		t.Errorf("history length after reload = %d, want 2", len(history))
	}
	if err := reloaded.Verify(item.ID); err != nil {
		t.Errorf("Verify() after reload = %v, want nil", err)
	}
}

func TestRebuild_RecomputesProjections(t *testing.T) {
	s, st, _ := newTestStore()
	ctx := context.Background()

	item, err := s.Intake(ctx, testIntake())
	if err != nil {
		t.Fatalf("Intake() failed: %v", err)
	}
	if _, err := s.RecordEvent(ctx, item.ID, ledger.EventInput{
		Actor: "Officer Chen", Action: custody.ActionTransferred,
		FromCustodian: "Officer Chen", ToCustodian: "Det. Reyes",
		Timestamp: collectedAt.Add(time.Hour),
	}); err != nil {
		t.Fatalf("RecordEvent() failed: %v", err)
	}

	// Corrupt the persisted projection directly; the event chain stays the
	// source of truth.
	bad, _ := s.Get(item.ID)
	bad.Custodian = "Nobody"
	bad.Admissibility = custody.AdmissibilityExcluded
	if err := st.UpdateItem(ctx, bad); err != nil {
		t.Fatalf("UpdateItem() failed: %v", err)
	}

	reloaded := New(st, ledger.New(st), classifier.New(nil), nil)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if err := reloaded.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}

	got, _ := reloaded.Get(item.ID)
	if got.Custodian != "Det. Reyes" {
		t.Errorf("Custodian after rebuild = %s, want Det. Reyes", got.Custodian)
	}
	if got.Admissibility != custody.AdmissibilityAdmissible {
		t.Errorf("Admissibility after rebuild = %s, want admissible", got.Admissibility)
	}
	history, _ := reloaded.History(item.ID)
	if got.AnchorHash != history[len(history)-1].Hash {
		t.Errorf("AnchorHash after rebuild = %s, want chain head", got.AnchorHash)
	}
}

func TestSetClassifierConfig(t *testing.T) {
	s, _, _ := newTestStore()
	ctx := context.Background()

	item, err := s.Intake(ctx, testIntake())
	if err != nil {
		t.Fatalf("Intake() failed: %v", err)
	}
	if _, err := s.RecordEvent(ctx, item.ID, ledger.EventInput{
		Actor: "Officer Chen", Action: custody.ActionStored,
		Timestamp: collectedAt.Add(time.Hour),
	}); err != nil {
		t.Fatalf("RecordEvent() failed: %v", err)
	}

	got, _ := s.Get(item.ID)
	if got.Admissibility != custody.AdmissibilityAdmissible {
		t.Fatalf("Admissibility = %s, want admissible", got.Admissibility)
	}

	// Raise the chain-length threshold and re-evaluate.
	cfg := classifier.DefaultConfig()
	cfg.MinChainEvents = 5
	s.SetClassifierConfig(cfg)
	if err := s.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}

	got, _ = s.Get(item.ID)
	if got.Admissibility != custody.AdmissibilityPending {
		t.Errorf("Admissibility under raised threshold = %s, want pending", got.Admissibility)
	}
}

func TestItemIDs_IntakeOrder(t *testing.T) {
	s, _, _ := newTestStore()
	ctx := context.Background()

	var want []string
	for _, title := range []string{"First", "Second", "Third"} {
		in := testIntake()
		in.Title = title
		item, err := s.Intake(ctx, in)
		if err != nil {
			t.Fatalf("Intake(%s) failed: %v", title, err)
		}
		want = append(want, item.ID)
	}

	got := s.ItemIDs()
	if len(got) != len(want) {
		t.Fatalf("ItemIDs() returned %d ids, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ItemIDs()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
