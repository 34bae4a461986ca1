package db_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/item-bank/itembank/internal/bank"
	"github.com/item-bank/itembank/internal/db"
	"github.com/item-bank/itembank/internal/gate"
	"github.com/item-bank/itembank/internal/mastery"
)

// openSQLite opens a named in-memory database so each test gets its
// own isolated schema while connections within the test share state.
func openSQLite(t *testing.T, name string) *sql.DB {
	t.Helper()
	dsn := "file:" + name + "?mode=memory&cache=shared"
	d, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func seedItem(t *testing.T, svc *bank.Service, question string) bank.Item {
	t.Helper()
	res, err := svc.Insert(context.Background(), bank.Item{
		Type:            bank.TypeFillInBlank,
		Difficulty:      bank.Beginner,
		Topic:           "cells",
		Unit:            "biology",
		Question:        question,
		CanonicalAnswer: "osmosis",
		Variations:      []string{"osmosis."},
	})
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	if res.Outcome != bank.Inserted {
		t.Fatalf("seed outcome = %s, want inserted", res.Outcome)
	}
	return res.Item
}

func TestSQLiteItemsRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := openSQLite(t, "items_roundtrip")
	store := bank.NewSQLStore(d)
	svc := bank.NewService(store)

	it := seedItem(t, svc, "What process moves water across a membrane?")

	got, err := store.Get(ctx, it.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Question != it.Question || got.Status != bank.StatusPending {
		t.Errorf("Get = %+v, want the stored pending item", got)
	}
	if len(got.Variations) != 1 || got.Variations[0] != "osmosis." {
		t.Errorf("Variations = %v, want the stored slice back", got.Variations)
	}

	// Same content again is a skip, not an error and not a new row.
	res, err := svc.Insert(ctx, bank.Item{
		Type:            bank.TypeFillInBlank,
		Difficulty:      bank.Beginner,
		Topic:           "cells",
		Unit:            "biology",
		Question:        "  what PROCESS moves water across a membrane? ",
		CanonicalAnswer: "Osmosis",
	})
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if res.Outcome != bank.Skipped {
		t.Errorf("outcome = %s, want skipped", res.Outcome)
	}
	all, err := store.List(ctx, bank.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("pool holds %d items, want 1", len(all))
	}

	// The unique index backs the dedup check up even on a raw insert.
	dup := it
	dup.ID = "forced-duplicate"
	if err := store.Insert(ctx, dup); err == nil {
		t.Error("raw duplicate fingerprint insert succeeded")
	}

	// Retiring frees the fingerprint for re-insertion.
	if _, err := svc.Retire(ctx, it.ID); err != nil {
		t.Fatalf("Retire: %v", err)
	}
	res, err = svc.Insert(ctx, bank.Item{
		Type:            bank.TypeFillInBlank,
		Difficulty:      bank.Beginner,
		Topic:           "cells",
		Unit:            "biology",
		Question:        "What process moves water across a membrane?",
		CanonicalAnswer: "osmosis",
	})
	if err != nil {
		t.Fatalf("insert after retire: %v", err)
	}
	if res.Outcome != bank.Inserted {
		t.Errorf("outcome after retire = %s, want inserted", res.Outcome)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 2 || stats.ByStatus[bank.StatusRetired] != 1 || stats.ByStatus[bank.StatusPending] != 1 {
		t.Errorf("Stats = %+v, want one retired and one pending", stats)
	}
}

func TestSQLiteBatchCounters(t *testing.T) {
	ctx := context.Background()
	d := openSQLite(t, "batch_counters")
	store := bank.NewSQLStore(d)
	svc := bank.NewService(store)

	items := []bank.Item{
		{Type: bank.TypeTrueFalse, Difficulty: bank.Beginner, Question: "Water diffuses through membranes.", CanonicalAnswer: "true"},
		{Type: bank.TypeTrueFalse, Difficulty: bank.Beginner, Question: "Water diffuses through membranes.", CanonicalAnswer: "true"},
	}
	rep, err := svc.IngestBatch(ctx, "biology", "cells", "gen-7", items)
	if err != nil {
		t.Fatalf("IngestBatch: %v", err)
	}
	if rep.Batch.Attempted != 2 || rep.Batch.Inserted != 1 || rep.Batch.Skipped != 1 {
		t.Fatalf("batch = %+v, want 2 attempted, 1 inserted, 1 skipped", rep.Batch)
	}

	// ON CONFLICT path: re-put the same batch id with fresh counters.
	b := rep.Batch
	b.Inserted = 0
	b.Skipped = 2
	if err := store.PutBatch(ctx, b); err != nil {
		t.Fatalf("PutBatch update: %v", err)
	}
	got, err := store.GetBatch(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if got.Inserted != 0 || got.Skipped != 2 {
		t.Errorf("GetBatch = %+v, want updated counters", got)
	}

	counts, err := store.StatusCountsByBatch(ctx, b.ID)
	if err != nil {
		t.Fatalf("StatusCountsByBatch: %v", err)
	}
	if counts[bank.StatusPending] != 1 {
		t.Errorf("counts = %v, want one pending item in batch", counts)
	}
}

func TestSQLiteVerdictHistory(t *testing.T) {
	ctx := context.Background()
	d := openSQLite(t, "verdict_history")
	items := bank.NewSQLStore(d)
	svc := bank.NewService(items)
	machine := gate.NewMachine(items, gate.NewSQLStore(d), gate.PolicyRecent)

	it := seedItem(t, svc, "What process moves water across a membrane?")

	fail := gate.Verdict{
		Auditor:  "clarity",
		Severity: gate.SeverityMinor,
		Gates: []gate.Check{
			{Name: "question_unambiguous", Passed: false},
			{Name: "grammar_correct", Passed: true},
			{Name: "topic_relevant", Passed: true},
			{Name: "answer_not_revealed", Passed: true},
		},
		Signals: []gate.Check{
			{Name: "explanation_helpful", Passed: true},
			{Name: "difficulty_label_ok", Passed: true},
		},
	}
	updated, _, err := machine.Record(ctx, it.ID, fail)
	if err != nil {
		t.Fatalf("Record fail: %v", err)
	}
	if updated.Status != bank.StatusFlagged {
		t.Fatalf("status = %s, want flagged", updated.Status)
	}

	pass := fail
	pass.Gates = []gate.Check{
		{Name: "question_unambiguous", Passed: true},
		{Name: "grammar_correct", Passed: true},
		{Name: "topic_relevant", Passed: true},
		{Name: "answer_not_revealed", Passed: true},
	}
	pass.Severity = gate.SeveritySuggestion
	updated, _, err = machine.Record(ctx, it.ID, pass)
	if err != nil {
		t.Fatalf("Record pass: %v", err)
	}
	if updated.Status != bank.StatusActive {
		t.Fatalf("status = %s, want active after passing verdict", updated.Status)
	}

	if _, _, err := machine.Record(ctx, it.ID, gate.ToolFailureVerdict("clarity", "judge timed out")); err != nil {
		t.Fatalf("Record tool failure: %v", err)
	}
	got, err := items.Get(ctx, it.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != bank.StatusActive {
		t.Errorf("status = %s, want active untouched by tool failure", got.Status)
	}

	hist, err := machine.History(ctx, it.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("history holds %d verdicts, want 3", len(hist))
	}
	if hist[0].GatePassed() || !hist[1].GatePassed() || !hist[2].ToolFailure {
		t.Errorf("history order/content wrong: %+v", hist)
	}
	if hist[2].FailureReason != "judge timed out" {
		t.Errorf("FailureReason = %q", hist[2].FailureReason)
	}
}

func TestSQLiteMasteryProgress(t *testing.T) {
	ctx := context.Background()
	d := openSQLite(t, "mastery_progress")
	svc := mastery.NewService(mastery.NewSQLStore(d))

	rec, err := svc.RecordAnswer(ctx, "guest|l1", "item-1", true)
	if err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if rec.Box != 2 || rec.ConsecutiveCorrect != 0 {
		t.Fatalf("first correct answer = box %d streak %d, want promotion to 2", rec.Box, rec.ConsecutiveCorrect)
	}

	if _, err := svc.RecordAnswer(ctx, "guest|l1", "item-1", false); err != nil {
		t.Fatalf("RecordAnswer wrong: %v", err)
	}
	rec, err = svc.RecordAnswer(ctx, "guest|l1", "item-1", true)
	if err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if rec.Box != 2 || rec.ConsecutiveCorrect != 0 {
		t.Fatalf("after reset and one correct = box %d streak %d, want (2,0)", rec.Box, rec.ConsecutiveCorrect)
	}

	boxes, err := mastery.NewSQLStore(d).Boxes(ctx, "guest|l1")
	if err != nil {
		t.Fatalf("Boxes: %v", err)
	}
	if boxes["item-1"] != 2 {
		t.Errorf("boxes = %v, want item-1 in box 2", boxes)
	}

	list, err := svc.Overview(ctx, "guest|l1")
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if len(list) != 1 || list[0].ItemID != "item-1" {
		t.Errorf("Overview = %+v, want the single tracked item", list)
	}
}
