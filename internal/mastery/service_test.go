package mastery_test

import (
	"context"
	"testing"

	"github.com/item-bank/itembank/internal/mastery"
)

func TestRecordAnswerCreatesLazily(t *testing.T) {
	ctx := context.Background()
	svc := mastery.NewService(mastery.NewMemoryStore())

	// first contact starts at box 1; one correct answer already
	// clears box 1's threshold
	rec, err := svc.RecordAnswer(ctx, "learner-1", "item-1", true)
	if err != nil {
		t.Fatalf("record answer: %v", err)
	}
	if rec.Box != 2 || rec.ConsecutiveCorrect != 0 {
		t.Fatalf("first correct answer = (%d, %d), want (2, 0)", rec.Box, rec.ConsecutiveCorrect)
	}
	if rec.LastReviewedAt.IsZero() {
		t.Fatalf("last reviewed timestamp not set")
	}
}

func TestRecordAnswerWrongResets(t *testing.T) {
	ctx := context.Background()
	svc := mastery.NewService(mastery.NewMemoryStore())

	for i := 0; i < 5; i++ {
		if _, err := svc.RecordAnswer(ctx, "learner-1", "item-1", true); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
	}
	rec, err := svc.RecordAnswer(ctx, "learner-1", "item-1", false)
	if err != nil {
		t.Fatalf("wrong answer: %v", err)
	}
	if rec.Box != 1 || rec.ConsecutiveCorrect != 0 {
		t.Fatalf("after a miss = (%d, %d), want (1, 0)", rec.Box, rec.ConsecutiveCorrect)
	}
}

func TestRecordAnswerRequiresIdentity(t *testing.T) {
	ctx := context.Background()
	svc := mastery.NewService(mastery.NewMemoryStore())
	if _, err := svc.RecordAnswer(ctx, "", "item-1", true); err == nil {
		t.Fatalf("missing learner id should be rejected")
	}
	if _, err := svc.RecordAnswer(ctx, "learner-1", "", true); err == nil {
		t.Fatalf("missing item id should be rejected")
	}
}

func TestBoxesLookup(t *testing.T) {
	ctx := context.Background()
	svc := mastery.NewService(mastery.NewMemoryStore())

	if _, err := svc.RecordAnswer(ctx, "learner-1", "item-1", true); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := svc.RecordAnswer(ctx, "learner-1", "item-2", false); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := svc.RecordAnswer(ctx, "learner-2", "item-1", true); err != nil {
		t.Fatalf("record: %v", err)
	}

	boxes, err := svc.Boxes(ctx, "learner-1")
	if err != nil {
		t.Fatalf("boxes: %v", err)
	}
	if len(boxes) != 2 || boxes["item-1"] != 2 || boxes["item-2"] != 1 {
		t.Fatalf("boxes = %v, want item-1:2 item-2:1", boxes)
	}

	// unseen learners read as an empty lookup, not an error
	empty, err := svc.Boxes(ctx, "")
	if err != nil {
		t.Fatalf("boxes for anonymous learner: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("anonymous lookup = %v, want empty", empty)
	}
}
