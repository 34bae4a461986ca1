package mastery

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Service persists what NextBox decides.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// RecordAnswer applies one answer to the learner's record for the
// item, creating it at (box 1, streak 0) on first contact.
func (s *Service) RecordAnswer(ctx context.Context, learnerID, itemID string, wasCorrect bool) (Record, error) {
	if learnerID == "" {
		return Record{}, errors.New("learner id is required")
	}
	if itemID == "" {
		return Record{}, errors.New("item id is required")
	}
	rec, err := s.store.Get(ctx, learnerID, itemID)
	switch {
	case errors.Is(err, ErrNotFound):
		rec = Record{LearnerID: learnerID, ItemID: itemID, Box: MinBox}
	case err != nil:
		return Record{}, fmt.Errorf("load mastery: %w", err)
	}
	rec.Box, rec.ConsecutiveCorrect = NextBox(rec.Box, rec.ConsecutiveCorrect, wasCorrect)
	rec.LastReviewedAt = s.now().UTC()
	if err := s.store.Upsert(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("save mastery: %w", err)
	}
	return rec, nil
}

func (s *Service) Overview(ctx context.Context, learnerID string) ([]Record, error) {
	return s.store.ListByLearner(ctx, learnerID)
}

// Boxes exposes the learner's box lookup for the selection engine.
func (s *Service) Boxes(ctx context.Context, learnerID string) (map[string]int, error) {
	return s.store.Boxes(ctx, learnerID)
}
