package bank

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service wraps a Store with ingestion semantics: fingerprinting,
// repository-backed dedup, batch bookkeeping.
type Service struct {
	store Store
	now   func() time.Time
	newID func() string
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

type InsertResult struct {
	Outcome Outcome `json:"outcome"`
	Item    Item    `json:"item"`
}

// Insert stores an item unless a non-retired item already carries its
// fingerprint. Re-running a generation batch against an unchanged
// corpus therefore inserts zero new rows. A duplicate is reported as
// Skipped, not as an error.
func (s *Service) Insert(ctx context.Context, it Item) (InsertResult, error) {
	if err := it.Validate(); err != nil {
		return InsertResult{}, err
	}
	it.Fingerprint = Fingerprint(it.Question, it.CanonicalAnswer, it.Topic, it.Difficulty)

	exists, err := s.store.FingerprintExists(ctx, it.Fingerprint)
	if err != nil {
		return InsertResult{}, fmt.Errorf("check fingerprint: %w", err)
	}
	if exists {
		return InsertResult{Outcome: Skipped, Item: it}, nil
	}

	it.ID = s.newID()
	it.Status = StatusPending
	it.CreatedAt = s.now().UTC()
	it.UpdatedAt = it.CreatedAt
	if err := s.store.Insert(ctx, it); err != nil {
		// a concurrent writer may have landed the same fingerprint
		// between the check and the write; re-check before failing
		if again, checkErr := s.store.FingerprintExists(ctx, it.Fingerprint); checkErr == nil && again {
			it.ID = ""
			it.Status = ""
			return InsertResult{Outcome: Skipped, Item: it}, nil
		}
		return InsertResult{}, fmt.Errorf("insert item: %w", err)
	}
	return InsertResult{Outcome: Inserted, Item: it}, nil
}

type BatchItemResult struct {
	Index   int     `json:"index"`
	Outcome Outcome `json:"outcome"`
	ItemID  string  `json:"item_id,omitempty"`
}

type BatchReport struct {
	Batch        Batch             `json:"batch"`
	Collision    CollisionReport   `json:"collision"`
	Level        CollisionLevel    `json:"level"`
	Advice       string            `json:"advice,omitempty"`
	Results      []BatchItemResult `json:"results,omitempty"`
	StatusCounts map[Status]int    `json:"status_counts,omitempty"`
}

// IngestBatch inserts a generation run's items one by one, preserving
// order, and records the batch with its collision counters. Items
// inherit the batch unit/topic when they don't set their own. All
// items are validated up front so a malformed batch stores nothing.
func (s *Service) IngestBatch(ctx context.Context, unit, topic, source string, items []Item) (BatchReport, error) {
	for i := range items {
		if items[i].Unit == "" {
			items[i].Unit = unit
		}
		if items[i].Topic == "" {
			items[i].Topic = topic
		}
		if err := items[i].Validate(); err != nil {
			return BatchReport{}, fmt.Errorf("item %d: %w", i, err)
		}
	}

	b := Batch{
		ID:        s.newID(),
		Unit:      unit,
		Topic:     topic,
		Source:    source,
		CreatedAt: s.now().UTC(),
	}
	var col CollisionReport
	results := make([]BatchItemResult, 0, len(items))
	for i, it := range items {
		it.BatchID = b.ID
		res, err := s.Insert(ctx, it)
		if err != nil {
			return BatchReport{}, fmt.Errorf("item %d: %w", i, err)
		}
		col.Attempted++
		r := BatchItemResult{Index: i, Outcome: res.Outcome}
		if res.Outcome == Inserted {
			col.Inserted++
			r.ItemID = res.Item.ID
		} else {
			col.Skipped++
		}
		results = append(results, r)
	}

	b.Attempted, b.Inserted, b.Skipped = col.Attempted, col.Inserted, col.Skipped
	if err := s.store.PutBatch(ctx, b); err != nil {
		return BatchReport{}, fmt.Errorf("record batch: %w", err)
	}
	return BatchReport{
		Batch:     b,
		Collision: col,
		Level:     col.Level(),
		Advice:    col.Advice(),
		Results:   results,
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (Item, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Item, error) {
	return s.store.List(ctx, f)
}

// Retire pulls an item out of circulation and out of the dedup set.
// Retiring is the only terminal transition and only operators do it.
func (s *Service) Retire(ctx context.Context, id string) (Item, error) {
	it, err := s.store.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if it.Status == StatusRetired {
		return it, nil
	}
	it.Status = StatusRetired
	it.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, it); err != nil {
		return Item{}, fmt.Errorf("retire item: %w", err)
	}
	return it, nil
}

func (s *Service) Stats(ctx context.Context) (PoolStats, error) {
	return s.store.Stats(ctx)
}

// Report returns a batch's ingest counters plus the current status
// distribution of its items.
func (s *Service) Report(ctx context.Context, batchID string) (BatchReport, error) {
	b, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return BatchReport{}, err
	}
	counts, err := s.store.StatusCountsByBatch(ctx, batchID)
	if err != nil {
		return BatchReport{}, fmt.Errorf("batch status counts: %w", err)
	}
	col := CollisionReport{Attempted: b.Attempted, Inserted: b.Inserted, Skipped: b.Skipped}
	return BatchReport{
		Batch:        b,
		Collision:    col,
		Level:        col.Level(),
		Advice:       col.Advice(),
		StatusCounts: counts,
	}, nil
}
