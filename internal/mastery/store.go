package mastery

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("mastery record not found")

// Record is the per (learner, item) state. Created lazily on first
// answer, mutated in place, never deleted.
type Record struct {
	LearnerID          string    `json:"learner_id"`
	ItemID             string    `json:"item_id"`
	Box                int       `json:"box"`
	ConsecutiveCorrect int       `json:"consecutive_correct"`
	LastReviewedAt     time.Time `json:"last_reviewed_at"`
}

type Store interface {
	Get(ctx context.Context, learnerID, itemID string) (Record, error)
	// Upsert replaces the record for (learner, item), last writer
	// wins. A learner's submissions arrive sequentially from their
	// own device, so this is the only atomicity mastery needs.
	Upsert(ctx context.Context, rec Record) error
	ListByLearner(ctx context.Context, learnerID string) ([]Record, error)
	// Boxes returns the learner's box per item id. Items absent from
	// the map are unseen. An empty learner id yields an empty map.
	Boxes(ctx context.Context, learnerID string) (map[string]int, error)
}

type memoryStore struct {
	mu   sync.RWMutex
	recs map[string]Record // key learnerID+"\x00"+itemID
}

func NewMemoryStore() Store {
	return &memoryStore{recs: map[string]Record{}}
}

func key(learnerID, itemID string) string { return learnerID + "\x00" + itemID }

func (m *memoryStore) Get(_ context.Context, learnerID, itemID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[key(learnerID, itemID)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *memoryStore) Upsert(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[key(rec.LearnerID, rec.ItemID)] = rec
	return nil
}

func (m *memoryStore) ListByLearner(_ context.Context, learnerID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, rec := range m.recs {
		if rec.LearnerID == learnerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memoryStore) Boxes(_ context.Context, learnerID string) (map[string]int, error) {
	boxes := map[string]int{}
	if learnerID == "" {
		return boxes, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.recs {
		if rec.LearnerID == learnerID {
			boxes[rec.ItemID] = rec.Box
		}
	}
	return boxes, nil
}
