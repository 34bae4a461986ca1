package bank

import (
	"context"
	"sort"
	"sync"
)

type memoryStore struct {
	mu      sync.RWMutex
	items   map[string]Item
	batches map[string]Batch
	order   []string // insertion order of item IDs
}

// NewMemoryStore returns an in-memory Store with the same semantics
// as the SQL store. Used by tests and offline development.
func NewMemoryStore() Store {
	return &memoryStore{
		items:   map[string]Item{},
		batches: map[string]Batch{},
	}
}

func (m *memoryStore) Insert(_ context.Context, it Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, have := range m.items {
		if have.Fingerprint == it.Fingerprint && have.Status != StatusRetired {
			return errDuplicateFingerprint
		}
	}
	m.items[it.ID] = it
	m.order = append(m.order, it.ID)
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	return it, nil
}

func (m *memoryStore) Update(_ context.Context, it Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[it.ID]; !ok {
		return ErrNotFound
	}
	m.items[it.ID] = it
	return nil
}

func (m *memoryStore) List(_ context.Context, f Filter) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Item, 0, len(m.items))
	for _, id := range m.order {
		it := m.items[id]
		if matches(it, f) {
			out = append(out, it)
		}
	}
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matches(it Item, f Filter) bool {
	if f.Status != "" && it.Status != f.Status {
		return false
	}
	if f.Unit != "" && it.Unit != f.Unit {
		return false
	}
	if f.Topic != "" && it.Topic != f.Topic {
		return false
	}
	if f.Difficulty != "" && it.Difficulty != f.Difficulty {
		return false
	}
	if f.Type != "" && it.Type != f.Type {
		return false
	}
	if f.BatchID != "" && it.BatchID != f.BatchID {
		return false
	}
	return true
}

func (m *memoryStore) FingerprintExists(_ context.Context, fp string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, it := range m.items {
		if it.Fingerprint == fp && it.Status != StatusRetired {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) ListForAudit(_ context.Context, limit int) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Item, 0, limit)
	for _, id := range m.order {
		it := m.items[id]
		if it.Status != StatusPending {
			continue
		}
		out = append(out, it)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) Stats(_ context.Context) (PoolStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := PoolStats{
		ByStatus:     map[Status]int{},
		ByType:       map[ItemType]int{},
		ByDifficulty: map[Difficulty]int{},
	}
	for _, it := range m.items {
		st.Total++
		st.ByStatus[it.Status]++
		st.ByType[it.Type]++
		st.ByDifficulty[it.Difficulty]++
	}
	return st, nil
}

func (m *memoryStore) PutBatch(_ context.Context, b Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[b.ID] = b
	return nil
}

func (m *memoryStore) GetBatch(_ context.Context, id string) (Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.batches[id]
	if !ok {
		return Batch{}, ErrBatchNotFound
	}
	return b, nil
}

func (m *memoryStore) StatusCountsByBatch(_ context.Context, batchID string) (map[Status]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := map[Status]int{}
	for _, it := range m.items {
		if it.BatchID == batchID {
			counts[it.Status]++
		}
	}
	return counts, nil
}
