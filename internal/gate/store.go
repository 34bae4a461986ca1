package gate

import (
	"context"
	"sort"
	"sync"
)

type Store interface {
	// Append persists one verdict. IDs and timestamps are set by the
	// machine before the call.
	Append(ctx context.Context, v Verdict) (Verdict, error)
	// ListByItem returns an item's verdicts, oldest first.
	ListByItem(ctx context.Context, itemID string) ([]Verdict, error)
	// LatestPerAuditor returns the newest non-tool-failure verdict of
	// each auditor that has judged the item.
	LatestPerAuditor(ctx context.Context, itemID string) ([]Verdict, error)
}

type memoryStore struct {
	mu     sync.RWMutex
	byItem map[string][]Verdict
}

func NewMemoryStore() Store {
	return &memoryStore{byItem: map[string][]Verdict{}}
}

func (m *memoryStore) Append(_ context.Context, v Verdict) (Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byItem[v.ItemID] = append(m.byItem[v.ItemID], v)
	return v, nil
}

func (m *memoryStore) ListByItem(_ context.Context, itemID string) ([]Verdict, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.byItem[itemID]
	out := make([]Verdict, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) LatestPerAuditor(ctx context.Context, itemID string) ([]Verdict, error) {
	all, err := m.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return latestPerAuditor(all), nil
}

// latestPerAuditor folds an oldest-first history down to each
// auditor's newest content verdict. Shared by both stores so the
// policy sees identical semantics either way.
func latestPerAuditor(oldestFirst []Verdict) []Verdict {
	latest := map[string]Verdict{}
	var order []string
	for _, v := range oldestFirst {
		if v.ToolFailure {
			continue
		}
		if _, seen := latest[v.Auditor]; !seen {
			order = append(order, v.Auditor)
		}
		latest[v.Auditor] = v
	}
	out := make([]Verdict, 0, len(order))
	for _, a := range order {
		out = append(out, latest[a])
	}
	return out
}
