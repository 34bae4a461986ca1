// Package quiz builds quiz sets from the active pool: stratified by
// type via largest-remainder apportionment, sampled inside each
// stratum with per-box weights, backfilled on shortfall and shuffled
// so the stratification is invisible in serving order.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/item-bank/itembank/internal/bank"
)

// Request asks for a quiz. LearnerID may be empty: anonymous and
// brand-new learners are served with every item weighted as unseen.
// Mix ratios are sparse and need not sum to 1; they are normalized.
type Request struct {
	LearnerID  string                    `json:"learner_id,omitempty"`
	Unit       string                    `json:"unit,omitempty"`
	Topic      string                    `json:"topic,omitempty"`
	Difficulty bank.Difficulty           `json:"difficulty,omitempty"`
	Count      int                       `json:"count"`
	Mix        map[bank.ItemType]float64 `json:"mix,omitempty"`
}

// Result always carries the best available set. An undersized pool
// shows up as warnings, never as an error.
type Result struct {
	Items    []bank.Item `json:"items"`
	Warnings []string    `json:"warnings,omitempty"`
}

// Weights bias sampling. Box holds the weight per box (index 0 is
// box 1); lower boxes weigh more so struggling material surfaces
// first. Unseen is the weight for items without a mastery record and
// is deliberately distinct from every box weight. Box 5 stays
// strictly positive: mastered items keep a review chance forever.
type Weights struct {
	Box    [5]float64 `json:"box"`
	Unseen float64    `json:"unseen"`
}

func DefaultWeights() Weights {
	return Weights{Box: [5]float64{8, 5, 3, 2, 1}, Unseen: 6}
}

func (w Weights) of(box int, seen bool) float64 {
	if !seen {
		return w.Unseen
	}
	if box < 1 {
		box = 1
	}
	if box > len(w.Box) {
		box = len(w.Box)
	}
	return w.Box[box-1]
}

// ItemSource is the slice of the item store the engine reads.
type ItemSource interface {
	List(ctx context.Context, f bank.Filter) ([]bank.Item, error)
}

// BoxSource looks up a learner's boxes; items absent from the map
// are unseen.
type BoxSource interface {
	Boxes(ctx context.Context, learnerID string) (map[string]int, error)
}

type Config struct {
	// Weights defaults to DefaultWeights when zero.
	Weights Weights
	// MaxCount caps one request; defaults to 50.
	MaxCount int
	// Rand drives sampling and the final shuffle. Defaults to a
	// time-seeded source; tests inject a fixed seed to pin outcomes.
	Rand *rand.Rand
}

type Engine struct {
	items    ItemSource
	boxes    BoxSource
	w        Weights
	maxCount int

	mu  sync.Mutex // rand.Rand is not safe for concurrent use
	rng *rand.Rand
}

func NewEngine(items ItemSource, boxes BoxSource, cfg Config) (*Engine, error) {
	w := cfg.Weights
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	for i, bw := range w.Box {
		if bw <= 0 {
			return nil, fmt.Errorf("box %d weight must be positive", i+1)
		}
	}
	if w.Unseen <= 0 {
		return nil, errors.New("unseen weight must be positive")
	}
	if cfg.MaxCount < 0 {
		return nil, errors.New("max count must not be negative")
	}
	maxCount := cfg.MaxCount
	if maxCount == 0 {
		maxCount = 50
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{items: items, boxes: boxes, w: w, maxCount: maxCount, rng: rng}, nil
}

// Select assembles ≤ req.Count active items matching the request's
// filters. It never fails on an undersized pool: shortfalls come back
// as human-readable warnings alongside whatever the pool could supply.
func (e *Engine) Select(ctx context.Context, req Request) (Result, error) {
	if req.Count <= 0 {
		return Result{}, errors.New("count must be positive")
	}
	count := req.Count
	var warnings []string
	if count > e.maxCount {
		warnings = append(warnings, fmt.Sprintf("count %d capped at %d", count, e.maxCount))
		count = e.maxCount
	}

	pool, err := e.items.List(ctx, bank.Filter{
		Status:     bank.StatusActive,
		Unit:       req.Unit,
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		return Result{}, fmt.Errorf("load pool: %w", err)
	}
	boxes, err := e.boxes.Boxes(ctx, req.LearnerID)
	if err != nil {
		return Result{}, fmt.Errorf("load mastery: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	selected := make([]bank.Item, 0, count)
	chosen := make(map[string]bool, count)

	quotas := apportion(count, req.Mix)
	if len(quotas) > 0 {
		buckets := map[bank.ItemType][]bank.Item{}
		for _, it := range pool {
			buckets[it.Type] = append(buckets[it.Type], it)
		}
		for _, typ := range quotaOrder(quotas) {
			want := quotas[typ]
			got := e.sample(buckets[typ], boxes, want, chosen)
			if len(got) < want {
				warnings = append(warnings, fmt.Sprintf("type %s: wanted %d, pool had %d", typ, want, len(got)))
			}
			selected = append(selected, got...)
		}
	}

	// backfill across all types; also the whole fill when no mix was given
	if len(selected) < count {
		selected = append(selected, e.sample(pool, boxes, count-len(selected), chosen)...)
	}
	if len(selected) < count {
		warnings = append(warnings, fmt.Sprintf("pool exhausted: returning %d of %d requested items", len(selected), count))
	}

	e.rng.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})
	return Result{Items: selected, Warnings: warnings}, nil
}
