package quiz

import "github.com/item-bank/itembank/internal/bank"

// sample draws up to want items without replacement, each draw
// proportional to the item's current weight among the remaining
// candidates. chosen carries selections across buckets so backfill
// never re-picks an item. Callers hold e.mu.
func (e *Engine) sample(candidates []bank.Item, boxes map[string]int, want int, chosen map[string]bool) []bank.Item {
	if want <= 0 {
		return nil
	}
	pool := make([]bank.Item, 0, len(candidates))
	weights := make([]float64, 0, len(candidates))
	for _, it := range candidates {
		if chosen[it.ID] {
			continue
		}
		box, seen := boxes[it.ID]
		pool = append(pool, it)
		weights = append(weights, e.w.of(box, seen))
	}

	out := make([]bank.Item, 0, min(want, len(pool)))
	for len(out) < want && len(pool) > 0 {
		i := e.draw(weights)
		out = append(out, pool[i])
		chosen[pool[i].ID] = true
		last := len(pool) - 1
		pool[i], weights[i] = pool[last], weights[last]
		pool, weights = pool[:last], weights[:last]
	}
	return out
}

func (e *Engine) draw(weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return e.rng.Intn(len(weights))
	}
	r := e.rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return i
		}
	}
	return len(weights) - 1
}
