package quiz

import (
	"math"
	"sort"

	"github.com/item-bank/itembank/internal/bank"
)

// apportion rounds proportional type quotas to integers that sum to
// exactly n (largest-remainder method). Every quota lands within one
// of its exact share. Non-positive ratios are dropped; an empty or
// all-zero mix yields no quotas, which callers treat as "one bucket,
// no stratification". Remainder ties break by type name so equal
// ratios apportion the same way on every run.
func apportion(n int, mix map[bank.ItemType]float64) map[bank.ItemType]int {
	var total float64
	for _, r := range mix {
		if r > 0 {
			total += r
		}
	}
	if n <= 0 || total == 0 {
		return nil
	}

	type remainder struct {
		typ  bank.ItemType
		frac float64
	}
	quotas := make(map[bank.ItemType]int, len(mix))
	remainders := make([]remainder, 0, len(mix))
	assigned := 0
	for typ, r := range mix {
		if r <= 0 {
			continue
		}
		exact := float64(n) * r / total
		q := int(math.Floor(exact))
		quotas[typ] = q
		assigned += q
		remainders = append(remainders, remainder{typ: typ, frac: exact - float64(q)})
	}

	sort.Slice(remainders, func(i, j int) bool {
		if remainders[i].frac != remainders[j].frac {
			return remainders[i].frac > remainders[j].frac
		}
		return remainders[i].typ < remainders[j].typ
	})
	for i := 0; assigned < n; i++ {
		quotas[remainders[i%len(remainders)].typ]++
		assigned++
	}
	return quotas
}

// quotaOrder iterates quotas deterministically: canonical types
// first, any extra mix keys after, sorted.
func quotaOrder(quotas map[bank.ItemType]int) []bank.ItemType {
	out := make([]bank.ItemType, 0, len(quotas))
	seen := map[bank.ItemType]bool{}
	for _, typ := range bank.Types() {
		if _, ok := quotas[typ]; ok {
			out = append(out, typ)
			seen[typ] = true
		}
	}
	var extra []bank.ItemType
	for typ := range quotas {
		if !seen[typ] {
			extra = append(extra, typ)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}
