package quiz

import (
	"math"
	"testing"

	"github.com/item-bank/itembank/internal/bank"
)

func TestApportionMatchesProportions(t *testing.T) {
	mix := map[bank.ItemType]float64{
		bank.TypeMultipleChoice: 0.5,
		bank.TypeTrueFalse:      0.2,
		bank.TypeFillInBlank:    0.15,
		bank.TypeWriting:        0.15,
	}
	quotas := apportion(10, mix)

	sum := 0
	for typ, q := range quotas {
		sum += q
		exact := 10 * mix[typ] / 1.0
		if math.Abs(float64(q)-exact) >= 1 {
			t.Errorf("type %s quota %d differs from exact share %.2f by ≥1", typ, q, exact)
		}
	}
	if sum != 10 {
		t.Fatalf("quotas sum to %d, want exactly 10", sum)
	}
	// fib and writing tie at .5 remainder; fib wins by name
	want := map[bank.ItemType]int{
		bank.TypeMultipleChoice: 5,
		bank.TypeTrueFalse:      2,
		bank.TypeFillInBlank:    2,
		bank.TypeWriting:        1,
	}
	for typ, q := range want {
		if quotas[typ] != q {
			t.Errorf("type %s quota = %d, want %d", typ, quotas[typ], q)
		}
	}
}

func TestApportionNormalizesSparseMix(t *testing.T) {
	quotas := apportion(9, map[bank.ItemType]float64{
		bank.TypeMultipleChoice: 2,
		bank.TypeTrueFalse:      1,
	})
	if quotas[bank.TypeMultipleChoice] != 6 || quotas[bank.TypeTrueFalse] != 3 {
		t.Fatalf("quotas = %v, want mc:6 tf:3 (ratios need not sum to 1)", quotas)
	}
}

func TestApportionDropsNonPositiveRatios(t *testing.T) {
	quotas := apportion(4, map[bank.ItemType]float64{
		bank.TypeMultipleChoice: 0.5,
		bank.TypeTrueFalse:      0,
		bank.TypeFillInBlank:    -1,
	})
	if len(quotas) != 1 || quotas[bank.TypeMultipleChoice] != 4 {
		t.Fatalf("quotas = %v, want all 4 on mc", quotas)
	}
}

func TestApportionEmptyMix(t *testing.T) {
	if q := apportion(10, nil); q != nil {
		t.Fatalf("empty mix should yield no quotas, got %v", q)
	}
	if q := apportion(10, map[bank.ItemType]float64{bank.TypeWriting: 0}); q != nil {
		t.Fatalf("all-zero mix should yield no quotas, got %v", q)
	}
}

func TestApportionTiesBreakByName(t *testing.T) {
	// four equal ratios, two units to hand out: fib and mc sort first
	quotas := apportion(2, map[bank.ItemType]float64{
		bank.TypeMultipleChoice: 1,
		bank.TypeTrueFalse:      1,
		bank.TypeFillInBlank:    1,
		bank.TypeWriting:        1,
	})
	want := map[bank.ItemType]int{
		bank.TypeFillInBlank:    1,
		bank.TypeMultipleChoice: 1,
		bank.TypeTrueFalse:      0,
		bank.TypeWriting:        0,
	}
	for typ, q := range want {
		if quotas[typ] != q {
			t.Errorf("type %s quota = %d, want %d", typ, quotas[typ], q)
		}
	}
}
