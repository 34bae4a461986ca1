package grading

import (
	"testing"

	"github.com/item-bank/itembank/internal/bank"
)

func item(typ bank.ItemType, answer string, variations ...string) bank.Item {
	return bank.Item{
		Type:            typ,
		CanonicalAnswer: answer,
		Variations:      variations,
	}
}

func TestCheckMultipleChoice(t *testing.T) {
	c := NewChecker()
	it := item(bank.TypeMultipleChoice, "Mitochondria")

	for _, response := range []string{"Mitochondria", "  mitochondria ", "MITOCHONDRIA"} {
		got, err := c.Check(it, response)
		if err != nil {
			t.Fatalf("Check(%q): %v", response, err)
		}
		if !got.Correct {
			t.Errorf("Check(%q) not credited", response)
		}
	}

	got, err := c.Check(it, "Ribosome")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if got.Correct {
		t.Error("wrong option was credited")
	}
	if got, _ := c.Check(it, "   "); got.Correct {
		t.Error("blank response was credited")
	}
}

func TestCheckTrueFalseSynonyms(t *testing.T) {
	c := NewChecker()
	it := item(bank.TypeTrueFalse, "true")

	for _, response := range []string{"true", "T", "yes", "Y"} {
		got, err := c.Check(it, response)
		if err != nil {
			t.Fatalf("Check(%q): %v", response, err)
		}
		if !got.Correct {
			t.Errorf("Check(%q) not credited against %q", response, it.CanonicalAnswer)
		}
	}
	for _, response := range []string{"false", "no", "N"} {
		got, err := c.Check(it, response)
		if err != nil {
			t.Fatalf("Check(%q): %v", response, err)
		}
		if got.Correct {
			t.Errorf("Check(%q) credited against %q", response, it.CanonicalAnswer)
		}
	}
	// Unparsable responses are not silently right or wrong by parse
	// failure; they fall back to a plain string comparison.
	if got, _ := c.Check(it, "maybe"); got.Correct {
		t.Error("unparsable response was credited")
	}
}

func TestCheckFillInBlankVariations(t *testing.T) {
	c := NewChecker()
	it := item(bank.TypeFillInBlank, "cell membrane", "plasma membrane")

	got, err := c.Check(it, "Plasma Membrane")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !got.Correct {
		t.Error("variation not credited")
	}
	if got.Matched != "plasma membrane" {
		t.Errorf("Matched = %q, want the variation that hit", got.Matched)
	}
}

func TestCheckFillInBlankEditDistance(t *testing.T) {
	it := item(bank.TypeFillInBlank, "osmosis")

	got, err := NewChecker().Check(it, "osmossis")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !got.Correct {
		t.Error("single-typo response not credited at default slack")
	}

	// Two edits away stays wrong.
	if got, _ := NewChecker().Check(it, "osmmossis"); got.Correct {
		t.Error("two-typo response was credited at default slack")
	}

	// Fuzzy matching off: the same typo is wrong.
	strict := NewChecker(WithMaxEditDistance(0))
	if got, _ := strict.Check(it, "osmossis"); got.Correct {
		t.Error("typo credited with fuzzy matching disabled")
	}
}

func TestCheckWritingNeedsReview(t *testing.T) {
	c := NewChecker()
	it := item(bank.TypeWriting, "explain diffusion across a membrane")

	got, err := c.Check(it, "water moves toward higher solute concentration")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !got.NeedsReview {
		t.Error("writing response did not ask for review")
	}
	if got.Correct {
		t.Error("writing response was auto-credited")
	}
}

func TestCheckUnknownTypeErrors(t *testing.T) {
	c := NewChecker()
	if _, err := c.Check(bank.Item{Type: bank.ItemType("essay")}, "x"); err == nil {
		t.Fatal("expected error for unknown item type")
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  The Cell-Wall ", "the cellwall"},
		{"photo-synthesis", "photosynthesis"},
		{"a\tb   c", "a b c"},
		{"...", ""},
	}
	for _, tc := range cases {
		if got := normalize(tc.in); got != tc.want {
			t.Errorf("normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"osmosis", "osmossis", 1},
	}
	for _, tc := range cases {
		if got := levenshtein(tc.a, tc.b); got != tc.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
