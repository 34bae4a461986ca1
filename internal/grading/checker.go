// Package grading checks a learner's raw response against an item's
// canonical answer and its surviving accepted variations. It covers the
// auto-gradable item types; written responses are flagged for review
// instead of scored.
package grading

import (
	"fmt"

	"github.com/item-bank/itembank/internal/bank"
)

// Result reports how a response compared against an item's answer key.
type Result struct {
	Correct bool `json:"correct"`
	// NeedsReview is set for item types that cannot be auto-graded.
	// The caller must supply an explicit correctness flag instead.
	NeedsReview bool `json:"needs_review,omitempty"`
	// Matched holds the accepted answer the response was credited
	// against, useful when variations widen the key.
	Matched string `json:"matched,omitempty"`
}

// Strategy checks one item type.
type Strategy interface {
	Check(it bank.Item, response string) (Result, error)
}

// Checker routes responses to a per-type strategy.
type Checker struct {
	strategies map[bank.ItemType]Strategy
}

type config struct {
	maxEditDistance int
}

// Option customizes a Checker.
type Option func(*config)

// WithMaxEditDistance sets the edit-distance slack allowed when checking
// fill-in-the-blank responses. Zero disables fuzzy matching.
func WithMaxEditDistance(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.maxEditDistance = n
		}
	}
}

// NewChecker builds a Checker covering every bank item type.
func NewChecker(opts ...Option) *Checker {
	cfg := &config{maxEditDistance: 1}
	for _, o := range opts {
		o(cfg)
	}
	return &Checker{strategies: map[bank.ItemType]Strategy{
		bank.TypeMultipleChoice: choiceStrategy{},
		bank.TypeTrueFalse:      booleanStrategy{},
		bank.TypeFillInBlank:    textStrategy{maxEdit: cfg.maxEditDistance},
		bank.TypeWriting:        writingStrategy{},
	}}
}

// Check grades response against the item's answer key.
func (c *Checker) Check(it bank.Item, response string) (Result, error) {
	s, ok := c.strategies[it.Type]
	if !ok {
		return Result{}, fmt.Errorf("no checker for item type %q", it.Type)
	}
	return s.Check(it, response)
}

// accepted returns every answer the item credits: the canonical answer
// followed by its variations.
func accepted(it bank.Item) []string {
	out := make([]string, 0, 1+len(it.Variations))
	out = append(out, it.CanonicalAnswer)
	out = append(out, it.Variations...)
	return out
}

// choiceStrategy credits a multiple-choice response that names the
// correct option, compared after normalization.
type choiceStrategy struct{}

func (choiceStrategy) Check(it bank.Item, response string) (Result, error) {
	got := normalize(response)
	if got == "" {
		return Result{}, nil
	}
	for _, want := range accepted(it) {
		if got == normalize(want) {
			return Result{Correct: true, Matched: want}, nil
		}
	}
	return Result{}, nil
}

// booleanStrategy parses both sides as true/false so that "yes", "T"
// and "true" all land on the same value. Unparsable answers fall back
// to a normalized string comparison.
type booleanStrategy struct{}

func (booleanStrategy) Check(it bank.Item, response string) (Result, error) {
	want, okWant := parseBool(it.CanonicalAnswer)
	got, okGot := parseBool(response)
	if okWant && okGot {
		return Result{Correct: want == got, Matched: it.CanonicalAnswer}, nil
	}
	if normalize(response) != "" && normalize(response) == normalize(it.CanonicalAnswer) {
		return Result{Correct: true, Matched: it.CanonicalAnswer}, nil
	}
	return Result{}, nil
}

func parseBool(s string) (val, ok bool) {
	switch normalize(s) {
	case "true", "t", "yes", "y":
		return true, true
	case "false", "f", "no", "n":
		return false, true
	}
	return false, false
}

// textStrategy checks fill-in-the-blank responses: exact normalized
// match against any accepted answer, then a fuzzy pass within maxEdit
// to forgive typos.
type textStrategy struct {
	maxEdit int
}

func (t textStrategy) Check(it bank.Item, response string) (Result, error) {
	got := normalize(response)
	if got == "" {
		return Result{}, nil
	}
	for _, want := range accepted(it) {
		if got == normalize(want) {
			return Result{Correct: true, Matched: want}, nil
		}
	}
	if t.maxEdit > 0 {
		for _, want := range accepted(it) {
			if levenshtein(got, normalize(want)) <= t.maxEdit {
				return Result{Correct: true, Matched: want}, nil
			}
		}
	}
	return Result{}, nil
}

// writingStrategy never auto-grades. Written answers need a human (or
// an explicit flag from the caller).
type writingStrategy struct{}

func (writingStrategy) Check(bank.Item, string) (Result, error) {
	return Result{NeedsReview: true}, nil
}
