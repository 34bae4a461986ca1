// Package gate decides item status from auditor verdicts. Verdicts
// come from the audit runner or straight from the HTTP API; either
// way they are conformed to a fixed per-auditor rubric before the
// state machine folds over them, so the machine never sees free-form
// evaluator output.
package gate

import (
	"fmt"
	"time"

	"github.com/item-bank/itembank/internal/bank"
)

// Check is one named boolean judgment.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
}

type Severity string

const (
	SeverityCritical   Severity = "critical"
	SeverityMinor      Severity = "minor"
	SeveritySuggestion Severity = "suggestion"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityMinor, SeveritySuggestion:
		return true
	}
	return false
}

// Verdict is one auditor's structured judgment of one item. Gates
// decide servability (all must pass); signals never gate, they only
// drive remediation. A tool failure carries no judgment at all: the
// evaluator's output could not be obtained or parsed, and the item's
// status must stay exactly as it was.
type Verdict struct {
	ID                  string           `json:"id,omitempty"`
	ItemID              string           `json:"item_id,omitempty"`
	Auditor             string           `json:"auditor"`
	Gates               []Check          `json:"gates,omitempty"`
	Signals             []Check          `json:"signals,omitempty"`
	SuggestedDifficulty *bank.Difficulty `json:"suggested_difficulty,omitempty"`
	RemoveVariations    []string         `json:"remove_variations,omitempty"`
	Severity            Severity         `json:"severity,omitempty"`
	Note                string           `json:"note,omitempty"`
	ToolFailure         bool             `json:"tool_failure,omitempty"`
	FailureReason       string           `json:"failure_reason,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
}

// GatePassed reports whether every gate criterion passed. Tool
// failures never pass: they are not judgments.
func (v Verdict) GatePassed() bool {
	if v.ToolFailure || len(v.Gates) == 0 {
		return false
	}
	for _, c := range v.Gates {
		if !c.Passed {
			return false
		}
	}
	return true
}

// ToolFailureVerdict builds the distinct record kept when an
// evaluator call produced nothing usable.
func ToolFailureVerdict(auditor, reason string) Verdict {
	return Verdict{Auditor: auditor, ToolFailure: true, FailureReason: reason}
}

// Rubric fixes the criteria set one auditor kind reports. Every
// verdict is conformed against its auditor's rubric: all named
// criteria must be present as booleans, nothing extra, stored in
// rubric order. Missing criteria are never coerced to passing.
type Rubric struct {
	Auditor string
	Gates   []string
	Signals []string
}

var rubrics = []Rubric{
	{
		Auditor: "accuracy",
		Gates:   []string{"answer_correct", "single_correct_answer", "options_plausible"},
		Signals: []string{"variations_consistent", "difficulty_label_ok"},
	},
	{
		Auditor: "clarity",
		Gates:   []string{"question_unambiguous", "grammar_correct", "topic_relevant", "answer_not_revealed"},
		Signals: []string{"explanation_helpful", "difficulty_label_ok"},
	},
}

// Rubrics lists the known auditor rubrics in their canonical order.
func Rubrics() []Rubric {
	out := make([]Rubric, len(rubrics))
	copy(out, rubrics)
	return out
}

func RubricFor(auditor string) (Rubric, bool) {
	for _, r := range rubrics {
		if r.Auditor == auditor {
			return r, true
		}
	}
	return Rubric{}, false
}

// Conform validates a content verdict against the rubric and returns
// it with checks in rubric order. Tool failures pass through
// untouched; they carry no criteria.
func (r Rubric) Conform(v Verdict) (Verdict, error) {
	if v.ToolFailure {
		return v, nil
	}
	var err error
	if v.Gates, err = conformChecks(r.Gates, v.Gates, "gate"); err != nil {
		return Verdict{}, err
	}
	if v.Signals, err = conformChecks(r.Signals, v.Signals, "signal"); err != nil {
		return Verdict{}, err
	}
	if v.Severity != "" && !v.Severity.Valid() {
		return Verdict{}, fmt.Errorf("unknown severity %q", v.Severity)
	}
	if v.SuggestedDifficulty != nil && !v.SuggestedDifficulty.Valid() {
		return Verdict{}, fmt.Errorf("unknown difficulty %q", *v.SuggestedDifficulty)
	}
	return v, nil
}

func conformChecks(names []string, got []Check, kind string) ([]Check, error) {
	byName := make(map[string]bool, len(got))
	for _, c := range got {
		if _, dup := byName[c.Name]; dup {
			return nil, fmt.Errorf("duplicate %s criterion %q", kind, c.Name)
		}
		byName[c.Name] = c.Passed
	}
	out := make([]Check, 0, len(names))
	for _, name := range names {
		passed, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("missing %s criterion %q", kind, name)
		}
		out = append(out, Check{Name: name, Passed: passed})
		delete(byName, name)
	}
	for name := range byName {
		return nil, fmt.Errorf("unexpected %s criterion %q", kind, name)
	}
	return out, nil
}
