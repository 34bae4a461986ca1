package audit

import (
	"context"

	"github.com/item-bank/itembank/internal/bank"
	"github.com/item-bank/itembank/internal/gate"
)

// Judge produces one auditor's verdict for one item. Implementations
// return an error only for transport-level failures worth retrying; a
// response that came back but could not be trusted must surface as a
// tool-failure verdict instead, never as a guessed judgment.
type Judge interface {
	Evaluate(ctx context.Context, auditor string, it bank.Item) (gate.Verdict, error)
}

// criterionHelp explains each rubric criterion to the evaluator. The
// same text feeds the tool schema and the prompt.
var criterionHelp = map[string]string{
	"answer_correct":        "The canonical answer is factually correct for the question.",
	"single_correct_answer": "Exactly one offered answer is correct; no ties or overlapping options.",
	"options_plausible":     "Every distractor is plausible yet clearly wrong.",
	"variations_consistent": "Each accepted variation means the same thing as the canonical answer.",
	"difficulty_label_ok":   "The assigned difficulty label fits the question.",
	"question_unambiguous":  "The question has exactly one defensible reading.",
	"grammar_correct":       "The question and options read as correct prose.",
	"topic_relevant":        "The question tests the stated topic, not general knowledge.",
	"answer_not_revealed":   "The question text does not contain or give away the answer.",
	"explanation_helpful":   "The explanation says why the answer is right, not just what it is.",
}
