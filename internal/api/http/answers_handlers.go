package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/item-bank/itembank/internal/auth"
	"github.com/item-bank/itembank/internal/bank"
	"github.com/item-bank/itembank/internal/grading"
	"github.com/item-bank/itembank/internal/mastery"
)

// RecordAnswerHandler grades one answer and moves the learner's box.
// The caller sends either an explicit correct flag or the raw
// response text; writing items always need the flag. Without a
// learner id the answer is graded but no progress is recorded.
func RecordAnswerHandler(items *bank.Service, checker *grading.Checker, progress *mastery.Service) http.HandlerFunc {
	type out struct {
		Correct bool            `json:"correct"`
		Matched string          `json:"matched,omitempty"`
		Record  *mastery.Record `json:"record,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			LearnerID string  `json:"learner_id"`
			ItemID    string  `json:"item_id"`
			Correct   *bool   `json:"correct"`
			Response  *string `json:"response"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if learner := auth.LearnerFromContext(r.Context()); learner != "" {
			req.LearnerID = learner
		}
		if req.ItemID == "" {
			http.Error(w, "item_id required", 400)
			return
		}

		it, err := items.Get(r.Context(), req.ItemID)
		if err != nil {
			if errors.Is(err, bank.ErrNotFound) {
				http.Error(w, err.Error(), 404)
				return
			}
			http.Error(w, err.Error(), 500)
			return
		}

		var res out
		switch {
		case req.Correct != nil:
			res.Correct = *req.Correct
		case req.Response != nil:
			graded, err := checker.Check(it, *req.Response)
			if err != nil {
				http.Error(w, err.Error(), 400)
				return
			}
			if graded.NeedsReview {
				http.Error(w, "writing items need an explicit correct flag", 400)
				return
			}
			res.Correct = graded.Correct
			res.Matched = graded.Matched
		default:
			http.Error(w, "correct or response required", 400)
			return
		}

		if req.LearnerID != "" {
			rec, err := progress.RecordAnswer(r.Context(), req.LearnerID, req.ItemID, res.Correct)
			if err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
			res.Record = &rec
		}
		_ = json.NewEncoder(w).Encode(res)
	}
}
