package http

import (
	"encoding/json"
	"net/http"

	"github.com/item-bank/itembank/internal/auth"
	"github.com/item-bank/itembank/internal/quiz"
)

// SelectQuizHandler assembles a quiz from the active pool. A bearer
// token's learner id wins over the one in the body; an undersized
// pool comes back as warnings on a 200, never as an error.
func SelectQuizHandler(engine *quiz.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quiz.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if learner := auth.LearnerFromContext(r.Context()); learner != "" {
			req.LearnerID = learner
		}
		if req.Count <= 0 {
			http.Error(w, "count must be positive", 400)
			return
		}
		if req.Difficulty != "" && !req.Difficulty.Valid() {
			http.Error(w, "unknown difficulty", 400)
			return
		}
		for typ := range req.Mix {
			if !typ.Valid() {
				http.Error(w, "unknown item type in mix", 400)
				return
			}
		}

		res, err := engine.Select(r.Context(), req)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	}
}
