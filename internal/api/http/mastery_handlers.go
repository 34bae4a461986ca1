package http

import (
	"encoding/json"
	"net/http"

	"github.com/item-bank/itembank/internal/mastery"

	"github.com/go-chi/chi/v5"
)

// MasteryOverviewHandler lists a learner's per-item box records, most
// recently reviewed first. Unknown learners get an empty list.
func MasteryOverviewHandler(progress *mastery.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := progress.Overview(r.Context(), chi.URLParam(r, "learnerID"))
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if list == nil {
			list = []mastery.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	}
}
