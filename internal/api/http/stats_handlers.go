package http

import (
	"encoding/json"
	"net/http"

	"github.com/item-bank/itembank/internal/bank"
)

// PoolStatsHandler reports pool composition: totals by status, type
// and difficulty.
func PoolStatsHandler(svc *bank.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.Stats(r.Context())
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st)
	}
}
