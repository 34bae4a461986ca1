package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/item-bank/itembank/internal/bank"
	"github.com/item-bank/itembank/internal/gate"

	"github.com/go-chi/chi/v5"
)

// RecordVerdictHandler feeds one hand-written or replayed verdict
// through the gate. Unlike evaluator output, a malformed verdict here
// is the caller's bug and is rejected instead of being recorded as a
// tool failure.
func RecordVerdictHandler(machine *gate.Machine) http.HandlerFunc {
	type out struct {
		Item    bank.Item    `json:"item"`
		Verdict gate.Verdict `json:"verdict"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var v gate.Verdict
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		it, stored, err := machine.Record(r.Context(), chi.URLParam(r, "itemID"), v)
		if err != nil {
			switch {
			case errors.Is(err, bank.ErrNotFound):
				http.Error(w, err.Error(), 404)
			case errors.Is(err, gate.ErrBadVerdict):
				http.Error(w, err.Error(), 400)
			default:
				http.Error(w, err.Error(), 500)
			}
			return
		}
		_ = json.NewEncoder(w).Encode(out{Item: it, Verdict: stored})
	}
}

// ListVerdictsHandler returns an item's full audit trail, oldest
// first, tool failures included.
func ListVerdictsHandler(svc *bank.Service, machine *gate.Machine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := chi.URLParam(r, "itemID")
		if _, err := svc.Get(r.Context(), itemID); err != nil {
			if errors.Is(err, bank.ErrNotFound) {
				http.Error(w, err.Error(), 404)
				return
			}
			http.Error(w, err.Error(), 500)
			return
		}
		hist, err := machine.History(r.Context(), itemID)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(hist)
	}
}
