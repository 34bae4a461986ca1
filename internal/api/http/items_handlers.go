// Package http holds the gateway's handlers. Each handler closes over
// the services it needs; routing and middleware live in cmd/gateway.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/item-bank/itembank/internal/bank"
	"github.com/item-bank/itembank/internal/gate"

	"github.com/go-chi/chi/v5"
)

// CreateItemHandler ingests a single item. A duplicate answers 409
// and still carries the skipped outcome, so callers can tell it from
// a malformed request.
func CreateItemHandler(svc *bank.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var it bank.Item
		if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		res, err := svc.Insert(r.Context(), it)
		if err != nil {
			if errors.Is(err, bank.ErrInvalid) {
				http.Error(w, err.Error(), 400)
				return
			}
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if res.Outcome == bank.Skipped {
			w.WriteHeader(409)
		}
		_ = json.NewEncoder(w).Encode(res)
	}
}

// GetItemHandler returns the item together with its audit trail.
func GetItemHandler(svc *bank.Service, machine *gate.Machine) http.HandlerFunc {
	type out struct {
		Item     bank.Item      `json:"item"`
		Verdicts []gate.Verdict `json:"verdicts"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := chi.URLParam(r, "itemID")
		it, err := svc.Get(r.Context(), itemID)
		if err != nil {
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
		if hist == nil {
			hist = []gate.Verdict{}
		}
		_ = json.NewEncoder(w).Encode(out{Item: it, Verdicts: hist})
	}
}

func ListItemsHandler(svc *bank.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := bank.Filter{
			Status:     bank.Status(q.Get("status")),
			Unit:       q.Get("unit"),
			Topic:      q.Get("topic"),
			Difficulty: bank.Difficulty(q.Get("difficulty")),
			Type:       bank.ItemType(q.Get("type")),
			BatchID:    q.Get("batch_id"),
			Limit:      parseIntDefault(q.Get("limit"), 100),
			Offset:     parseIntDefault(q.Get("offset"), 0),
		}
		if f.Status != "" && !f.Status.Valid() {
			http.Error(w, "unknown status", 400)
			return
		}
		if f.Difficulty != "" && !f.Difficulty.Valid() {
			http.Error(w, "unknown difficulty", 400)
			return
		}
		if f.Type != "" && !f.Type.Valid() {
			http.Error(w, "unknown item type", 400)
			return
		}
		list, err := svc.List(r.Context(), f)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	}
}

// RetireItemHandler pulls an item out of circulation. Retiring twice
// is a no-op, not an error.
func RetireItemHandler(svc *bank.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		it, err := svc.Retire(r.Context(), chi.URLParam(r, "itemID"))
		if err != nil {
			if errors.Is(err, bank.ErrNotFound) {
				http.Error(w, err.Error(), 404)
				return
			}
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(it)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
