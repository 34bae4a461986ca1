package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/item-bank/itembank/internal/bank"

	"github.com/go-chi/chi/v5"
)

// IngestBatchHandler takes one generation run's items and answers with
// the per-item outcomes plus the batch collision report. High
// collision rates are advisory; the response is still a 200.
func IngestBatchHandler(svc *bank.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Unit   string      `json:"unit"`
			Topic  string      `json:"topic"`
			Source string      `json:"source"`
			Items  []bank.Item `json:"items"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if len(req.Items) == 0 {
			http.Error(w, "items required", 400)
			return
		}
		rep, err := svc.IngestBatch(r.Context(), req.Unit, req.Topic, req.Source, req.Items)
		if err != nil {
			if errors.Is(err, bank.ErrInvalid) {
				http.Error(w, err.Error(), 400)
				return
			}
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rep)
	}
}

// BatchReportHandler replays a batch's ingest counters together with
// the current status distribution of its items.
func BatchReportHandler(svc *bank.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := svc.Report(r.Context(), chi.URLParam(r, "batchID"))
		if err != nil {
			if errors.Is(err, bank.ErrBatchNotFound) {
				http.Error(w, err.Error(), 404)
				return
			}
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rep)
	}
}
