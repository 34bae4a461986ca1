package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/item-bank/itembank/internal/audit"
	"github.com/item-bank/itembank/internal/bank"
)

// RunAuditHandler triggers one synchronous audit pass. With item_ids
// it re-audits exactly those items; with an empty body it sweeps the
// oldest pending items the way the audit daemon does.
func RunAuditHandler(runner *audit.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ItemIDs []string `json:"item_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "bad json", 400)
			return
		}

		var (
			rep audit.Report
			err error
		)
		if len(req.ItemIDs) > 0 {
			rep, err = runner.Audit(r.Context(), req.ItemIDs)
		} else {
			rep, err = runner.Sweep(r.Context())
		}
		if err != nil {
			if errors.Is(err, bank.ErrNotFound) {
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
