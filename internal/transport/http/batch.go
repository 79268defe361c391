package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Pynex/Marketplace/internal/app"
)

// BatchBuyer is the minimal interface needed for batched purchases.
type BatchBuyer interface {
	BatchBuy(ctx context.Context, in app.BatchBuyInput) error
}

type batchBuyRequest struct {
	CollectionIDs []int64 `json:"collection_ids"`
	Quantities    []int64 `json:"quantities"`
	Value         int64   `json:"value"`
}

// HandleBatchBuy returns an HTTP handler for all-or-nothing batched
// purchases.
func HandleBatchBuy(svc BatchBuyer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req batchBuyRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		err := svc.BatchBuy(r.Context(), app.BatchBuyInput{
			Caller:        callerAddress(r),
			CollectionIDs: req.CollectionIDs,
			Quantities:    req.Quantities,
			Value:         req.Value,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "purchased"})
	}
}
