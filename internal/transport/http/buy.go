package http

import (
	"encoding/json"
	"net/http"

	"github.com/Pynex/Marketplace/internal/app"
)

type buyRequest struct {
	Quantity int64 `json:"quantity"`
	Value    int64 `json:"value"`
}

func serveBuy(w http.ResponseWriter, r *http.Request, svc CollectionAPI, id int64) {
	var req buyRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	err := svc.Buy(r.Context(), app.BuyInput{
		Caller:       callerAddress(r),
		CollectionID: id,
		Quantity:     req.Quantity,
		Value:        req.Value,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "purchased"})
}
