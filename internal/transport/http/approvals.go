package http

import (
	"encoding/json"
	"net/http"

	"github.com/Pynex/Marketplace/internal/domain"
)

type approvalRequest struct {
	Operator string `json:"operator"`
	Approved bool   `json:"approved"`
}

func serveApproval(w http.ResponseWriter, r *http.Request, svc CollectionAPI, id int64) {
	var req approvalRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	err := svc.SetApproval(r.Context(), callerAddress(r), id, domain.Address(req.Operator), req.Approved)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "updated"})
}
