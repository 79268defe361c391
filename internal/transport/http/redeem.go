package http

import (
	"encoding/json"
	"net/http"

	"github.com/Pynex/Marketplace/internal/app"
	"github.com/Pynex/Marketplace/internal/domain"
)

type redeemRequest struct {
	Token string `json:"token"`
}

type redeemResponse struct {
	CollectionID int64  `json:"collection_id"`
	TokenID      int64  `json:"token_id"`
	OwnerAddress string `json:"owner_address"`
}

func serveRedeem(w http.ResponseWriter, r *http.Request, svc CollectionAPI, id int64) {
	var req redeemRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	token, err := domain.ParseVoucherToken(req.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
		return
	}

	item, err := svc.RedeemVoucher(r.Context(), app.RedeemVoucherInput{
		Caller:       callerAddress(r),
		CollectionID: id,
		Token:        token,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := redeemResponse{
		CollectionID: item.CollectionID,
		TokenID:      item.TokenID,
		OwnerAddress: item.OwnerAddress.String(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(resp)
}
