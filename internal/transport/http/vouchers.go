package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Pynex/Marketplace/internal/domain"
)

// VoucherReader is the minimal interface needed for the privileged voucher
// lookup.
type VoucherReader interface {
	GetVoucher(ctx context.Context, caller domain.Address, index int64, user domain.Address, collectionID int64) (domain.VoucherToken, error)
}

type voucherResponse struct {
	User         string `json:"user"`
	CollectionID int64  `json:"collection_id"`
	Index        int64  `json:"index"`
	Token        string `json:"token"`
}

// HandleGetVoucher returns an HTTP handler for the platform-owner-only
// voucher lookup by scope index.
func HandleGetVoucher(svc VoucherReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		q := r.URL.Query()
		user := domain.Address(q.Get("user"))
		collectionID, err := strconv.ParseInt(q.Get("collection_id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidInput, "collection_id is required")
			return
		}
		index, err := strconv.ParseInt(q.Get("index"), 10, 64)
		if err != nil || index < 0 {
			writeError(w, http.StatusBadRequest, codeInvalidInput, "index is required")
			return
		}

		token, err := svc.GetVoucher(r.Context(), callerAddress(r), index, user, collectionID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := voucherResponse{
			User:         user.String(),
			CollectionID: collectionID,
			Index:        index,
			Token:        token.String(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
