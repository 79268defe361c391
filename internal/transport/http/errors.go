package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Pynex/Marketplace/internal/domain"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidInput        = "invalid_input"
	codeInvalidAddress      = "invalid_address"
	codeInvalidQuantity     = "invalid_quantity"
	codeUnknownCollection   = "unknown_collection"
	codeInsufficientFunds   = "insufficient_funds"
	codeArrayLengthMismatch = "array_length_mismatch"
	codeVoucherNotFound     = "voucher_not_found"
	codeItemNotFound        = "item_not_found"
	codeUnauthorized        = "unauthorized"
	codeReentrantCall       = "reentrant_call"
	codeDeploymentFailure   = "deployment_failure"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps a registry error to a status and machine code.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusNotFound, codeUnknownCollection, err.Error())
	case errors.Is(err, domain.ErrVoucherNotFound):
		writeError(w, http.StatusNotFound, codeVoucherNotFound, err.Error())
	case errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, codeItemNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, codeInvalidAddress, err.Error())
	case errors.Is(err, domain.ErrArrayLengthMismatch):
		writeError(w, http.StatusBadRequest, codeArrayLengthMismatch, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, codeInsufficientFunds, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusForbidden, codeUnauthorized, err.Error())
	case errors.Is(err, domain.ErrReentrantCall):
		writeError(w, http.StatusConflict, codeReentrantCall, err.Error())
	case errors.Is(err, domain.ErrDeploymentFailure):
		writeError(w, http.StatusInternalServerError, codeDeploymentFailure, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
