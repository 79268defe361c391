package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID           = errors.New("unknown collection id")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidInput        = errors.New("invalid input")
	ErrArrayLengthMismatch = errors.New("ids and quantities length mismatch")
	ErrDeploymentFailure   = errors.New("issuer deployment returned no address")
	ErrVoucherNotFound     = errors.New("voucher not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrReentrantCall       = errors.New("reentrant call")
	ErrItemNotFound        = errors.New("item not found")
)

// Input validation failures carry ErrInvalidInput as their parent so callers
// can match the family with errors.Is and still tell the fields apart.
var (
	ErrInvalidName    = fmt.Errorf("%w: name must be 1 to 63 characters", ErrInvalidInput)
	ErrInvalidSymbol  = fmt.Errorf("%w: symbol must be 1 to 7 characters", ErrInvalidInput)
	ErrInvalidBaseURI = fmt.Errorf("%w: base uri is required", ErrInvalidInput)
	ErrInvalidPrice   = fmt.Errorf("%w: unit price must be positive", ErrInvalidInput)
	ErrBatchTooLarge  = fmt.Errorf("%w: batch exceeds 1000 entries", ErrInvalidInput)
)
