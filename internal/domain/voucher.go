package domain

import (
	"encoding/hex"
	"errors"
)

// VoucherToken is an 8-byte opaque token scoped to one (holder, collection)
// pair. Uniqueness within a scope is probabilistic, not enforced.
type VoucherToken [8]byte

func (t VoucherToken) String() string {
	return hex.EncodeToString(t[:])
}

// ParseVoucherToken decodes the 16-hex-character wire form of a token.
func ParseVoucherToken(s string) (VoucherToken, error) {
	var t VoucherToken
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(t) {
		return VoucherToken{}, errors.New("voucher token must be 16 hex characters")
	}
	copy(t[:], b)
	return t, nil
}

// Voucher is one entry in a holder's per-collection sequence. Position is the
// index within the scope's ordered sequence.
type Voucher struct {
	HolderAddress Address
	CollectionID  int64
	Position      int64
	Token         VoucherToken
}
