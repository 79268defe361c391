package app

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/Pynex/Marketplace/internal/clock"
	"github.com/Pynex/Marketplace/internal/domain"
)

// TokenSource derives voucher tokens by hashing a rolling seed with the
// current time, the caller, the operation originator, and a counter. Every
// input is observable or caller-influenceable, so tokens are a convenience
// identifier, not unpredictable randomness.
type TokenSource struct {
	clock clock.Clock

	mu      sync.Mutex
	seed    [sha256.Size]byte
	counter uint64
}

func NewTokenSource(clk clock.Clock) *TokenSource {
	s := &TokenSource{clock: clk}
	binary.BigEndian.PutUint64(s.seed[:8], uint64(clk.Now().UnixNano()))
	return s
}

// Next returns the next token for the given scope and advances the seed.
func (s *TokenSource) Next(caller, originator domain.Address, collectionID int64) domain.VoucherToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++

	var buf [16]byte
	h := sha256.New()
	h.Write(s.seed[:])
	binary.BigEndian.PutUint64(buf[:8], uint64(s.clock.Now().UnixNano()))
	binary.BigEndian.PutUint64(buf[8:], s.counter)
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:8], uint64(collectionID))
	h.Write(buf[:8])
	h.Write([]byte(caller))
	h.Write([]byte(originator))

	sum := h.Sum(nil)
	copy(s.seed[:], sum)

	var t domain.VoucherToken
	copy(t[:], sum[:len(t)])
	return t
}
