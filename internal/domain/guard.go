package domain

import "sync/atomic"

// CallGuard is a fail-fast busy flag for one operation class. A nested call
// into a guarded operation while one is in flight fails immediately with
// ErrReentrantCall instead of blocking.
type CallGuard struct {
	busy atomic.Bool
}

func (g *CallGuard) Enter() error {
	if !g.busy.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

func (g *CallGuard) Exit() {
	g.busy.Store(false)
}
