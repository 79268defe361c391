package domain

import (
	"errors"
	"testing"
)

func TestCallGuard(t *testing.T) {
	t.Parallel()

	var g CallGuard

	if err := g.Enter(); err != nil {
		t.Fatalf("first entry: %v", err)
	}
	if err := g.Enter(); !errors.Is(err, ErrReentrantCall) {
		t.Fatalf("expected ErrReentrantCall on nested entry, got %v", err)
	}
	g.Exit()
	if err := g.Enter(); err != nil {
		t.Fatalf("entry after exit: %v", err)
	}
	g.Exit()
}
