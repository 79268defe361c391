package app

import (
	"testing"
	"time"

	"github.com/Pynex/Marketplace/internal/clock"
	"github.com/Pynex/Marketplace/internal/domain"
)

func TestTokenSource_Next(t *testing.T) {
	t.Parallel()

	fixed := clock.NewFixed(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))

	t.Run("tokens differ even with a frozen clock and identical inputs", func(t *testing.T) {
		source := NewTokenSource(fixed)

		seen := make(map[domain.VoucherToken]bool)
		for i := 0; i < 1000; i++ {
			token := source.Next("buyer", "buyer", 1)
			if seen[token] {
				t.Fatalf("token %s repeated after %d draws", token, i)
			}
			seen[token] = true
		}
	})

	t.Run("token renders as sixteen hex characters", func(t *testing.T) {
		source := NewTokenSource(fixed)

		token := source.Next("buyer", "buyer", 1)
		s := token.String()
		if len(s) != 16 {
			t.Fatalf("expected 16 hex characters, got %q", s)
		}
		parsed, err := domain.ParseVoucherToken(s)
		if err != nil {
			t.Fatalf("round trip: %v", err)
		}
		if parsed != token {
			t.Fatalf("expected %s, got %s", token, parsed)
		}
	})

	t.Run("draws are safe under concurrency", func(t *testing.T) {
		source := NewTokenSource(fixed)

		const workers, draws = 8, 100
		results := make(chan domain.VoucherToken, workers*draws)
		for w := 0; w < workers; w++ {
			go func() {
				for i := 0; i < draws; i++ {
					results <- source.Next("buyer", "buyer", 1)
				}
			}()
		}

		seen := make(map[domain.VoucherToken]bool)
		for i := 0; i < workers*draws; i++ {
			token := <-results
			if seen[token] {
				t.Fatalf("duplicate token %s", token)
			}
			seen[token] = true
		}
	})
}
