package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Pynex/Marketplace/internal/domain"
	"github.com/Pynex/Marketplace/internal/testutil"
)

func token(b byte) domain.VoucherToken {
	return domain.VoucherToken{b, b, b, b, b, b, b, b}
}

func TestRegistryRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewRegistryRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("NextCollectionID follows MAX(id)", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		id, err := repo.NextCollectionID(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != 1 {
			t.Fatalf("expected first id 1, got %d", id)
		}

		testutil.InsertCollection(t, ctx, pool, domain.Collection{
			ID: 5, Name: "Posters", Symbol: "PST", OwnerAddress: "alice",
			BaseURI: "https://cdn.example/p/", UnitPrice: 100, QuantityInStock: 10, IssuerAddress: "isr-5",
		})

		id, err = repo.NextCollectionID(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != 6 {
			t.Fatalf("expected id 6 after MAX 5, got %d", id)
		}
	})

	t.Run("CreateCollection and GetCollection round trip", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		want := domain.Collection{
			ID: 1, Name: "Posters", Symbol: "PST", OwnerAddress: "alice",
			BaseURI: "https://cdn.example/p/", UnitPrice: 100, QuantityInStock: 10,
			IssuerAddress: "isr-1", CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		}
		if err := repo.CreateCollection(ctx, want); err != nil {
			t.Fatalf("create: %v", err)
		}

		got, err := repo.GetCollection(ctx, 1)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Name != want.Name || got.UnitPrice != want.UnitPrice || got.IssuerAddress != want.IssuerAddress {
			t.Fatalf("unexpected collection %+v", got)
		}

		err = repo.CreateCollection(ctx, want)
		if err == nil {
			t.Fatal("expected an error on duplicate id")
		}
		if errors.Is(err, domain.ErrInvalidID) {
			t.Fatalf("duplicate id must not read as an unknown id, got %v", err)
		}

		if _, err := repo.GetCollection(ctx, 42); !errors.Is(err, domain.ErrInvalidID) {
			t.Fatalf("expected ErrInvalidID for unknown id, got %v", err)
		}
	})

	t.Run("DecrementStock never goes below zero", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertCollection(t, ctx, pool, domain.Collection{
			ID: 1, Name: "Posters", Symbol: "PST", OwnerAddress: "alice",
			BaseURI: "https://cdn.example/p/", UnitPrice: 100, QuantityInStock: 3, IssuerAddress: "isr-1",
		})

		if err := repo.DecrementStock(ctx, 1, 2); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := repo.DecrementStock(ctx, 1, 2); !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity past the floor, got %v", err)
		}

		c, err := repo.GetCollection(ctx, 1)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if c.QuantityInStock != 1 {
			t.Fatalf("expected stock 1, got %d", c.QuantityInStock)
		}
	})

	t.Run("voucher scope keeps dense positions", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertCollection(t, ctx, pool, domain.Collection{
			ID: 1, Name: "Posters", Symbol: "PST", OwnerAddress: "alice",
			BaseURI: "https://cdn.example/p/", UnitPrice: 100, QuantityInStock: 10, IssuerAddress: "isr-1",
		})

		count, err := repo.VoucherCount(ctx, "buyer", 1)
		if err != nil || count != 0 {
			t.Fatalf("expected empty scope, got %d, %v", count, err)
		}

		vouchers := []domain.Voucher{
			{HolderAddress: "buyer", CollectionID: 1, Position: 0, Token: token(0xa0)},
			{HolderAddress: "buyer", CollectionID: 1, Position: 1, Token: token(0xa1)},
			{HolderAddress: "buyer", CollectionID: 1, Position: 2, Token: token(0xa2)},
		}
		if err := repo.AppendVouchers(ctx, vouchers); err != nil {
			t.Fatalf("append: %v", err)
		}

		scope, err := repo.ScopeVouchers(ctx, "buyer", 1)
		if err != nil {
			t.Fatalf("scope: %v", err)
		}
		if len(scope) != 3 || scope[1].Token != token(0xa1) {
			t.Fatalf("unexpected scope %+v", scope)
		}

		v, err := repo.VoucherAt(ctx, "buyer", 1, 2)
		if err != nil || v.Token != token(0xa2) {
			t.Fatalf("VoucherAt(2) = %+v, %v", v, err)
		}
		if _, err := repo.VoucherAt(ctx, "buyer", 1, 9); !errors.Is(err, domain.ErrVoucherNotFound) {
			t.Fatalf("expected ErrVoucherNotFound, got %v", err)
		}

		// Removing the middle entry moves the last token into its slot.
		if err := repo.RemoveVoucherAt(ctx, "buyer", 1, 1, token(0xa1)); err != nil {
			t.Fatalf("remove: %v", err)
		}
		scope, err = repo.ScopeVouchers(ctx, "buyer", 1)
		if err != nil {
			t.Fatalf("scope after remove: %v", err)
		}
		if len(scope) != 2 {
			t.Fatalf("expected 2 vouchers, got %d", len(scope))
		}
		if scope[0].Token != token(0xa0) || scope[1].Token != token(0xa2) {
			t.Fatalf("expected swap-delete layout, got %+v", scope)
		}
		if scope[0].Position != 0 || scope[1].Position != 1 {
			t.Fatalf("expected dense positions, got %+v", scope)
		}

		// Removing the last entry truncates without a swap.
		if err := repo.RemoveVoucherAt(ctx, "buyer", 1, 1, token(0xa2)); err != nil {
			t.Fatalf("remove last: %v", err)
		}
		if count, _ := repo.VoucherCount(ctx, "buyer", 1); count != 1 {
			t.Fatalf("expected 1 voucher, got %d", count)
		}

		if err := repo.RemoveVoucherAt(ctx, "buyer", 1, 9, token(0xa0)); !errors.Is(err, domain.ErrVoucherNotFound) {
			t.Fatalf("expected ErrVoucherNotFound for missing position, got %v", err)
		}
		if err := repo.RemoveVoucherAt(ctx, "stranger", 1, 0, token(0xa0)); !errors.Is(err, domain.ErrVoucherNotFound) {
			t.Fatalf("expected ErrVoucherNotFound for empty scope, got %v", err)
		}
	})

	t.Run("removal refuses a position whose token changed", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertCollection(t, ctx, pool, domain.Collection{
			ID: 1, Name: "Posters", Symbol: "PST", OwnerAddress: "alice",
			BaseURI: "https://cdn.example/p/", UnitPrice: 100, QuantityInStock: 10, IssuerAddress: "isr-1",
		})
		if err := repo.AppendVouchers(ctx, []domain.Voucher{
			{HolderAddress: "buyer", CollectionID: 1, Position: 0, Token: token(0xa0)},
			{HolderAddress: "buyer", CollectionID: 1, Position: 1, Token: token(0xa1)},
			{HolderAddress: "buyer", CollectionID: 1, Position: 2, Token: token(0xa2)},
		}); err != nil {
			t.Fatalf("append: %v", err)
		}

		// First removal swaps the tail token into position 0. A second
		// removal that still believes position 0 holds the old token must
		// not consume the swapped-in voucher.
		if err := repo.RemoveVoucherAt(ctx, "buyer", 1, 0, token(0xa0)); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if err := repo.RemoveVoucherAt(ctx, "buyer", 1, 0, token(0xa0)); !errors.Is(err, domain.ErrVoucherNotFound) {
			t.Fatalf("expected ErrVoucherNotFound for stale token, got %v", err)
		}

		scope, err := repo.ScopeVouchers(ctx, "buyer", 1)
		if err != nil {
			t.Fatalf("scope: %v", err)
		}
		if len(scope) != 2 || scope[0].Token != token(0xa2) || scope[1].Token != token(0xa1) {
			t.Fatalf("expected surviving vouchers untouched, got %+v", scope)
		}
	})

	t.Run("concurrent removals consume a token at most once", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertCollection(t, ctx, pool, domain.Collection{
			ID: 1, Name: "Posters", Symbol: "PST", OwnerAddress: "alice",
			BaseURI: "https://cdn.example/p/", UnitPrice: 100, QuantityInStock: 10, IssuerAddress: "isr-1",
		})
		if err := repo.AppendVouchers(ctx, []domain.Voucher{
			{HolderAddress: "buyer", CollectionID: 1, Position: 0, Token: token(0xa0)},
			{HolderAddress: "buyer", CollectionID: 1, Position: 1, Token: token(0xa1)},
			{HolderAddress: "buyer", CollectionID: 1, Position: 2, Token: token(0xa2)},
		}); err != nil {
			t.Fatalf("append: %v", err)
		}

		// Both workers race to redeem token 0xa0 the way the service does:
		// lock the collection row, scan the scope, remove the match.
		redeem := func() error {
			return repo.WithTx(ctx, func(txCtx context.Context) error {
				if _, err := repo.GetCollectionForUpdate(txCtx, 1); err != nil {
					return err
				}
				scope, err := repo.ScopeVouchers(txCtx, "buyer", 1)
				if err != nil {
					return err
				}
				for _, v := range scope {
					if v.Token == token(0xa0) {
						return repo.RemoveVoucherAt(txCtx, "buyer", 1, v.Position, v.Token)
					}
				}
				return domain.ErrVoucherNotFound
			})
		}

		results := make(chan error, 2)
		for i := 0; i < 2; i++ {
			go func() { results <- redeem() }()
		}

		var succeeded, missing int
		for i := 0; i < 2; i++ {
			switch err := <-results; {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrVoucherNotFound):
				missing++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if succeeded != 1 || missing != 1 {
			t.Fatalf("expected exactly one redemption, got %d succeeded and %d missing", succeeded, missing)
		}

		scope, err := repo.ScopeVouchers(ctx, "buyer", 1)
		if err != nil {
			t.Fatalf("scope: %v", err)
		}
		if len(scope) != 2 {
			t.Fatalf("expected 2 vouchers left, got %d", len(scope))
		}
		for _, v := range scope {
			if v.Token == token(0xa0) {
				t.Fatalf("redeemed token still present: %+v", scope)
			}
		}
	})

	t.Run("Credit accumulates and Balance defaults to zero", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		if balance, err := repo.Balance(ctx, "seller"); err != nil || balance != 0 {
			t.Fatalf("expected zero balance, got %d, %v", balance, err)
		}

		if err := repo.Credit(ctx, "seller", 285); err != nil {
			t.Fatalf("credit: %v", err)
		}
		if err := repo.Credit(ctx, "seller", 15); err != nil {
			t.Fatalf("credit: %v", err)
		}

		balance, err := repo.Balance(ctx, "seller")
		if err != nil {
			t.Fatalf("balance: %v", err)
		}
		if balance != 300 {
			t.Fatalf("expected balance 300, got %d", balance)
		}
	})

	t.Run("WithTx rolls back every effect on error", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertCollection(t, ctx, pool, domain.Collection{
			ID: 1, Name: "Posters", Symbol: "PST", OwnerAddress: "alice",
			BaseURI: "https://cdn.example/p/", UnitPrice: 100, QuantityInStock: 10, IssuerAddress: "isr-1",
		})

		boom := errors.New("abort")
		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			if err := repo.DecrementStock(txCtx, 1, 3); err != nil {
				return err
			}
			if err := repo.Credit(txCtx, "seller", 285); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected abort error, got %v", err)
		}

		c, err := repo.GetCollection(ctx, 1)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if c.QuantityInStock != 10 {
			t.Fatalf("expected stock restored to 10, got %d", c.QuantityInStock)
		}
		if balance, _ := repo.Balance(ctx, "seller"); balance != 0 {
			t.Fatalf("expected seller balance rolled back, got %d", balance)
		}
	})
}
