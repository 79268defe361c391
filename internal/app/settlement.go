package app

import (
	"context"
	"fmt"

	"github.com/Pynex/Marketplace/internal/domain"
)

// Book credits value to an address. Implementations may run arbitrary code on
// the receiving side, so the registry mutates its own state before calling
// out through the book.
type Book interface {
	Credit(ctx context.Context, to domain.Address, amount int64) error
}

// SettlementEngine computes purchase totals and commission splits and moves
// value to sellers, the platform owner, and back to overpaying buyers.
type SettlementEngine struct {
	commission int64
	platform   domain.Address
	book       Book
}

// NewSettlementEngine validates the commission percent (0-100 inclusive) and
// the platform owner address.
func NewSettlementEngine(commissionPercent int64, platform domain.Address, book Book) (*SettlementEngine, error) {
	if commissionPercent < 0 || commissionPercent > 100 {
		return nil, fmt.Errorf("%w: commission percent must be 0-100", domain.ErrInvalidInput)
	}
	if platform.IsZero() {
		return nil, domain.ErrInvalidAddress
	}
	return &SettlementEngine{
		commission: commissionPercent,
		platform:   platform,
		book:       book,
	}, nil
}

// Total computes price*quantity. A product that wraps int64 can never be
// covered by the paid value, so overflow is rejected as underpayment.
func (e *SettlementEngine) Total(price, quantity int64) (int64, error) {
	total := price * quantity
	if price != 0 && total/price != quantity {
		return 0, domain.ErrInsufficientFunds
	}
	return total, nil
}

// Split divides a total into net proceeds and commission. The commission is
// always derived as total-net so the two halves sum to the total exactly.
// The fee is computed piecewise because total*commission can wrap int64 for
// totals the payment check still accepts.
func (e *SettlementEngine) Split(total int64) (net, commission int64) {
	fee := total/100*e.commission + total%100*e.commission/100
	net = total - fee
	return net, total - net
}

// RefundExcess rejects underpayment and returns any overpayment to the payer.
func (e *SettlementEngine) RefundExcess(ctx context.Context, to domain.Address, paid, required int64) (int64, error) {
	if paid < required {
		return 0, domain.ErrInsufficientFunds
	}
	excess := paid - required
	if excess > 0 {
		if err := e.book.Credit(ctx, to, excess); err != nil {
			return 0, fmt.Errorf("refund excess: %w", err)
		}
	}
	return excess, nil
}

func (e *SettlementEngine) PaySeller(ctx context.Context, seller domain.Address, net int64) error {
	if net == 0 {
		return nil
	}
	if err := e.book.Credit(ctx, seller, net); err != nil {
		return fmt.Errorf("pay seller: %w", err)
	}
	return nil
}

func (e *SettlementEngine) PayPlatform(ctx context.Context, commission int64) error {
	if commission == 0 {
		return nil
	}
	if err := e.book.Credit(ctx, e.platform, commission); err != nil {
		return fmt.Errorf("pay platform: %w", err)
	}
	return nil
}
