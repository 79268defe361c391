package app

import (
	"log"

	"github.com/Pynex/Marketplace/internal/domain"
)

// Notifier receives registry notifications after an operation commits.
type Notifier interface {
	CollectionCreated(e domain.CollectionCreated)
	ProductPurchased(e domain.ProductPurchased)
	VoucherRedeemed(e domain.VoucherRedeemed)
}

// LogNotifier writes each notification to a logger.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) CollectionCreated(e domain.CollectionCreated) {
	n.logger.Printf(
		"event collection_created id=%d issuer=%s owner=%s name=%q price=%d",
		e.ID, e.IssuerAddress, e.Owner, e.Name, e.Price,
	)
}

func (n *LogNotifier) ProductPurchased(e domain.ProductPurchased) {
	n.logger.Printf(
		"event product_purchased buyer=%s issuer=%s price=%d quantity=%d",
		e.Buyer, e.IssuerAddress, e.Price, e.Quantity,
	)
}

func (n *LogNotifier) VoucherRedeemed(e domain.VoucherRedeemed) {
	n.logger.Printf("event voucher_redeemed user=%s issuer=%s", e.User, e.IssuerAddress)
}
