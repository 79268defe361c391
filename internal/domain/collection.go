package domain

import "time"

// Name/symbol bounds enforced at creation time. Upper bounds are exclusive.
const (
	MaxNameLength   = 64
	MaxSymbolLength = 8
)

// Collection is one catalog entry. IssuerAddress is set once at creation and
// never changes; QuantityInStock is mutated only by successful purchases.
type Collection struct {
	ID              int64
	Name            string
	Symbol          string
	OwnerAddress    Address
	BaseURI         string
	UnitPrice       int64
	QuantityInStock int64
	IssuerAddress   Address
	CreatedAt       time.Time
}
