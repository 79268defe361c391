package domain

import "time"

// IssuedItem is a minted unit of a collection. TokenID is sequential from 0
// per collection and never reused.
type IssuedItem struct {
	CollectionID int64
	TokenID      int64
	OwnerAddress Address
	CreatedAt    time.Time
}
