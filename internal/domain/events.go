package domain

// Notification payloads emitted by the registry after an operation commits.

type CollectionCreated struct {
	IssuerAddress Address
	Owner         Address
	URI           string
	Name          string
	Price         int64
	ID            int64
}

type ProductPurchased struct {
	Buyer         Address
	IssuerAddress Address
	Price         int64
	Quantity      int64
}

type VoucherRedeemed struct {
	User          Address
	IssuerAddress Address
}
