package app

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/Pynex/Marketplace/internal/clock"
	"github.com/Pynex/Marketplace/internal/domain"
)

// maxBatchEntries caps a single batch purchase.
const maxBatchEntries = 1000

// Issuer is the capability surface the registry needs from a deployed
// issuer. Keeping it an interface lets tests substitute misbehaving issuers.
type Issuer interface {
	Address() domain.Address
	Minter() domain.Address
	Mint(ctx context.Context, caller, to domain.Address) (int64, error)
	TokenURI(ctx context.Context, tokenID int64) (string, error)
	OwnerOf(ctx context.Context, tokenID int64) (domain.Address, error)
	SetApproval(ctx context.Context, caller, operator domain.Address, approved bool) error
}

// DeployFunc creates a new issuer for a collection about to be recorded.
type DeployFunc func(ctx context.Context, collectionID int64, owner domain.Address, baseURI string) (Issuer, error)

// RegistryStore is the persistence surface of the registry. WithTx runs fn
// inside one transaction; every effect of an operation commits or none do.
type RegistryStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	NextCollectionID(ctx context.Context) (int64, error)
	CreateCollection(ctx context.Context, c domain.Collection) error
	GetCollection(ctx context.Context, id int64) (domain.Collection, error)
	GetCollectionForUpdate(ctx context.Context, id int64) (domain.Collection, error)
	ListCollections(ctx context.Context) ([]domain.Collection, error)
	DecrementStock(ctx context.Context, id, quantity int64) error

	VoucherCount(ctx context.Context, holder domain.Address, collectionID int64) (int64, error)
	AppendVouchers(ctx context.Context, vouchers []domain.Voucher) error
	ScopeVouchers(ctx context.Context, holder domain.Address, collectionID int64) ([]domain.Voucher, error)
	VoucherAt(ctx context.Context, holder domain.Address, collectionID, index int64) (domain.Voucher, error)
	RemoveVoucherAt(ctx context.Context, holder domain.Address, collectionID, position int64, token domain.VoucherToken) error
}

// RegistryService orchestrates the catalog, settlement, the voucher ledger,
// and the issuers behind the collections.
type RegistryService struct {
	store    RegistryStore
	engine   *SettlementEngine
	deploy   DeployFunc
	tokens   *TokenSource
	notifier Notifier
	clock    clock.Clock

	// address is the registry's own identity, bound into every issuer it
	// deploys as the sole minting authority.
	address  domain.Address
	platform domain.Address

	createGuard domain.CallGuard
	buyGuard    domain.CallGuard
	batchGuard  domain.CallGuard

	mu    sync.RWMutex
	arena map[int64]Issuer
}

type RegistryConfig struct {
	Store    RegistryStore
	Engine   *SettlementEngine
	Deploy   DeployFunc
	Tokens   *TokenSource
	Notifier Notifier
	Clock    clock.Clock
	Address  domain.Address
	Platform domain.Address
}

func NewRegistryService(cfg RegistryConfig) (*RegistryService, error) {
	if cfg.Address.IsZero() || cfg.Platform.IsZero() {
		return nil, domain.ErrInvalidAddress
	}
	return &RegistryService{
		store:    cfg.Store,
		engine:   cfg.Engine,
		deploy:   cfg.Deploy,
		tokens:   cfg.Tokens,
		notifier: cfg.Notifier,
		clock:    cfg.Clock,
		address:  cfg.Address,
		platform: cfg.Platform,
		arena:    make(map[int64]Issuer),
	}, nil
}

// Address is the registry's identity as seen by its issuers.
func (s *RegistryService) Address() domain.Address {
	return s.address
}

// RestoreIssuer registers a previously deployed issuer handle, used when
// rebuilding the arena from the catalog at startup.
func (s *RegistryService) RestoreIssuer(collectionID int64, iss Issuer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.arena[collectionID] = iss
}

func (s *RegistryService) issuerByID(collectionID int64) (Issuer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	iss, ok := s.arena[collectionID]
	return iss, ok
}

type CreateCollectionInput struct {
	Caller       domain.Address
	Name         string
	Symbol       string
	BaseURI      string
	UnitPrice    int64
	InitialStock int64
}

// CreateCollection validates the input bounds, deploys a fresh issuer, and
// records the collection under the next catalog id.
func (s *RegistryService) CreateCollection(ctx context.Context, in CreateCollectionInput) (domain.Collection, error) {
	if err := s.createGuard.Enter(); err != nil {
		return domain.Collection{}, err
	}
	defer s.createGuard.Exit()

	if in.Caller.IsZero() {
		return domain.Collection{}, domain.ErrInvalidAddress
	}
	if len(in.Name) < 1 || len(in.Name) >= domain.MaxNameLength {
		return domain.Collection{}, domain.ErrInvalidName
	}
	if len(in.Symbol) < 1 || len(in.Symbol) >= domain.MaxSymbolLength {
		return domain.Collection{}, domain.ErrInvalidSymbol
	}
	if in.BaseURI == "" {
		return domain.Collection{}, domain.ErrInvalidBaseURI
	}
	if in.UnitPrice <= 0 {
		return domain.Collection{}, domain.ErrInvalidPrice
	}
	if in.InitialStock < 0 {
		return domain.Collection{}, domain.ErrInvalidQuantity
	}

	var (
		record domain.Collection
		iss    Issuer
	)
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		id, err := s.store.NextCollectionID(txCtx)
		if err != nil {
			return err
		}

		iss, err = s.deploy(txCtx, id, in.Caller, in.BaseURI)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrDeploymentFailure, err)
		}
		if iss.Address().IsZero() {
			return domain.ErrDeploymentFailure
		}

		record = domain.Collection{
			ID:              id,
			Name:            in.Name,
			Symbol:          in.Symbol,
			OwnerAddress:    in.Caller,
			BaseURI:         in.BaseURI,
			UnitPrice:       in.UnitPrice,
			QuantityInStock: in.InitialStock,
			IssuerAddress:   iss.Address(),
			CreatedAt:       s.clock.Now(),
		}
		return s.store.CreateCollection(txCtx, record)
	})
	if err != nil {
		return domain.Collection{}, err
	}

	s.RestoreIssuer(record.ID, iss)
	s.notifier.CollectionCreated(domain.CollectionCreated{
		IssuerAddress: record.IssuerAddress,
		Owner:         record.OwnerAddress,
		URI:           record.BaseURI,
		Name:          record.Name,
		Price:         record.UnitPrice,
		ID:            record.ID,
	})
	return record, nil
}

type BuyInput struct {
	Caller       domain.Address
	CollectionID int64
	Quantity     int64
	Value        int64
}

// Buy settles a single-collection purchase. Stock and voucher state are
// mutated before the outbound seller and platform transfers so a reentrant
// call observes already-updated inventory.
func (s *RegistryService) Buy(ctx context.Context, in BuyInput) error {
	if err := s.buyGuard.Enter(); err != nil {
		return err
	}
	defer s.buyGuard.Exit()

	if in.Caller.IsZero() {
		return domain.ErrInvalidAddress
	}

	var event domain.ProductPurchased
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		c, err := s.store.GetCollectionForUpdate(txCtx, in.CollectionID)
		if err != nil {
			return err
		}
		if in.Quantity <= 0 || in.Quantity > c.QuantityInStock {
			return domain.ErrInvalidQuantity
		}

		total, err := s.engine.Total(c.UnitPrice, in.Quantity)
		if err != nil {
			return err
		}
		net, commission := s.engine.Split(total)

		if _, err := s.engine.RefundExcess(txCtx, in.Caller, in.Value, total); err != nil {
			return err
		}
		if err := s.store.DecrementStock(txCtx, c.ID, in.Quantity); err != nil {
			return err
		}
		if err := s.appendVouchers(txCtx, in.Caller, c.ID, in.Quantity); err != nil {
			return err
		}
		if err := s.engine.PaySeller(txCtx, c.OwnerAddress, net); err != nil {
			return err
		}
		if err := s.engine.PayPlatform(txCtx, commission); err != nil {
			return err
		}

		event = domain.ProductPurchased{
			Buyer:         in.Caller,
			IssuerAddress: c.IssuerAddress,
			Price:         c.UnitPrice,
			Quantity:      in.Quantity,
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.ProductPurchased(event)
	return nil
}

type BatchBuyInput struct {
	Caller        domain.Address
	CollectionIDs []int64
	Quantities    []int64
	Value         int64
}

// BatchBuy executes the per-item purchase logic over a bounded list as one
// all-or-nothing operation. Sellers are paid inline while iterating; the
// refund and the aggregate commission settle once after the loop.
func (s *RegistryService) BatchBuy(ctx context.Context, in BatchBuyInput) error {
	if err := s.batchGuard.Enter(); err != nil {
		return err
	}
	defer s.batchGuard.Exit()

	if in.Caller.IsZero() {
		return domain.ErrInvalidAddress
	}
	if len(in.CollectionIDs) != len(in.Quantities) {
		return domain.ErrArrayLengthMismatch
	}
	if len(in.CollectionIDs) > maxBatchEntries {
		return domain.ErrBatchTooLarge
	}

	var events []domain.ProductPurchased
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		var grandTotal, netSum int64
		for i, id := range in.CollectionIDs {
			quantity := in.Quantities[i]

			c, err := s.store.GetCollectionForUpdate(txCtx, id)
			if err != nil {
				return err
			}
			if quantity <= 0 || quantity > c.QuantityInStock {
				return domain.ErrInvalidQuantity
			}

			total, err := s.engine.Total(c.UnitPrice, quantity)
			if err != nil {
				return err
			}
			net, _ := s.engine.Split(total)

			if err := s.store.DecrementStock(txCtx, c.ID, quantity); err != nil {
				return err
			}
			if err := s.appendVouchers(txCtx, in.Caller, c.ID, quantity); err != nil {
				return err
			}
			if err := s.engine.PaySeller(txCtx, c.OwnerAddress, net); err != nil {
				return err
			}

			// The running sums must not wrap either; netSum never exceeds
			// grandTotal, so checking the grand total covers both.
			if grandTotal > math.MaxInt64-total {
				return domain.ErrInsufficientFunds
			}
			grandTotal += total
			netSum += net
			events = append(events, domain.ProductPurchased{
				Buyer:         in.Caller,
				IssuerAddress: c.IssuerAddress,
				Price:         c.UnitPrice,
				Quantity:      quantity,
			})
		}

		if _, err := s.engine.RefundExcess(txCtx, in.Caller, in.Value, grandTotal); err != nil {
			return err
		}
		// Aggregate commission is whatever the sellers did not receive, so
		// the books balance to the grand total exactly.
		return s.engine.PayPlatform(txCtx, grandTotal-netSum)
	})
	if err != nil {
		return err
	}

	for _, e := range events {
		s.notifier.ProductPurchased(e)
	}
	return nil
}

type RedeemVoucherInput struct {
	Caller       domain.Address
	CollectionID int64
	Token        domain.VoucherToken
}

// RedeemVoucher mints one item to the caller in exchange for a voucher from
// the caller's scope. The collection row lock serializes concurrent redeems,
// and the removal re-checks the token and fails hard if the voucher vanished
// between validation and removal.
func (s *RegistryService) RedeemVoucher(ctx context.Context, in RedeemVoucherInput) (domain.IssuedItem, error) {
	if in.Caller.IsZero() {
		return domain.IssuedItem{}, domain.ErrInvalidAddress
	}

	var (
		item  domain.IssuedItem
		event domain.VoucherRedeemed
	)
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		c, err := s.store.GetCollectionForUpdate(txCtx, in.CollectionID)
		if err != nil {
			return err
		}

		iss, ok := s.issuerByID(c.ID)
		if !ok || iss.Minter() != s.address {
			// A catalog record pointing at an issuer that does not answer to
			// this registry must never mint.
			return domain.ErrUnauthorized
		}

		vouchers, err := s.store.ScopeVouchers(txCtx, in.Caller, c.ID)
		if err != nil {
			return err
		}
		match := -1
		for i, v := range vouchers {
			if v.Token == in.Token {
				match = i
				break
			}
		}
		if match < 0 {
			return domain.ErrVoucherNotFound
		}

		tokenID, err := iss.Mint(txCtx, s.address, in.Caller)
		if err != nil {
			return err
		}
		item = domain.IssuedItem{
			CollectionID: c.ID,
			TokenID:      tokenID,
			OwnerAddress: in.Caller,
			CreatedAt:    s.clock.Now(),
		}

		if err := s.store.RemoveVoucherAt(txCtx, in.Caller, c.ID, vouchers[match].Position, in.Token); err != nil {
			return err
		}

		event = domain.VoucherRedeemed{User: in.Caller, IssuerAddress: c.IssuerAddress}
		return nil
	})
	if err != nil {
		return domain.IssuedItem{}, err
	}

	s.notifier.VoucherRedeemed(event)
	return item, nil
}

func (s *RegistryService) appendVouchers(ctx context.Context, holder domain.Address, collectionID, quantity int64) error {
	count, err := s.store.VoucherCount(ctx, holder, collectionID)
	if err != nil {
		return err
	}
	vouchers := make([]domain.Voucher, 0, quantity)
	for i := int64(0); i < quantity; i++ {
		vouchers = append(vouchers, domain.Voucher{
			HolderAddress: holder,
			CollectionID:  collectionID,
			Position:      count + i,
			Token:         s.tokens.Next(holder, holder, collectionID),
		})
	}
	return s.store.AppendVouchers(ctx, vouchers)
}

// GetAddressByID returns the issuer address behind a collection.
func (s *RegistryService) GetAddressByID(ctx context.Context, id int64) (domain.Address, error) {
	c, err := s.store.GetCollection(ctx, id)
	if err != nil {
		return "", err
	}
	return c.IssuerAddress, nil
}

func (s *RegistryService) GetPrice(ctx context.Context, id int64) (int64, error) {
	c, err := s.store.GetCollection(ctx, id)
	if err != nil {
		return 0, err
	}
	return c.UnitPrice, nil
}

func (s *RegistryService) GetQuantity(ctx context.Context, id int64) (int64, error) {
	c, err := s.store.GetCollection(ctx, id)
	if err != nil {
		return 0, err
	}
	return c.QuantityInStock, nil
}

func (s *RegistryService) GetOwnerByCollectionID(ctx context.Context, id int64) (domain.Address, error) {
	c, err := s.store.GetCollection(ctx, id)
	if err != nil {
		return "", err
	}
	return c.OwnerAddress, nil
}

func (s *RegistryService) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	return s.store.ListCollections(ctx)
}

// GetVoucher exposes a voucher by scope index to the platform owner only.
func (s *RegistryService) GetVoucher(ctx context.Context, caller domain.Address, index int64, user domain.Address, collectionID int64) (domain.VoucherToken, error) {
	if caller != s.platform {
		return domain.VoucherToken{}, domain.ErrUnauthorized
	}
	v, err := s.store.VoucherAt(ctx, user, collectionID, index)
	if err != nil {
		return domain.VoucherToken{}, err
	}
	return v.Token, nil
}

// SetApproval forwards approval control to a collection's issuer under the
// original caller identity. The issuer decides who may call; the registry's
// own address holds no approval authority.
func (s *RegistryService) SetApproval(ctx context.Context, caller domain.Address, collectionID int64, operator domain.Address, approved bool) error {
	if caller.IsZero() {
		return domain.ErrInvalidAddress
	}
	if _, err := s.store.GetCollection(ctx, collectionID); err != nil {
		return err
	}
	iss, ok := s.issuerByID(collectionID)
	if !ok {
		return domain.ErrUnauthorized
	}
	return iss.SetApproval(ctx, caller, operator, approved)
}

// GetItem resolves a minted item's owner and metadata URI via its issuer.
func (s *RegistryService) GetItem(ctx context.Context, collectionID, tokenID int64) (domain.Address, string, error) {
	if _, err := s.store.GetCollection(ctx, collectionID); err != nil {
		return "", "", err
	}
	iss, ok := s.issuerByID(collectionID)
	if !ok {
		return "", "", domain.ErrUnauthorized
	}
	owner, err := iss.OwnerOf(ctx, tokenID)
	if err != nil {
		return "", "", err
	}
	uri, err := iss.TokenURI(ctx, tokenID)
	if err != nil {
		return "", "", err
	}
	return owner, uri, nil
}
