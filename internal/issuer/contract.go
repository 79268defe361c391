package issuer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Pynex/Marketplace/internal/clock"
	"github.com/Pynex/Marketplace/internal/domain"
)

// Store persists minted items and approval flags for issuers.
type Store interface {
	InsertItem(ctx context.Context, item domain.IssuedItem) error
	GetItem(ctx context.Context, collectionID, tokenID int64) (domain.IssuedItem, error)
	SetApproval(ctx context.Context, collectionID int64, operator domain.Address, approved bool) error
	NextTokenID(ctx context.Context, collectionID int64) (int64, error)
}

// Contract is one deployed collection issuer. It owns the collection's item
// counter and base URI, and only its bound minter address may mint.
type Contract struct {
	addr         domain.Address
	collectionID int64
	owner        domain.Address
	platform     domain.Address
	minter       domain.Address
	baseURI      string
	store        Store
	clock        clock.Clock

	mintGuard domain.CallGuard
}

// Config binds a new or restored contract.
type Config struct {
	Address      domain.Address
	CollectionID int64
	Owner        domain.Address
	Platform     domain.Address
	Minter       domain.Address
	BaseURI      string
	Store        Store
	Clock        clock.Clock
}

// New constructs a contract after validating its identities.
func New(cfg Config) (*Contract, error) {
	if cfg.Address.IsZero() {
		return nil, domain.ErrDeploymentFailure
	}
	if cfg.Owner.IsZero() || cfg.Platform.IsZero() || cfg.Minter.IsZero() {
		return nil, domain.ErrInvalidAddress
	}
	if cfg.BaseURI == "" {
		return nil, domain.ErrInvalidBaseURI
	}
	return &Contract{
		addr:         cfg.Address,
		collectionID: cfg.CollectionID,
		owner:        cfg.Owner,
		platform:     cfg.Platform,
		minter:       cfg.Minter,
		baseURI:      cfg.BaseURI,
		store:        cfg.Store,
		clock:        cfg.Clock,
	}, nil
}

func (c *Contract) Address() domain.Address {
	return c.addr
}

// Minter reports the registered minting authority.
func (c *Contract) Minter() domain.Address {
	return c.minter
}

// Mint assigns the next sequential token id to `to`. Only the bound minter
// may call, and no nested mint may interleave on the same contract. The id
// comes from the store inside the caller's transaction, so a rolled-back
// mint leaves no gap in the sequence.
func (c *Contract) Mint(ctx context.Context, caller, to domain.Address) (int64, error) {
	if caller != c.minter {
		return 0, domain.ErrUnauthorized
	}
	if to.IsZero() {
		return 0, domain.ErrInvalidAddress
	}
	if err := c.mintGuard.Enter(); err != nil {
		return 0, err
	}
	defer c.mintGuard.Exit()

	tokenID, err := c.store.NextTokenID(ctx, c.collectionID)
	if err != nil {
		return 0, fmt.Errorf("next token id: %w", err)
	}
	item := domain.IssuedItem{
		CollectionID: c.collectionID,
		TokenID:      tokenID,
		OwnerAddress: to,
		CreatedAt:    c.clock.Now(),
	}
	if err := c.store.InsertItem(ctx, item); err != nil {
		return 0, fmt.Errorf("insert item: %w", err)
	}
	return item.TokenID, nil
}

// TokenURI joins the base URI and the decimal token id. The item must exist.
func (c *Contract) TokenURI(ctx context.Context, tokenID int64) (string, error) {
	if _, err := c.store.GetItem(ctx, c.collectionID, tokenID); err != nil {
		return "", err
	}
	return c.baseURI + strconv.FormatInt(tokenID, 10), nil
}

func (c *Contract) OwnerOf(ctx context.Context, tokenID int64) (domain.Address, error) {
	item, err := c.store.GetItem(ctx, c.collectionID, tokenID)
	if err != nil {
		return "", err
	}
	return item.OwnerAddress, nil
}

// SetApproval toggles an operator flag. Restricted to the collection owner or
// the platform owner; the registry holds no approval authority.
func (c *Contract) SetApproval(ctx context.Context, caller, operator domain.Address, approved bool) error {
	if caller != c.owner && caller != c.platform {
		return domain.ErrUnauthorized
	}
	if operator.IsZero() {
		return domain.ErrInvalidAddress
	}
	if err := c.store.SetApproval(ctx, c.collectionID, operator, approved); err != nil {
		return fmt.Errorf("set approval: %w", err)
	}
	return nil
}
