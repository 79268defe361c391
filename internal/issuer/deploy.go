package issuer

import (
	"strings"

	"github.com/Pynex/Marketplace/internal/clock"
	"github.com/Pynex/Marketplace/internal/domain"
	"github.com/google/uuid"
)

// Deployer creates fresh contracts bound to one platform and one minting
// authority, all sharing a store and clock.
type Deployer struct {
	store    Store
	clock    clock.Clock
	platform domain.Address
	minter   domain.Address
}

func NewDeployer(store Store, clk clock.Clock, platform, minter domain.Address) *Deployer {
	return &Deployer{
		store:    store,
		clock:    clk,
		platform: platform,
		minter:   minter,
	}
}

// Deploy creates a contract at a fresh address for a new collection.
func (d *Deployer) Deploy(collectionID int64, owner domain.Address, baseURI string) (*Contract, error) {
	return New(Config{
		Address:      NewAddress(),
		CollectionID: collectionID,
		Owner:        owner,
		Platform:     d.platform,
		Minter:       d.minter,
		BaseURI:      baseURI,
		Store:        d.store,
		Clock:        d.clock,
	})
}

// Restore rebuilds the contract for an existing catalog entry.
func (d *Deployer) Restore(c domain.Collection) (*Contract, error) {
	return New(Config{
		Address:      c.IssuerAddress,
		CollectionID: c.ID,
		Owner:        c.OwnerAddress,
		Platform:     d.platform,
		Minter:       d.minter,
		BaseURI:      c.BaseURI,
		Store:        d.store,
		Clock:        d.clock,
	})
}

// NewAddress mints a fresh issuer address.
func NewAddress() domain.Address {
	return domain.Address("isr-" + strings.ReplaceAll(uuid.NewString(), "-", ""))
}
