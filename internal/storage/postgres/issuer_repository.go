package postgres

import (
	"context"
	"fmt"

	"github.com/Pynex/Marketplace/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IssuerRepository persists minted items and approval flags for every
// deployed issuer.
type IssuerRepository struct {
	pool *pgxpool.Pool
}

func NewIssuerRepository(pool *pgxpool.Pool) *IssuerRepository {
	return &IssuerRepository{pool: pool}
}

func (r *IssuerRepository) InsertItem(ctx context.Context, item domain.IssuedItem) error {
	const stmt = `
INSERT INTO items (collection_id, token_id, owner_address, created_at)
VALUES ($1, $2, $3, $4)`

	_, err := exec(ctx, r.pool, stmt, item.CollectionID, item.TokenID, item.OwnerAddress, item.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert item: token id %d already minted", item.TokenID)
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *IssuerRepository) GetItem(ctx context.Context, collectionID, tokenID int64) (domain.IssuedItem, error) {
	const q = `
SELECT collection_id, token_id, owner_address, created_at
FROM items
WHERE collection_id = $1 AND token_id = $2`

	var item domain.IssuedItem
	err := queryRow(ctx, r.pool, q, collectionID, tokenID).
		Scan(&item.CollectionID, &item.TokenID, &item.OwnerAddress, &item.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.IssuedItem{}, domain.ErrItemNotFound
		}
		return domain.IssuedItem{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (r *IssuerRepository) SetApproval(ctx context.Context, collectionID int64, operator domain.Address, approved bool) error {
	const stmt = `
INSERT INTO approvals (collection_id, operator_address, approved)
VALUES ($1, $2, $3)
ON CONFLICT (collection_id, operator_address) DO UPDATE SET approved = EXCLUDED.approved`

	if _, err := exec(ctx, r.pool, stmt, collectionID, operator, approved); err != nil {
		return fmt.Errorf("set approval: %w", err)
	}
	return nil
}

// NextTokenID reports the id the next mint will take. Nothing is reserved;
// the id only becomes taken when the minting transaction commits.
func (r *IssuerRepository) NextTokenID(ctx context.Context, collectionID int64) (int64, error) {
	const q = `SELECT COALESCE(MAX(token_id) + 1, 0) FROM items WHERE collection_id = $1`
	var next int64
	if err := queryRow(ctx, r.pool, q, collectionID).Scan(&next); err != nil {
		return 0, fmt.Errorf("next token id: %w", err)
	}
	return next, nil
}
