package postgres

import (
	"context"
	"fmt"

	"github.com/Pynex/Marketplace/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegistryRepository persists the catalog, the voucher ledger, and the
// settlement account book.
type RegistryRepository struct {
	pool *pgxpool.Pool
}

func NewRegistryRepository(pool *pgxpool.Pool) *RegistryRepository {
	return &RegistryRepository{pool: pool}
}

func (r *RegistryRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// NextCollectionID reserves nothing; the id only becomes taken when the
// creating transaction commits, so a failed creation burns no id.
func (r *RegistryRepository) NextCollectionID(ctx context.Context) (int64, error) {
	const q = `SELECT COALESCE(MAX(id), 0) + 1 FROM collections`
	var id int64
	if err := queryRow(ctx, r.pool, q).Scan(&id); err != nil {
		return 0, fmt.Errorf("next collection id: %w", err)
	}
	return id, nil
}

func (r *RegistryRepository) CreateCollection(ctx context.Context, c domain.Collection) error {
	const stmt = `
INSERT INTO collections (id, name, symbol, owner_address, base_uri, unit_price, quantity_in_stock, issuer_address, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := exec(ctx, r.pool, stmt,
		c.ID,
		c.Name,
		c.Symbol,
		c.OwnerAddress,
		c.BaseURI,
		c.UnitPrice,
		c.QuantityInStock,
		c.IssuerAddress,
		c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create collection: id %d already taken", c.ID)
		}
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

const collectionColumns = `id, name, symbol, owner_address, base_uri, unit_price, quantity_in_stock, issuer_address, created_at`

func (r *RegistryRepository) GetCollection(ctx context.Context, id int64) (domain.Collection, error) {
	q := `SELECT ` + collectionColumns + ` FROM collections WHERE id = $1`
	return r.scanCollection(queryRow(ctx, r.pool, q, id))
}

func (r *RegistryRepository) GetCollectionForUpdate(ctx context.Context, id int64) (domain.Collection, error) {
	q := `SELECT ` + collectionColumns + ` FROM collections WHERE id = $1 FOR UPDATE`
	return r.scanCollection(queryRow(ctx, r.pool, q, id))
}

func (r *RegistryRepository) scanCollection(row pgx.Row) (domain.Collection, error) {
	var c domain.Collection
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Symbol,
		&c.OwnerAddress,
		&c.BaseURI,
		&c.UnitPrice,
		&c.QuantityInStock,
		&c.IssuerAddress,
		&c.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Collection{}, domain.ErrInvalidID
		}
		return domain.Collection{}, fmt.Errorf("get collection: %w", err)
	}
	return c, nil
}

func (r *RegistryRepository) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	q := `SELECT ` + collectionColumns + ` FROM collections ORDER BY id ASC`
	rows, err := query(ctx, r.pool, q)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var out []domain.Collection
	for rows.Next() {
		var c domain.Collection
		if err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Symbol,
			&c.OwnerAddress,
			&c.BaseURI,
			&c.UnitPrice,
			&c.QuantityInStock,
			&c.IssuerAddress,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate collections: %w", rows.Err())
	}
	return out, nil
}

// DecrementStock refuses to take stock below zero.
func (r *RegistryRepository) DecrementStock(ctx context.Context, id, quantity int64) error {
	const stmt = `
UPDATE collections
SET quantity_in_stock = quantity_in_stock - $2
WHERE id = $1 AND quantity_in_stock >= $2`

	tag, err := exec(ctx, r.pool, stmt, id, quantity)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidQuantity
	}
	return nil
}

func (r *RegistryRepository) VoucherCount(ctx context.Context, holder domain.Address, collectionID int64) (int64, error) {
	const q = `SELECT COUNT(*) FROM vouchers WHERE holder_address = $1 AND collection_id = $2`
	var count int64
	if err := queryRow(ctx, r.pool, q, holder, collectionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("voucher count: %w", err)
	}
	return count, nil
}

func (r *RegistryRepository) AppendVouchers(ctx context.Context, vouchers []domain.Voucher) error {
	const stmt = `
INSERT INTO vouchers (holder_address, collection_id, position, token)
VALUES ($1, $2, $3, $4)`

	for _, v := range vouchers {
		if _, err := exec(ctx, r.pool, stmt, v.HolderAddress, v.CollectionID, v.Position, v.Token.String()); err != nil {
			return fmt.Errorf("append voucher: %w", err)
		}
	}
	return nil
}

func (r *RegistryRepository) ScopeVouchers(ctx context.Context, holder domain.Address, collectionID int64) ([]domain.Voucher, error) {
	const q = `
SELECT holder_address, collection_id, position, token
FROM vouchers
WHERE holder_address = $1 AND collection_id = $2
ORDER BY position ASC`

	rows, err := query(ctx, r.pool, q, holder, collectionID)
	if err != nil {
		return nil, fmt.Errorf("scope vouchers: %w", err)
	}
	defer rows.Close()

	var out []domain.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate vouchers: %w", rows.Err())
	}
	return out, nil
}

func (r *RegistryRepository) VoucherAt(ctx context.Context, holder domain.Address, collectionID, index int64) (domain.Voucher, error) {
	const q = `
SELECT holder_address, collection_id, position, token
FROM vouchers
WHERE holder_address = $1 AND collection_id = $2 AND position = $3`

	v, err := scanVoucher(queryRow(ctx, r.pool, q, holder, collectionID, index))
	if err != nil {
		return domain.Voucher{}, err
	}
	return v, nil
}

// RemoveVoucherAt deletes one sequence entry by moving the last entry's token
// into the removed position and truncating the tail, preserving the dense
// 0..n-1 position layout. The row at the position must still hold the given
// token; a concurrent removal may have swapped another token into it, and
// removing that one would consume an unrelated voucher.
func (r *RegistryRepository) RemoveVoucherAt(ctx context.Context, holder domain.Address, collectionID, position int64, token domain.VoucherToken) error {
	const currentQ = `
SELECT token
FROM vouchers
WHERE holder_address = $1 AND collection_id = $2 AND position = $3
FOR UPDATE`

	var current string
	if err := queryRow(ctx, r.pool, currentQ, holder, collectionID, position).Scan(&current); err != nil {
		if err == pgx.ErrNoRows {
			return domain.ErrVoucherNotFound
		}
		return fmt.Errorf("find voucher: %w", err)
	}
	if current != token.String() {
		return domain.ErrVoucherNotFound
	}

	const lastQ = `
SELECT position, token
FROM vouchers
WHERE holder_address = $1 AND collection_id = $2
ORDER BY position DESC
LIMIT 1
FOR UPDATE`

	var (
		lastPos   int64
		lastToken string
	)
	if err := queryRow(ctx, r.pool, lastQ, holder, collectionID).Scan(&lastPos, &lastToken); err != nil {
		if err == pgx.ErrNoRows {
			return domain.ErrVoucherNotFound
		}
		return fmt.Errorf("find last voucher: %w", err)
	}

	if lastPos != position {
		const swap = `
UPDATE vouchers SET token = $4
WHERE holder_address = $1 AND collection_id = $2 AND position = $3`
		tag, err := exec(ctx, r.pool, swap, holder, collectionID, position, lastToken)
		if err != nil {
			return fmt.Errorf("swap voucher: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrVoucherNotFound
		}
	}

	const truncate = `
DELETE FROM vouchers
WHERE holder_address = $1 AND collection_id = $2 AND position = $3`
	tag, err := exec(ctx, r.pool, truncate, holder, collectionID, lastPos)
	if err != nil {
		return fmt.Errorf("truncate voucher: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVoucherNotFound
	}
	return nil
}

// Credit adds value to an account, creating it on first use.
func (r *RegistryRepository) Credit(ctx context.Context, to domain.Address, amount int64) error {
	const stmt = `
INSERT INTO accounts (address, balance)
VALUES ($1, $2)
ON CONFLICT (address) DO UPDATE SET balance = accounts.balance + EXCLUDED.balance`

	if _, err := exec(ctx, r.pool, stmt, to, amount); err != nil {
		return fmt.Errorf("credit account: %w", err)
	}
	return nil
}

// Balance reads an account balance; unknown accounts read as zero.
func (r *RegistryRepository) Balance(ctx context.Context, addr domain.Address) (int64, error) {
	const q = `SELECT COALESCE((SELECT balance FROM accounts WHERE address = $1), 0)`
	var balance int64
	if err := queryRow(ctx, r.pool, q, addr).Scan(&balance); err != nil {
		return 0, fmt.Errorf("account balance: %w", err)
	}
	return balance, nil
}

func scanVoucher(row pgx.Row) (domain.Voucher, error) {
	var (
		v     domain.Voucher
		token string
	)
	if err := row.Scan(&v.HolderAddress, &v.CollectionID, &v.Position, &token); err != nil {
		if err == pgx.ErrNoRows {
			return domain.Voucher{}, domain.ErrVoucherNotFound
		}
		return domain.Voucher{}, fmt.Errorf("scan voucher: %w", err)
	}
	parsed, err := domain.ParseVoucherToken(token)
	if err != nil {
		return domain.Voucher{}, fmt.Errorf("scan voucher token: %w", err)
	}
	v.Token = parsed
	return v, nil
}
