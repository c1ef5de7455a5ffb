package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voltkart/voltkart/internal/domain/pricing"
)

const (
	listProductsSQL = `SELECT id, name, category, mrp_price, selling_price_b2c, selling_price_b2b, guarantee_months, warranty_months
		FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, name, category, mrp_price, selling_price_b2c, selling_price_b2b, guarantee_months, warranty_months
		FROM products WHERE id = $1`
)

var _ pricing.Repository = (*ProductRepository)(nil)

// ProductRepository implements pricing.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]pricing.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*pricing.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pricing.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

func scanProduct(row pgx.CollectableRow) (pricing.Product, error) {
	var p pricing.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Category,
		&p.MRP, &p.PriceB2C, &p.PriceB2B,
		&p.GuaranteeMonths, &p.WarrantyMonths,
	)
	return p, err
}
