package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voltkart/voltkart/internal/domain/warranty"
)

const (
	findSaleSQL = `SELECT serial_number, product_id, customer_id, invoice_number, purchase_date
		FROM serials WHERE serial_number = $1`

	configForSQL = `SELECT guarantee_months, warranty_months
		FROM products WHERE id = $1`

	slabsForSQL = `SELECT slab_name, min_months, max_months, discount_pct
		FROM warranty_slabs WHERE product_id = $1 ORDER BY min_months`

	replacementsForSQL = `SELECT replaced_at, new_serial, replacement_type, COALESCE(new_invoice_number, '')
		FROM replacements WHERE old_serial = $1 ORDER BY replaced_at`

	replacementsByCustomerSQL = `SELECT replaced_at, new_serial, replacement_type, COALESCE(new_invoice_number, '')
		FROM replacements WHERE customer_id = $1 ORDER BY replaced_at DESC`
)

var _ warranty.Repository = (*WarrantyRepository)(nil)

// WarrantyRepository implements warranty.Repository backed by PostgreSQL:
// the serial registry, per-product warranty configuration, and replacement
// history.
type WarrantyRepository struct {
	pool *pgxpool.Pool
}

// NewWarrantyRepository returns a WarrantyRepository that uses the given pool.
func NewWarrantyRepository(pool *pgxpool.Pool) *WarrantyRepository {
	return &WarrantyRepository{pool: pool}
}

// FindSale resolves a serial number to its originating sale. Returns
// warranty.ErrSerialNotFound when the serial was never registered.
func (r *WarrantyRepository) FindSale(ctx context.Context, serial string) (*warranty.SaleRecord, error) {
	var s warranty.SaleRecord
	err := r.pool.QueryRow(ctx, findSaleSQL, serial).Scan(
		&s.SerialNumber, &s.ProductID, &s.CustomerID, &s.InvoiceNumber, &s.PurchaseDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, warranty.ErrSerialNotFound
		}
		return nil, fmt.Errorf("finding sale for serial %q: %w", serial, err)
	}
	return &s, nil
}

// ConfigFor loads a product's guarantee months, warranty months, and slab
// schedule.
func (r *WarrantyRepository) ConfigFor(ctx context.Context, productID string) (*warranty.Config, error) {
	var cfg warranty.Config
	err := r.pool.QueryRow(ctx, configForSQL, productID).Scan(
		&cfg.GuaranteeMonths, &cfg.WarrantyMonths,
	)
	if err != nil {
		return nil, fmt.Errorf("loading warranty config for product %q: %w", productID, err)
	}

	rows, err := r.pool.Query(ctx, slabsForSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("loading warranty slabs for product %q: %w", productID, err)
	}
	cfg.Slabs, err = pgx.CollectRows(rows, scanSlab)
	if err != nil {
		return nil, fmt.Errorf("scanning warranty slabs for product %q: %w", productID, err)
	}
	return &cfg, nil
}

// ReplacementsFor returns the replacement history of a serial, oldest first.
func (r *WarrantyRepository) ReplacementsFor(ctx context.Context, serial string) ([]warranty.Replacement, error) {
	rows, err := r.pool.Query(ctx, replacementsForSQL, serial)
	if err != nil {
		return nil, fmt.Errorf("loading replacements for serial %q: %w", serial, err)
	}
	return pgx.CollectRows(rows, scanReplacement)
}

// ReplacementsByCustomer returns all replacements recorded for a customer,
// newest first.
func (r *WarrantyRepository) ReplacementsByCustomer(ctx context.Context, customerID string) ([]warranty.Replacement, error) {
	rows, err := r.pool.Query(ctx, replacementsByCustomerSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("loading replacements for customer %q: %w", customerID, err)
	}
	return pgx.CollectRows(rows, scanReplacement)
}

func scanSlab(row pgx.CollectableRow) (warranty.Slab, error) {
	var s warranty.Slab
	err := row.Scan(&s.Name, &s.MinMonths, &s.MaxMonths, &s.DiscountPercent)
	return s, err
}

func scanReplacement(row pgx.CollectableRow) (warranty.Replacement, error) {
	var r warranty.Replacement
	err := row.Scan(&r.Date, &r.NewSerialNumber, &r.Type, &r.NewInvoiceNumber)
	return r, err
}
