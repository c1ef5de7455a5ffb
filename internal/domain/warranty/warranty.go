// Package warranty computes whether a battery is inside its guarantee
// window, inside a discounted warranty slab, or out of cover, and surfaces
// any recorded replacement alongside.
package warranty

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrSerialNotFound is returned when no sale record exists for a serial.
	ErrSerialNotFound = errors.New("serial number not found")
	// ErrNotOwned is returned when the serial belongs to a different
	// customer. Kept distinct from ErrSerialNotFound: the two drive
	// different user-facing messages.
	ErrNotOwned = errors.New("serial number belongs to a different customer")
)

// Slab is a discount tier keyed by months elapsed since the guarantee ended.
// The range is [MinMonths, MaxMonths); a nil MaxMonths is unbounded above.
// Configured slabs are ordered and non-overlapping, so at most one matches.
type Slab struct {
	Name            string
	MinMonths       int
	MaxMonths       *int
	DiscountPercent decimal.Decimal
}

// contains reports whether m falls inside the slab's range.
func (s Slab) contains(m int) bool {
	if m < s.MinMonths {
		return false
	}
	return s.MaxMonths == nil || m < *s.MaxMonths
}

// Config is a product's guarantee/warranty configuration.
type Config struct {
	GuaranteeMonths int
	WarrantyMonths  int
	Slabs           []Slab
}

// SaleRecord ties a serial number to its originating sale.
type SaleRecord struct {
	SerialNumber  string
	ProductID     string
	CustomerID    string
	InvoiceNumber string
	PurchaseDate  time.Time
}

// Replacement records a past replacement of a serialized unit.
type Replacement struct {
	Date             time.Time
	NewSerialNumber  string
	Type             string
	NewInvoiceNumber string
}

// Status is the full eligibility result for a serial number.
type Status struct {
	SerialNumber         string
	PurchaseDate         time.Time
	GuaranteeMonths      int
	WarrantyMonths       int
	UnderGuarantee       bool
	MonthsAfterGuarantee int
	Slab                 *Slab
	Replaced             bool
	LatestReplacement    *Replacement
}

// Eligible reports whether the unit is covered at all: free replacement
// under guarantee, or a discounted one inside a slab.
func (s *Status) Eligible() bool {
	return s.UnderGuarantee || s.Slab != nil
}

// Repository resolves serials to sale records and warranty configuration.
type Repository interface {
	FindSale(ctx context.Context, serial string) (*SaleRecord, error)
	ConfigFor(ctx context.Context, productID string) (*Config, error)
	ReplacementsFor(ctx context.Context, serial string) ([]Replacement, error)
	ReplacementsByCustomer(ctx context.Context, customerID string) ([]Replacement, error)
}
