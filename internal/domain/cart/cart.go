// Package cart holds the shopping cart aggregate. Prices are snapshotted at
// add time; the catalog is not consulted again afterwards.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/voltkart/voltkart/internal/domain/pricing"
)

// OldBattery describes a trade-in unit attached to a cart line. It is
// informational only: the trade-in value appears on the invoice but is never
// subtracted from the total here.
type OldBattery struct {
	Brand        string          `json:"brand,omitempty"`
	Name         string          `json:"name,omitempty"`
	SerialNumber string          `json:"serial_number,omitempty"`
	AmpereRating string          `json:"ampere_rating,omitempty"`
	TradeInValue decimal.Decimal `json:"trade_in_value"`
}

// Line is a single cart entry, unique per (product, category).
type Line struct {
	ProductID    string          `json:"product_id"`
	Category     string          `json:"category"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	UnitMRP      decimal.Decimal `json:"unit_mrp"`
	SerialNumber string          `json:"serial_number,omitempty"`
	TradeIn      *OldBattery     `json:"trade_in,omitempty"`
}

// Cart aggregates lines and answers total/savings queries. It is not safe
// for concurrent use; the storefront mutates it from a single goroutine.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Restore rebuilds a cart from previously saved lines.
func Restore(lines []Line) *Cart {
	c := &Cart{lines: make([]Line, len(lines))}
	copy(c.lines, lines)
	return c
}

func (c *Cart) find(productID, category string) int {
	for i := range c.lines {
		if c.lines[i].ProductID == productID && c.lines[i].Category == category {
			return i
		}
	}
	return -1
}

// Add puts one unit of the product into the cart. An existing line for the
// same (product, category) has its quantity incremented; otherwise a new
// line is appended with the price snapshotted at the given tier.
func (c *Cart) Add(p pricing.Product, tier pricing.Tier) {
	if i := c.find(p.ID, p.Category); i >= 0 {
		c.lines[i].Quantity++
		return
	}

	q := pricing.ForTier(p, tier)
	c.lines = append(c.lines, Line{
		ProductID: p.ID,
		Category:  p.Category,
		Quantity:  1,
		UnitPrice: q.SellingPrice,
		UnitMRP:   q.MRP,
	})
}

// Remove deletes the matching line. Removing an absent line is a no-op.
func (c *Cart) Remove(productID, category string) {
	if i := c.find(productID, category); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

// SetQuantity overwrites the quantity of the matching line. A quantity of
// zero or less removes the line instead.
func (c *Cart) SetQuantity(productID, category string, qty int) {
	if qty <= 0 {
		c.Remove(productID, category)
		return
	}
	if i := c.find(productID, category); i >= 0 {
		c.lines[i].Quantity = qty
	}
}

// SetSerial records a serial number on the matching line.
func (c *Cart) SetSerial(productID, category, serial string) {
	if i := c.find(productID, category); i >= 0 {
		c.lines[i].SerialNumber = serial
	}
}

// SetTradeIn attaches trade-in battery details to the matching line.
func (c *Cart) SetTradeIn(productID, category string, old *OldBattery) {
	if i := c.find(productID, category); i >= 0 {
		c.lines[i].TradeIn = old
	}
}

// Lines returns a copy of the cart's lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// Total is the sum of unit price times quantity over all lines.
func (c *Cart) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Savings is the sum of (MRP - price) * quantity over all lines, with each
// line floored at zero so an above-MRP price never reduces the figure.
func (c *Cart) Savings() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		per := l.UnitMRP.Sub(l.UnitPrice)
		if per.IsNegative() {
			continue
		}
		sum = sum.Add(per.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}
