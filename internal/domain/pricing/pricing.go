// Package pricing derives per-unit selling prices and discounts from the
// catalog's parallel B2B/B2C price lists.
package pricing

import "github.com/shopspring/decimal"

// Tier selects which of the product's two price lists applies.
type Tier string

const (
	TierB2C Tier = "b2c"
	TierB2B Tier = "b2b"
)

// Product is the raw catalog record pricing works from.
type Product struct {
	ID              string
	Name            string
	Category        string
	MRP             decimal.Decimal
	PriceB2C        decimal.Decimal
	PriceB2B        decimal.Decimal
	GuaranteeMonths int
	WarrantyMonths  int
}

// Quote is the resolved price for one unit at a given tier.
type Quote struct {
	MRP             decimal.Decimal
	SellingPrice    decimal.Decimal
	DiscountAmount  decimal.Decimal
	DiscountPercent int64
}

var hundred = decimal.NewFromInt(100)

// ForTier computes the quote for a product at the given tier.
// The discount amount is floored at zero so a selling price above MRP never
// produces a negative discount, and a zero MRP yields 0% rather than a
// division error.
func ForTier(p Product, tier Tier) Quote {
	selling := p.PriceB2C
	if tier == TierB2B {
		selling = p.PriceB2B
	}

	discount := p.MRP.Sub(selling)
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	var percent int64
	if p.MRP.IsPositive() {
		percent = discount.Div(p.MRP).Mul(hundred).Round(0).IntPart()
	}

	return Quote{
		MRP:             p.MRP,
		SellingPrice:    selling,
		DiscountAmount:  discount.Round(2),
		DiscountPercent: percent,
	}
}
