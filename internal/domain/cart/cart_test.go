package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltkart/voltkart/internal/domain/pricing"
)

func battery(id, mrp, b2c string) pricing.Product {
	return pricing.Product{
		ID:       id,
		Name:     id,
		Category: "battery",
		MRP:      decimal.RequireFromString(mrp),
		PriceB2C: decimal.RequireFromString(b2c),
		PriceB2B: decimal.RequireFromString(b2c),
	}
}

func TestAdd_NewLineSnapshotsPrice(t *testing.T) {
	c := New()
	p := battery("b1", "1000.00", "850.00")
	c.Add(p, pricing.TierB2C)

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("850.00").Equal(lines[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("1000.00").Equal(lines[0].UnitMRP))

	// A later catalog price change must not affect the snapshotted line.
	p.PriceB2C = decimal.RequireFromString("999.00")
	assert.True(t, decimal.RequireFromString("850.00").Equal(c.Lines()[0].UnitPrice))
}

func TestAdd_SameProductIncrementsQuantity(t *testing.T) {
	c := New()
	p := battery("b1", "1000.00", "850.00")
	c.Add(p, pricing.TierB2C)
	c.Add(p, pricing.TierB2C)
	c.Add(p, pricing.TierB2C)

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestAdd_SameIDDifferentCategoryIsSeparateLine(t *testing.T) {
	c := New()
	p := battery("b1", "1000.00", "850.00")
	c.Add(p, pricing.TierB2C)

	water := p
	water.Category = "water"
	c.Add(water, pricing.TierB2C)

	assert.Len(t, c.Lines(), 2)
}

func TestRemove_Idempotent(t *testing.T) {
	c := New()
	c.Add(battery("b1", "100.00", "90.00"), pricing.TierB2C)

	c.Remove("b1", "battery")
	assert.True(t, c.Empty())

	// Removing again (and removing something never added) is a no-op.
	c.Remove("b1", "battery")
	c.Remove("ghost", "battery")
	assert.True(t, c.Empty())
}

func TestSetQuantity(t *testing.T) {
	c := New()
	c.Add(battery("b1", "100.00", "90.00"), pricing.TierB2C)

	c.SetQuantity("b1", "battery", 5)
	assert.Equal(t, 5, c.Lines()[0].Quantity)

	c.SetQuantity("b1", "battery", 0)
	assert.True(t, c.Empty())
}

func TestSetQuantity_NegativeRemoves(t *testing.T) {
	c := New()
	c.Add(battery("b1", "100.00", "90.00"), pricing.TierB2C)

	c.SetQuantity("b1", "battery", -3)
	assert.True(t, c.Empty())
}

func TestTotalAndSavings(t *testing.T) {
	c := New()
	c.Add(battery("b1", "1000.00", "800.00"), pricing.TierB2C)
	c.SetQuantity("b1", "battery", 2)
	c.Add(battery("b2", "500.00", "450.00"), pricing.TierB2C)

	assert.True(t, decimal.RequireFromString("2050.00").Equal(c.Total()))
	assert.True(t, decimal.RequireFromString("450.00").Equal(c.Savings()))
}

func TestSavings_FlooredPerLine(t *testing.T) {
	c := New()
	// Above-MRP line contributes zero, not a negative amount.
	c.Add(battery("b1", "100.00", "150.00"), pricing.TierB2C)
	c.Add(battery("b2", "100.00", "80.00"), pricing.TierB2C)

	assert.True(t, decimal.RequireFromString("20.00").Equal(c.Savings()))
	assert.False(t, c.Savings().IsNegative())
}

func TestSavings_NeverExceedsMRPTotal(t *testing.T) {
	c := New()
	c.Add(battery("b1", "1000.00", "0"), pricing.TierB2C)
	c.SetQuantity("b1", "battery", 3)

	mrpTotal := decimal.RequireFromString("3000.00")
	assert.True(t, c.Savings().LessThanOrEqual(mrpTotal))
}

func TestSerialAndTradeIn(t *testing.T) {
	c := New()
	c.Add(battery("b1", "1000.00", "800.00"), pricing.TierB2C)

	c.SetSerial("b1", "battery", "VK-123")
	c.SetTradeIn("b1", "battery", &OldBattery{
		Brand:        "OldCo",
		AmpereRating: "150Ah",
		TradeInValue: decimal.RequireFromString("300.00"),
	})

	l := c.Lines()[0]
	assert.Equal(t, "VK-123", l.SerialNumber)
	require.NotNil(t, l.TradeIn)
	assert.Equal(t, "OldCo", l.TradeIn.Brand)

	// Trade-in value is informational: the total is unchanged.
	assert.True(t, decimal.RequireFromString("800.00").Equal(c.Total()))
}

func TestClearAndRestore(t *testing.T) {
	c := New()
	c.Add(battery("b1", "1000.00", "800.00"), pricing.TierB2C)
	saved := c.Lines()

	c.Clear()
	assert.True(t, c.Empty())

	restored := Restore(saved)
	assert.Len(t, restored.Lines(), 1)
}
