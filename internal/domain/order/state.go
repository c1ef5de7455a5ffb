package order

import (
	"strings"

	"github.com/shopspring/decimal"
)

// State is an order's derived confirmation state. It is never stored: the
// classification is recomputed from line items on every read, so there is no
// status field to fall out of sync with the upstream service.
type State string

const (
	StatePending   State = "pending"
	StateConfirmed State = "confirmed"
)

// CategoryWater marks non-serialized products: a water line counts as
// confirmed regardless of its serial number.
const CategoryWater = "water"

// Serial placeholders the back office writes before a real serial is
// assigned. "N/A" looks like a backend placeholder rather than a deliberate
// domain value, but upstream data contains it and it must read as
// unassigned.
var placeholderSerials = map[string]struct{}{
	"PENDING": {},
	"N/A":     {},
}

// Confirmed reports whether this line has been fulfilled: either it is a
// water line, or it carries a serial number whose trimmed value is not a
// placeholder.
func (l LineRecord) Confirmed() bool {
	if l.Category == CategoryWater {
		return true
	}
	serial := strings.TrimSpace(l.SerialNumber)
	if serial == "" {
		return false
	}
	_, placeholder := placeholderSerials[serial]
	return !placeholder
}

// StateOf classifies an order: confirmed iff it has at least one line and
// every line is confirmed. The transition from pending to confirmed only
// ever happens upstream, when the back office assigns serial numbers; this
// function just observes it.
func StateOf(o *Order) State {
	if len(o.Items) == 0 {
		return StatePending
	}
	for _, l := range o.Items {
		if !l.Confirmed() {
			return StatePending
		}
	}
	return StateConfirmed
}

// PendingPlaceholder is rendered where a pending line has no price yet, so
// an unpriced line is never mistaken for a zero-value charge.
const PendingPlaceholder = "Pending"

// LineDisplay is the render-ready projection of a line. Monetary fields are
// preformatted strings because pending lines show a placeholder, not a zero.
type LineDisplay struct {
	Category        string `json:"category"`
	SerialNumber    string `json:"serial_number,omitempty"`
	Quantity        int    `json:"quantity"`
	Pending         bool   `json:"pending"`
	UnitPrice       string `json:"unit_price"`
	DiscountAmount  string `json:"discount_amount"`
	DiscountPercent string `json:"discount_percent"`
	FinalAmount     string `json:"final_amount"`
}

var displayHundred = decimal.NewFromInt(100)

// Display projects a line for rendering. Prices, discounts, and amounts are
// shown only for confirmed lines; pending lines carry the placeholder.
func (l LineRecord) Display() LineDisplay {
	d := LineDisplay{
		Category:     l.Category,
		SerialNumber: l.SerialNumber,
		Quantity:     l.Quantity,
	}

	if !l.Confirmed() {
		d.Pending = true
		d.SerialNumber = ""
		d.UnitPrice = PendingPlaceholder
		d.DiscountAmount = PendingPlaceholder
		d.DiscountPercent = PendingPlaceholder
		d.FinalAmount = PendingPlaceholder
		return d
	}

	qty := decimal.NewFromInt(int64(l.Quantity))
	unit := l.FinalAmount
	if l.Quantity > 0 {
		unit = l.FinalAmount.Div(qty).Round(2)
	}

	discount := l.MRP.Sub(unit)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	percent := decimal.Zero
	if l.MRP.IsPositive() {
		percent = discount.Div(l.MRP).Mul(displayHundred).Round(0)
	}

	d.UnitPrice = unit.StringFixed(2)
	d.DiscountAmount = discount.Round(2).StringFixed(2)
	d.DiscountPercent = percent.String() + "%"
	d.FinalAmount = l.FinalAmount.StringFixed(2)
	return d
}
