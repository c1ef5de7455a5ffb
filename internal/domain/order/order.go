// Package order implements the order lifecycle: building and submitting an
// order from the cart, resolving the upstream invoice number, deriving the
// confirmation state from line items, and gating cancellation.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/voltkart/voltkart/internal/domain/cart"
)

// PaymentMethod enumerates the accepted payment methods.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentUPI    PaymentMethod = "upi"
	PaymentCredit PaymentMethod = "credit"
)

// Valid reports whether the method is one of the accepted values.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentCredit:
		return true
	}
	return false
}

// PaymentStatus is derived from the payment method, never entered directly.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPending PaymentStatus = "pending"
)

// DerivePaymentStatus returns pending for credit sales and paid otherwise.
func DerivePaymentStatus(m PaymentMethod) PaymentStatus {
	if m == PaymentCredit {
		return PaymentStatusPending
	}
	return PaymentStatusPaid
}

// Item is one line of an order submission, carried verbatim from the cart.
type Item struct {
	ProductID    string           `json:"product_id"`
	Category     string           `json:"category"`
	Quantity     int              `json:"quantity"`
	UnitPrice    decimal.Decimal  `json:"unit_price"`
	SerialNumber string           `json:"serial_number,omitempty"`
	OldBattery   *cart.OldBattery `json:"old_battery,omitempty"`
}

// Submission is the normalized payload sent to the upstream order service.
type Submission struct {
	CustomerID    string        `json:"customer_id,omitempty"`
	CustomerName  string        `json:"customer_name"`
	CustomerPhone string        `json:"customer_phone"`
	Items         []Item        `json:"items"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Notes         string        `json:"notes,omitempty"`
}

// LineRecord is one line of an order as read back from the upstream service.
// SerialNumber is empty until the back office assigns one at fulfilment.
type LineRecord struct {
	SerialNumber string          `json:"serial_number"`
	Category     string          `json:"category"`
	Quantity     int             `json:"quantity"`
	MRP          decimal.Decimal `json:"mrp"`
	FinalAmount  decimal.Decimal `json:"final_amount"`
}

// Order is the read-back view of a submitted order. InvoiceNumber is the
// durable external identifier; ID is the upstream's internal key.
type Order struct {
	ID            string        `json:"id"`
	InvoiceNumber string        `json:"invoice_number"`
	CustomerID    string        `json:"customer_id"`
	CreatedAt     time.Time     `json:"created_at"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Items         []LineRecord  `json:"items"`
}

// Gateway is the upstream order service surface the lifecycle depends on.
// CreateOrder returns the raw response body because its shape is not
// guaranteed; see ResolveInvoiceNumber.
type Gateway interface {
	CreateOrder(ctx context.Context, sub Submission) (jx.Raw, error)
	ListOrders(ctx context.Context, customerID string) ([]Order, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	CancelOrder(ctx context.Context, invoiceOrID string) error
}

// ValidationError reports bad user input caught before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// DomainError reports an operation rejected by a business rule.
type DomainError struct {
	Reason string
}

func (e *DomainError) Error() string {
	return e.Reason
}

// ErrAlreadyConfirmed rejects cancellation of an order whose serials have
// been assigned. The upstream service is never called in that case.
var ErrAlreadyConfirmed = &DomainError{Reason: "order already confirmed, serials assigned"}
