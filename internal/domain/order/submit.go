package order

import (
	"context"
	"strings"
	"sync"

	"github.com/go-faster/errors"

	"github.com/voltkart/voltkart/internal/domain/cart"
	"github.com/voltkart/voltkart/pkg/latest"
)

// ErrSuperseded is returned when a submission finished after a newer one from
// the same customer had already started; its result must be discarded so a
// slow early response can never overwrite a later, faster one.
var ErrSuperseded = errors.New("submission superseded by a newer request")

// SubmitInput is the customer-entered data plus the cart lines to order.
type SubmitInput struct {
	CustomerID    string
	CustomerName  string
	CustomerPhone string
	PaymentMethod PaymentMethod
	Notes         string
	Lines         []cart.Line
}

// SubmitResult is the outcome of a successful upstream call. Exactly one of
// the two shapes applies: a resolved invoice number, or AmbiguousSuccess when
// the order was created but its identifier could not be recovered from the
// response. Ambiguous success must not be presented as a failure (the cart
// must not be resubmitted) nor as an ordinary success (no invoice actions).
type SubmitResult struct {
	InvoiceNumber    string
	AmbiguousSuccess bool
}

// Submitter converts a cart into an upstream order and resolves the response.
// Overlapping submissions are tracked per customer: one shopper's repeated
// clicks supersede each other, and never anyone else's in-flight order.
type Submitter struct {
	gw Gateway

	mu    sync.Mutex
	gates map[string]*latest.Gate
}

// NewSubmitter returns a Submitter backed by the given gateway.
func NewSubmitter(gw Gateway) *Submitter {
	return &Submitter{
		gw:    gw,
		gates: make(map[string]*latest.Gate),
	}
}

func (s *Submitter) gate(key string) *latest.Gate {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gates[key]
	if !ok {
		g = &latest.Gate{}
		s.gates[key] = g
	}
	return g
}

// submissionKey identifies the stream of clicks a submission belongs to. The
// phone number is validated before any gate is touched, so the fallback is
// always non-empty.
func submissionKey(sub *Submission) string {
	if sub.CustomerID != "" {
		return sub.CustomerID
	}
	return sub.CustomerPhone
}

// BuildSubmission validates the input fail-fast and assembles the upstream
// payload. Validation failures return a *ValidationError naming the field;
// no network call has happened yet. Checks run in a fixed order: name, phone
// presence, phone format, cart contents, payment method.
func BuildSubmission(in SubmitInput) (*Submission, error) {
	if strings.TrimSpace(in.CustomerName) == "" {
		return nil, &ValidationError{Field: "customer_name", Reason: "name is required"}
	}
	if strings.TrimSpace(in.CustomerPhone) == "" {
		return nil, &ValidationError{Field: "customer_phone", Reason: "phone is required"}
	}
	if !validPhone(in.CustomerPhone) {
		return nil, &ValidationError{Field: "customer_phone", Reason: "phone must be exactly 10 digits"}
	}
	if len(in.Lines) == 0 {
		return nil, &ValidationError{Field: "items", Reason: "cart is empty"}
	}
	if !in.PaymentMethod.Valid() {
		return nil, &ValidationError{Field: "payment_method", Reason: "unknown payment method"}
	}
	for _, l := range in.Lines {
		if l.Quantity < 1 {
			return nil, &ValidationError{Field: "items", Reason: "quantity must be at least 1"}
		}
	}

	items := make([]Item, len(in.Lines))
	for i, l := range in.Lines {
		items[i] = Item{
			ProductID:    l.ProductID,
			Category:     l.Category,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			SerialNumber: l.SerialNumber,
			OldBattery:   l.TradeIn,
		}
	}

	return &Submission{
		CustomerID:    in.CustomerID,
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		Items:         items,
		PaymentMethod: in.PaymentMethod,
		PaymentStatus: DerivePaymentStatus(in.PaymentMethod),
		Notes:         in.Notes,
	}, nil
}

// Submit validates the input, sends the order upstream, and resolves the
// invoice number from the response. The cart is not cleared here: clearing is
// an explicit caller action after the invoice has been presented. Submissions
// are never retried automatically; a flaky network must not create duplicate
// orders. When an overlapping newer submission from the same customer has
// started, the result of this one is discarded and ErrSuperseded returned.
func (s *Submitter) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	sub, err := BuildSubmission(in)
	if err != nil {
		return nil, err
	}

	g := s.gate(submissionKey(sub))
	token := g.Begin()

	raw, err := s.gw.CreateOrder(ctx, *sub)
	if !g.Current(token) {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	if invoice, ok := ResolveInvoiceNumber(raw); ok {
		return &SubmitResult{InvoiceNumber: invoice}, nil
	}
	return &SubmitResult{AmbiguousSuccess: true}, nil
}

// validPhone reports whether s is exactly 10 ASCII digits.
func validPhone(s string) bool {
	if len(s) != 10 {
		return false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
