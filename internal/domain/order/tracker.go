package order

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/voltkart/voltkart/pkg/latest"
)

// ErrOrderNotFound is returned when an order is in neither the cached view
// nor the upstream service.
var ErrOrderNotFound = errors.New("order not found")

// Tracker maintains a cached per-customer view of upstream orders. Refreshes
// for the same customer are collapsed so at most one upstream request is in
// flight, and a refresh that finishes after a newer one has started never
// overwrites the newer result. Only the upstream service mutates order state;
// the tracker just observes.
type Tracker struct {
	gw Gateway
	sf singleflight.Group

	mu    sync.RWMutex
	views map[string][]Order
	gates map[string]*latest.Gate

	pollMu    sync.Mutex
	pollCtx   context.Context
	pollEvery time.Duration
	polling   map[string]struct{}
}

// NewTracker returns an empty tracker backed by the given gateway.
func NewTracker(gw Gateway) *Tracker {
	return &Tracker{
		gw:      gw,
		views:   make(map[string][]Order),
		gates:   make(map[string]*latest.Gate),
		polling: make(map[string]struct{}),
	}
}

func (t *Tracker) gate(customerID string) *latest.Gate {
	t.mu.Lock()
	defer t.mu.Unlock()
	g, ok := t.gates[customerID]
	if !ok {
		g = &latest.Gate{}
		t.gates[customerID] = g
	}
	return g
}

// Refresh fetches the customer's orders and replaces the cached view.
// A refresh already in flight for the same customer absorbs this call; the
// shared result is applied once.
func (t *Tracker) Refresh(ctx context.Context, customerID string) ([]Order, error) {
	g := t.gate(customerID)
	token := g.Begin()

	// The shared fetch outlives whichever caller happened to start it, so
	// collapsed joiners do not fail when that one request disconnects.
	fetchCtx := context.WithoutCancel(ctx)
	v, err, _ := t.sf.Do(customerID, func() (interface{}, error) {
		return t.gw.ListOrders(fetchCtx, customerID)
	})
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	orders := v.([]Order)
	if g.Current(token) {
		t.mu.Lock()
		t.views[customerID] = orders
		t.mu.Unlock()
	}
	return orders, nil
}

// Orders returns the cached view for a customer. The slice is a copy.
func (t *Tracker) Orders(customerID string) []Order {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cached := t.views[customerID]
	out := make([]Order, len(cached))
	copy(out, cached)
	return out
}

// Get returns a single order, preferring the cached view and falling back to
// an upstream fetch. An order belonging to a different customer is reported
// as not found rather than leaked.
func (t *Tracker) Get(ctx context.Context, customerID, id string) (*Order, error) {
	t.mu.RLock()
	for i := range t.views[customerID] {
		if t.views[customerID][i].ID == id || t.views[customerID][i].InvoiceNumber == id {
			o := t.views[customerID][i]
			t.mu.RUnlock()
			return &o, nil
		}
	}
	t.mu.RUnlock()

	o, err := t.gw.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil || o.CustomerID != customerID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// Cancel cancels a pending order. A confirmed order returns
// ErrAlreadyConfirmed without any upstream call: once serials are assigned
// the order is no longer cancellable. On success the order is removed from
// the cached view immediately and a refresh reconciles any concurrent
// change upstream.
func (t *Tracker) Cancel(ctx context.Context, customerID, id string) error {
	o, err := t.Get(ctx, customerID, id)
	if err != nil {
		return err
	}

	if StateOf(o) != StatePending {
		return ErrAlreadyConfirmed
	}

	ref := o.InvoiceNumber
	if ref == "" {
		ref = o.ID
	}
	if err := t.gw.CancelOrder(ctx, ref); err != nil {
		return errors.Wrap(err, "cancel order")
	}

	// Optimistic removal; the refresh below is authoritative.
	t.mu.Lock()
	cached := t.views[customerID]
	for i := range cached {
		if cached[i].ID == o.ID {
			t.views[customerID] = append(cached[:i:i], cached[i+1:]...)
			break
		}
	}
	t.mu.Unlock()

	if _, err := t.Refresh(ctx, customerID); err != nil {
		zctx.From(ctx).Warn("post-cancel refresh failed",
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
	}
	return nil
}

// EnablePolling turns on background refresh. After this call, Watch starts a
// per-customer poll loop bound to ctx; every loop stops when ctx is
// cancelled.
func (t *Tracker) EnablePolling(ctx context.Context, interval time.Duration) {
	t.pollMu.Lock()
	t.pollCtx = ctx
	t.pollEvery = interval
	t.pollMu.Unlock()
}

// Watch starts the poll loop for a customer the first time they are seen.
// A no-op when polling is not enabled or their loop is already running.
func (t *Tracker) Watch(customerID string) {
	t.pollMu.Lock()
	defer t.pollMu.Unlock()
	if t.pollCtx == nil {
		return
	}
	if _, ok := t.polling[customerID]; ok {
		return
	}
	t.polling[customerID] = struct{}{}
	go t.Poll(t.pollCtx, customerID, t.pollEvery)
}

// Poll refreshes the customer's view at the given interval until the context
// is cancelled. Intended to run in its own goroutine per active customer.
func (t *Tracker) Poll(ctx context.Context, customerID string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := t.Refresh(ctx, customerID); err != nil {
				zctx.From(ctx).Warn("order poll failed",
					zap.String("customer_id", customerID),
					zap.Error(err),
				)
			}
		}
	}
}
