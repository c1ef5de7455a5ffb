package warranty

import (
	"context"
	"sync"

	"github.com/voltkart/voltkart/pkg/latest"
)

// Checker wraps an Engine for interactive use: a customer's lookups may
// overlap (a second "check status" click while the first is outstanding),
// and the visible result for that customer must always come from their most
// recently started lookup. A slow early response is discarded rather than
// overwriting a later, faster one. State is kept per customer, so one
// customer's clicks never displace another's lookup. Lookups are read-only
// and idempotent, so overlapping calls are harmless upstream.
type Checker struct {
	engine *Engine

	mu      sync.Mutex
	gates   map[string]*latest.Gate
	current map[string]*Status
}

// NewChecker returns a Checker over the given engine.
func NewChecker(engine *Engine) *Checker {
	return &Checker{
		engine:  engine,
		gates:   make(map[string]*latest.Gate),
		current: make(map[string]*Status),
	}
}

func (c *Checker) gate(customerID string) *latest.Gate {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.gates[customerID]
	if !ok {
		g = &latest.Gate{}
		c.gates[customerID] = g
	}
	return g
}

// Check runs a lookup and publishes the result only if no newer lookup has
// started for the same customer since. The result is returned to the caller
// either way.
func (c *Checker) Check(ctx context.Context, serial, customerID string) (*Status, error) {
	g := c.gate(customerID)
	token := g.Begin()

	status, err := c.engine.Lookup(ctx, serial, customerID)
	if !g.Current(token) {
		return status, err
	}

	c.mu.Lock()
	if err != nil {
		delete(c.current, customerID)
	} else {
		c.current[customerID] = status
	}
	c.mu.Unlock()
	return status, err
}

// Current returns the customer's published result from the most recently
// started completed lookup, or nil when there is none.
func (c *Checker) Current(customerID string) *Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current[customerID]
}
