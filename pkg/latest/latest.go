// Package latest implements a monotonic generation counter used to discard
// results of superseded in-flight operations: once a newer invocation has
// started, a slower older one must not be allowed to publish its result.
package latest

import "sync/atomic"

// Gate hands out generation tokens. A result may be applied only while its
// token is still the newest one issued. Safe for concurrent use.
type Gate struct {
	gen atomic.Uint64
}

// Begin marks the start of a new invocation and returns its token,
// invalidating all previously issued tokens.
func (g *Gate) Begin() uint64 {
	return g.gen.Add(1)
}

// Current reports whether the token is still the newest issued.
func (g *Gate) Current(token uint64) bool {
	return g.gen.Load() == token
}
