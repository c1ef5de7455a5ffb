package cart

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrSessionNotFound is returned when no saved cart exists for a namespace.
var ErrSessionNotFound = errors.New("cart session not found")

// Store persists cart state per session namespace so it survives page
// reloads. The saved state is not authoritative: once an order is submitted
// the upstream order service is the source of truth and the session is
// marked submitted, which causes the next Load to miss.
type Store interface {
	Load(ctx context.Context, namespace string) ([]Line, error)
	Save(ctx context.Context, namespace string, lines []Line) error
	// MarkSubmitted flags the session so its saved state is discarded on the
	// next load. Called by the storefront after a successful submission.
	MarkSubmitted(ctx context.Context, namespace string) error
	Clear(ctx context.Context, namespace string) error
}
