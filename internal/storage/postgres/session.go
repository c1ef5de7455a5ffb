package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voltkart/voltkart/internal/domain/cart"
)

const (
	loadSessionSQL = `SELECT payload, submitted FROM cart_sessions WHERE namespace = $1`

	saveSessionSQL = `INSERT INTO cart_sessions (namespace, payload, submitted, updated_at)
		VALUES ($1, $2, FALSE, now())
		ON CONFLICT (namespace) DO UPDATE SET payload = $2, submitted = FALSE, updated_at = now()`

	markSubmittedSQL = `UPDATE cart_sessions SET submitted = TRUE, updated_at = now() WHERE namespace = $1`

	clearSessionSQL = `DELETE FROM cart_sessions WHERE namespace = $1`
)

var _ cart.Store = (*SessionStore)(nil)

// SessionStore persists per-session cart state so reloads do not lose the
// cart. A session marked submitted reads as absent: once the order is placed
// the upstream service is the source of truth and stale cart state must not
// resurface.
type SessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore returns a SessionStore that uses the given pool.
func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Load returns the saved cart lines for a namespace. Returns
// cart.ErrSessionNotFound when nothing is saved or the session was already
// submitted.
func (s *SessionStore) Load(ctx context.Context, namespace string) ([]cart.Line, error) {
	var (
		payload   []byte
		submitted bool
	)
	err := s.pool.QueryRow(ctx, loadSessionSQL, namespace).Scan(&payload, &submitted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading cart session %q: %w", namespace, err)
	}
	if submitted {
		return nil, cart.ErrSessionNotFound
	}

	var lines []cart.Line
	if err := json.Unmarshal(payload, &lines); err != nil {
		return nil, fmt.Errorf("decoding cart session %q: %w", namespace, err)
	}
	return lines, nil
}

// Save upserts the cart lines for a namespace, resetting the submitted flag.
func (s *SessionStore) Save(ctx context.Context, namespace string, lines []cart.Line) error {
	payload, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encoding cart session %q: %w", namespace, err)
	}
	if _, err := s.pool.Exec(ctx, saveSessionSQL, namespace, payload); err != nil {
		return fmt.Errorf("saving cart session %q: %w", namespace, err)
	}
	return nil
}

// MarkSubmitted flags the session so subsequent loads miss.
func (s *SessionStore) MarkSubmitted(ctx context.Context, namespace string) error {
	if _, err := s.pool.Exec(ctx, markSubmittedSQL, namespace); err != nil {
		return fmt.Errorf("marking cart session %q submitted: %w", namespace, err)
	}
	return nil
}

// Clear removes the saved session entirely.
func (s *SessionStore) Clear(ctx context.Context, namespace string) error {
	if _, err := s.pool.Exec(ctx, clearSessionSQL, namespace); err != nil {
		return fmt.Errorf("clearing cart session %q: %w", namespace, err)
	}
	return nil
}
