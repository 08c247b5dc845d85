package repository

import (
	"context"

	"github.com/nileways/storefront/internal/domain"
)

// CartRepository is the locally persisted cart copy, keyed by visitor session
// ID. It plays the role browser storage plays in the web client: authoritative
// for guests, a mirror for authenticated visitors.
type CartRepository interface {
	// Get retrieves the cart stored for a session.
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)

	// Save persists a cart for the session, overwriting any existing copy.
	Save(ctx context.Context, sessionID string, cart *domain.Cart) error

	// Delete removes the stored cart for the session.
	Delete(ctx context.Context, sessionID string) error
}
