package cartstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nileways/storefront/internal/domain"
	"github.com/nileways/storefront/internal/event"
	"github.com/nileways/storefront/internal/notify"
	"github.com/nileways/storefront/internal/repository"
	apperrors "github.com/nileways/storefront/pkg/errors"
	"github.com/nileways/storefront/pkg/logger"
)

// Remote is the subset of the CMS client the cart store needs. For
// authenticated visitors every mutation is delegated here and the returned
// cart is adopted verbatim; the CMS owns the merge logic.
type Remote interface {
	GetCart(ctx context.Context, token string) (*domain.Cart, error)
	AddCartItem(ctx context.Context, token string, productID int64, quantity int) (*domain.Cart, error)
	RemoveCartItem(ctx context.Context, token string, productID int64) (*domain.Cart, error)
	SetCartItemQuantity(ctx context.Context, token string, productID int64, quantity int) (*domain.Cart, error)
	ClearCart(ctx context.Context, token string) (*domain.Cart, error)
}

// Sessions resolves the access token for a visitor session. An empty token
// means the visitor is a guest; token contents are never inspected here.
type Sessions interface {
	Token(ctx context.Context, sessionID string) (string, error)
}

// Deps are the collaborators shared by all stores.
type Deps struct {
	Local    repository.CartRepository
	Remote   Remote
	Sessions Sessions
	Notifier notify.Notifier
	Events   event.Publisher
	Logger   *slog.Logger

	// Currency is stamped on fresh guest carts. Empty keeps the domain default.
	Currency string
}

// Store holds one visitor's cart and converges it with the local copy and,
// when the visitor is authenticated, the server copy. All operations are
// atomic under the store's mutex; a Store must not be shared across sessions.
type Store struct {
	deps      Deps
	sessionID string

	mu   sync.Mutex
	cart *domain.Cart
}

// New creates a cart store for a session. Call Load before reading the cart.
func New(deps Deps, sessionID string) *Store {
	s := &Store{
		deps:      deps,
		sessionID: sessionID,
	}
	s.cart = s.freshCart()
	return s
}

func (s *Store) freshCart() *domain.Cart {
	cart := domain.NewGuestCart()
	if s.deps.Currency != "" {
		cart.Currency = s.deps.Currency
	}
	return cart
}

// ============================================================================
// Accessors
// ============================================================================

// Cart returns a deep copy of the current cart.
func (s *Store) Cart() *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// ItemCount returns the total number of units in the cart.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.ItemCount()
}

// TotalAmount returns the cached cart total in minor currency units.
func (s *Store) TotalAmount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalAmount
}

// ============================================================================
// Load / Refresh
// ============================================================================

// Load populates the store. Authenticated visitors get the server cart,
// mirrored to the local copy; a server failure falls back to the local copy.
// Guests get the local copy, or a fresh cart when none exists. Load never
// returns an error and never emits notifications: a visitor opening the site
// must see a cart, not a failure.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)
}

// Refresh discards the in-memory cart and re-runs Load.
func (s *Store) Refresh(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = s.freshCart()
	s.load(ctx)
}

func (s *Store) load(ctx context.Context) {
	log := logger.WithContext(ctx, s.deps.Logger)

	if token := s.token(ctx); token != "" {
		remote, err := s.deps.Remote.GetCart(ctx, token)
		if err == nil {
			s.adopt(ctx, remote)
			return
		}
		log.WarnContext(ctx, "server cart unavailable, falling back to local copy",
			slog.String("session_id", s.sessionID),
			slog.String("error", err.Error()),
		)
	}

	local, err := s.deps.Local.Get(ctx, s.sessionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.WarnContext(ctx, "local cart unreadable, starting fresh",
				slog.String("session_id", s.sessionID),
				slog.String("error", err.Error()),
			)
		}
		s.cart = s.freshCart()
		return
	}
	s.cart = local
}

// ============================================================================
// Mutations
// ============================================================================

// AddItem adds a product to the cart. For guests the line items are merged by
// product: adding a product already present raises its quantity instead of
// creating a second row. Authenticated carts delegate the merge to the server.
func (s *Store) AddItem(ctx context.Context, product domain.Product, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateAdd(product, quantity); err != nil {
		s.notifyError(ctx, fmt.Sprintf("Could not add %s to your cart.", product.Name))
		return err
	}

	if token := s.token(ctx); token != "" {
		remote, err := s.deps.Remote.AddCartItem(ctx, token, product.ID, quantity)
		if err != nil {
			s.notifyError(ctx, fmt.Sprintf("Could not add %s to your cart.", product.Name))
			return fmt.Errorf("add item to server cart: %w", err)
		}
		s.adopt(ctx, remote)
		s.notifySuccess(ctx, "Added to cart", fmt.Sprintf("%s has been added to your cart.", product.Name))
		s.deps.Events.CartUpdated(ctx, s.sessionID, s.cart)
		return nil
	}

	next := s.cart.Clone()
	if i := next.FindItemIndex(product.ID); i >= 0 {
		next.Items[i].Quantity += quantity
	} else {
		next.Items = append(next.Items, domain.CartItem{
			ProductID: product.ID,
			Name:      product.Name,
			Slug:      product.Slug,
			Price:     product.Price,
			Currency:  product.Currency,
			Quantity:  quantity,
			Image:     product.Image,
		})
	}
	next.Recalculate()
	next.Touch()

	if err := s.deps.Local.Save(ctx, s.sessionID, next); err != nil {
		s.notifyError(ctx, fmt.Sprintf("Could not add %s to your cart.", product.Name))
		return fmt.Errorf("save cart: %w", err)
	}

	s.cart = next
	s.notifySuccess(ctx, "Added to cart", fmt.Sprintf("%s has been added to your cart.", product.Name))
	s.deps.Events.CartUpdated(ctx, s.sessionID, s.cart)
	return nil
}

// RemoveItem removes a product from the cart. Removing a product that is not
// in the cart is a no-op that still reports success.
func (s *Store) RemoveItem(ctx context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeItem(ctx, productID)
}

func (s *Store) removeItem(ctx context.Context, productID int64) error {
	name := s.itemName(productID)

	if token := s.token(ctx); token != "" {
		remote, err := s.deps.Remote.RemoveCartItem(ctx, token, productID)
		if err != nil {
			s.notifyError(ctx, fmt.Sprintf("Could not remove %s from your cart.", name))
			return fmt.Errorf("remove item from server cart: %w", err)
		}
		s.adopt(ctx, remote)
		s.notifySuccess(ctx, "Removed from cart", fmt.Sprintf("%s has been removed from your cart.", name))
		s.deps.Events.CartUpdated(ctx, s.sessionID, s.cart)
		return nil
	}

	next := s.cart.Clone()
	if i := next.FindItemIndex(productID); i >= 0 {
		next.Items = append(next.Items[:i], next.Items[i+1:]...)
	}
	next.Recalculate()
	next.Touch()

	if err := s.deps.Local.Save(ctx, s.sessionID, next); err != nil {
		s.notifyError(ctx, fmt.Sprintf("Could not remove %s from your cart.", name))
		return fmt.Errorf("save cart: %w", err)
	}

	s.cart = next
	s.notifySuccess(ctx, "Removed from cart", fmt.Sprintf("%s has been removed from your cart.", name))
	s.deps.Events.CartUpdated(ctx, s.sessionID, s.cart)
	return nil
}

// UpdateItemQuantity sets the quantity of a product already in the cart. A
// quantity of zero or less removes the item instead; quantities never go
// negative.
func (s *Store) UpdateItemQuantity(ctx context.Context, productID int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return s.removeItem(ctx, productID)
	}

	name := s.itemName(productID)

	if token := s.token(ctx); token != "" {
		remote, err := s.deps.Remote.SetCartItemQuantity(ctx, token, productID, quantity)
		if err != nil {
			s.notifyError(ctx, fmt.Sprintf("Could not update %s in your cart.", name))
			return fmt.Errorf("update item in server cart: %w", err)
		}
		s.adopt(ctx, remote)
		s.notifySuccess(ctx, "Cart updated", fmt.Sprintf("Quantity of %s set to %d.", name, quantity))
		s.deps.Events.CartUpdated(ctx, s.sessionID, s.cart)
		return nil
	}

	next := s.cart.Clone()
	if i := next.FindItemIndex(productID); i >= 0 {
		next.Items[i].Quantity = quantity
	}
	next.Recalculate()
	next.Touch()

	if err := s.deps.Local.Save(ctx, s.sessionID, next); err != nil {
		s.notifyError(ctx, fmt.Sprintf("Could not update %s in your cart.", name))
		return fmt.Errorf("save cart: %w", err)
	}

	s.cart = next
	s.notifySuccess(ctx, "Cart updated", fmt.Sprintf("Quantity of %s set to %d.", name, quantity))
	s.deps.Events.CartUpdated(ctx, s.sessionID, s.cart)
	return nil
}

// ClearCart empties the cart. The cart's identity, currency, and status are
// preserved; only the items and the total go.
func (s *Store) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token := s.token(ctx); token != "" {
		remote, err := s.deps.Remote.ClearCart(ctx, token)
		if err != nil {
			s.notifyError(ctx, "Could not clear your cart.")
			return fmt.Errorf("clear server cart: %w", err)
		}
		s.adopt(ctx, remote)
		s.notifySuccess(ctx, "Cart cleared", "All items have been removed from your cart.")
		s.deps.Events.CartCleared(ctx, s.sessionID, s.cart)
		return nil
	}

	next := s.cart.Clone()
	next.Items = []domain.CartItem{}
	next.Recalculate()
	next.Touch()

	if err := s.deps.Local.Save(ctx, s.sessionID, next); err != nil {
		s.notifyError(ctx, "Could not clear your cart.")
		return fmt.Errorf("save cart: %w", err)
	}

	s.cart = next
	s.notifySuccess(ctx, "Cart cleared", "All items have been removed from your cart.")
	s.deps.Events.CartCleared(ctx, s.sessionID, s.cart)
	return nil
}

// ============================================================================
// Reconcile
// ============================================================================

// Reconcile replays the locally persisted guest cart onto the server cart
// after login, one add-item call per line item in local order, then reloads so
// the server's merged cart becomes the truth. Replays are sequential: the
// server's add-item call is not assumed idempotent, so a failure aborts the
// remaining replays rather than risking double-adds. The reload happens either
// way, so the visitor always ends up on the server's view of their cart.
func (s *Store) Reconcile(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := s.token(ctx)
	if token == "" {
		return apperrors.Unauthorized("no session token to reconcile against")
	}

	local, err := s.deps.Local.Get(ctx, s.sessionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.WithContext(ctx, s.deps.Logger).WarnContext(ctx, "local cart unreadable during reconcile",
				slog.String("session_id", s.sessionID),
				slog.String("error", err.Error()),
			)
		}
		s.load(ctx)
		return nil
	}

	var replayed, failed int
	var replayErr error
	for _, item := range local.Items {
		if _, err := s.deps.Remote.AddCartItem(ctx, token, item.ProductID, item.Quantity); err != nil {
			failed = len(local.Items) - replayed
			replayErr = fmt.Errorf("replay %s onto server cart: %w", item.Name, err)
			s.notifyError(ctx, fmt.Sprintf("Could not move %s to your account cart.", item.Name))
			break
		}
		replayed++
	}

	// Once every item is absorbed, drop the guest slot. Leaving it behind
	// would let a failed reload resurrect already-replayed items, and a
	// second login would replay them again as double-adds.
	if replayErr == nil && replayed > 0 {
		if err := s.deps.Local.Delete(ctx, s.sessionID); err != nil {
			logger.WithContext(ctx, s.deps.Logger).WarnContext(ctx, "failed to drop guest cart after replay",
				slog.String("session_id", s.sessionID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.load(ctx)

	if replayed > 0 && replayErr == nil {
		s.notifySuccess(ctx, "Cart synced", "Your cart has been moved to your account.")
	}
	s.deps.Events.CartReconciled(ctx, s.sessionID, replayed, failed, s.cart)

	return replayErr
}

// ============================================================================
// Internals
// ============================================================================

// adopt replaces the in-memory cart with the server's and mirrors it to the
// local copy. The mirror is best-effort; the server already holds the truth.
func (s *Store) adopt(ctx context.Context, cart *domain.Cart) {
	s.cart = cart
	if err := s.deps.Local.Save(ctx, s.sessionID, cart); err != nil {
		logger.WithContext(ctx, s.deps.Logger).WarnContext(ctx, "failed to mirror server cart locally",
			slog.String("session_id", s.sessionID),
			slog.String("error", err.Error()),
		)
	}
}

// token resolves the session's access token. Lookup failures are treated as
// guest; session storage being down must not break cart reads.
func (s *Store) token(ctx context.Context) string {
	token, err := s.deps.Sessions.Token(ctx, s.sessionID)
	if err != nil {
		logger.WithContext(ctx, s.deps.Logger).WarnContext(ctx, "session token lookup failed",
			slog.String("session_id", s.sessionID),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return token
}

func (s *Store) itemName(productID int64) string {
	if i := s.cart.FindItemIndex(productID); i >= 0 {
		return s.cart.Items[i].Name
	}
	return "item"
}

func (s *Store) notifySuccess(ctx context.Context, title, description string) {
	s.deps.Notifier.Notify(ctx, notify.Notification{
		Title:       title,
		Description: description,
		Severity:    notify.SeveritySuccess,
	})
}

func (s *Store) notifyError(ctx context.Context, description string) {
	s.deps.Notifier.Notify(ctx, notify.Notification{
		Title:       "Error",
		Description: description,
		Severity:    notify.SeverityError,
	})
}

func validateAdd(product domain.Product, quantity int) error {
	if quantity < 1 {
		return apperrors.InvalidInput("quantity must be at least 1")
	}
	if product.ID == 0 {
		return apperrors.InvalidInput("product id is required")
	}
	if product.Name == "" {
		return apperrors.InvalidInput("product name is required")
	}
	if product.Price < 0 {
		return apperrors.InvalidInput("product price cannot be negative")
	}
	return nil
}
