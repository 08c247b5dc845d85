package cartstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nileways/storefront/internal/domain"
	"github.com/nileways/storefront/internal/event"
	"github.com/nileways/storefront/internal/notify"
	apperrors "github.com/nileways/storefront/pkg/errors"
)

// ============================================================================
// Test doubles
// ============================================================================

// memoryRepo is an in-memory CartRepository. saveErr, when set, makes every
// Save fail, for exercising the all-or-nothing commit.
type memoryRepo struct {
	mu      sync.Mutex
	carts   map[string]*domain.Cart
	saveErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{carts: make(map[string]*domain.Cart)}
}

func (r *memoryRepo) Get(_ context.Context, sessionID string) (*domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[sessionID]
	if !ok {
		return nil, apperrors.NotFound("cart", sessionID)
	}
	return cart.Clone(), nil
}

func (r *memoryRepo) Save(_ context.Context, sessionID string, cart *domain.Cart) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[sessionID] = cart.Clone()
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, sessionID)
	return nil
}

type mockRemote struct {
	mock.Mock
}

func (m *mockRemote) GetCart(ctx context.Context, token string) (*domain.Cart, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockRemote) AddCartItem(ctx context.Context, token string, productID int64, quantity int) (*domain.Cart, error) {
	args := m.Called(ctx, token, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockRemote) RemoveCartItem(ctx context.Context, token string, productID int64) (*domain.Cart, error) {
	args := m.Called(ctx, token, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockRemote) SetCartItemQuantity(ctx context.Context, token string, productID int64, quantity int) (*domain.Cart, error) {
	args := m.Called(ctx, token, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockRemote) ClearCart(ctx context.Context, token string) (*domain.Cart, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

// fakeSessions returns a fixed token per session ID.
type fakeSessions struct {
	tokens map[string]string
}

func (s *fakeSessions) Token(_ context.Context, sessionID string) (string, error) {
	return s.tokens[sessionID], nil
}

// ============================================================================
// Fixtures
// ============================================================================

const sessionID = "sess-1"

var (
	gizaTour = domain.Product{
		ID: 7, Name: "Giza Day Tour", Slug: "giza-day-tour",
		Price: 8900, Currency: "EGP",
	}
	luxorTour = domain.Product{
		ID: 12, Name: "Luxor by Night", Slug: "luxor-by-night",
		Price: 12500, Currency: "EGP",
	}
)

type fixture struct {
	store     *Store
	repo      *memoryRepo
	remote    *mockRemote
	sessions  *fakeSessions
	collector *notify.Collector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemoryRepo()
	remote := &mockRemote{}
	sessions := &fakeSessions{tokens: map[string]string{}}
	collector := notify.NewCollector()

	store := New(Deps{
		Local:    repo,
		Remote:   remote,
		Sessions: sessions,
		Notifier: collector,
		Events:   event.NopPublisher{},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, sessionID)

	return &fixture{store: store, repo: repo, remote: remote, sessions: sessions, collector: collector}
}

func (f *fixture) login(token string) {
	f.sessions.tokens[sessionID] = token
}

func lastNotification(t *testing.T, c *notify.Collector) notify.Notification {
	t.Helper()
	notes := c.Drain()
	require.NotEmpty(t, notes)
	return notes[len(notes)-1]
}

// ============================================================================
// Guest cart
// ============================================================================

func TestLoad_NoStoredCart(t *testing.T) {
	f := newFixture(t)
	f.store.Load(context.Background())

	cart := f.store.Cart()
	assert.Zero(t, cart.ID)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.TotalAmount)
	assert.Empty(t, f.collector.Drain(), "loads never notify")
}

func TestAddItem_MergesDuplicateProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Load(ctx)

	require.NoError(t, f.store.AddItem(ctx, gizaTour, 1))
	require.NoError(t, f.store.AddItem(ctx, gizaTour, 2))

	cart := f.store.Cart()
	require.Len(t, cart.Items, 1, "same product never creates a second row")
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, int64(3*8900), cart.TotalAmount)
}

func TestAddItem_DistinctProductsAppend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Load(ctx)

	require.NoError(t, f.store.AddItem(ctx, gizaTour, 1))
	require.NoError(t, f.store.AddItem(ctx, luxorTour, 1))

	cart := f.store.Cart()
	require.Len(t, cart.Items, 2)
	assert.Equal(t, int64(8900+12500), cart.TotalAmount)
}

func TestAddItem_InvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Load(ctx)

	tests := []struct {
		name     string
		product  domain.Product
		quantity int
	}{
		{"zero quantity", gizaTour, 0},
		{"negative quantity", gizaTour, -2},
		{"missing product id", domain.Product{Name: "x", Price: 1}, 1},
		{"missing name", domain.Product{ID: 1, Price: 1}, 1},
		{"negative price", domain.Product{ID: 1, Name: "x", Price: -5}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.store.AddItem(ctx, tt.product, tt.quantity)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Equal(t, notify.SeverityError, lastNotification(t, f.collector).Severity)
		})
	}
	assert.Empty(t, f.store.Cart().Items)
}

func TestAddItem_SaveFailureLeavesCartUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Load(ctx)
	require.NoError(t, f.store.AddItem(ctx, gizaTour, 1))
	f.collector.Drain()

	f.repo.saveErr = errors.New("redis down")
	err := f.store.AddItem(ctx, luxorTour, 1)
	require.Error(t, err)

	cart := f.store.Cart()
	require.Len(t, cart.Items, 1, "failed mutation must not half-apply")
	assert.Equal(t, int64(8900), cart.TotalAmount)

	note := lastNotification(t, f.collector)
	assert.Equal(t, notify.SeverityError, note.Severity)
	assert.Contains(t, note.Description, "Luxor by Night")
}

func TestRemoveItem_AbsentIsNoOpSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Load(ctx)
	require.NoError(t, f.store.AddItem(ctx, gizaTour, 2))

	require.NoError(t, f.store.RemoveItem(ctx, 999))

	cart := f.store.Cart()
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(17800), cart.TotalAmount)
}

func TestUpdateItemQuantity_ZeroOrLessRemoves(t *testing.T) {
	for _, quantity := range []int{0, -3} {
		f := newFixture(t)
		ctx := context.Background()
		f.store.Load(ctx)
		require.NoError(t, f.store.AddItem(ctx, gizaTour, 2))

		require.NoError(t, f.store.UpdateItemQuantity(ctx, gizaTour.ID, quantity))

		cart := f.store.Cart()
		assert.Empty(t, cart.Items, "quantity %d must remove the item", quantity)
		assert.Zero(t, cart.TotalAmount)
	}
}

func TestClearCart_PreservesIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Load(ctx)
	require.NoError(t, f.store.AddItem(ctx, gizaTour, 2))

	before := f.store.Cart()
	require.NoError(t, f.store.ClearCart(ctx))

	after := f.store.Cart()
	assert.Empty(t, after.Items)
	assert.Zero(t, after.TotalAmount)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.Currency, after.Currency)
	assert.Equal(t, before.Status, after.Status)
}

func TestGuestCart_PersistsAcrossStores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Load(ctx)
	require.NoError(t, f.store.AddItem(ctx, gizaTour, 2))
	require.NoError(t, f.store.AddItem(ctx, luxorTour, 1))

	// A new store for the same session sees the persisted cart.
	second := New(Deps{
		Local:    f.repo,
		Remote:   f.remote,
		Sessions: f.sessions,
		Notifier: notify.NewCollector(),
		Events:   event.NopPublisher{},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, sessionID)
	second.Load(ctx)

	cart := second.Cart()
	require.Len(t, cart.Items, 2)
	assert.Equal(t, int64(2*8900+12500), cart.TotalAmount)
}

func TestGuestCart_FullJourney(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Load(ctx)

	require.NoError(t, f.store.AddItem(ctx, gizaTour, 1))
	assert.Equal(t, int64(8900), f.store.TotalAmount())

	require.NoError(t, f.store.UpdateItemQuantity(ctx, gizaTour.ID, 3))
	assert.Equal(t, int64(26700), f.store.TotalAmount())

	require.NoError(t, f.store.UpdateItemQuantity(ctx, gizaTour.ID, 1))
	assert.Equal(t, int64(8900), f.store.TotalAmount())

	require.NoError(t, f.store.ClearCart(ctx))
	assert.Zero(t, f.store.TotalAmount())
	assert.Zero(t, f.store.ItemCount())
}

// ============================================================================
// Authenticated cart
// ============================================================================

func serverCart(items ...domain.CartItem) *domain.Cart {
	cart := &domain.Cart{
		ID:       42,
		Currency: "EGP",
		Status:   domain.StatusActive,
		Items:    items,
	}
	cart.Recalculate()
	return cart
}

func TestLoad_AuthenticatedAdoptsServerCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login("tok-123")

	remote := serverCart(domain.CartItem{ProductID: 7, Name: "Giza Day Tour", Price: 8900, Quantity: 2})
	f.remote.On("GetCart", mock.Anything, "tok-123").Return(remote, nil)

	f.store.Load(ctx)

	cart := f.store.Cart()
	assert.Equal(t, int64(42), cart.ID)
	assert.Equal(t, int64(17800), cart.TotalAmount)

	// Server cart is mirrored to the local copy.
	local, err := f.repo.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), local.ID)
}

func TestLoad_RemoteFailureFallsBackSilently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	localCart := domain.NewGuestCart()
	localCart.Items = []domain.CartItem{{ProductID: 7, Name: "Giza Day Tour", Price: 8900, Quantity: 1}}
	localCart.Recalculate()
	require.NoError(t, f.repo.Save(ctx, sessionID, localCart))

	f.login("tok-123")
	f.remote.On("GetCart", mock.Anything, "tok-123").Return(nil, errors.New("cms down"))

	f.store.Load(ctx)

	cart := f.store.Cart()
	assert.Equal(t, int64(8900), cart.TotalAmount, "falls back to the local copy")
	assert.Empty(t, f.collector.Drain(), "load failures never notify")
}

func TestAddItem_AuthenticatedDelegatesToServer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login("tok-123")

	merged := serverCart(domain.CartItem{ProductID: 7, Name: "Giza Day Tour", Price: 8900, Quantity: 5})
	f.remote.On("AddCartItem", mock.Anything, "tok-123", int64(7), 2).Return(merged, nil)

	require.NoError(t, f.store.AddItem(ctx, gizaTour, 2))

	// The server's view wins, even where it disagrees with a local merge.
	cart := f.store.Cart()
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	f.remote.AssertExpectations(t)
}

func TestAddItem_AuthenticatedRemoteFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login("tok-123")

	f.remote.On("AddCartItem", mock.Anything, "tok-123", int64(7), 1).Return(nil, errors.New("cms down"))

	err := f.store.AddItem(ctx, gizaTour, 1)
	require.Error(t, err)

	note := lastNotification(t, f.collector)
	assert.Equal(t, notify.SeverityError, note.Severity)
	assert.Contains(t, note.Description, "Giza Day Tour")
	assert.Empty(t, f.store.Cart().Items, "cart unchanged on failure")
}

// ============================================================================
// Reconcile
// ============================================================================

func TestReconcile_ReplaysLocalItemsInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Build up a guest cart first.
	f.store.Load(ctx)
	require.NoError(t, f.store.AddItem(ctx, gizaTour, 2))
	require.NoError(t, f.store.AddItem(ctx, luxorTour, 1))
	f.collector.Drain()

	f.login("tok-123")

	var order []int64
	merged := serverCart(
		domain.CartItem{ProductID: 7, Name: "Giza Day Tour", Price: 8900, Quantity: 2},
		domain.CartItem{ProductID: 12, Name: "Luxor by Night", Price: 12500, Quantity: 1},
	)
	f.remote.On("AddCartItem", mock.Anything, "tok-123", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			order = append(order, args.Get(2).(int64))
		}).
		Return(merged, nil)
	f.remote.On("GetCart", mock.Anything, "tok-123").Return(merged, nil)

	require.NoError(t, f.store.Reconcile(ctx))

	assert.Equal(t, []int64{7, 12}, order, "items replay sequentially in local order")

	cart := f.store.Cart()
	assert.Equal(t, int64(42), cart.ID, "server cart adopted after replay")
	assert.Equal(t, int64(2*8900+12500), cart.TotalAmount)
}

func TestReconcile_ReplayFailureAbortsButStillReloads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.Load(ctx)
	require.NoError(t, f.store.AddItem(ctx, gizaTour, 1))
	require.NoError(t, f.store.AddItem(ctx, luxorTour, 1))
	f.collector.Drain()

	f.login("tok-123")

	server := serverCart(domain.CartItem{ProductID: 7, Name: "Giza Day Tour", Price: 8900, Quantity: 1})
	f.remote.On("AddCartItem", mock.Anything, "tok-123", int64(7), 1).Return(server, nil).Once()
	f.remote.On("AddCartItem", mock.Anything, "tok-123", int64(12), 1).Return(nil, errors.New("cms down")).Once()
	f.remote.On("GetCart", mock.Anything, "tok-123").Return(server, nil)

	err := f.store.Reconcile(ctx)
	require.Error(t, err)

	// Remaining replays were aborted; no third AddCartItem call.
	f.remote.AssertExpectations(t)

	// The reload still happened and the server cart is the truth.
	assert.Equal(t, int64(42), f.store.Cart().ID)

	note := lastNotification(t, f.collector)
	assert.Equal(t, notify.SeverityError, note.Severity)
	assert.Contains(t, note.Description, "Luxor by Night")
}

func TestReconcile_DropsGuestSlotAfterFullReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.Load(ctx)
	require.NoError(t, f.store.AddItem(ctx, gizaTour, 2))
	f.collector.Drain()

	f.login("tok-123")

	server := serverCart(domain.CartItem{ProductID: 7, Name: "Giza Day Tour", Price: 8900, Quantity: 2})
	f.remote.On("AddCartItem", mock.Anything, "tok-123", int64(7), 2).Return(server, nil).Once()
	// The reload fails; the absorbed items must not come back from the slot.
	f.remote.On("GetCart", mock.Anything, "tok-123").Return(nil, errors.New("cms down"))

	require.NoError(t, f.store.Reconcile(ctx))

	assert.Empty(t, f.store.Cart().Items, "replayed items live on the server now, not locally")

	_, err := f.repo.Get(ctx, sessionID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "guest slot is dropped once fully replayed")
}

func TestReconcile_EmptyLocalCartJustLoads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login("tok-123")

	server := serverCart()
	f.remote.On("GetCart", mock.Anything, "tok-123").Return(server, nil)

	require.NoError(t, f.store.Reconcile(ctx))
	assert.Equal(t, int64(42), f.store.Cart().ID)
	f.remote.AssertNotCalled(t, "AddCartItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_WithoutTokenFails(t *testing.T) {
	f := newFixture(t)
	err := f.store.Reconcile(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

// ============================================================================
// Refresh
// ============================================================================

func TestRefresh_ReloadsFromStorage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Load(ctx)
	require.NoError(t, f.store.AddItem(ctx, gizaTour, 2))

	// Another actor rewrites the stored cart behind this store's back.
	rewritten := domain.NewGuestCart()
	rewritten.Items = []domain.CartItem{{ProductID: 12, Name: "Luxor by Night", Price: 12500, Quantity: 1}}
	rewritten.Recalculate()
	require.NoError(t, f.repo.Save(ctx, sessionID, rewritten))

	f.store.Refresh(ctx)

	cart := f.store.Cart()
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(12), cart.Items[0].ProductID)
}
