package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nileways/storefront/internal/cartstore"
	"github.com/nileways/storefront/internal/catalog"
	"github.com/nileways/storefront/internal/domain"
	"github.com/nileways/storefront/internal/notify"
	apperrors "github.com/nileways/storefront/pkg/errors"
	"github.com/nileways/storefront/pkg/httputil"
	"github.com/nileways/storefront/pkg/logger"
	"github.com/nileways/storefront/pkg/validator"
)

// CartHandler serves the cart endpoints. Each request gets its own cart store
// and notification collector; the collector's contents are returned in the
// response so the client can surface them to the visitor.
type CartHandler struct {
	stores  *StoreFactory
	catalog *catalog.Service
	logger  *slog.Logger
}

func NewCartHandler(stores *StoreFactory, catalogSvc *catalog.Service, logger *slog.Logger) *CartHandler {
	return &CartHandler{stores: stores, catalog: catalogSvc, logger: logger}
}

// StoreFactory builds a cart store per request, wiring the per-request
// notification collector alongside the always-on log notifier.
type StoreFactory struct {
	deps cartstore.Deps
}

func NewStoreFactory(deps cartstore.Deps) *StoreFactory {
	return &StoreFactory{deps: deps}
}

// New returns a store for the session and the collector receiving its
// notifications.
func (f *StoreFactory) New(sessionID string) (*cartstore.Store, *notify.Collector) {
	collector := notify.NewCollector()
	deps := f.deps
	deps.Notifier = notify.Multi{collector, f.deps.Notifier}
	return cartstore.New(deps, sessionID), collector
}

// cartPayload is the cart section of every cart endpoint response.
type cartPayload struct {
	Cart          *domain.Cart          `json:"cart"`
	ItemCount     int                   `json:"item_count"`
	Notifications []notify.Notification `json:"notifications"`
}

func newCartPayload(store *cartstore.Store, collector *notify.Collector) cartPayload {
	cart := store.Cart()
	return cartPayload{
		Cart:          cart,
		ItemCount:     cart.ItemCount(),
		Notifications: collector.Drain(),
	}
}

// GetCart handles GET /api/v1/cart.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, collector := h.stores.New(SessionID(r.Context()))
	store.Load(r.Context())

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartPayload(store, collector)})
}

type addItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1"`
}

// AddItem handles POST /api/v1/cart/items. The product is resolved from the
// catalog so name and price are denormalized server-side; clients only send
// the product ID.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	product, err := h.catalog.ProductByID(r.Context(), req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	store, collector := h.stores.New(SessionID(r.Context()))
	store.Load(r.Context())

	if err := store.AddItem(r.Context(), *product, req.Quantity); err != nil {
		h.writeCartError(w, r, err, store, collector)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartPayload(store, collector)})
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateItem handles PUT /api/v1/cart/items/{productID}. A quantity of zero or
// less removes the item.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseID(w, chi.URLParam(r, "productID"))
	if !ok {
		return
	}

	var req updateItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	store, collector := h.stores.New(SessionID(r.Context()))
	store.Load(r.Context())

	if err := store.UpdateItemQuantity(r.Context(), productID, req.Quantity); err != nil {
		h.writeCartError(w, r, err, store, collector)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartPayload(store, collector)})
}

// RemoveItem handles DELETE /api/v1/cart/items/{productID}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseID(w, chi.URLParam(r, "productID"))
	if !ok {
		return
	}

	store, collector := h.stores.New(SessionID(r.Context()))
	store.Load(r.Context())

	if err := store.RemoveItem(r.Context(), productID); err != nil {
		h.writeCartError(w, r, err, store, collector)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartPayload(store, collector)})
}

// ClearCart handles DELETE /api/v1/cart.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store, collector := h.stores.New(SessionID(r.Context()))
	store.Load(r.Context())

	if err := store.ClearCart(r.Context()); err != nil {
		h.writeCartError(w, r, err, store, collector)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartPayload(store, collector)})
}

// RefreshCart handles POST /api/v1/cart/refresh.
func (h *CartHandler) RefreshCart(w http.ResponseWriter, r *http.Request) {
	store, collector := h.stores.New(SessionID(r.Context()))
	store.Refresh(r.Context())

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartPayload(store, collector)})
}

// writeCartError writes an error response that still carries the unchanged
// cart and the collected notifications, since a failed mutation always
// produces one.
func (h *CartHandler) writeCartError(w http.ResponseWriter, r *http.Request, err error, store *cartstore.Store, collector *notify.Collector) {
	resp := httputil.Response{Data: newCartPayload(store, collector)}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Error = &httputil.ErrorResponse{Code: appErr.Code, Message: appErr.Message}
		httputil.WriteJSON(w, appErr.Status, resp)
		return
	}

	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.WithContext(r.Context(), h.logger).ErrorContext(r.Context(), "cart operation failed",
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
		)
	}
	resp.Error = &httputil.ErrorResponse{Code: "CART_OPERATION_FAILED", Message: "cart operation failed"}
	httputil.WriteJSON(w, status, resp)
}
