package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nileways/storefront/internal/catalog"
	"github.com/nileways/storefront/pkg/httputil"
	"github.com/nileways/storefront/pkg/pagination"
)

// CatalogHandler serves the browse endpoints backed by the CMS catalog.
type CatalogHandler struct {
	catalog *catalog.Service
	logger  *slog.Logger
}

func NewCatalogHandler(catalogSvc *catalog.Service, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalogSvc, logger: logger}
}

// ListTours handles GET /api/v1/tours.
func (h *CatalogHandler) ListTours(w http.ResponseWriter, r *http.Request) {
	result, err := h.catalog.Tours(r.Context(), filterFromRequest(r), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// ListProducts handles GET /api/v1/products.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.catalog.Products(r.Context(), filterFromRequest(r), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// ListVideos handles GET /api/v1/videos.
func (h *CatalogHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	result, err := h.catalog.Videos(r.Context(), filterFromRequest(r), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func filterFromRequest(r *http.Request) catalog.Filter {
	q := r.URL.Query()
	filter := catalog.Filter{
		Category: q.Get("category"),
		Query:    q.Get("q"),
		Sort:     q.Get("sort"),
	}
	if v, err := strconv.ParseInt(q.Get("min_price"), 10, 64); err == nil && v > 0 {
		filter.MinPrice = v
	}
	if v, err := strconv.ParseInt(q.Get("max_price"), 10, 64); err == nil && v > 0 {
		filter.MaxPrice = v
	}
	return filter
}
