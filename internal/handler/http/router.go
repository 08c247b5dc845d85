package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nileways/storefront/pkg/health"
	"github.com/nileways/storefront/pkg/middleware"
)

// RouterConfig carries the handlers and cross-cutting settings for the router.
type RouterConfig struct {
	Cart    *CartHandler
	Session *SessionHandler
	Catalog *CatalogHandler
	Health  *health.Handler
	Logger  *slog.Logger

	AllowedOrigins []string
	SecureCookies  bool
}

// NewRouter assembles the HTTP routing tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.Compress(5))
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.PrometheusMetrics("storefront"))

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowedOrigins = cfg.AllowedOrigins
	}
	r.Use(middleware.CORS(corsCfg))

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(Session(cfg.SecureCookies))
		// After Session so the request-scoped logger carries session_id.
		r.Use(middleware.RequestLogger(cfg.Logger))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cfg.Cart.GetCart)
			r.Delete("/", cfg.Cart.ClearCart)
			r.Post("/refresh", cfg.Cart.RefreshCart)
			r.Post("/items", cfg.Cart.AddItem)
			r.Put("/items/{productID}", cfg.Cart.UpdateItem)
			r.Delete("/items/{productID}", cfg.Cart.RemoveItem)
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", cfg.Session.GetSession)
			r.Post("/login", cfg.Session.Login)
			r.Post("/logout", cfg.Session.Logout)
		})

		r.Get("/tours", cfg.Catalog.ListTours)
		r.Get("/products", cfg.Catalog.ListProducts)
		r.Get("/videos", cfg.Catalog.ListVideos)
	})

	return r
}
