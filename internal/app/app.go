package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nileways/storefront/internal/cartstore"
	"github.com/nileways/storefront/internal/catalog"
	"github.com/nileways/storefront/internal/cms"
	"github.com/nileways/storefront/internal/config"
	"github.com/nileways/storefront/internal/event"
	handler "github.com/nileways/storefront/internal/handler/http"
	"github.com/nileways/storefront/internal/notify"
	redisrepo "github.com/nileways/storefront/internal/repository/redis"
	"github.com/nileways/storefront/internal/session"
	"github.com/nileways/storefront/pkg/health"
	"github.com/nileways/storefront/pkg/httpclient"
	"github.com/nileways/storefront/pkg/kafka"
	"github.com/nileways/storefront/pkg/logger"
)

// App wires the storefront service together and manages its lifecycle.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	redisClient *redis.Client
	producer    *kafka.Producer
	server      *http.Server
}

// New builds the application from configuration. It connects to Redis eagerly
// so a missing dependency fails fast at startup instead of on the first
// request.
func New(cfg *config.Config) (*App, error) {
	log := logger.New("storefront", cfg.LogLevel)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	producer := kafka.NewProducer(kafka.DefaultProducerConfig(cfg.KafkaBrokers), log)

	baseClient := httpclient.New(httpclient.Config{
		Timeout:         cfg.CMSTimeout,
		MaxRetries:      cfg.CMSMaxRetries,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 50,
	})
	cmsHTTP := httpclient.NewCircuitBreakerClient(baseClient, httpclient.DefaultCircuitBreakerConfig("cms"), log)
	cmsClient := cms.NewClient(cfg.CMSBaseURL, cmsHTTP, cfg.CMSTimeout, log)

	cartRepo := redisrepo.NewCartRepository(redisClient, cfg.CartTTL)
	sessions := session.NewStore(redisClient, cfg.SessionTTL)
	catalogSvc := catalog.NewService(cmsClient)
	events := event.NewKafkaPublisher(producer, log)

	stores := handler.NewStoreFactory(cartstore.Deps{
		Local:    cartRepo,
		Remote:   cmsClient,
		Sessions: sessions,
		Notifier: notify.NewLogNotifier(log),
		Events:   events,
		Logger:   log,
		Currency: cfg.DefaultCurrency,
	})

	healthHandler := health.NewHandler()
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", producer.Ping)
	healthHandler.Register("cms", cmsClient.Ping)

	router := handler.NewRouter(handler.RouterConfig{
		Cart:           handler.NewCartHandler(stores, catalogSvc, log),
		Session:        handler.NewSessionHandler(sessions, stores, log),
		Catalog:        handler.NewCatalogHandler(catalogSvc, log),
		Health:         healthHandler,
		Logger:         log,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		SecureCookies:  cfg.IsProduction(),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:         cfg,
		logger:      log,
		redisClient: redisClient,
		producer:    producer,
		server:      server,
	}, nil
}

// Run starts the HTTP server and blocks until shutdown completes. SIGINT and
// SIGTERM trigger a graceful shutdown.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("storefront listening",
			slog.String("addr", a.server.Addr),
			slog.String("environment", a.cfg.Environment),
		)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	}

	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("http server shutdown", slog.String("error", err.Error()))
	}
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close", slog.String("error", err.Error()))
	}
	if err := a.redisClient.Close(); err != nil {
		a.logger.Error("redis close", slog.String("error", err.Error()))
	}

	a.logger.Info("shutdown complete")
	return nil
}
