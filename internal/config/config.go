package config

import (
	"fmt"
	"time"

	"github.com/nileways/storefront/pkg/config"
)

// Config holds the storefront service configuration, loaded from the
// environment.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	CMSBaseURL      string        `env:"CMS_BASE_URL" envDefault:"http://localhost:1337"`
	CMSTimeout      time.Duration `env:"CMS_TIMEOUT" envDefault:"5s"`
	CMSMaxRetries   int           `env:"CMS_MAX_RETRIES" envDefault:"2"`
	DefaultCurrency string        `env:"DEFAULT_CURRENCY" envDefault:"EGP"`

	CartTTL    time.Duration `env:"CART_TTL" envDefault:"720h"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"168h"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.HTTPPort)
	}
	if c.CMSBaseURL == "" {
		return fmt.Errorf("CMS_BASE_URL is required")
	}
	if c.CMSTimeout <= 0 {
		return fmt.Errorf("CMS_TIMEOUT must be positive")
	}
	if c.CartTTL <= 0 {
		return fmt.Errorf("CART_TTL must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
