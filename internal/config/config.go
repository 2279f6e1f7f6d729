package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	// Remote commerce backend this service orchestrates against.
	StoreAPIBaseURL string `env:"STORE_API_BASE_URL,required" validate:"required,url"`

	// Shared secret for verifying storefront-issued customer tokens.
	CustomerTokenSecret string `env:"CUSTOMER_TOKEN_SECRET,required" validate:"required"`

	// Public base URL of this service, used to build the gateway callback URL.
	BaseURL string `env:"BASE_URL,required" validate:"required,url"`

	SSLCommerzStoreID       string `env:"SSLCOMMERZ_STORE_ID,required" validate:"required"`
	SSLCommerzStorePassword string `env:"SSLCOMMERZ_STORE_PASSWORD,required" validate:"required"`
	SSLCommerzSandbox       bool   `env:"SSLCOMMERZ_SANDBOX" envDefault:"true"`

	DraftStoreProvider    string `env:"DRAFT_STORE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis,required_if=DraftStoreProvider redis"`

	// 32-byte key for encrypting draft payloads at rest.
	EncryptionKey string `env:"ENCRYPTION_KEY,required" validate:"required,len=32"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	EmailFrom    string `env:"EMAIL_FROM" validate:"omitempty,email"`

	// Optional YAML profile restricting payment methods (see methods.go).
	PaymentMethodsFile string `env:"PAYMENT_METHODS_FILE"`

	SentryDSN string `env:"SENTRY_DSN"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	hasResendKey := strings.TrimSpace(c.ResendAPIKey) != ""
	hasEmailFrom := strings.TrimSpace(c.EmailFrom) != ""
	if hasResendKey != hasEmailFrom {
		return fmt.Errorf("RESEND_API_KEY and EMAIL_FROM must be set together")
	}

	baseURL := strings.TrimSpace(c.BaseURL)
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Hostname() == "" {
		return fmt.Errorf("BASE_URL must be a valid absolute URL")
	}
	if !isLocalHost(parsed.Hostname()) && !strings.EqualFold(parsed.Scheme, "https") {
		return fmt.Errorf("BASE_URL must use https outside local development")
	}

	return nil
}

// CallbackURL returns the absolute URL the gateway redirects back to.
func (c *Config) CallbackURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/payment/sslcommerz/callback"
}

func (c *Config) EmailEnabled() bool {
	return strings.TrimSpace(c.ResendAPIKey) != "" && strings.TrimSpace(c.EmailFrom) != ""
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
