package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lmittmann/tint"

	"github.com/bazarioapp/bazario/internal/auth"
	"github.com/bazarioapp/bazario/internal/cache"
	"github.com/bazarioapp/bazario/internal/config"
	"github.com/bazarioapp/bazario/internal/crypto"
	"github.com/bazarioapp/bazario/internal/draft"
	"github.com/bazarioapp/bazario/internal/email"
	"github.com/bazarioapp/bazario/internal/handlers"
	"github.com/bazarioapp/bazario/internal/observability"
	"github.com/bazarioapp/bazario/internal/services"
	"github.com/bazarioapp/bazario/internal/sslcommerz"
	"github.com/bazarioapp/bazario/internal/storeapi"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	CacheProvider cache.Provider
	DraftManager  *draft.Manager
	Handlers      *handlers.Handlers

	sentryEnabled bool
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	sentryEnabled := false
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
		})
		if err != nil {
			logger.Warn("failed to initialize sentry", "error", err)
		} else {
			sentryEnabled = true
		}
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	draftStore, err := draft.NewStore(startupCtx, draft.Config{
		Provider:              cfg.DraftStoreProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		return nil, fmt.Errorf("failed to initialize draft store: %w", err)
	}

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		closeDraftStore(logger, draftStore)
		closeCacheProvider(logger, cacheProvider)
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}
	draftManager := draft.NewManager(draftStore, encryptor, handlers.SecureCookiesFromConfig(cfg))

	verifier, err := auth.NewVerifier(cfg.CustomerTokenSecret)
	if err != nil {
		closeDraftManager(logger, draftManager)
		closeCacheProvider(logger, cacheProvider)
		return nil, fmt.Errorf("failed to initialize token verifier: %w", err)
	}

	profile := config.DefaultMethodsProfile()
	if cfg.PaymentMethodsFile != "" {
		profile, err = config.LoadMethodsProfile(cfg.PaymentMethodsFile)
		if err != nil {
			closeDraftManager(logger, draftManager)
			closeCacheProvider(logger, cacheProvider)
			return nil, fmt.Errorf("failed to load payment methods profile: %w", err)
		}
	}

	httpClient := observability.NewHTTPClient(30 * time.Second)
	storeClient := storeapi.NewClient(cfg.StoreAPIBaseURL, httpClient)
	addressService := storeapi.NewAddressService(storeClient)
	cartService := storeapi.NewCartService(storeClient)
	orderService := storeapi.NewOrderService(storeClient)
	gateway := sslcommerz.NewClient(cfg.SSLCommerzStoreID, cfg.SSLCommerzStorePassword, cfg.SSLCommerzSandbox, httpClient)

	var emailProvider email.Provider = email.NoopProvider{}
	if cfg.EmailEnabled() {
		emailProvider = email.NewResendProvider(cfg.ResendAPIKey, cfg.EmailFrom)
	}

	checkout := services.NewCheckoutService(addressService, cartService, draftManager, logger.With("component", "checkout_service"))
	orders := services.NewOrderService(orderService, gateway, cartService, draftManager, profile, cfg.CallbackURL(), logger.With("component", "order_service"))
	callbacks := services.NewCallbackService(orderService, draftManager, cacheProvider, emailProvider, logger.With("component", "callback_service"))

	h, err := handlers.New(handlers.Dependencies{
		Config:          cfg,
		Verifier:        verifier,
		DraftManager:    draftManager,
		CheckoutService: checkout,
		OrderService:    orders,
		CallbackService: callbacks,
		Logger:          logger,
	})
	if err != nil {
		closeDraftManager(logger, draftManager)
		closeCacheProvider(logger, cacheProvider)
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		CacheProvider: cacheProvider,
		DraftManager:  draftManager,
		Handlers:      h,
		sentryEnabled: sentryEnabled,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.DraftManager != nil {
		closeDraftManager(a.Logger, a.DraftManager)
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.sentryEnabled {
		sentry.Flush(2 * time.Second)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	case "text", "":
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level: cfg.LogLevel,
		}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: cfg.LogLevel}))
}

func closeDraftStore(logger *slog.Logger, store draft.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil && logger != nil {
		logger.Warn("failed to close draft store", "error", err)
	}
}

func closeDraftManager(logger *slog.Logger, manager *draft.Manager) {
	if manager == nil {
		return
	}
	if err := manager.Close(); err != nil && logger != nil {
		logger.Warn("failed to close draft manager", "error", err)
	}
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
