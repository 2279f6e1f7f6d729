package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bazarioapp/bazario/internal/auth"
	"github.com/bazarioapp/bazario/internal/config"
	"github.com/bazarioapp/bazario/internal/draft"
	"github.com/bazarioapp/bazario/internal/logging"
	"github.com/bazarioapp/bazario/internal/services"
)

const maxRequestBodyBytes = 1 << 20 // 1 MB

// Handlers provides the HTTP handlers for the checkout service.
type Handlers struct {
	config          *config.Config
	verifier        *auth.Verifier
	draftManager    *draft.Manager
	checkoutService *services.CheckoutService
	orderService    *services.OrderService
	callbackService *services.CallbackService
	logger          *slog.Logger
}

type Dependencies struct {
	Config          *config.Config
	Verifier        *auth.Verifier
	DraftManager    *draft.Manager
	CheckoutService *services.CheckoutService
	OrderService    *services.OrderService
	CallbackService *services.CallbackService
	Logger          *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("handlers dependencies: verifier is required")
	}
	if deps.DraftManager == nil {
		return nil, fmt.Errorf("handlers dependencies: draftManager is required")
	}
	if deps.CheckoutService == nil {
		return nil, fmt.Errorf("handlers dependencies: checkoutService is required")
	}
	if deps.OrderService == nil {
		return nil, fmt.Errorf("handlers dependencies: orderService is required")
	}
	if deps.CallbackService == nil {
		return nil, fmt.Errorf("handlers dependencies: callbackService is required")
	}

	return &Handlers{
		config:          deps.Config,
		verifier:        deps.Verifier,
		draftManager:    deps.DraftManager,
		checkoutService: deps.CheckoutService,
		orderService:    deps.OrderService,
		callbackService: deps.CallbackService,
		logger:          logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.writeJSON(w, r, status, map[string]string{"error": message})
}

func (h *Handlers) writeFieldErrors(w http.ResponseWriter, r *http.Request, vErr *services.ValidationError) {
	fields := make(map[string]string, len(vErr.Fields))
	for _, fe := range vErr.Fields {
		fields[fe.Field] = fe.Message
	}
	h.writeJSON(w, r, http.StatusUnprocessableEntity, map[string]any{
		"error":  "validation failed",
		"fields": fields,
	})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func SecureCookiesFromConfig(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		if parsed, err := url.Parse(baseURL); err == nil {
			return strings.EqualFold(parsed.Scheme, "https")
		}
	}

	return cfg.Port == "443" || cfg.Port == "8443"
}
