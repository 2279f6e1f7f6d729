package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/bazarioapp/bazario/internal/config"
	"github.com/bazarioapp/bazario/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.SecurityHeaders)
	r.Use(h.MetricsContext)
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")

	// The gateway posts here cross-origin; no auth, no same-origin check.
	r.HandleFunc("/payment/sslcommerz/callback", h.PaymentCallback).
		Methods("GET", "POST").Name("payment.sslcommerz.callback")

	// Checkout API - requires a storefront customer token
	apiRouter := r.PathPrefix("/api/checkout").Subrouter()
	apiRouter.Use(h.RequireCustomer)
	apiRouter.Use(h.RequireSameOrigin)
	apiRouter.HandleFunc("/address", h.SubmitAddress).Methods("POST").Name("checkout.address")
	apiRouter.HandleFunc("/draft", h.GetDraft).Methods("GET").Name("checkout.draft.get")
	apiRouter.HandleFunc("/draft", h.UpdateDraft).Methods("PUT").Name("checkout.draft.update")
	apiRouter.HandleFunc("/payment-methods", h.PaymentMethods).Methods("GET").Name("checkout.payment_methods")
	apiRouter.HandleFunc("/place-order", h.PlaceOrder).Methods("POST").Name("checkout.place_order")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	return r
}
