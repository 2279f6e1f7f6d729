package handlers

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/bazarioapp/bazario/internal/auth"
	"github.com/bazarioapp/bazario/internal/observability"
)

// RequireCustomer verifies the storefront bearer token and puts the customer
// identity on the request context.
func (h *Handlers) RequireCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		meter := observability.MeterFromContext(ctx)

		token := auth.BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			meter.Count("auth.rejected", 1, sentry.WithAttributes(
				attribute.String("reason", "missing_token"),
			))
			h.writeError(w, r, http.StatusUnauthorized, "authorization required")
			return
		}

		customer, err := h.verifier.Parse(token)
		if err != nil {
			meter.Count("auth.rejected", 1, sentry.WithAttributes(
				attribute.String("reason", "invalid_token"),
			))
			h.loggerFromContext(ctx).Warn("rejected customer token", "error", err)
			h.writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx = auth.WithCustomer(ctx, customer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
