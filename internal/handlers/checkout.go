package handlers

import (
	"errors"
	"net/http"

	"github.com/bazarioapp/bazario/internal/address"
	"github.com/bazarioapp/bazario/internal/draft"
	"github.com/bazarioapp/bazario/internal/services"
	"github.com/bazarioapp/bazario/internal/storeapi"
)

type addressRequest struct {
	Shipping       address.Address  `json:"shipping"`
	Billing        *address.Address `json:"billing,omitempty"`
	SameAsShipping bool             `json:"same_as_shipping"`
	SaveAsNew      bool             `json:"save_as_new"`
}

type draftResponse struct {
	Draft   *draft.Draft          `json:"draft"`
	Summary *storeapi.CartSummary `json:"summary,omitempty"`
}

// SubmitAddress handles POST /api/checkout/address.
func (h *Handlers) SubmitAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addressRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sessionID := h.draftManager.SessionID(w, r)
	d, err := h.checkoutService.SubmitAddress(ctx, sessionID, services.AddressInput{
		Shipping:       req.Shipping,
		Billing:        req.Billing,
		SameAsShipping: req.SameAsShipping,
		SaveAsNew:      req.SaveAsNew,
	})
	if err != nil {
		var vErr *services.ValidationError
		if errors.As(err, &vErr) {
			h.writeFieldErrors(w, r, vErr)
			return
		}
		if errors.Is(err, storeapi.ErrUnauthorized) {
			h.writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}
		h.loggerFromContext(ctx).Error("failed to submit address", "error", err)
		h.writeError(w, r, http.StatusBadGateway, "failed to save address")
		return
	}

	h.writeJSON(w, r, http.StatusOK, draftResponse{Draft: d})
}

type draftUpdateRequest struct {
	ShippingAddressID *int64  `json:"shipping_address_id,omitempty"`
	BillingAddressID  *int64  `json:"billing_address_id,omitempty"`
	SameAsShipping    *bool   `json:"same_as_shipping,omitempty"`
	ShippingMethodID  *int64  `json:"shipping_method_id,omitempty"`
	CouponCode        *string `json:"coupon_code,omitempty"`
	OrderNote         *string `json:"order_note,omitempty"`
}

// UpdateDraft handles PUT /api/checkout/draft.
func (h *Handlers) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req draftUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sessionID := h.draftManager.SessionID(w, r)
	d, err := h.checkoutService.UpdateDraft(ctx, sessionID, draft.Update{
		ShippingAddressID: req.ShippingAddressID,
		BillingAddressID:  req.BillingAddressID,
		SameAsShipping:    req.SameAsShipping,
		ShippingMethodID:  req.ShippingMethodID,
		CouponCode:        req.CouponCode,
		OrderNote:         req.OrderNote,
	})
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to update draft", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "failed to update draft")
		return
	}

	h.writeJSON(w, r, http.StatusOK, draftResponse{Draft: d})
}

// GetDraft handles GET /api/checkout/draft.
func (h *Handlers) GetDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := h.draftManager.SessionID(w, r)
	view, err := h.checkoutService.View(ctx, sessionID)
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to load draft", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "failed to load draft")
		return
	}

	h.writeJSON(w, r, http.StatusOK, draftResponse{Draft: view.Draft, Summary: view.Summary})
}

// PaymentMethods handles GET /api/checkout/payment-methods.
func (h *Handlers) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	enabled, offline, err := h.orderService.Methods(ctx)
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to load payment methods", "error", err)
		h.writeError(w, r, http.StatusBadGateway, "failed to load payment methods")
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"methods":         enabled,
		"offline_methods": offline,
	})
}
