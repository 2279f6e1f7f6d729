package handlers

import (
	"errors"
	"net/http"

	"github.com/bazarioapp/bazario/internal/payment"
	"github.com/bazarioapp/bazario/internal/services"
	"github.com/bazarioapp/bazario/internal/storeapi"
)

type placeOrderRequest struct {
	PaymentMethod   string            `json:"payment_method"`
	OfflineMethodID int64             `json:"offline_method_id,omitempty"`
	PaymentFields   map[string]string `json:"payment_fields,omitempty"`
	PaymentNote     string            `json:"payment_note,omitempty"`
}

type placeOrderResponse struct {
	OrderIDs   []int64  `json:"order_ids,omitempty"`
	Messages   []string `json:"messages,omitempty"`
	PaymentURL string   `json:"payment_url,omitempty"`
}

// PlaceOrder handles POST /api/checkout/place-order.
func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	method, err := payment.ParseMethod(req.PaymentMethod)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "unknown payment method")
		return
	}

	sessionID := h.draftManager.SessionID(w, r)
	result, err := h.orderService.Place(ctx, sessionID, services.PlacementInput{
		Method:          method,
		OfflineMethodID: req.OfflineMethodID,
		OfflineInputs:   req.PaymentFields,
		PaymentNote:     req.PaymentNote,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDraftIncomplete):
			h.writeError(w, r, http.StatusConflict, "select a shipping address before placing the order")
		case errors.Is(err, services.ErrMethodDisabled):
			h.writeError(w, r, http.StatusUnprocessableEntity, "payment method is not available")
		case errors.Is(err, services.ErrAmountOverLimit):
			h.writeError(w, r, http.StatusUnprocessableEntity, "order total exceeds the cash on delivery limit")
		case errors.Is(err, storeapi.ErrUnauthorized):
			h.writeError(w, r, http.StatusUnauthorized, "invalid token")
		default:
			h.loggerFromContext(ctx).Error("failed to place order", "error", err)
			h.writeError(w, r, http.StatusBadGateway, "failed to place order")
		}
		return
	}

	h.writeJSON(w, r, http.StatusOK, placeOrderResponse{
		OrderIDs:   result.OrderIDs,
		Messages:   result.Messages,
		PaymentURL: result.PaymentURL,
	})
}
