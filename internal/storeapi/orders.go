package storeapi

import (
	"context"
	"fmt"

	"github.com/bazarioapp/bazario/internal/payment"
)

// OrderService talks to the remote order placement and settlement API.
type OrderService struct {
	client *Client
}

func NewOrderService(client *Client) *OrderService {
	return &OrderService{client: client}
}

// OrderRequest is the draft projection the order API accepts. One request
// may fan out into several orders server-side (multi-seller carts), hence
// the id list in responses.
type OrderRequest struct {
	ShippingAddressID int64  `json:"shipping_address_id"`
	BillingAddressID  int64  `json:"billing_address_id,omitempty"`
	SameAsShipping    bool   `json:"same_as_shipping"`
	ShippingMethodID  int64  `json:"shipping_method_id,omitempty"`
	CouponCode        string `json:"coupon_code,omitempty"`
	OrderNote         string `json:"order_note,omitempty"`
	PaymentMethod     string `json:"payment_method"`
}

// OfflineOrderRequest additionally carries the chosen manual method and its
// base64-encoded customer-input payload.
type OfflineOrderRequest struct {
	OrderRequest
	MethodID          int64  `json:"method_id"`
	MethodInformation string `json:"method_informations"`
	PaymentNote       string `json:"payment_note,omitempty"`
}

type placeOrderResponse struct {
	OrderIDs []int64  `json:"order_ids"`
	Messages []string `json:"messages,omitempty"`
}

// Place submits a cash-on-delivery order.
func (s *OrderService) Place(ctx context.Context, req OrderRequest) ([]int64, error) {
	var resp placeOrderResponse
	if err := s.client.post(ctx, "/api/v1/order/place", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	if len(resp.OrderIDs) == 0 {
		return nil, fmt.Errorf("order service returned no order ids")
	}
	return resp.OrderIDs, nil
}

// PlaceWithDigitalPayment creates a provisional order awaiting gateway
// settlement and returns its ids.
func (s *OrderService) PlaceWithDigitalPayment(ctx context.Context, req OrderRequest) ([]int64, error) {
	var resp placeOrderResponse
	if err := s.client.post(ctx, "/api/v1/order/place-by-digital-payment", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to place digital payment order: %w", err)
	}
	if len(resp.OrderIDs) == 0 {
		return nil, fmt.Errorf("order service returned no order ids")
	}
	return resp.OrderIDs, nil
}

// PlaceByOfflinePayment submits an order settled through a manual payment
// method. Success is a server-supplied message list, not an id list.
func (s *OrderService) PlaceByOfflinePayment(ctx context.Context, req OfflineOrderRequest) ([]string, error) {
	var resp placeOrderResponse
	if err := s.client.post(ctx, "/api/v1/order/place-by-offline-payment", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to place offline payment order: %w", err)
	}
	if len(resp.Messages) == 0 {
		return nil, fmt.Errorf("order service returned no confirmation message")
	}
	return resp.Messages, nil
}

// VerificationRequest carries the gateway outcome plus the snapshotted
// order context back to the order service for settlement.
type VerificationRequest struct {
	OrderID       int64   `json:"order_id"`
	TransactionID string  `json:"tran_id"`
	BankTranID    string  `json:"bank_tran_id,omitempty"`
	ValidationID  string  `json:"val_id,omitempty"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"payment_method"`
	CustomerName  string  `json:"customer_name"`
	CustomerEmail string  `json:"customer_email"`
	CustomerPhone string  `json:"customer_phone"`
}

// VerificationResult is the settlement outcome: order ids when the service
// finalizes orders, or a message list when it only acknowledges.
type VerificationResult struct {
	OrderIDs []int64  `json:"order_ids,omitempty"`
	Messages []string `json:"messages,omitempty"`
}

// Confirmed reports whether the response names settled orders either way.
func (r *VerificationResult) Confirmed() bool {
	return r != nil && (len(r.OrderIDs) > 0 || len(r.Messages) > 0)
}

// VerifyAndComplete settles a gateway payment against its provisional
// order. The backend treats repeated verification of the same transaction
// id as idempotent, but callers should still avoid firing it twice.
func (s *OrderService) VerifyAndComplete(ctx context.Context, req VerificationRequest) (*VerificationResult, error) {
	var result VerificationResult
	if err := s.client.post(ctx, "/api/v1/order/verify-and-complete", req, &result); err != nil {
		return nil, fmt.Errorf("failed to verify payment: %w", err)
	}
	if !result.Confirmed() {
		return nil, fmt.Errorf("order service did not confirm the payment")
	}
	return &result, nil
}

type offlineMethodsResponse struct {
	Methods []payment.OfflineMethod `json:"methods"`
}

// OfflineMethods returns the manual payment methods the store accepts.
func (s *OrderService) OfflineMethods(ctx context.Context) ([]payment.OfflineMethod, error) {
	var resp offlineMethodsResponse
	if err := s.client.get(ctx, "/api/v1/order/offline-payment-methods", &resp); err != nil {
		return nil, fmt.Errorf("failed to list offline payment methods: %w", err)
	}
	return resp.Methods, nil
}
