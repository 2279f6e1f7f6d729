package storeapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// CartSummary mirrors the remote service's precomputed totals. It is
// read-only display state; nothing in this service derives from it except
// the amount charged through the gateway.
type CartSummary struct {
	Subtotal     float64 `json:"subtotal"`
	ItemDiscount float64 `json:"item_discount"`
	ShippingCost float64 `json:"shipping_cost"`
	Discount     float64 `json:"discount"`
	Total        float64 `json:"total"`
}

// CartService reads the remote cart summary.
type CartService struct {
	client *Client
}

func NewCartService(client *Client) *CartService {
	return &CartService{client: client}
}

func (s *CartService) Summary(ctx context.Context, couponCode string, shippingMethodID int64) (*CartSummary, error) {
	query := url.Values{}
	if couponCode != "" {
		query.Set("coupon_code", couponCode)
	}
	if shippingMethodID != 0 {
		query.Set("shipping_method_id", strconv.FormatInt(shippingMethodID, 10))
	}

	path := "/api/v1/cart/summary"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var summary CartSummary
	if err := s.client.get(ctx, path, &summary); err != nil {
		return nil, fmt.Errorf("failed to fetch cart summary: %w", err)
	}
	return &summary, nil
}
