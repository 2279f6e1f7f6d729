package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/bazarioapp/bazario/internal/auth"
	"github.com/bazarioapp/bazario/internal/config"
	"github.com/bazarioapp/bazario/internal/draft"
	"github.com/bazarioapp/bazario/internal/logging"
	"github.com/bazarioapp/bazario/internal/observability"
	"github.com/bazarioapp/bazario/internal/payment"
	"github.com/bazarioapp/bazario/internal/sslcommerz"
	"github.com/bazarioapp/bazario/internal/storeapi"
)

var (
	// ErrDraftIncomplete means the draft has no shipping address yet.
	ErrDraftIncomplete = errors.New("checkout draft is missing a shipping address")
	// ErrMethodDisabled means the requested payment method is not in the
	// enabled set.
	ErrMethodDisabled = errors.New("payment method is not enabled")
	// ErrAmountOverLimit means the order total exceeds the cash on
	// delivery ceiling.
	ErrAmountOverLimit = errors.New("order total exceeds the cash on delivery limit")
)

type orderAPI interface {
	Place(ctx context.Context, req storeapi.OrderRequest) ([]int64, error)
	PlaceWithDigitalPayment(ctx context.Context, req storeapi.OrderRequest) ([]int64, error)
	PlaceByOfflinePayment(ctx context.Context, req storeapi.OfflineOrderRequest) ([]string, error)
	VerifyAndComplete(ctx context.Context, req storeapi.VerificationRequest) (*storeapi.VerificationResult, error)
	OfflineMethods(ctx context.Context) ([]payment.OfflineMethod, error)
}

type gatewayAPI interface {
	InitiateSession(ctx context.Context, req sslcommerz.PaymentRequest) (*sslcommerz.Session, error)
}

// OrderService dispatches a completed draft to the payment-method specific
// placement flow.
type OrderService struct {
	orders      orderAPI
	gateway     gatewayAPI
	cart        cartAPI
	drafts      *draft.Manager
	profile     *config.MethodsProfile
	callbackURL string
	logger      *slog.Logger
}

func NewOrderService(
	orders orderAPI,
	gateway gatewayAPI,
	cart cartAPI,
	drafts *draft.Manager,
	profile *config.MethodsProfile,
	callbackURL string,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:      orders,
		gateway:     gateway,
		cart:        cart,
		drafts:      drafts,
		profile:     profile,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

func (s *OrderService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// PlacementInput selects the payment method and carries its method-specific
// extras.
type PlacementInput struct {
	Method          payment.Method
	OfflineMethodID int64
	OfflineInputs   map[string]string
	PaymentNote     string
}

// PlacementResult is what the checkout page needs after a placement call:
// either final order ids, or a gateway URL to redirect to.
type PlacementResult struct {
	Method     payment.Method
	OrderIDs   []int64
	Messages   []string
	PaymentURL string
}

// Redirects reports whether the browser must leave for the gateway instead
// of showing a confirmation.
func (r *PlacementResult) Redirects() bool {
	return r.PaymentURL != ""
}

// Methods returns the payment methods offered to this storefront, with the
// remote offline-payment variants expanded.
func (s *OrderService) Methods(ctx context.Context) ([]payment.Method, []payment.OfflineMethod, error) {
	enabled := make([]payment.Method, 0, 3)
	for _, m := range []payment.Method{payment.MethodCashOnDelivery, payment.MethodOffline, payment.MethodSSLCommerz} {
		if s.profile.MethodEnabled(string(m)) {
			enabled = append(enabled, m)
		}
	}

	var offline []payment.OfflineMethod
	if s.profile.MethodEnabled(string(payment.MethodOffline)) {
		var err error
		offline, err = s.orders.OfflineMethods(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load offline payment methods: %w", err)
		}
	}
	return enabled, offline, nil
}

// Place runs the method-specific placement flow for the session's draft.
func (s *OrderService) Place(ctx context.Context, sessionID string, input PlacementInput) (*PlacementResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.place",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("Place"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)
	meter.Count("order.place.requested", 1, sentry.WithAttributes(
		attribute.String("method", string(input.Method)),
	))

	if !s.profile.MethodEnabled(string(input.Method)) {
		meter.Count("order.place.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", "method_disabled"),
		))
		return nil, ErrMethodDisabled
	}

	d, err := s.drafts.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if !d.ReadyForPayment() {
		meter.Count("order.place.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", "draft_incomplete"),
		))
		return nil, ErrDraftIncomplete
	}

	req := orderRequest(d, input.Method)

	var result *PlacementResult
	switch input.Method {
	case payment.MethodCashOnDelivery:
		result, err = s.placeCashOnDelivery(ctx, sessionID, d, req)
	case payment.MethodOffline:
		result, err = s.placeOffline(ctx, sessionID, req, input)
	case payment.MethodSSLCommerz:
		result, err = s.placeWithGateway(ctx, sessionID, d, req)
	default:
		err = fmt.Errorf("unsupported payment method %q", input.Method)
	}
	if err != nil {
		meter.Count("order.place.failed", 1, sentry.WithAttributes(
			attribute.String("method", string(input.Method)),
		))
		return nil, err
	}

	meter.Count("order.place.succeeded", 1, sentry.WithAttributes(
		attribute.String("method", string(input.Method)),
		attribute.Bool("redirects", result.Redirects()),
	))
	return result, nil
}

func orderRequest(d *draft.Draft, method payment.Method) storeapi.OrderRequest {
	return storeapi.OrderRequest{
		ShippingAddressID: d.ShippingAddressID,
		BillingAddressID:  d.BillingAddressID,
		SameAsShipping:    d.SameAsShipping,
		ShippingMethodID:  d.ShippingMethodID,
		CouponCode:        d.CouponCode,
		OrderNote:         d.OrderNote,
		PaymentMethod:     string(method),
	}
}

func (s *OrderService) placeCashOnDelivery(ctx context.Context, sessionID string, d *draft.Draft, req storeapi.OrderRequest) (*PlacementResult, error) {
	if s.profile.CODMaxAmount > 0 {
		summary, err := s.cart.Summary(ctx, d.CouponCode, d.ShippingMethodID)
		if err != nil {
			return nil, fmt.Errorf("failed to load cart summary: %w", err)
		}
		if summary.Total > s.profile.CODMaxAmount {
			return nil, ErrAmountOverLimit
		}
	}

	ids, err := s.orders.Place(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	s.drafts.Clear(ctx, sessionID)
	s.loggerFromContext(ctx).Info("order placed", "method", string(payment.MethodCashOnDelivery), "order_ids", ids)
	return &PlacementResult{Method: payment.MethodCashOnDelivery, OrderIDs: ids}, nil
}

func (s *OrderService) placeOffline(ctx context.Context, sessionID string, req storeapi.OrderRequest, input PlacementInput) (*PlacementResult, error) {
	methods, err := s.orders.OfflineMethods(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load offline payment methods: %w", err)
	}

	var selected *payment.OfflineMethod
	for i := range methods {
		if methods[i].ID == input.OfflineMethodID {
			selected = &methods[i]
			break
		}
	}
	if selected == nil {
		return nil, fmt.Errorf("unknown offline payment method %d", input.OfflineMethodID)
	}

	if missing := payment.ValidateOfflineInputs(*selected, input.OfflineInputs); len(missing) > 0 {
		return nil, fmt.Errorf("missing required payment fields: %s", strings.Join(missing, ", "))
	}

	encoded, err := payment.EncodeOfflineInputs(input.OfflineInputs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment fields: %w", err)
	}

	messages, err := s.orders.PlaceByOfflinePayment(ctx, storeapi.OfflineOrderRequest{
		OrderRequest:      req,
		MethodID:          selected.ID,
		MethodInformation: encoded,
		PaymentNote:       input.PaymentNote,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to place offline payment order: %w", err)
	}

	s.drafts.Clear(ctx, sessionID)
	s.loggerFromContext(ctx).Info("order placed", "method", string(payment.MethodOffline), "offline_method", selected.MethodName)
	return &PlacementResult{Method: payment.MethodOffline, Messages: messages}, nil
}

// placeWithGateway runs the two-phase gateway dispatch: a provisional order
// and a pending snapshot must both exist before the browser is released to
// the gateway. The snapshot is the only context available when the gateway
// calls back.
func (s *OrderService) placeWithGateway(ctx context.Context, sessionID string, d *draft.Draft, req storeapi.OrderRequest) (*PlacementResult, error) {
	logger := s.loggerFromContext(ctx)

	summary, err := s.cart.Summary(ctx, d.CouponCode, d.ShippingMethodID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart summary: %w", err)
	}

	ids, err := s.orders.PlaceWithDigitalPayment(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to place provisional order: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("provisional order placement returned no order ids")
	}
	orderID := ids[0]

	customer := auth.CustomerFromContext(ctx)
	pending := &draft.PendingOrder{
		OrderID:       orderID,
		PaymentMethod: string(payment.MethodSSLCommerz),
		Amount:        summary.Total,
		Currency:      s.profile.Currency,
	}
	if customer != nil {
		pending.Customer = draft.CustomerSnapshot{
			Name:  customer.Name,
			Email: customer.Email,
			Phone: customer.Phone,
		}
	}
	if err := s.drafts.SetPendingOrder(ctx, sessionID, pending); err != nil {
		return nil, fmt.Errorf("failed to record pending order: %w", err)
	}

	tranID := fmt.Sprintf("%d-%s", orderID, uuid.NewString())
	session, err := s.gateway.InitiateSession(ctx, sslcommerz.PaymentRequest{
		TransactionID:    tranID,
		Amount:           summary.Total,
		Currency:         s.profile.Currency,
		CustomerName:     pending.Customer.Name,
		CustomerEmail:    pending.Customer.Email,
		CustomerPhone:    pending.Customer.Phone,
		CallbackURL:      s.callbackURL,
		ProductName:      fmt.Sprintf("Order #%d", orderID),
		SessionReference: sessionID,
	})
	if err != nil {
		logger.Error("failed to open gateway session", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("failed to open payment session: %w", err)
	}

	logger.Info("gateway session opened", "order_id", orderID, "tran_id", tranID)
	return &PlacementResult{
		Method:     payment.MethodSSLCommerz,
		OrderIDs:   ids,
		PaymentURL: session.PaymentURL,
	}, nil
}
