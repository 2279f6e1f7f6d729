package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/bazarioapp/bazario/internal/cache"
	"github.com/bazarioapp/bazario/internal/draft"
	"github.com/bazarioapp/bazario/internal/email"
	"github.com/bazarioapp/bazario/internal/logging"
	"github.com/bazarioapp/bazario/internal/observability"
	"github.com/bazarioapp/bazario/internal/payment"
	"github.com/bazarioapp/bazario/internal/sslcommerz"
	"github.com/bazarioapp/bazario/internal/storeapi"
)

const (
	gatewayName = "sslcommerz"

	// processedTTL bounds how long a settled transaction id suppresses
	// replays. Gateway hops for one payment land within minutes.
	processedTTL = 24 * time.Hour

	successRedirectDelay = 3 * time.Second
	failureRedirectDelay = 3 * time.Second
	supportRedirectDelay = 5 * time.Second
)

// Outcome is the resolved state of one callback hop, plus where and when
// the browser should be sent next. A zero RedirectPath means stay put.
type Outcome struct {
	State         payment.State
	Message       string
	OrderIDs      []int64
	RedirectPath  string
	RedirectDelay time.Duration
}

// CallbackService reconciles gateway return hops into a terminal payment
// state. Hops can repeat, arrive out of band, or carry no parameters at
// all; the reconciler must hold up under all three.
type CallbackService struct {
	orders    orderAPI
	drafts    *draft.Manager
	processed cache.Provider
	emails    email.Provider
	logger    *slog.Logger
}

func NewCallbackService(
	orders orderAPI,
	drafts *draft.Manager,
	processed cache.Provider,
	emails email.Provider,
	logger *slog.Logger,
) *CallbackService {
	return &CallbackService{
		orders:    orders,
		drafts:    drafts,
		processed: processed,
		emails:    emails,
		logger:    logger,
	}
}

func (s *CallbackService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// Reconcile processes one gateway callback hop for the given browser
// session and returns the outcome to render.
func (s *CallbackService) Reconcile(ctx context.Context, sessionID string, params sslcommerz.CallbackParams) (*Outcome, error) {
	span := sentry.StartSpan(
		ctx,
		"service.callback.reconcile",
		sentry.WithOpName("service.callback"),
		sentry.WithDescription("Reconcile"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.Count("callback.received", 1, sentry.WithAttributes(
		attribute.String("status", params.Status),
	))

	// Early hops arrive before the gateway appends its parameters. Hold
	// in processing and let the page poll for the parameterized hop.
	if params.TransactionID == "" {
		return &Outcome{
			State:   payment.StateProcessing,
			Message: "Your payment is being processed.",
		}, nil
	}

	if outcome, ok := s.replay(ctx, params.TransactionID); ok {
		meter.Count("callback.replayed", 1)
		logger.Info("callback replay suppressed", "tran_id", params.TransactionID)
		return outcome, nil
	}

	token := payment.ParseStatusToken(params.Status)
	switch token {
	case payment.StatusSuccess:
		return s.settleSuccess(ctx, sessionID, params)
	case payment.StatusFailed:
		return s.settleAbandoned(ctx, sessionID, params, payment.StateFailed,
			"Your payment could not be completed. You have not been charged.")
	case payment.StatusCanceled:
		return s.settleAbandoned(ctx, sessionID, params, payment.StateCanceled,
			"You canceled the payment. Your cart is unchanged.")
	default:
		// A token we do not know is not a settlement. Keep the attempt
		// open rather than guessing a terminal state.
		logger.Warn("unrecognized gateway status", "status", params.Status, "tran_id", params.TransactionID)
		meter.Count("callback.unknown_status", 1, sentry.WithAttributes(
			attribute.String("status", params.Status),
		))
		return &Outcome{
			State:   payment.StateProcessing,
			Message: "Your payment is being processed.",
		}, nil
	}
}

// settleSuccess verifies the payment against the pending snapshot and, on
// confirmation, finalizes the order and clears the draft.
func (s *CallbackService) settleSuccess(ctx context.Context, sessionID string, params sslcommerz.CallbackParams) (*Outcome, error) {
	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	d, err := s.drafts.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if d.PendingOrder == nil {
		// The snapshot is gone: expired session, cleared draft, or a hop
		// for a session we never opened. The charge may exist, so this
		// is a support case, not a retry.
		logger.Error("success callback without pending order", "tran_id", params.TransactionID)
		meter.Count("callback.orphaned", 1)
		outcome := &Outcome{
			State:         payment.StateFailed,
			Message:       "We could not match your payment to an order. Please contact support before retrying.",
			RedirectPath:  "/cart",
			RedirectDelay: supportRedirectDelay,
		}
		s.markProcessed(ctx, params.TransactionID, outcome.State)
		return outcome, nil
	}

	pending := d.PendingOrder
	logger.Info("verifying gateway payment",
		"state", string(payment.StateVerifying),
		"tran_id", params.TransactionID,
		"order_id", pending.OrderID,
		"amount", params.Amount)
	meter.Count("callback.state", 1, sentry.WithAttributes(
		attribute.String("state", string(payment.StateVerifying)),
	))

	result, err := s.orders.VerifyAndComplete(ctx, storeapi.VerificationRequest{
		OrderID:       pending.OrderID,
		TransactionID: params.TransactionID,
		BankTranID:    params.BankTranID,
		ValidationID:  params.ValidationID,
		Amount:        params.Amount,
		Currency:      params.Currency,
		PaymentMethod: pending.PaymentMethod,
		CustomerName:  pending.Customer.Name,
		CustomerEmail: pending.Customer.Email,
		CustomerPhone: pending.Customer.Phone,
	})
	if err != nil {
		logger.Error("payment verification failed",
			"tran_id", params.TransactionID,
			"order_id", pending.OrderID,
			"error", err)
		meter.Count("callback.settled", 1, sentry.WithAttributes(
			attribute.String("state", string(payment.StateFailed)),
			attribute.String("reason", "verification_failed"),
		))
		outcome := &Outcome{
			State:         payment.StateFailed,
			Message:       "We could not verify your payment. Please contact support before retrying.",
			RedirectPath:  "/cart",
			RedirectDelay: supportRedirectDelay,
		}
		s.markProcessed(ctx, params.TransactionID, outcome.State)
		return outcome, nil
	}

	orderIDs := result.OrderIDs
	if len(orderIDs) == 0 {
		orderIDs = []int64{pending.OrderID}
	}

	// The one and only clear. Every later hop for this transaction is
	// answered from the processed cache.
	s.drafts.Clear(ctx, sessionID)
	s.markProcessed(ctx, params.TransactionID, payment.StateSuccess)

	s.sendConfirmation(ctx, pending, orderIDs)

	logger.Info("gateway payment settled",
		"tran_id", params.TransactionID,
		"order_ids", orderIDs)
	meter.Count("callback.settled", 1, sentry.WithAttributes(
		attribute.String("state", string(payment.StateSuccess)),
	))

	return &Outcome{
		State:         payment.StateSuccess,
		Message:       "Payment received. Thank you for your order!",
		OrderIDs:      orderIDs,
		RedirectPath:  "/",
		RedirectDelay: successRedirectDelay,
	}, nil
}

// settleAbandoned handles failure and cancel tokens: the pending snapshot
// is dropped but the rest of the draft survives so the shopper can retry
// with another method.
func (s *CallbackService) settleAbandoned(ctx context.Context, sessionID string, params sslcommerz.CallbackParams, state payment.State, message string) (*Outcome, error) {
	if err := s.drafts.ClearPendingOrder(ctx, sessionID); err != nil {
		s.loggerFromContext(ctx).Warn("failed to clear pending order", "tran_id", params.TransactionID, "error", err)
	}
	s.markProcessed(ctx, params.TransactionID, state)

	s.loggerFromContext(ctx).Info("gateway payment abandoned",
		"tran_id", params.TransactionID,
		"state", string(state))
	observability.MeterFromContext(ctx).Count("callback.settled", 1, sentry.WithAttributes(
		attribute.String("state", string(state)),
	))

	return &Outcome{
		State:         state,
		Message:       message,
		RedirectPath:  "/cart",
		RedirectDelay: failureRedirectDelay,
	}, nil
}

// replay answers a hop for an already-settled transaction without touching
// the draft or the remote API again.
func (s *CallbackService) replay(ctx context.Context, tranID string) (*Outcome, bool) {
	value, err := s.processed.Get(ctx, cache.CallbackKey(gatewayName, tranID))
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			s.loggerFromContext(ctx).Warn("processed-transaction lookup failed", "tran_id", tranID, "error", err)
		}
		return nil, false
	}

	state := payment.State(value)
	outcome := &Outcome{State: state}
	switch state {
	case payment.StateSuccess:
		outcome.Message = "Payment received. Thank you for your order!"
		outcome.RedirectPath = "/"
		outcome.RedirectDelay = successRedirectDelay
	case payment.StateCanceled:
		outcome.Message = "You canceled the payment. Your cart is unchanged."
		outcome.RedirectPath = "/cart"
		outcome.RedirectDelay = failureRedirectDelay
	default:
		outcome.State = payment.StateFailed
		outcome.Message = "Your payment could not be completed."
		outcome.RedirectPath = "/cart"
		outcome.RedirectDelay = failureRedirectDelay
	}
	return outcome, true
}

func (s *CallbackService) markProcessed(ctx context.Context, tranID string, state payment.State) {
	err := s.processed.Set(ctx, cache.CallbackKey(gatewayName, tranID), string(state), processedTTL)
	if err != nil {
		s.loggerFromContext(ctx).Warn("failed to record processed transaction", "tran_id", tranID, "error", err)
	}
}

func (s *CallbackService) sendConfirmation(ctx context.Context, pending *draft.PendingOrder, orderIDs []int64) {
	if s.emails == nil || pending.Customer.Email == "" {
		return
	}
	msg := email.OrderConfirmation(pending.Customer.Email, pending.Customer.Name, orderIDs, pending.Amount, pending.Currency)
	if err := s.emails.SendEmail(ctx, msg); err != nil {
		s.loggerFromContext(ctx).Warn("failed to send order confirmation", "error", err)
		observability.MeterFromContext(ctx).Count("callback.side_effect_failed", 1, sentry.WithAttributes(
			attribute.String("reason", "confirmation_email_failed"),
		))
	}
}
