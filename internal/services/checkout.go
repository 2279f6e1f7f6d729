package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/bazarioapp/bazario/internal/address"
	"github.com/bazarioapp/bazario/internal/draft"
	"github.com/bazarioapp/bazario/internal/logging"
	"github.com/bazarioapp/bazario/internal/observability"
	"github.com/bazarioapp/bazario/internal/storeapi"
)

// ValidationError carries field-level messages back to the submitting form.
// No network call was made, or the remote call's field errors are mapped
// through unchanged.
type ValidationError struct {
	Fields []address.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

type addressAPI interface {
	List(ctx context.Context) (map[string][]address.Address, error)
	Create(ctx context.Context, a address.Address) (int64, error)
}

type cartAPI interface {
	Summary(ctx context.Context, couponCode string, shippingMethodID int64) (*storeapi.CartSummary, error)
}

// CheckoutService owns the checkout step: address reconciliation and draft
// accumulation.
type CheckoutService struct {
	addresses addressAPI
	cart      cartAPI
	drafts    *draft.Manager
	logger    *slog.Logger
}

func NewCheckoutService(addresses addressAPI, cart cartAPI, drafts *draft.Manager, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		addresses: addresses,
		cart:      cart,
		drafts:    drafts,
		logger:    logger,
	}
}

func (s *CheckoutService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// AddressInput is the checkout form's address submission.
type AddressInput struct {
	Shipping address.Address
	// Billing is only consulted when SameAsShipping is false.
	Billing        *address.Address
	SameAsShipping bool
	// SaveAsNew forces creation even when an identical saved address
	// exists.
	SaveAsNew bool
}

// SubmitAddress reconciles the submitted address(es) against the saved
// address book and records the resulting ids in the draft. Nothing is
// persisted when reconciliation fails.
func (s *CheckoutService) SubmitAddress(ctx context.Context, sessionID string, input AddressInput) (*draft.Draft, error) {
	span := sentry.StartSpan(
		ctx,
		"service.checkout.submit_address",
		sentry.WithOpName("service.checkout"),
		sentry.WithDescription("SubmitAddress"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.Count("checkout.address.submitted", 1)

	if fieldErrs := address.Validate(input.Shipping); len(fieldErrs) > 0 {
		meter.Count("checkout.address.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", "shipping_invalid"),
		))
		return nil, &ValidationError{Fields: fieldErrs}
	}
	if !input.SameAsShipping {
		if input.Billing == nil {
			meter.Count("checkout.address.rejected", 1, sentry.WithAttributes(
				attribute.String("reason", "billing_missing"),
			))
			return nil, &ValidationError{Fields: []address.FieldError{{
				Field:   "billing",
				Message: "billing address is required when not same as shipping",
			}}}
		}
		if fieldErrs := address.Validate(*input.Billing); len(fieldErrs) > 0 {
			meter.Count("checkout.address.rejected", 1, sentry.WithAttributes(
				attribute.String("reason", "billing_invalid"),
			))
			return nil, &ValidationError{Fields: fieldErrs}
		}
	}

	grouped, err := s.addresses.List(ctx)
	if err != nil {
		meter.Count("checkout.address.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "list_failed"),
		))
		return nil, fmt.Errorf("failed to load saved addresses: %w", err)
	}
	saved := address.Flatten(grouped)

	shippingID, err := s.resolveAddress(ctx, input.Shipping, saved, input.SaveAsNew)
	if err != nil {
		return nil, err
	}

	billingID := shippingID
	if !input.SameAsShipping {
		billing := *input.Billing
		billing.IsBilling = true
		billingID, err = s.resolveAddress(ctx, billing, saved, input.SaveAsNew)
		if err != nil {
			return nil, err
		}
	}

	same := input.SameAsShipping
	updated, err := s.drafts.Update(ctx, sessionID, draft.Update{
		ShippingAddressID: &shippingID,
		BillingAddressID:  &billingID,
		SameAsShipping:    &same,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update draft: %w", err)
	}

	logger.Info("checkout address recorded",
		"shipping_address_id", shippingID,
		"billing_address_id", billingID,
		"same_as_shipping", input.SameAsShipping)
	meter.Count("checkout.address.recorded", 1)

	return updated, nil
}

// resolveAddress reuses a tuple-identical saved address unless the caller
// explicitly asked for a new record.
func (s *CheckoutService) resolveAddress(ctx context.Context, candidate address.Address, saved []address.Address, saveAsNew bool) (int64, error) {
	meter := observability.MeterFromContext(ctx)

	if !saveAsNew {
		if id, found := address.FindExisting(candidate, saved); found {
			meter.Count("checkout.address.reused", 1)
			return id, nil
		}
	}

	candidate.AddressType = address.NormalizeType(candidate.AddressType)
	id, err := s.addresses.Create(ctx, candidate)
	if err != nil {
		meter.Count("checkout.address.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "create_failed"),
		))
		var apiErr *storeapi.APIError
		if errors.As(err, &apiErr) && apiErr.IsValidation() {
			fields := make([]address.FieldError, 0, len(apiErr.FieldErrors))
			for field, message := range apiErr.FieldErrors {
				fields = append(fields, address.FieldError{Field: field, Message: message})
			}
			return 0, &ValidationError{Fields: fields}
		}
		return 0, fmt.Errorf("failed to create address: %w", err)
	}
	meter.Count("checkout.address.created", 1)
	return id, nil
}

// UpdateDraft applies shipping method, coupon, note and billing-flag
// changes from the checkout step.
func (s *CheckoutService) UpdateDraft(ctx context.Context, sessionID string, update draft.Update) (*draft.Draft, error) {
	span := sentry.StartSpan(
		ctx,
		"service.checkout.update_draft",
		sentry.WithOpName("service.checkout"),
		sentry.WithDescription("UpdateDraft"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	updated, err := s.drafts.Update(ctx, sessionID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update draft: %w", err)
	}
	return updated, nil
}

// DraftView is the checkout/payment page's read model: the draft plus the
// remote cart summary mirror.
type DraftView struct {
	Draft   *draft.Draft
	Summary *storeapi.CartSummary
}

// View returns the current draft and the remote summary for display. A
// summary fetch failure degrades to a draft-only view; totals are display
// state, not a precondition.
func (s *CheckoutService) View(ctx context.Context, sessionID string) (*DraftView, error) {
	d, err := s.drafts.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	view := &DraftView{Draft: d}
	summary, err := s.cart.Summary(ctx, d.CouponCode, d.ShippingMethodID)
	if err != nil {
		s.loggerFromContext(ctx).Warn("failed to load cart summary", "error", err)
		return view, nil
	}
	view.Summary = summary
	return view, nil
}
