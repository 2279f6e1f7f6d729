// Package draft provides the checkout draft store: the per-browser-session
// staging record accumulated across the checkout and payment steps.
package draft

import "time"

// Draft is the staging record for one checkout attempt. It is ephemeral and
// session-scoped; it never holds order line items or totals.
type Draft struct {
	ShippingAddressID int64  `json:"shipping_address_id,omitempty"`
	BillingAddressID  int64  `json:"billing_address_id,omitempty"`
	SameAsShipping    bool   `json:"same_as_shipping"`
	ShippingMethodID  int64  `json:"shipping_method_id,omitempty"`
	CouponCode        string `json:"coupon_code,omitempty"`
	OrderNote         string `json:"order_note,omitempty"`

	// PendingOrder is written when a gateway payment is initiated and is
	// the sole resumption context for the callback leg.
	PendingOrder *PendingOrder `json:"pending_order,omitempty"`

	UpdatedAt int64 `json:"updated_at"`
}

// CustomerSnapshot captures the contact fields needed to verify a gateway
// payment after the browser round-trip, without assuming any in-memory
// state survived.
type CustomerSnapshot struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// PendingOrder describes a provisional order awaiting gateway settlement.
type PendingOrder struct {
	OrderID       int64            `json:"order_id"`
	PaymentMethod string           `json:"payment_method"`
	Customer      CustomerSnapshot `json:"customer"`
	Amount        float64          `json:"amount"`
	Currency      string           `json:"currency"`
	InitiatedAt   int64            `json:"initiated_at"`
}

// New returns an empty draft with the billing default applied.
func New() *Draft {
	return &Draft{SameAsShipping: true}
}

// Update is a partial write; nil fields are left untouched.
type Update struct {
	ShippingAddressID *int64
	BillingAddressID  *int64
	SameAsShipping    *bool
	ShippingMethodID  *int64
	CouponCode        *string
	OrderNote         *string
}

// Apply merges the update into the draft and re-establishes the billing
// invariant: when same-as-shipping is set, the billing id mirrors the
// shipping id.
func (d *Draft) Apply(u Update) {
	if u.ShippingAddressID != nil {
		d.ShippingAddressID = *u.ShippingAddressID
	}
	if u.BillingAddressID != nil {
		d.BillingAddressID = *u.BillingAddressID
	}
	if u.SameAsShipping != nil {
		d.SameAsShipping = *u.SameAsShipping
	}
	if u.ShippingMethodID != nil {
		d.ShippingMethodID = *u.ShippingMethodID
	}
	if u.CouponCode != nil {
		d.CouponCode = *u.CouponCode
	}
	if u.OrderNote != nil {
		d.OrderNote = *u.OrderNote
	}

	if d.SameAsShipping {
		d.BillingAddressID = d.ShippingAddressID
	}
	d.UpdatedAt = time.Now().Unix()
}

// ReadyForPayment reports whether the payment step's preconditions hold.
func (d *Draft) ReadyForPayment() bool {
	return d != nil && d.ShippingAddressID != 0
}

func (d *Draft) clone() *Draft {
	if d == nil {
		return nil
	}
	cloned := *d
	if d.PendingOrder != nil {
		pending := *d.PendingOrder
		cloned.PendingOrder = &pending
	}
	return &cloned
}
