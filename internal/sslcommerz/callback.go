package sslcommerz

import (
	"net/url"
	"strconv"
	"strings"
)

// CallbackParams are the query parameters the gateway appends when it
// redirects the browser back. The gateway may deliver them across more than
// one redirect hop, so any field can be empty on an intermediate hop.
type CallbackParams struct {
	Status        string
	TransactionID string
	ValidationID  string
	BankTranID    string
	Amount        float64
	Currency      string
	CardType      string
	CardIssuer    string
	// SessionReference echoes the value_a passthrough from session
	// initiation; it identifies the checkout session when the browser's
	// cookie is not attached to the hop.
	SessionReference string
}

// ParseCallback extracts the gateway fields from the callback request's
// query (or form) values. Missing fields are left zero; the reconciler
// decides what absence means.
func ParseCallback(values url.Values) CallbackParams {
	params := CallbackParams{
		Status:        strings.TrimSpace(values.Get("status")),
		TransactionID: strings.TrimSpace(values.Get("tran_id")),
		ValidationID:  strings.TrimSpace(values.Get("val_id")),
		BankTranID:    strings.TrimSpace(values.Get("bank_tran_id")),
		Currency:      strings.TrimSpace(values.Get("currency")),
		CardType:      strings.TrimSpace(values.Get("card_type")),
		CardIssuer:    strings.TrimSpace(values.Get("card_issuer")),

		SessionReference: strings.TrimSpace(values.Get("value_a")),
	}

	if raw := strings.TrimSpace(values.Get("amount")); raw != "" {
		if amount, err := strconv.ParseFloat(raw, 64); err == nil {
			params.Amount = amount
		}
	}

	return params
}
