// Package payment models the settlement paths a checkout can take and the
// gateway payment session state machine.
package payment

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Method is one of the mutually exclusive settlement paths.
type Method string

const (
	MethodCashOnDelivery Method = "cash_on_delivery"
	MethodOffline        Method = "offline_payment"
	MethodSSLCommerz     Method = "ssl_commerz"
)

// ParseMethod validates a client-supplied payment method token.
func ParseMethod(value string) (Method, error) {
	switch Method(strings.TrimSpace(value)) {
	case MethodCashOnDelivery:
		return MethodCashOnDelivery, nil
	case MethodOffline:
		return MethodOffline, nil
	case MethodSSLCommerz:
		return MethodSSLCommerz, nil
	default:
		return "", fmt.Errorf("unknown payment method: %q", value)
	}
}

// OfflineMethod is a remote-provided manual payment method (bank transfer,
// mobile banking, ...). Each method declares the customer-input fields it
// needs.
type OfflineMethod struct {
	ID         int64              `json:"id"`
	MethodName string             `json:"method_name"`
	Fields     []OfflineInputSpec `json:"method_informations"`
}

// OfflineInputSpec declares one structured customer-input field.
type OfflineInputSpec struct {
	Name        string `json:"customer_input"`
	Placeholder string `json:"customer_placeholder"`
	Required    bool   `json:"is_required"`
}

// EncodeOfflineInputs serializes the customer's field values as a
// base64-encoded JSON object. The remote order API expects exactly this
// encoding; it is an API contract quirk, not a design choice to revisit.
func EncodeOfflineInputs(values map[string]string) (string, error) {
	if values == nil {
		values = map[string]string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode offline payment inputs: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// ValidateOfflineInputs checks the submitted values against the method's
// declared fields. Returns the names of required fields that are missing.
func ValidateOfflineInputs(method OfflineMethod, values map[string]string) []string {
	var missing []string
	for _, spec := range method.Fields {
		if !spec.Required {
			continue
		}
		if strings.TrimSpace(values[spec.Name]) == "" {
			missing = append(missing, spec.Name)
		}
	}
	return missing
}
