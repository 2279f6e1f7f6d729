package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MethodsProfile restricts which settlement paths the storefront offers and
// carries the currency the gateway is charged in.
type MethodsProfile struct {
	Currency       string   `yaml:"currency"`
	EnabledMethods []string `yaml:"enabled_methods"`
	// Orders above this amount cannot be placed as cash on delivery.
	// Zero means no ceiling.
	CODMaxAmount float64 `yaml:"cod_max_amount"`
}

// DefaultMethodsProfile is used when no profile file is configured.
func DefaultMethodsProfile() *MethodsProfile {
	return &MethodsProfile{
		Currency:       "BDT",
		EnabledMethods: []string{"cash_on_delivery", "offline_payment", "ssl_commerz"},
	}
}

// LoadMethodsProfile reads the payment-methods profile from path, falling
// back to the default profile when path is empty.
func LoadMethodsProfile(path string) (*MethodsProfile, error) {
	if path == "" {
		return DefaultMethodsProfile(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read payment methods profile: %w", err)
	}

	profile := DefaultMethodsProfile()
	if err := yaml.Unmarshal(content, profile); err != nil {
		return nil, fmt.Errorf("failed to parse payment methods profile: %w", err)
	}

	if profile.Currency == "" {
		profile.Currency = "BDT"
	}
	if len(profile.EnabledMethods) == 0 {
		return nil, fmt.Errorf("payment methods profile enables no methods")
	}
	for _, method := range profile.EnabledMethods {
		switch method {
		case "cash_on_delivery", "offline_payment", "ssl_commerz":
		default:
			return nil, fmt.Errorf("unknown payment method in profile: %s", method)
		}
	}

	return profile, nil
}

// MethodEnabled reports whether the profile allows the given method.
func (p *MethodsProfile) MethodEnabled(method string) bool {
	if p == nil {
		return false
	}
	for _, enabled := range p.EnabledMethods {
		if enabled == method {
			return true
		}
	}
	return false
}
