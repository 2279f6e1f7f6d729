package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	return Config{
		StoreAPIBaseURL:         "https://api.example.com",
		CustomerTokenSecret:     "secret",
		BaseURL:                 "https://checkout.example.com",
		SSLCommerzStoreID:       "teststore",
		SSLCommerzStorePassword: "testpass",
		DraftStoreProvider:      "memory",
		CacheProvider:           "memory",
		RedisConnectionString:   "redis://localhost:6379/0",
		EncryptionKey:           "0123456789abcdef0123456789abcdef",
		LogFormat:               "text",
		Port:                    "8080",
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing store api url",
			mutate:  func(c *Config) { c.StoreAPIBaseURL = "" },
			wantErr: true,
		},
		{
			name:    "short encryption key",
			mutate:  func(c *Config) { c.EncryptionKey = "too-short" },
			wantErr: true,
		},
		{
			name:    "resend key without from address",
			mutate:  func(c *Config) { c.ResendAPIKey = "re_123" },
			wantErr: true,
		},
		{
			name: "resend key with from address",
			mutate: func(c *Config) {
				c.ResendAPIKey = "re_123"
				c.EmailFrom = "orders@example.com"
			},
		},
		{
			name:    "http base url outside localhost",
			mutate:  func(c *Config) { c.BaseURL = "http://checkout.example.com" },
			wantErr: true,
		},
		{
			name:   "http base url on localhost",
			mutate: func(c *Config) { c.BaseURL = "http://localhost:8080" },
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tc.mutate(&cfg)

			err := cfg.validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestCallbackURL(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.BaseURL = "https://checkout.example.com/"

	got := cfg.CallbackURL()
	want := "https://checkout.example.com/payment/sslcommerz/callback"
	if got != want {
		t.Fatalf("CallbackURL() = %q, want %q", got, want)
	}
}

func TestLoadMethodsProfile(t *testing.T) {
	t.Parallel()

	t.Run("empty path uses defaults", func(t *testing.T) {
		t.Parallel()

		profile, err := LoadMethodsProfile("")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !profile.MethodEnabled("ssl_commerz") {
			t.Fatalf("expected ssl_commerz enabled by default")
		}
		if profile.Currency != "BDT" {
			t.Fatalf("expected default currency BDT, got %q", profile.Currency)
		}
	})

	t.Run("file restricts methods", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "methods.yaml")
		content := "currency: BDT\nenabled_methods:\n  - cash_on_delivery\ncod_max_amount: 5000\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write profile: %v", err)
		}

		profile, err := LoadMethodsProfile(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if profile.MethodEnabled("ssl_commerz") {
			t.Fatalf("expected ssl_commerz disabled")
		}
		if !profile.MethodEnabled("cash_on_delivery") {
			t.Fatalf("expected cash_on_delivery enabled")
		}
		if profile.CODMaxAmount != 5000 {
			t.Fatalf("expected cod ceiling 5000, got %v", profile.CODMaxAmount)
		}
	})

	t.Run("unknown method rejected", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "methods.yaml")
		if err := os.WriteFile(path, []byte("enabled_methods:\n  - bitcoin\n"), 0o600); err != nil {
			t.Fatalf("failed to write profile: %v", err)
		}

		if _, err := LoadMethodsProfile(path); err == nil {
			t.Fatalf("expected error for unknown method")
		}
	})
}
