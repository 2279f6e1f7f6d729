package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "storefront-shared-secret"

func signToken(t *testing.T, secret, subject string, extra map[string]any) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestVerifierParse(t *testing.T) {
	t.Parallel()

	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewVerifier() error: %v", err)
	}

	t.Run("valid token", func(t *testing.T) {
		t.Parallel()

		signed := signToken(t, testSecret, "42", map[string]any{
			"name":  "Rahim Uddin",
			"email": "rahim@example.com",
			"phone": "+8801712345678",
		})

		customer, err := verifier.Parse(signed)
		if err != nil {
			t.Fatalf("Parse() error: %v", err)
		}
		if customer.ID != 42 {
			t.Fatalf("customer ID = %d, want 42", customer.ID)
		}
		if customer.Email != "rahim@example.com" {
			t.Fatalf("customer email = %q", customer.Email)
		}
		if customer.Token != signed {
			t.Fatalf("raw token not preserved")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()

		signed := signToken(t, "other-secret", "42", nil)
		if _, err := verifier.Parse(signed); err == nil {
			t.Fatalf("expected error for wrong secret")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()

		claims := jwt.MapClaims{
			"sub": "42",
			"exp": time.Now().Add(-time.Hour).Unix(),
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(testSecret))
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}
		if _, err := verifier.Parse(signed); err == nil {
			t.Fatalf("expected error for expired token")
		}
	})

	t.Run("non numeric subject", func(t *testing.T) {
		t.Parallel()

		signed := signToken(t, testSecret, "not-a-number", nil)
		if _, err := verifier.Parse(signed); err == nil {
			t.Fatalf("expected error for non-numeric subject")
		}
	})

	t.Run("empty token", func(t *testing.T) {
		t.Parallel()

		if _, err := verifier.Parse(""); err != ErrMissingToken {
			t.Fatalf("Parse(\"\") error = %v, want ErrMissingToken", err)
		}
	})
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "standard bearer", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "missing scheme", header: "abc.def.ghi", want: ""},
		{name: "empty header", header: "", want: ""},
		{name: "scheme only", header: "Bearer ", want: ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := BearerToken(tc.header); got != tc.want {
				t.Fatalf("BearerToken(%q) = %q, want %q", tc.header, got, tc.want)
			}
		})
	}
}
