// Package auth verifies storefront-issued customer bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("customer token is required")
	ErrInvalidToken = errors.New("customer token is invalid")
)

// Customer carries the identity claims the storefront backend embeds in its
// customer tokens. The orchestrator never issues tokens itself.
type Customer struct {
	ID    int64
	Name  string
	Email string
	Phone string
	// Token is the raw bearer token, forwarded on remote API calls.
	Token string
}

type customerClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	jwt.RegisteredClaims
}

// Verifier validates customer tokens against the shared storefront secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("customer token secret is required")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Parse verifies the token signature and extracts the customer identity.
func (v *Verifier) Parse(tokenString string) (*Customer, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := &customerClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	customerID, err := parseCustomerID(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return &Customer{
		ID:    customerID,
		Name:  claims.Name,
		Email: claims.Email,
		Phone: claims.Phone,
		Token: tokenString,
	}, nil
}

func parseCustomerID(subject string) (int64, error) {
	if subject == "" {
		return 0, fmt.Errorf("missing subject claim")
	}
	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid subject claim: %q", subject)
	}
	return id, nil
}

type contextKey struct{}

// WithCustomer returns a context carrying the authenticated customer.
func WithCustomer(ctx context.Context, customer *Customer) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, customer)
}

// CustomerFromContext returns the authenticated customer, if any.
func CustomerFromContext(ctx context.Context) *Customer {
	if ctx == nil {
		return nil
	}
	customer, ok := ctx.Value(contextKey{}).(*Customer)
	if !ok {
		return nil
	}
	return customer
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
