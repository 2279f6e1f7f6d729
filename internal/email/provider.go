// Package email sends order confirmation mail after settled payments.
package email

import "context"

type Provider interface {
	SendEmail(ctx context.Context, email *Email) error
}

type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// NoopProvider is used when no email credentials are configured; checkout
// must not depend on mail delivery.
type NoopProvider struct{}

func (NoopProvider) SendEmail(ctx context.Context, email *Email) error {
	return nil
}
