// Package email provides transactional email delivery.
package email

import (
	"context"
)

type Provider interface {
	SendEmail(ctx context.Context, email *Email) error
	ValidateAPIKey(ctx context.Context) error
}

type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}
