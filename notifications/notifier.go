// Package notifications emails citizens and officers about changes to their
// records and accounts.
package notifications

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	templates "github.com/gramasevaka/gs-portal-api/templates/html"
)

// Recipient is the addressee of a notification.
type Recipient struct {
	Name  string
	Email string
}

// Notifier sends notifications. Implementations must be safe for concurrent use.
type Notifier interface {
	StatusChanged(ctx context.Context, to Recipient, d templates.StatusEmailData) error
	AccountApproved(ctx context.Context, to Recipient, username string) error
}

// SendGrid delivers notifications by email through SendGrid.
type SendGrid struct {
	client   *sendgrid.Client
	fromName string
	from     string
}

// NewSendGrid returns a SendGrid notifier, or a Nop notifier when apiKey is empty.
func NewSendGrid(apiKey, from string) Notifier {
	if apiKey == "" {
		zap.S().Infow("SENDGRID_API_KEY not set, email notifications disabled")
		return Nop{}
	}
	return &SendGrid{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: "Grama Sevaka Portal",
		from:     from,
	}
}

// StatusChanged implements Notifier.
func (s *SendGrid) StatusChanged(ctx context.Context, to Recipient, d templates.StatusEmailData) error {
	subject, htmlBody, plain := templates.RenderStatusEmail(d)
	return s.send(ctx, to, subject, htmlBody, plain)
}

// AccountApproved implements Notifier.
func (s *SendGrid) AccountApproved(ctx context.Context, to Recipient, username string) error {
	subject, htmlBody, plain := templates.RenderAccountApprovedEmail(to.Name, username)
	return s.send(ctx, to, subject, htmlBody, plain)
}

func (s *SendGrid) send(ctx context.Context, to Recipient, subject, htmlBody, plain string) error {
	if to.Email == "" {
		return nil
	}
	message := buildMessage(s.fromName, s.from, to, subject, htmlBody, plain)
	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		zap.S().Errorw("failed to send email", "error", err, "to", to.Email)
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", to.Email)
		return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}
	zap.S().Infow("email sent successfully", "to", to.Email, "subject", subject)
	return nil
}

func buildMessage(fromName, fromAddr string, to Recipient, subject, htmlBody, plain string) *mail.SGMailV3 {
	from := mail.NewEmail(fromName, fromAddr)
	return mail.NewSingleEmail(from, subject, mail.NewEmail(to.Name, to.Email), plain, htmlBody)
}

// Nop discards every notification.
type Nop struct{}

// StatusChanged implements Notifier.
func (Nop) StatusChanged(context.Context, Recipient, templates.StatusEmailData) error { return nil }

// AccountApproved implements Notifier.
func (Nop) AccountApproved(context.Context, Recipient, string) error { return nil }
