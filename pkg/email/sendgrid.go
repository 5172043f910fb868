package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Sender delivers a single transactional email.
type Sender interface {
	Send(ctx context.Context, toAddress, toName, subject, htmlBody string) error
}

// SendGridSender sends mail through the SendGrid v3 API.
type SendGridSender struct {
	client   *sendgrid.Client
	fromAddr string
	fromName string
	logger   *zap.Logger
}

// NewSendGridSender creates a SendGrid-backed sender.
func NewSendGridSender(apiKey, fromAddr, fromName string, logger *zap.Logger) *SendGridSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendGridSender{
		client:   sendgrid.NewSendClient(apiKey),
		fromAddr: fromAddr,
		fromName: fromName,
		logger:   logger,
	}
}

// Send delivers one email. A non-2xx API response is an error.
func (s *SendGridSender) Send(ctx context.Context, toAddress, toName, subject, htmlBody string) error {
	from := mail.NewEmail(s.fromName, s.fromAddr)
	to := mail.NewEmail(toName, toAddress)
	message := mail.NewSingleEmail(from, subject, to, "", htmlBody)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		s.logger.Warn("sendgrid rejected message",
			zap.Int("status", resp.StatusCode), zap.String("body", resp.Body))
		return fmt.Errorf("sendgrid status %d", resp.StatusCode)
	}
	return nil
}
