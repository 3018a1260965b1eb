package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wahealthh/recall-product-backend/internal/platform/metrics"
)

// SendGridSender sends through the SendGrid v3 mail API.
type SendGridSender struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridSender(apiKey, fromAddress, fromName string) *SendGridSender {
	return &SendGridSender{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromAddress),
	}
}

func (s *SendGridSender) SendEmail(ctx context.Context, to, subject, htmlBody string) (int, error) {
	msg := mail.NewSingleEmail(s.from, subject, mail.NewEmail("", to), "", htmlBody)

	start := time.Now()
	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		metrics.ObserveUpstream("sendgrid", "send", 0, start)
		return 0, fmt.Errorf("sendgrid send: %w", err)
	}
	metrics.ObserveUpstream("sendgrid", "send", resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, resp.Body)
	}
	return resp.StatusCode, nil
}
