package notify

import (
	"context"
	"fmt"

	resend "github.com/resend/resend-go/v3"
)

// ResendProvider delivers notifications by email for customers who gave an
// address at checkout.
type ResendProvider struct {
	from   string
	client *resend.Client
}

func NewResendProvider(apiKey, from string) *ResendProvider {
	return &ResendProvider{
		from:   from,
		client: resend.NewClient(apiKey),
	}
}

func (r *ResendProvider) Send(ctx context.Context, msg *Message) error {
	if msg == nil {
		return fmt.Errorf("message is required")
	}
	if msg.Email == "" {
		return fmt.Errorf("recipient email is required")
	}
	if r.client == nil {
		return fmt.Errorf("resend client not configured")
	}

	params := &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{msg.Email},
		Subject: msg.Subject,
		Text:    msg.Text,
	}
	if _, err := r.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send email via resend: %w", err)
	}
	return nil
}
