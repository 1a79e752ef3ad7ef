// Package notify sends order notifications to customers over the channel
// configured in settings.
package notify

import (
	"context"
	"fmt"
)

type Provider interface {
	Send(ctx context.Context, msg *Message) error
}

type Message struct {
	Phone   string
	Email   string
	Subject string
	Text    string
}

type Config struct {
	Channel string // "sms", "whatsapp", "email" or "none"

	// Gateway settings for sms/whatsapp.
	GatewayURL string
	APIKey     string
	Sender     string

	// Resend settings for email.
	ResendAPIKey string
	FromEmail    string
}

func NewProvider(config Config) (Provider, error) {
	switch config.Channel {
	case "sms":
		return NewGatewayProvider(config.GatewayURL, config.APIKey, config.Sender, ChannelSMS), nil
	case "whatsapp":
		return NewGatewayProvider(config.GatewayURL, config.APIKey, config.Sender, ChannelWhatsApp), nil
	case "email":
		return NewResendProvider(config.ResendAPIKey, config.FromEmail), nil
	case "", "none":
		return NoopProvider{}, nil
	default:
		return nil, fmt.Errorf("notification channel must be 'sms', 'whatsapp', 'email' or 'none'")
	}
}
