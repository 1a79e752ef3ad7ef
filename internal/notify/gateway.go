package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// GatewayProvider sends SMS or WhatsApp messages through an HTTP messaging
// gateway. Both channels share one wire format; the gateway routes on the
// channel field.
type GatewayProvider struct {
	baseURL string
	apiKey  string
	sender  string
	channel Channel
}

type gatewayRequest struct {
	Channel string `json:"channel"`
	From    string `json:"from"`
	To      string `json:"to"`
	Body    string `json:"body"`
}

type gatewayResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func NewGatewayProvider(baseURL, apiKey, sender string, channel Channel) *GatewayProvider {
	return &GatewayProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		sender:  sender,
		channel: channel,
	}
}

func (g *GatewayProvider) Send(ctx context.Context, msg *Message) error {
	if msg == nil {
		return fmt.Errorf("message is required")
	}
	if msg.Phone == "" {
		return fmt.Errorf("recipient phone is required")
	}
	if g.baseURL == "" || g.apiKey == "" {
		return fmt.Errorf("messaging gateway not configured")
	}

	payload, err := json.Marshal(gatewayRequest{
		Channel: string(g.channel),
		From:    g.sender,
		To:      msg.Phone,
		Body:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("failed to encode gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/messages", strings.NewReader(string(payload)))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s message: %w", g.channel, err)
	}
	body, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("failed to read gateway response: %w", readErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close gateway response body: %w", closeErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp gatewayResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
			return fmt.Errorf("gateway error: %s", errResp.Message)
		}
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
