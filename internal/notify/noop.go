package notify

import "context"

// NoopProvider is used when no notification channel is configured.
type NoopProvider struct{}

func (NoopProvider) Send(ctx context.Context, msg *Message) error {
	return nil
}
