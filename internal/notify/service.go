package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tajerapp/tajer/internal/logging"
	"github.com/tajerapp/tajer/internal/models"
)

type syncLogWriter interface {
	Record(ctx context.Context, orderID *int64, action models.SyncAction, result models.SyncResult, detail string) error
}

// Service builds the per-event customer messages and sends them through the
// configured provider. Sending is best effort: a delivery failure is logged
// and audited but never surfaces to the caller.
type Service struct {
	provider  Provider
	storeName string
	syncLog   syncLogWriter
	logger    *slog.Logger
}

func NewService(provider Provider, storeName string, syncLog syncLogWriter, logger *slog.Logger) *Service {
	if provider == nil {
		provider = NoopProvider{}
	}
	return &Service{
		provider:  provider,
		storeName: storeName,
		syncLog:   syncLog,
		logger:    logger,
	}
}

func (s *Service) OrderConfirmed(ctx context.Context, order *models.Order) {
	s.send(ctx, order, "Commande confirmée",
		fmt.Sprintf("Bonjour %s, votre commande n°%d chez %s est confirmée. Montant à payer à la livraison: %.2f DH.",
			order.CustomerName, order.ID, s.storeName, float64(order.TotalCents+order.DeliveryCents)/100))
}

func (s *Service) OrderShipped(ctx context.Context, order *models.Order, trackingNumber string) {
	s.send(ctx, order, "Commande expédiée",
		fmt.Sprintf("Bonjour %s, votre commande n°%d a été expédiée. Numéro de suivi: %s.",
			order.CustomerName, order.ID, trackingNumber))
}

func (s *Service) send(ctx context.Context, order *models.Order, subject, text string) {
	logger := logging.FromContext(ctx, s.logger)

	err := s.provider.Send(ctx, &Message{
		Phone:   order.CustomerPhone,
		Email:   order.CustomerEmail,
		Subject: subject,
		Text:    text,
	})
	if _, ok := s.provider.(NoopProvider); ok && err == nil {
		return
	}

	result := models.SyncSuccess
	detail := subject
	if err != nil {
		logger.Warn("failed to notify customer", "order_id", order.ID, "error", err)
		result = models.SyncFailure
		detail = subject + ": " + err.Error()
	}
	if logErr := s.syncLog.Record(ctx, &order.ID, models.ActionNotify, result, detail); logErr != nil {
		logger.Warn("failed to record notification", "order_id", order.ID, "error", logErr)
	}
}
