// Package events publishes order lifecycle events for downstream consumers
// (analytics, inventory) over Kafka.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tajerapp/tajer/internal/logging"
	"github.com/tajerapp/tajer/internal/models"
)

type Publisher interface {
	PublishStatusChange(ctx context.Context, order *models.Order, from, to models.OrderStatus)
	Close() error
}

// StatusChangeEvent is the wire payload for order.status_changed.
type StatusChangeEvent struct {
	Type       string    `json:"type"`
	OrderID    int64     `json:"order_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Carrier    string    `json:"carrier,omitempty"`
	Tracking   string    `json:"tracking_number,omitempty"`
	City       string    `json:"city"`
	TotalCents int       `json:"total_cents"`
	OccurredAt time.Time `json:"occurred_at"`
}

// KafkaPublisher writes events keyed by order id so all events for one
// order land on the same partition, in order.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		logger: logger,
	}
}

// PublishStatusChange is best effort. Order processing never fails because
// the broker is unavailable.
func (p *KafkaPublisher) PublishStatusChange(ctx context.Context, order *models.Order, from, to models.OrderStatus) {
	logger := logging.FromContext(ctx, p.logger)

	payload, err := json.Marshal(StatusChangeEvent{
		Type:       "order.status_changed",
		OrderID:    order.ID,
		From:       string(from),
		To:         string(to),
		Carrier:    order.Carrier,
		Tracking:   order.TrackingNumber,
		City:       order.City,
		TotalCents: order.TotalCents,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		logger.Warn("failed to encode status change event", "order_id", order.ID, "error", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(strconv.FormatInt(order.ID, 10)),
		Value: payload,
		Time:  time.Now(),
	}); err != nil {
		logger.Warn("failed to publish status change event", "order_id", order.ID, "error", err)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishStatusChange(ctx context.Context, order *models.Order, from, to models.OrderStatus) {
}

func (NoopPublisher) Close() error { return nil }
