package fulfillment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/tajerapp/tajer/internal/carrier"
	"github.com/tajerapp/tajer/internal/logging"
	"github.com/tajerapp/tajer/internal/models"
	"github.com/tajerapp/tajer/internal/observability"
)

type orderStore interface {
	GetByID(ctx context.Context, orderID int64) (*models.Order, error)
	ListByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error)
	MarkSent(ctx context.Context, orderID int64, carrier, trackingNumber string) error
	UpdateFromCarrier(ctx context.Context, orderID int64, from, to models.OrderStatus, carrierStatus string) error
}

type labelStore interface {
	ListAll(ctx context.Context) ([]*models.ShippingLabel, error)
	LabeledOrderIDs(ctx context.Context) (map[int64]struct{}, error)
	GetLatestByOrder(ctx context.Context, orderID int64) (*models.ShippingLabel, error)
}

type carrierResolver interface {
	ForName(ctx context.Context, name carrier.Name) (carrier.ShipmentCarrier, error)
}

type eventPublisher interface {
	PublishStatusChange(ctx context.Context, order *models.Order, from, to models.OrderStatus)
}

// Engine runs the two batch operations: pushing all confirmed orders to the
// carrier and pulling status updates back. Partial failure is expected and
// tolerated; a single order or label never aborts the run.
type Engine struct {
	orders     orderStore
	labels     labelStore
	syncLog    syncLogWriter
	dispatcher *Dispatcher
	resolver   carrierResolver
	events     eventPublisher
	logger     *slog.Logger
}

func NewEngine(orders orderStore, labels labelStore, syncLog syncLogWriter, dispatcher *Dispatcher, resolver carrierResolver, events eventPublisher, logger *slog.Logger) *Engine {
	return &Engine{
		orders:     orders,
		labels:     labels,
		syncLog:    syncLog,
		dispatcher: dispatcher,
		resolver:   resolver,
		events:     events,
		logger:     logger,
	}
}

func (e *Engine) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, e.logger)
}

const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// OrderSendResult is one row of the per-order result list, structured so
// the admin UI can offer a retry scoped to exactly the failed subset.
type OrderSendResult struct {
	OrderID        int64  `json:"orderId"`
	CustomerName   string `json:"customerName"`
	Status         string `json:"status"`
	Message        string `json:"message"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
}

type SendResult struct {
	Sent    int               `json:"sent"`
	Errors  int               `json:"errors"`
	Results []OrderSendResult `json:"results"`
}

// SendConfirmed dispatches every order in CONFIRMEE that does not already
// have a shipping label. The label-existence set is computed once up front
// and updated in-run, which both avoids a per-order existence query and
// prevents double-dispatch within the same run.
func (e *Engine) SendConfirmed(ctx context.Context) (*SendResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.fulfillment.send_confirmed",
		sentry.WithOpName("service.fulfillment"),
		sentry.WithDescription("SendConfirmed"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := e.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	confirmed, err := e.orders.ListByStatus(ctx, models.StatusConfirmee)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed orders: %w", err)
	}

	labeled, err := e.labels.LabeledOrderIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load labeled order ids: %w", err)
	}

	result := &SendResult{Results: make([]OrderSendResult, 0, len(confirmed))}
	for _, order := range confirmed {
		if _, exists := labeled[order.ID]; exists {
			result.Results = append(result.Results, e.reconcileLabeled(ctx, order))
			continue
		}

		detail, err := e.orders.GetByID(ctx, order.ID)
		if err != nil {
			result.Errors++
			result.Results = append(result.Results, OrderSendResult{
				OrderID:      order.ID,
				CustomerName: order.CustomerName,
				Status:       ResultError,
				Message:      err.Error(),
			})
			continue
		}

		dispatched := e.dispatcher.Dispatch(ctx, detail)
		if !dispatched.Success {
			result.Errors++
			result.Results = append(result.Results, OrderSendResult{
				OrderID:      order.ID,
				CustomerName: order.CustomerName,
				Status:       ResultError,
				Message:      dispatched.Error,
			})
			continue
		}

		labeled[order.ID] = struct{}{}
		if err := e.orders.MarkSent(ctx, order.ID, dispatched.Carrier, dispatched.TrackingNumber); err != nil {
			result.Errors++
			result.Results = append(result.Results, OrderSendResult{
				OrderID:      order.ID,
				CustomerName: order.CustomerName,
				Status:       ResultError,
				Message:      "dispatched but failed to update status: " + err.Error(),
			})
			continue
		}
		e.events.PublishStatusChange(ctx, detail, models.StatusConfirmee, models.StatusEnvoyee)

		result.Sent++
		result.Results = append(result.Results, OrderSendResult{
			OrderID:        order.ID,
			CustomerName:   order.CustomerName,
			Status:         ResultSuccess,
			Message:        "sent via " + dispatched.Carrier,
			TrackingNumber: dispatched.TrackingNumber,
		})
	}

	meter.Count("carrier.bulk_send.completed", 1, sentry.WithAttributes(
		attribute.Int("sent", result.Sent),
		attribute.Int("errors", result.Errors),
	))
	logger.Info("bulk send completed", "eligible", len(confirmed), "sent", result.Sent, "errors", result.Errors)
	return result, nil
}

// reconcileLabeled handles a confirmed order that already has a label,
// typically left behind by a crash between label creation and the status
// update. The order is advanced to ENVOYEE from the existing label rather
// than re-dispatched.
func (e *Engine) reconcileLabeled(ctx context.Context, order *models.Order) OrderSendResult {
	logger := e.loggerFromContext(ctx)

	label, err := e.labels.GetLatestByOrder(ctx, order.ID)
	if err != nil {
		logger.Warn("labeled order has no readable label", "order_id", order.ID, "error", err)
		return OrderSendResult{
			OrderID:      order.ID,
			CustomerName: order.CustomerName,
			Status:       ResultSkipped,
			Message:      "already has a shipping label",
		}
	}

	if err := e.orders.MarkSent(ctx, order.ID, label.Carrier, label.TrackingNumber); err != nil {
		logger.Warn("failed to advance labeled order", "order_id", order.ID, "error", err)
	} else {
		e.events.PublishStatusChange(ctx, order, models.StatusConfirmee, models.StatusEnvoyee)
	}

	return OrderSendResult{
		OrderID:        order.ID,
		CustomerName:   order.CustomerName,
		Status:         ResultSkipped,
		Message:        "already has a shipping label",
		TrackingNumber: label.TrackingNumber,
	}
}

type StatusSyncResult struct {
	Synced  int      `json:"synced"`
	Errors  int      `json:"errors"`
	Details []string `json:"details,omitempty"`
}

// SyncStatuses polls the carrier for every shipping label that can still
// move: labels with a tracking number, whose order is not terminal, and
// whose carrier is not the internal mock. An update and its SyncLog entry
// are only written when the mapped status differs from the stored one, so
// repeated polling is idempotent and log-quiet.
func (e *Engine) SyncStatuses(ctx context.Context) (*StatusSyncResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.fulfillment.sync_statuses",
		sentry.WithOpName("service.fulfillment"),
		sentry.WithDescription("SyncStatuses"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := e.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	labels, err := e.labels.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shipping labels: %w", err)
	}

	result := &StatusSyncResult{}
	// Carrier config is static for the duration of the run: one adapter
	// per distinct carrier, not per label.
	adapters := make(map[carrier.Name]carrier.ShipmentCarrier)

	for _, label := range labels {
		if label.TrackingNumber == "" {
			continue
		}
		name := carrier.NameFromString(label.Carrier)
		if name == "" || name == carrier.Internal {
			continue
		}

		order, err := e.orders.GetByID(ctx, label.OrderID)
		if err != nil {
			result.Errors++
			result.Details = append(result.Details, fmt.Sprintf("order %d: %v", label.OrderID, err))
			continue
		}
		if models.IsTerminal(order.Status) {
			continue
		}

		adapter, exists := adapters[name]
		if !exists {
			adapter, err = e.resolver.ForName(ctx, name)
			if err != nil {
				result.Errors++
				result.Details = append(result.Details, fmt.Sprintf("order %d: %v", order.ID, err))
				continue
			}
			adapters[name] = adapter
		}

		info, err := adapter.TrackShipment(ctx, label.TrackingNumber)
		if err != nil {
			result.Errors++
			result.Details = append(result.Details, fmt.Sprintf("order %d: %v", order.ID, err))
			if logErr := e.syncLog.Record(ctx, &order.ID, models.ActionStatusSync, models.SyncFailure, err.Error()); logErr != nil {
				logger.Warn("failed to record status sync failure", "error", logErr, "order_id", order.ID)
			}
			continue
		}

		normalized := carrier.NormalizeStatus(info.Status)
		mapped, known := carrier.MapStatus(info.Status)
		if !known || mapped == order.Status {
			continue
		}
		if !models.CanTransition(order.Status, mapped) {
			// A stale carrier report must not move an order backward.
			logger.Warn("rejected carrier status regression",
				"order_id", order.ID,
				"current", order.Status,
				"reported", mapped,
				"carrier_status", normalized,
			)
			continue
		}

		if err := e.orders.UpdateFromCarrier(ctx, order.ID, order.Status, mapped, normalized); err != nil {
			result.Errors++
			result.Details = append(result.Details, fmt.Sprintf("order %d: %v", order.ID, err))
			continue
		}
		if err := e.syncLog.Record(ctx, &order.ID, models.ActionStatusSync, models.SyncSuccess,
			fmt.Sprintf("%s reported %s, order moved %s -> %s", label.Carrier, normalized, order.Status, mapped)); err != nil {
			logger.Warn("failed to record status sync", "error", err, "order_id", order.ID)
		}
		e.events.PublishStatusChange(ctx, order, order.Status, mapped)
		result.Synced++
	}

	meter.Count("carrier.status_sync.completed", 1, sentry.WithAttributes(
		attribute.Int("synced", result.Synced),
		attribute.Int("errors", result.Errors),
	))
	logger.Info("status sync completed", "labels", len(labels), "synced", result.Synced, "errors", result.Errors)
	return result, nil
}
