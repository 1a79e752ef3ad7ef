// Package fulfillment orchestrates shipment dispatch and the bulk carrier
// synchronization runs.
package fulfillment

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/tajerapp/tajer/internal/carrier"
	"github.com/tajerapp/tajer/internal/logging"
	"github.com/tajerapp/tajer/internal/models"
	"github.com/tajerapp/tajer/internal/observability"
)

type carrierSelector interface {
	Active(ctx context.Context) (carrier.ShipmentCarrier, error)
}

type labelWriter interface {
	Create(ctx context.Context, label *models.ShippingLabel) error
}

type syncLogWriter interface {
	Record(ctx context.Context, orderID *int64, action models.SyncAction, result models.SyncResult, detail string) error
}

// DispatchResult is the discriminated outcome of one shipment attempt.
// Carrier and network failures never escape as errors; the caller always
// receives a result.
type DispatchResult struct {
	Success        bool   `json:"success"`
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	LabelURL       string `json:"label_url,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Dispatcher submits a single order to the active carrier, persists the
// resulting label and writes the audit entry. The order's own status field
// is updated by the caller, so confirm and send-to-carrier can differ in
// how they propagate failure.
type Dispatcher struct {
	selector carrierSelector
	labels   labelWriter
	syncLog  syncLogWriter
	logger   *slog.Logger
}

func NewDispatcher(selector carrierSelector, labels labelWriter, syncLog syncLogWriter, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		selector: selector,
		labels:   labels,
		syncLog:  syncLog,
		logger:   logger,
	}
}

func (d *Dispatcher) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, d.logger)
}

func (d *Dispatcher) Dispatch(ctx context.Context, order *models.Order) DispatchResult {
	span := sentry.StartSpan(
		ctx,
		"service.fulfillment.dispatch",
		sentry.WithOpName("service.fulfillment"),
		sentry.WithDescription("Dispatch"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := d.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	active, err := d.selector.Active(ctx)
	if err != nil {
		// Selection never fails in practice (the internal mock is the
		// floor), but a settings-store outage can surface here.
		return d.failure(ctx, order.ID, "", err.Error(), meter, logger)
	}

	name := active.Name().DisplayName()
	created, err := active.CreateShipment(ctx, order)
	if err != nil {
		return d.failure(ctx, order.ID, name, err.Error(), meter, logger)
	}

	label := &models.ShippingLabel{
		OrderID:        order.ID,
		Carrier:        name,
		TrackingNumber: created.TrackingNumber,
		LabelURL:       created.LabelURL,
		PDFContent:     created.PDFContent,
	}
	if err := d.labels.Create(ctx, label); err != nil {
		return d.failure(ctx, order.ID, name, "failed to persist shipping label: "+err.Error(), meter, logger)
	}

	if err := d.syncLog.Record(ctx, &order.ID, models.ActionSendToCarrier, models.SyncSuccess,
		name+" accepted shipment "+created.TrackingNumber); err != nil {
		logger.Warn("failed to record dispatch success", "error", err, "order_id", order.ID)
	}

	meter.Count("carrier.dispatch.succeeded", 1, sentry.WithAttributes(
		attribute.String("carrier", name),
	))
	logger.Info("order dispatched to carrier",
		"order_id", order.ID,
		"carrier", name,
		"tracking_number", created.TrackingNumber,
	)

	return DispatchResult{
		Success:        true,
		Carrier:        name,
		TrackingNumber: created.TrackingNumber,
		LabelURL:       created.LabelURL,
	}
}

func (d *Dispatcher) failure(ctx context.Context, orderID int64, carrierName, detail string, meter sentry.Meter, logger *slog.Logger) DispatchResult {
	if err := d.syncLog.Record(ctx, &orderID, models.ActionSendToCarrier, models.SyncFailure, detail); err != nil {
		logger.Warn("failed to record dispatch failure", "error", err, "order_id", orderID)
	}
	meter.Count("carrier.dispatch.failed", 1, sentry.WithAttributes(
		attribute.String("carrier", carrierName),
	))
	logger.Warn("carrier dispatch failed", "order_id", orderID, "carrier", carrierName, "error", detail)
	return DispatchResult{Success: false, Carrier: carrierName, Error: detail}
}
