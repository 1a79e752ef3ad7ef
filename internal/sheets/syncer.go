package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/getsentry/sentry-go"

	"github.com/tajerapp/tajer/internal/logging"
	"github.com/tajerapp/tajer/internal/models"
)

type rowAppender interface {
	AppendRows(ctx context.Context, rows [][]any) error
}

type orderStore interface {
	ListUnsyncedForSheets(ctx context.Context) ([]*models.Order, error)
	MarkSyncedToSheets(ctx context.Context, orderID int64) error
}

type syncLogWriter interface {
	Record(ctx context.Context, orderID *int64, action models.SyncAction, result models.SyncResult, detail string) error
}

// Syncer pushes orders that have not yet been exported to the spreadsheet.
// Each order is appended exactly once; the synced_to_sheets flag on the
// order is the export cursor.
type Syncer struct {
	appender rowAppender
	orders   orderStore
	syncLog  syncLogWriter
	logger   *slog.Logger
}

func NewSyncer(appender rowAppender, orders orderStore, syncLog syncLogWriter, logger *slog.Logger) *Syncer {
	return &Syncer{
		appender: appender,
		orders:   orders,
		syncLog:  syncLog,
		logger:   logger,
	}
}

type SyncResult struct {
	Synced int `json:"synced"`
}

func (s *Syncer) SyncOrders(ctx context.Context) (*SyncResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.sheets.sync_orders",
		sentry.WithOpName("service.sheets"),
		sentry.WithDescription("SyncOrders"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := logging.FromContext(ctx, s.logger)

	orders, err := s.orders.ListUnsyncedForSheets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for sheets export: %w", err)
	}
	if len(orders) == 0 {
		return &SyncResult{}, nil
	}

	rows := make([][]any, 0, len(orders))
	for _, order := range orders {
		rows = append(rows, orderRow(order))
	}

	if err := s.appender.AppendRows(ctx, rows); err != nil {
		if logErr := s.syncLog.Record(ctx, nil, models.ActionSheetsSync, models.SyncFailure, err.Error()); logErr != nil {
			logger.Warn("failed to record sheets sync failure", "error", logErr)
		}
		return nil, err
	}

	result := &SyncResult{}
	for _, order := range orders {
		if err := s.orders.MarkSyncedToSheets(ctx, order.ID); err != nil {
			logger.Warn("appended to sheet but failed to mark order synced", "order_id", order.ID, "error", err)
			continue
		}
		result.Synced++
	}

	if err := s.syncLog.Record(ctx, nil, models.ActionSheetsSync, models.SyncSuccess,
		fmt.Sprintf("exported %d orders", result.Synced)); err != nil {
		logger.Warn("failed to record sheets sync", "error", err)
	}
	logger.Info("sheets export completed", "orders", result.Synced)
	return result, nil
}

func orderRow(order *models.Order) []any {
	items := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, fmt.Sprintf("%dx %s", item.Quantity, item.Name))
	}
	return []any{
		order.ID,
		order.CreatedAt.Format("2006-01-02 15:04"),
		order.CustomerName,
		order.CustomerPhone,
		order.City,
		order.Address,
		strings.Join(items, ", "),
		float64(order.TotalCents) / 100,
		float64(order.DeliveryCents) / 100,
		string(order.Status),
		order.Carrier,
		order.TrackingNumber,
	}
}
