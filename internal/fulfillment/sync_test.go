package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/tajerapp/tajer/internal/carrier"
	"github.com/tajerapp/tajer/internal/models"
)

// fakeOrders is an in-memory order store. MarkSent and UpdateFromCarrier
// mutate the stored orders so a second engine run sees the new state.
type fakeOrders struct {
	orders      map[int64]*models.Order
	markSentErr error
}

func (f *fakeOrders) GetByID(_ context.Context, orderID int64) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %d not found", orderID)
	}
	return order, nil
}

func (f *fakeOrders) ListByStatus(_ context.Context, status models.OrderStatus) ([]*models.Order, error) {
	var matched []*models.Order
	for _, order := range f.orders {
		if order.Status == status {
			matched = append(matched, order)
		}
	}
	return matched, nil
}

func (f *fakeOrders) MarkSent(_ context.Context, orderID int64, carrierName, trackingNumber string) error {
	if f.markSentErr != nil {
		return f.markSentErr
	}
	order := f.orders[orderID]
	order.Status = models.StatusEnvoyee
	order.Carrier = carrierName
	order.TrackingNumber = trackingNumber
	return nil
}

func (f *fakeOrders) UpdateFromCarrier(_ context.Context, orderID int64, from, to models.OrderStatus, carrierStatus string) error {
	order := f.orders[orderID]
	if order.Status != from {
		return errors.New("stale order status")
	}
	order.Status = to
	order.CarrierStatus = carrierStatus
	return nil
}

type fakeLabels struct {
	labels    []*models.ShippingLabel
	createErr error
}

func (f *fakeLabels) Create(_ context.Context, label *models.ShippingLabel) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.labels = append(f.labels, label)
	return nil
}

func (f *fakeLabels) ListAll(_ context.Context) ([]*models.ShippingLabel, error) {
	return f.labels, nil
}

func (f *fakeLabels) LabeledOrderIDs(_ context.Context) (map[int64]struct{}, error) {
	ids := make(map[int64]struct{}, len(f.labels))
	for _, label := range f.labels {
		ids[label.OrderID] = struct{}{}
	}
	return ids, nil
}

func (f *fakeLabels) GetLatestByOrder(_ context.Context, orderID int64) (*models.ShippingLabel, error) {
	for i := len(f.labels) - 1; i >= 0; i-- {
		if f.labels[i].OrderID == orderID {
			return f.labels[i], nil
		}
	}
	return nil, errors.New("label not found")
}

type fakeSyncLog struct {
	entries []models.SyncLog
}

func (f *fakeSyncLog) Record(_ context.Context, orderID *int64, action models.SyncAction, result models.SyncResult, detail string) error {
	f.entries = append(f.entries, models.SyncLog{OrderID: orderID, Action: action, Result: result, Detail: detail})
	return nil
}

func (f *fakeSyncLog) count(action models.SyncAction, result models.SyncResult) int {
	n := 0
	for _, entry := range f.entries {
		if entry.Action == action && entry.Result == result {
			n++
		}
	}
	return n
}

// fakeCarrier answers CreateShipment and TrackShipment from canned data,
// keyed by order id and tracking number respectively.
type fakeCarrier struct {
	name       carrier.Name
	failOrders map[int64]error
	statuses   map[string]string
	trackErr   map[string]error
	created    int
}

func (f *fakeCarrier) Name() carrier.Name { return f.name }

func (f *fakeCarrier) CreateShipment(_ context.Context, order *models.Order) (*carrier.CreateResult, error) {
	if err := f.failOrders[order.ID]; err != nil {
		return nil, err
	}
	f.created++
	return &carrier.CreateResult{TrackingNumber: fmt.Sprintf("TN-%d", order.ID)}, nil
}

func (f *fakeCarrier) TrackShipment(_ context.Context, trackingNumber string) (*carrier.TrackingInfo, error) {
	if err := f.trackErr[trackingNumber]; err != nil {
		return nil, err
	}
	return &carrier.TrackingInfo{Status: f.statuses[trackingNumber]}, nil
}

func (f *fakeCarrier) GetQuote(_ context.Context, _ string, _ float64) (*carrier.Quote, error) {
	return &carrier.Quote{}, nil
}

type fakeSelector struct {
	active carrier.ShipmentCarrier
	err    error
}

func (f *fakeSelector) Active(_ context.Context) (carrier.ShipmentCarrier, error) {
	return f.active, f.err
}

func (f *fakeSelector) ForName(_ context.Context, _ carrier.Name) (carrier.ShipmentCarrier, error) {
	return f.active, f.err
}

type fakeEvents struct {
	published []string
}

func (f *fakeEvents) PublishStatusChange(_ context.Context, order *models.Order, from, to models.OrderStatus) {
	f.published = append(f.published, fmt.Sprintf("%d:%s->%s", order.ID, from, to))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestEngine(orders *fakeOrders, labels *fakeLabels, syncLog *fakeSyncLog, selector *fakeSelector, events *fakeEvents) *Engine {
	logger := discardLogger()
	dispatcher := NewDispatcher(selector, labels, syncLog, logger)
	return NewEngine(orders, labels, syncLog, dispatcher, selector, events, logger)
}

func confirmedOrder(id int64, name string) *models.Order {
	return &models.Order{ID: id, CustomerName: name, Status: models.StatusConfirmee, TotalCents: 10000}
}

func TestSendConfirmedPartialFailure(t *testing.T) {
	t.Parallel()

	orders := &fakeOrders{orders: map[int64]*models.Order{
		1: confirmedOrder(1, "Amal"),
		2: confirmedOrder(2, "Brahim"),
		3: confirmedOrder(3, "Chaima"),
	}}
	labels := &fakeLabels{}
	syncLog := &fakeSyncLog{}
	active := &fakeCarrier{
		name:       carrier.Sendit,
		failOrders: map[int64]error{2: errors.New("city not served")},
	}
	events := &fakeEvents{}
	engine := newTestEngine(orders, labels, syncLog, &fakeSelector{active: active}, events)

	result, err := engine.SendConfirmed(context.Background())
	if err != nil {
		t.Fatalf("SendConfirmed failed: %v", err)
	}

	if result.Sent != 2 || result.Errors != 1 {
		t.Fatalf("sent=%d errors=%d, want 2/1", result.Sent, result.Errors)
	}
	if len(result.Results) != 3 {
		t.Fatalf("expected 3 result rows, got %d", len(result.Results))
	}
	for _, row := range result.Results {
		switch row.OrderID {
		case 2:
			if row.Status != ResultError || row.Message == "" {
				t.Errorf("order 2 row = %+v, want error with message", row)
			}
		default:
			if row.Status != ResultSuccess || row.TrackingNumber == "" {
				t.Errorf("order %d row = %+v, want success with tracking", row.OrderID, row)
			}
		}
	}

	if orders.orders[1].Status != models.StatusEnvoyee || orders.orders[3].Status != models.StatusEnvoyee {
		t.Error("dispatched orders should be ENVOYEE")
	}
	if orders.orders[2].Status != models.StatusConfirmee {
		t.Error("failed order must stay CONFIRMEE")
	}
	if len(labels.labels) != 2 {
		t.Errorf("expected 2 labels, got %d", len(labels.labels))
	}
	if got := syncLog.count(models.ActionSendToCarrier, models.SyncSuccess); got != 2 {
		t.Errorf("success audit rows = %d, want 2", got)
	}
	if got := syncLog.count(models.ActionSendToCarrier, models.SyncFailure); got != 1 {
		t.Errorf("failure audit rows = %d, want 1", got)
	}
	if len(events.published) != 2 {
		t.Errorf("published events = %d, want 2", len(events.published))
	}
}

func TestSendConfirmedSecondRunSendsNothing(t *testing.T) {
	t.Parallel()

	orders := &fakeOrders{orders: map[int64]*models.Order{1: confirmedOrder(1, "Amal")}}
	labels := &fakeLabels{}
	engine := newTestEngine(orders, labels, &fakeSyncLog{}, &fakeSelector{active: &fakeCarrier{name: carrier.Ozon}}, &fakeEvents{})

	first, err := engine.SendConfirmed(context.Background())
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if first.Sent != 1 {
		t.Fatalf("first run sent = %d, want 1", first.Sent)
	}

	second, err := engine.SendConfirmed(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if second.Sent != 0 || second.Errors != 0 || len(second.Results) != 0 {
		t.Errorf("second run = %+v, want empty", second)
	}
}

func TestSendConfirmedReconcilesLabeledOrder(t *testing.T) {
	t.Parallel()

	// Confirmed order that already has a label, e.g. a crash happened
	// between label creation and the status update.
	orders := &fakeOrders{orders: map[int64]*models.Order{1: confirmedOrder(1, "Amal")}}
	labels := &fakeLabels{labels: []*models.ShippingLabel{
		{OrderID: 1, Carrier: "SENDIT", TrackingNumber: "TN-OLD"},
	}}
	active := &fakeCarrier{name: carrier.Sendit}
	events := &fakeEvents{}
	engine := newTestEngine(orders, labels, &fakeSyncLog{}, &fakeSelector{active: active}, events)

	result, err := engine.SendConfirmed(context.Background())
	if err != nil {
		t.Fatalf("SendConfirmed failed: %v", err)
	}

	if result.Sent != 0 || result.Errors != 0 {
		t.Fatalf("sent=%d errors=%d, want 0/0", result.Sent, result.Errors)
	}
	if len(result.Results) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Results))
	}
	row := result.Results[0]
	if row.Status != ResultSkipped || row.TrackingNumber != "TN-OLD" {
		t.Errorf("row = %+v, want skipped with existing tracking", row)
	}
	if active.created != 0 {
		t.Error("labeled order must not be re-dispatched")
	}
	if orders.orders[1].Status != models.StatusEnvoyee {
		t.Error("labeled order should be advanced to ENVOYEE from the label")
	}
	if orders.orders[1].TrackingNumber != "TN-OLD" {
		t.Errorf("tracking = %q, want TN-OLD", orders.orders[1].TrackingNumber)
	}
	if len(events.published) != 1 {
		t.Errorf("published events = %d, want 1", len(events.published))
	}
}

func TestSyncStatusesAppliesUpdates(t *testing.T) {
	t.Parallel()

	orders := &fakeOrders{orders: map[int64]*models.Order{
		1: {ID: 1, Status: models.StatusEnvoyee, TrackingNumber: "TN-1"},
		2: {ID: 2, Status: models.StatusEnvoyee, TrackingNumber: "TN-2"},
		3: {ID: 3, Status: models.StatusLivree, TrackingNumber: "TN-3"},
		4: {ID: 4, Status: models.StatusEnvoyee, TrackingNumber: "TN-4"},
	}}
	labels := &fakeLabels{labels: []*models.ShippingLabel{
		{OrderID: 1, Carrier: "SENDIT", TrackingNumber: "TN-1"},
		{OrderID: 2, Carrier: "SENDIT", TrackingNumber: "TN-2"},
		{OrderID: 3, Carrier: "SENDIT", TrackingNumber: "TN-3"},
		{OrderID: 4, Carrier: "SENDIT", TrackingNumber: "TN-4"},
		{OrderID: 5, Carrier: "Internal", TrackingNumber: "TRK123"},
		{OrderID: 6, Carrier: "SENDIT", TrackingNumber: ""},
	}}
	active := &fakeCarrier{
		name: carrier.Sendit,
		statuses: map[string]string{
			"TN-1": "Delivered",
			"TN-2": "in transit",
		},
		trackErr: map[string]error{"TN-4": errors.New("timeout")},
	}
	syncLog := &fakeSyncLog{}
	events := &fakeEvents{}
	engine := newTestEngine(orders, labels, syncLog, &fakeSelector{active: active}, events)

	result, err := engine.SyncStatuses(context.Background())
	if err != nil {
		t.Fatalf("SyncStatuses failed: %v", err)
	}

	// Order 1 moves to LIVREE, order 2 is already ENVOYEE so unchanged,
	// order 3 is terminal and never polled, order 4 errors, the internal
	// and trackingless labels are skipped entirely.
	if result.Synced != 1 || result.Errors != 1 {
		t.Fatalf("synced=%d errors=%d, want 1/1", result.Synced, result.Errors)
	}
	if orders.orders[1].Status != models.StatusLivree {
		t.Errorf("order 1 status = %s, want LIVREE", orders.orders[1].Status)
	}
	if orders.orders[1].CarrierStatus != "delivered" {
		t.Errorf("carrier status = %q, want delivered", orders.orders[1].CarrierStatus)
	}
	if orders.orders[2].Status != models.StatusEnvoyee {
		t.Errorf("order 2 status = %s, want unchanged ENVOYEE", orders.orders[2].Status)
	}
	if got := syncLog.count(models.ActionStatusSync, models.SyncSuccess); got != 1 {
		t.Errorf("success audit rows = %d, want 1", got)
	}
	if got := syncLog.count(models.ActionStatusSync, models.SyncFailure); got != 1 {
		t.Errorf("failure audit rows = %d, want 1", got)
	}
	if len(events.published) != 1 {
		t.Errorf("published events = %d, want 1", len(events.published))
	}
}

func TestSyncStatusesRejectsRegression(t *testing.T) {
	t.Parallel()

	orders := &fakeOrders{orders: map[int64]*models.Order{
		1: {ID: 1, Status: models.StatusLivree, TrackingNumber: "TN-1"},
		2: {ID: 2, Status: models.StatusRetournee, TrackingNumber: "TN-2"},
	}}
	labels := &fakeLabels{labels: []*models.ShippingLabel{
		{OrderID: 1, Carrier: "OZON", TrackingNumber: "TN-1"},
		{OrderID: 2, Carrier: "OZON", TrackingNumber: "TN-2"},
	}}
	active := &fakeCarrier{
		name:     carrier.Ozon,
		statuses: map[string]string{"TN-1": "in transit", "TN-2": "shipped"},
	}
	syncLog := &fakeSyncLog{}
	engine := newTestEngine(orders, labels, syncLog, &fakeSelector{active: active}, &fakeEvents{})

	result, err := engine.SyncStatuses(context.Background())
	if err != nil {
		t.Fatalf("SyncStatuses failed: %v", err)
	}

	// Both orders are terminal, so the stale carrier reports are never
	// applied and nothing is written.
	if result.Synced != 0 || result.Errors != 0 {
		t.Fatalf("synced=%d errors=%d, want 0/0", result.Synced, result.Errors)
	}
	if orders.orders[1].Status != models.StatusLivree || orders.orders[2].Status != models.StatusRetournee {
		t.Error("terminal orders must not move backward")
	}
	if len(syncLog.entries) != 0 {
		t.Errorf("audit rows = %d, want 0", len(syncLog.entries))
	}
}

func TestSyncStatusesIgnoresUnknownStatus(t *testing.T) {
	t.Parallel()

	orders := &fakeOrders{orders: map[int64]*models.Order{
		1: {ID: 1, Status: models.StatusEnvoyee, TrackingNumber: "TN-1"},
	}}
	labels := &fakeLabels{labels: []*models.ShippingLabel{
		{OrderID: 1, Carrier: "CATHEDIS", TrackingNumber: "TN-1"},
	}}
	active := &fakeCarrier{
		name:     carrier.Cathedis,
		statuses: map[string]string{"TN-1": "warehouse scan"},
	}
	syncLog := &fakeSyncLog{}
	engine := newTestEngine(orders, labels, syncLog, &fakeSelector{active: active}, &fakeEvents{})

	result, err := engine.SyncStatuses(context.Background())
	if err != nil {
		t.Fatalf("SyncStatuses failed: %v", err)
	}
	if result.Synced != 0 || result.Errors != 0 {
		t.Fatalf("synced=%d errors=%d, want 0/0", result.Synced, result.Errors)
	}
	if orders.orders[1].Status != models.StatusEnvoyee {
		t.Error("unknown carrier status must leave the order untouched")
	}
	if len(syncLog.entries) != 0 {
		t.Errorf("audit rows = %d, want 0", len(syncLog.entries))
	}
}

func TestDispatchFoldsFailureIntoResult(t *testing.T) {
	t.Parallel()

	labels := &fakeLabels{}
	syncLog := &fakeSyncLog{}
	active := &fakeCarrier{
		name:       carrier.Digylog,
		failOrders: map[int64]error{7: errors.New("DIGYLOG: status 401: invalid token")},
	}
	dispatcher := NewDispatcher(&fakeSelector{active: active}, labels, syncLog, discardLogger())

	result := dispatcher.Dispatch(context.Background(), &models.Order{ID: 7})
	if result.Success {
		t.Fatal("expected failed result")
	}
	if result.Carrier != "DIGYLOG" || result.Error == "" {
		t.Errorf("result = %+v", result)
	}
	if len(labels.labels) != 0 {
		t.Error("no label must be persisted on failure")
	}
	if got := syncLog.count(models.ActionSendToCarrier, models.SyncFailure); got != 1 {
		t.Errorf("failure audit rows = %d, want 1", got)
	}
}

func TestDispatchPersistsLabelAndAudit(t *testing.T) {
	t.Parallel()

	labels := &fakeLabels{}
	syncLog := &fakeSyncLog{}
	dispatcher := NewDispatcher(&fakeSelector{active: &fakeCarrier{name: carrier.Sendit}}, labels, syncLog, discardLogger())

	result := dispatcher.Dispatch(context.Background(), &models.Order{ID: 9})
	if !result.Success {
		t.Fatalf("dispatch failed: %+v", result)
	}
	if result.Carrier != "SENDIT" || result.TrackingNumber != "TN-9" {
		t.Errorf("result = %+v", result)
	}
	if len(labels.labels) != 1 || labels.labels[0].TrackingNumber != "TN-9" {
		t.Errorf("labels = %+v", labels.labels)
	}
	if got := syncLog.count(models.ActionSendToCarrier, models.SyncSuccess); got != 1 {
		t.Errorf("success audit rows = %d, want 1", got)
	}
}
