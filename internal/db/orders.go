package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tajerapp/tajer/internal/models"
)

type OrderStore struct {
	pool *pgxpool.Pool
}

var (
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrNotFound                = errors.New("not found")
)

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderColumns = `
	id, customer_name, customer_phone, customer_email, address, city,
	total_cents, delivery_cents, status, carrier, tracking_number,
	carrier_status, synced_to_sheets, notes, created_at, updated_at`

func (s *OrderStore) Create(ctx context.Context, order *Order) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO orders (customer_name, customer_phone, customer_email, address, city,
			total_cents, delivery_cents, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		order.CustomerName, order.CustomerPhone, order.CustomerEmail, order.Address, order.City,
		order.TotalCents, order.DeliveryCents, string(order.Status), order.Notes,
	)
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&order.ID, &createdAt, &updatedAt); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	order.CreatedAt = createdAt.Time
	order.UpdatedAt = updatedAt.Time

	for _, item := range order.Items {
		_, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, name, quantity, unit_price_cents, unit_cost_cents)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			order.ID, item.ProductID, item.Name, item.Quantity, item.UnitPriceCents, item.UnitCostCents,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

func (s *OrderStore) GetByID(ctx context.Context, orderID int64) (*Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1`, orderID)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
		}
		return nil, err
	}

	items, err := s.itemsForOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (s *OrderStore) List(ctx context.Context, limit int) ([]*Order, error) {
	rows, err := s.pool.Query(ctx, `SELECT`+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (s *OrderStore) ListByStatus(ctx context.Context, status OrderStatus) ([]*Order, error) {
	rows, err := s.pool.Query(ctx, `SELECT`+orderColumns+` FROM orders WHERE status = $1 ORDER BY created_at ASC`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

// Transition moves an order to the target status, guarded by the status
// graph: the UPDATE only matches rows whose current status allows the move.
func (s *OrderStore) Transition(ctx context.Context, orderID int64, to OrderStatus) error {
	predecessors := statusStrings(models.AllowedPredecessors(to))
	cmdTag, err := s.pool.Exec(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)`,
		string(to), orderID, predecessors,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: to %s", ErrInvalidStatusTransition, to)
	}
	return nil
}

// MarkSent advances a confirmed order to ENVOYEE and records the shipment
// coordinates in one statement.
func (s *OrderStore) MarkSent(ctx context.Context, orderID int64, carrier, trackingNumber string) error {
	cmdTag, err := s.pool.Exec(ctx, `
		UPDATE orders SET status = $1, carrier = $2, tracking_number = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`,
		string(StatusEnvoyee), carrier, trackingNumber, orderID, string(StatusConfirmee),
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected %s", ErrInvalidStatusTransition, StatusConfirmee)
	}
	return nil
}

// UpdateFromCarrier applies a carrier-reported status change. The current
// status is part of the WHERE clause so concurrent polls and webhooks
// cannot clobber each other.
func (s *OrderStore) UpdateFromCarrier(ctx context.Context, orderID int64, from, to OrderStatus, carrierStatus string) error {
	cmdTag, err := s.pool.Exec(ctx, `
		UPDATE orders SET status = $1, carrier_status = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`,
		string(to), carrierStatus, orderID, string(from),
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected %s", ErrInvalidStatusTransition, from)
	}
	return nil
}

func (s *OrderStore) SetCarrierStatus(ctx context.Context, orderID int64, carrierStatus string) error {
	_, err := s.pool.Exec(ctx, `UPDATE orders SET carrier_status = $1, updated_at = NOW() WHERE id = $2`, carrierStatus, orderID)
	return err
}

// ListUnsyncedForSheets returns sent and delivered orders that have not been
// exported yet, with their items loaded so the export can render a line per
// order including what was bought.
func (s *OrderStore) ListUnsyncedForSheets(ctx context.Context) ([]*Order, error) {
	rows, err := s.pool.Query(ctx, `SELECT`+orderColumns+`
		FROM orders
		WHERE synced_to_sheets = FALSE AND status IN ($1, $2)
		ORDER BY created_at ASC`,
		string(models.StatusEnvoyee), string(models.StatusLivree),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		items, err := s.itemsForOrder(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}
	return orders, nil
}

func (s *OrderStore) MarkSyncedToSheets(ctx context.Context, orderID int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE orders SET synced_to_sheets = TRUE, updated_at = NOW() WHERE id = $1`, orderID)
	return err
}

func (s *OrderStore) itemsForOrder(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT product_id, name, quantity, unit_price_cents, unit_cost_cents
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.UnitPriceCents, &item.UnitCostCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var (
		order          Order
		status         string
		carrier        pgtype.Text
		trackingNumber pgtype.Text
		carrierStatus  pgtype.Text
		notes          pgtype.Text
		createdAt      pgtype.Timestamptz
		updatedAt      pgtype.Timestamptz
	)
	err := row.Scan(
		&order.ID, &order.CustomerName, &order.CustomerPhone, &order.CustomerEmail,
		&order.Address, &order.City, &order.TotalCents, &order.DeliveryCents,
		&status, &carrier, &trackingNumber, &carrierStatus,
		&order.SyncedToSheets, &notes, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Status = OrderStatus(status)
	if carrier.Valid {
		order.Carrier = carrier.String
	}
	if trackingNumber.Valid {
		order.TrackingNumber = trackingNumber.String
	}
	if carrierStatus.Valid {
		order.CarrierStatus = carrierStatus.String
	}
	if notes.Valid {
		order.Notes = notes.String
	}
	order.CreatedAt = createdAt.Time
	order.UpdatedAt = updatedAt.Time
	return &order, nil
}

func scanOrders(rows pgx.Rows) ([]*Order, error) {
	var orders []*Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func statusStrings(statuses []OrderStatus) []string {
	values := make([]string, len(statuses))
	for i, status := range statuses {
		values[i] = string(status)
	}
	return values
}
