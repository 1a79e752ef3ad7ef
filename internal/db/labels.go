package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ShippingLabelStore struct {
	pool *pgxpool.Pool
}

func NewShippingLabelStore(pool *pgxpool.Pool) *ShippingLabelStore {
	return &ShippingLabelStore{pool: pool}
}

func (s *ShippingLabelStore) Create(ctx context.Context, label *ShippingLabel) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO shipping_labels (order_id, carrier, tracking_number, label_url, pdf_content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		label.OrderID, label.Carrier, label.TrackingNumber, label.LabelURL, label.PDFContent,
	)
	var createdAt pgtype.Timestamptz
	if err := row.Scan(&label.ID, &createdAt); err != nil {
		return fmt.Errorf("failed to insert shipping label: %w", err)
	}
	label.CreatedAt = createdAt.Time
	return nil
}

func (s *ShippingLabelStore) GetByID(ctx context.Context, labelID int64) (*ShippingLabel, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, order_id, carrier, tracking_number, label_url, pdf_content, created_at
		FROM shipping_labels WHERE id = $1`, labelID)
	return scanLabel(row)
}

func (s *ShippingLabelStore) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*ShippingLabel, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, order_id, carrier, tracking_number, label_url, pdf_content, created_at
		FROM shipping_labels WHERE tracking_number = $1
		ORDER BY created_at DESC LIMIT 1`, trackingNumber)
	return scanLabel(row)
}

func (s *ShippingLabelStore) GetLatestByOrder(ctx context.Context, orderID int64) (*ShippingLabel, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, order_id, carrier, tracking_number, label_url, pdf_content, created_at
		FROM shipping_labels WHERE order_id = $1
		ORDER BY created_at DESC LIMIT 1`, orderID)
	return scanLabel(row)
}

func (s *ShippingLabelStore) ListAll(ctx context.Context) ([]*ShippingLabel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, carrier, tracking_number, label_url, pdf_content, created_at
		FROM shipping_labels ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labels []*ShippingLabel
	for rows.Next() {
		label, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

// LabeledOrderIDs returns the set of order ids that already have a shipping
// label. The bulk send precomputes this once per run instead of probing per
// order.
func (s *ShippingLabelStore) LabeledOrderIDs(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT order_id FROM shipping_labels`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func scanLabel(row rowScanner) (*ShippingLabel, error) {
	var (
		label      ShippingLabel
		labelURL   pgtype.Text
		pdfContent []byte
		createdAt  pgtype.Timestamptz
	)
	err := row.Scan(&label.ID, &label.OrderID, &label.Carrier, &label.TrackingNumber, &labelURL, &pdfContent, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("shipping label: %w", ErrNotFound)
		}
		return nil, err
	}
	if labelURL.Valid {
		label.LabelURL = labelURL.String
	}
	label.PDFContent = pdfContent
	label.CreatedAt = createdAt.Time
	return &label, nil
}
