package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// SalesSummary aggregates the dashboard numbers over a period. Revenue and
// cost come from the frozen order-item prices, not the live catalog.
type SalesSummary struct {
	Orders           int `json:"orders"`
	Delivered        int `json:"delivered"`
	RevenueCents     int `json:"revenue_cents"`
	ProductCostCents int `json:"product_cost_cents"`
	DeliveryCents    int `json:"delivery_cents"`
}

func (s *OrderStore) SalesSummary(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	summary := &SalesSummary{}

	var revenue, delivery pgtype.Int8
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = $3),
		       COALESCE(SUM(total_cents) FILTER (WHERE status = $3), 0),
		       COALESCE(SUM(delivery_cents) FILTER (WHERE status = $3), 0)
		FROM orders
		WHERE created_at >= $1 AND created_at < $2`,
		from, to, string(StatusLivree),
	).Scan(&summary.Orders, &summary.Delivered, &revenue, &delivery)
	if err != nil {
		return nil, err
	}
	summary.RevenueCents = int(revenue.Int64)
	summary.DeliveryCents = int(delivery.Int64)

	var productCost pgtype.Int8
	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(oi.unit_cost_cents * oi.quantity), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.created_at >= $1 AND o.created_at < $2 AND o.status = $3`,
		from, to, string(StatusLivree),
	).Scan(&productCost)
	if err != nil {
		return nil, err
	}
	summary.ProductCostCents = int(productCost.Int64)

	return summary, nil
}
