package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AdCostStore struct {
	pool *pgxpool.Pool
}

func NewAdCostStore(pool *pgxpool.Pool) *AdCostStore {
	return &AdCostStore{pool: pool}
}

func (s *AdCostStore) Create(ctx context.Context, cost *AdCost) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO ad_costs (amount_cents, description, spent_on)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		cost.AmountCents, cost.Description, cost.SpentOn,
	)
	var createdAt pgtype.Timestamptz
	if err := row.Scan(&cost.ID, &createdAt); err != nil {
		return fmt.Errorf("failed to insert ad cost: %w", err)
	}
	cost.CreatedAt = createdAt.Time
	return nil
}

func (s *AdCostStore) List(ctx context.Context, limit int) ([]*AdCost, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, amount_cents, description, spent_on, created_at
		FROM ad_costs ORDER BY spent_on DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var costs []*AdCost
	for rows.Next() {
		var (
			cost      AdCost
			spentOn   pgtype.Date
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&cost.ID, &cost.AmountCents, &cost.Description, &spentOn, &createdAt); err != nil {
			return nil, err
		}
		cost.SpentOn = spentOn.Time
		cost.CreatedAt = createdAt.Time
		costs = append(costs, &cost)
	}
	return costs, rows.Err()
}

func (s *AdCostStore) TotalBetween(ctx context.Context, from, to time.Time) (int, error) {
	var total pgtype.Int8
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM ad_costs
		WHERE spent_on >= $1 AND spent_on < $2`, from, to).Scan(&total)
	if err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}
