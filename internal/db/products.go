package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductStore struct {
	pool *pgxpool.Pool
}

func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

func (s *ProductStore) GetByID(ctx context.Context, productID int64) (*Product, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, category, price_cents, cost_cents, active, created_at
		FROM products WHERE id = $1`, productID)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return nil, err
	}
	return product, nil
}

func (s *ProductStore) ListActive(ctx context.Context) ([]*Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, category, price_cents, cost_cents, active, created_at
		FROM products WHERE active = TRUE ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func scanProduct(row rowScanner) (*Product, error) {
	var (
		product   Product
		createdAt pgtype.Timestamptz
	)
	err := row.Scan(&product.ID, &product.Name, &product.Category, &product.PriceCents, &product.CostCents, &product.Active, &createdAt)
	if err != nil {
		return nil, err
	}
	product.CreatedAt = createdAt.Time
	return &product, nil
}
