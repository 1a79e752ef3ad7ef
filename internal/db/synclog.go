package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tajerapp/tajer/internal/models"
)

// SyncLogStore is the append-only audit trail of external-system
// interactions. Rows are written once and only ever listed.
type SyncLogStore struct {
	pool *pgxpool.Pool
}

func NewSyncLogStore(pool *pgxpool.Pool) *SyncLogStore {
	return &SyncLogStore{pool: pool}
}

func (s *SyncLogStore) Record(ctx context.Context, orderID *int64, action models.SyncAction, result models.SyncResult, detail string) error {
	var orderValue pgtype.Int8
	if orderID != nil {
		orderValue = pgtype.Int8{Int64: *orderID, Valid: true}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_logs (order_id, action, result, detail)
		VALUES ($1, $2, $3, $4)`,
		orderValue, string(action), string(result), detail,
	)
	if err != nil {
		return fmt.Errorf("failed to record sync log: %w", err)
	}
	return nil
}

func (s *SyncLogStore) List(ctx context.Context, limit int) ([]*SyncLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, action, result, detail, created_at
		FROM sync_logs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*SyncLog
	for rows.Next() {
		var (
			entry     SyncLog
			orderID   pgtype.Int8
			action    string
			result    string
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&entry.ID, &orderID, &action, &result, &entry.Detail, &createdAt); err != nil {
			return nil, err
		}
		if orderID.Valid {
			id := orderID.Int64
			entry.OrderID = &id
		}
		entry.Action = models.SyncAction(action)
		entry.Result = models.SyncResult(result)
		entry.CreatedAt = createdAt.Time
		logs = append(logs, &entry)
	}
	return logs, rows.Err()
}

func (s *SyncLogStore) ListByOrder(ctx context.Context, orderID int64) ([]*SyncLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, action, result, detail, created_at
		FROM sync_logs WHERE order_id = $1 ORDER BY created_at ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*SyncLog
	for rows.Next() {
		var (
			entry     SyncLog
			oid       pgtype.Int8
			action    string
			result    string
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&entry.ID, &oid, &action, &result, &entry.Detail, &createdAt); err != nil {
			return nil, err
		}
		if oid.Valid {
			id := oid.Int64
			entry.OrderID = &id
		}
		entry.Action = models.SyncAction(action)
		entry.Result = models.SyncResult(result)
		entry.CreatedAt = createdAt.Time
		logs = append(logs, &entry)
	}
	return logs, rows.Err()
}
