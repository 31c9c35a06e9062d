package postgres

import (
	"context"
	"fmt"

	"crypto-strategy-lab/internal/storage"
)

// ImportCheckpointStore is a PostgreSQL implementation of storage.ImportCheckpointStore.
// One row per (symbol, timeframe) in import_checkpoints.
type ImportCheckpointStore struct {
	pool *Pool
}

// NewImportCheckpointStore creates a new PostgreSQL checkpoint store.
func NewImportCheckpointStore(pool *Pool) *ImportCheckpointStore {
	return &ImportCheckpointStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ImportCheckpointStore = (*ImportCheckpointStore)(nil)

// Get returns the checkpoint for symbol/timeframe.
func (s *ImportCheckpointStore) Get(ctx context.Context, symbol, timeframe string) (*storage.ImportCheckpoint, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT symbol, timeframe, last_timestamp_ms, rows_imported, updated_at
		FROM import_checkpoints
		WHERE symbol = $1 AND timeframe = $2
	`, symbol, timeframe)

	var cp storage.ImportCheckpoint
	if err := row.Scan(&cp.Symbol, &cp.Timeframe, &cp.LastTimestampMs, &cp.Rows, &cp.UpdatedAt); err != nil {
		return nil, translate("get import checkpoint", err)
	}
	return &cp, nil
}

// Set saves the checkpoint. Uses upsert to handle initial insert and
// subsequent updates.
func (s *ImportCheckpointStore) Set(ctx context.Context, cp *storage.ImportCheckpoint) error {
	if cp == nil || cp.Symbol == "" || cp.Timeframe == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO import_checkpoints (symbol, timeframe, last_timestamp_ms, rows_imported, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (symbol, timeframe) DO UPDATE
		SET last_timestamp_ms = EXCLUDED.last_timestamp_ms,
		    rows_imported = EXCLUDED.rows_imported,
		    updated_at = NOW()
	`, cp.Symbol, cp.Timeframe, cp.LastTimestampMs, cp.Rows)
	if err != nil {
		return fmt.Errorf("set import checkpoint: %w", err)
	}
	return nil
}
