package storage

import (
	"context"
	"time"

	"crypto-strategy-lab/internal/domain"
)

// CandleSource provides historical candle records.
type CandleSource interface {
	// GetHistoricalData retrieves raw candles for symbol/timeframe with
	// timestamps in [start, end], ordered by timestamp ASC. limit <= 0 means
	// no limit; otherwise the most recent limit records are returned.
	// An empty result is not an error.
	GetHistoricalData(ctx context.Context, symbol, timeframe string, start, end time.Time, limit int) ([]domain.RawCandle, error)
}

// CandleStore is a writable CandleSource.
type CandleStore interface {
	CandleSource

	// InsertBulk adds candles for symbol/timeframe. Fails entire batch on
	// any duplicate timestamp.
	InsertBulk(ctx context.Context, symbol, timeframe string, candles []domain.RawCandle) error
}

// BacktestResultStore persists immutable backtest results.
type BacktestResultStore interface {
	// Insert adds a result. Returns ErrDuplicateKey if backtest_id exists.
	Insert(ctx context.Context, r *domain.BacktestResult) error

	// GetByID retrieves a result by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, backtestID string) (*domain.BacktestResult, error)

	// GetAll retrieves all results ordered by started_at ASC, backtest_id ASC.
	GetAll(ctx context.Context) ([]*domain.BacktestResult, error)

	// DeleteOlderThan removes results completed before cutoff and returns
	// the number removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// ImportCheckpoint is the last candle imported for a symbol/timeframe.
type ImportCheckpoint struct {
	Symbol          string
	Timeframe       string
	LastTimestampMs int64 // last imported candle timestamp
	Rows            int64 // total rows imported so far
	UpdatedAt       time.Time
}

// ImportCheckpointStore persists import progress so that candle imports can
// resume without reinserting rows.
type ImportCheckpointStore interface {
	// Get returns the checkpoint for symbol/timeframe.
	// Returns ErrNotFound if nothing has been imported yet.
	Get(ctx context.Context, symbol, timeframe string) (*ImportCheckpoint, error)

	// Set saves the checkpoint, replacing any previous one.
	Set(ctx context.Context, cp *ImportCheckpoint) error
}
