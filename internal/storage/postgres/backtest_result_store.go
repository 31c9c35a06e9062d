package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/idhash"
	"crypto-strategy-lab/internal/storage"
)

// BacktestResultStore implements storage.BacktestResultStore using PostgreSQL.
// The full result is stored as a JSONB payload; summary columns are
// denormalized for querying.
type BacktestResultStore struct {
	pool *Pool
}

// NewBacktestResultStore creates a new BacktestResultStore.
func NewBacktestResultStore(pool *Pool) *BacktestResultStore {
	return &BacktestResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BacktestResultStore = (*BacktestResultStore)(nil)

// Insert adds a new result. Returns ErrDuplicateKey if backtest_id exists.
func (s *BacktestResultStore) Insert(ctx context.Context, r *domain.BacktestResult) error {
	if r == nil || r.BacktestID == "" {
		return storage.ErrInvalidInput
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode backtest result: %w", err)
	}

	query := `
		INSERT INTO backtest_results (
			backtest_id, strategy_name, parameters_id, symbol, timeframe,
			status, total_trades, sharpe_ratio, total_return, max_drawdown, net_profit,
			started_at, completed_at, payload
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11::text::numeric,
			$12, $13, $14
		)
	`

	_, err = s.pool.Exec(ctx, query,
		r.BacktestID, r.Strategy.Name, idhash.ComputeParametersID(r.Strategy.Name, r.Strategy.Parameters),
		r.Options.Symbol, r.Options.Timeframe,
		string(r.Summary.Status), r.Metrics.TotalTrades, r.Metrics.SharpeRatio,
		r.Metrics.TotalReturn, r.Metrics.MaxDrawdown, r.Metrics.NetProfit.String(),
		r.StartedAt, r.CompletedAt, payload,
	)
	return translate("insert backtest result", err)
}

// GetByID retrieves a result by its ID. Returns ErrNotFound if not exists.
func (s *BacktestResultStore) GetByID(ctx context.Context, backtestID string) (*domain.BacktestResult, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT payload FROM backtest_results WHERE backtest_id = $1
	`, backtestID)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		return nil, translate("get backtest result", err)
	}
	return decodeResult(payload)
}

// GetAll retrieves all results ordered by started_at ASC, backtest_id ASC.
func (s *BacktestResultStore) GetAll(ctx context.Context) ([]*domain.BacktestResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM backtest_results
		ORDER BY started_at ASC, backtest_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query backtest results: %w", err)
	}
	return scanResults(rows)
}

// DeleteOlderThan removes results completed before cutoff.
func (s *BacktestResultStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM backtest_results WHERE completed_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete backtest results: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanResults(rows pgx.Rows) ([]*domain.BacktestResult, error) {
	defer rows.Close()

	var results []*domain.BacktestResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan backtest result: %w", err)
		}
		r, err := decodeResult(payload)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func decodeResult(payload []byte) (*domain.BacktestResult, error) {
	var r domain.BacktestResult
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("decode backtest result: %w", err)
	}
	return &r, nil
}
