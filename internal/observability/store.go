package observability

import (
	"context"
	"errors"
	"time"

	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/storage"
)

// ResultStore records query metrics around a storage.BacktestResultStore.
type ResultStore struct {
	next     storage.BacktestResultStore
	metrics  *Metrics
	database string
}

// InstrumentResultStore wraps next. database labels the metrics.
func InstrumentResultStore(next storage.BacktestResultStore, m *Metrics, database string) *ResultStore {
	return &ResultStore{next: next, metrics: m, database: database}
}

func (s *ResultStore) Insert(ctx context.Context, r *domain.BacktestResult) error {
	start := time.Now()
	err := s.next.Insert(ctx, r)
	s.record("insert", start, err)
	return err
}

func (s *ResultStore) GetByID(ctx context.Context, backtestID string) (*domain.BacktestResult, error) {
	start := time.Now()
	r, err := s.next.GetByID(ctx, backtestID)
	s.record("get_by_id", start, err)
	return r, err
}

func (s *ResultStore) GetAll(ctx context.Context) ([]*domain.BacktestResult, error) {
	start := time.Now()
	rs, err := s.next.GetAll(ctx)
	s.record("get_all", start, err)
	return rs, err
}

func (s *ResultStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	start := time.Now()
	n, err := s.next.DeleteOlderThan(ctx, cutoff)
	s.record("delete", start, err)
	return n, err
}

func (s *ResultStore) record(op string, start time.Time, err error) {
	s.metrics.RecordDBQuery(s.database, op, time.Since(start).Seconds(), queryError(err))
}

// CandleSource records query metrics around a storage.CandleSource.
type CandleSource struct {
	next     storage.CandleSource
	metrics  *Metrics
	database string
}

// InstrumentCandleSource wraps next. database labels the metrics.
func InstrumentCandleSource(next storage.CandleSource, m *Metrics, database string) *CandleSource {
	return &CandleSource{next: next, metrics: m, database: database}
}

func (s *CandleSource) GetHistoricalData(ctx context.Context, symbol, timeframe string, start, end time.Time, limit int) ([]domain.RawCandle, error) {
	began := time.Now()
	out, err := s.next.GetHistoricalData(ctx, symbol, timeframe, start, end, limit)
	s.metrics.RecordDBQuery(s.database, "get_historical_data", time.Since(began).Seconds(), queryError(err))
	return out, err
}

// queryError drops lookups of missing rows, which are expected outcomes.
func queryError(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

var (
	_ storage.BacktestResultStore = (*ResultStore)(nil)
	_ storage.CandleSource        = (*CandleSource)(nil)
)
