package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/storage"
)

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu   sync.RWMutex
	data map[string]map[int64]domain.RawCandle // series key -> timestamp_ms -> candle
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		data: make(map[string]map[int64]domain.RawCandle),
	}
}

// seriesKey generates a unique key for a symbol/timeframe series.
func seriesKey(symbol, timeframe string) string {
	return fmt.Sprintf("%s|%s", symbol, timeframe)
}

// InsertBulk adds multiple candles. Fails entire batch on duplicate.
func (s *CandleStore) InsertBulk(_ context.Context, symbol, timeframe string, candles []domain.RawCandle) error {
	if symbol == "" || timeframe == "" {
		return storage.ErrInvalidInput
	}
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := seriesKey(symbol, timeframe)
	series := s.data[key]

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[int64]struct{}, len(candles))

	// First pass: check for duplicates (existing + intra-batch)
	for _, c := range candles {
		if _, exists := series[c.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[c.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[c.TimestampMs] = struct{}{}
	}

	// Second pass: insert all
	if series == nil {
		series = make(map[int64]domain.RawCandle, len(candles))
		s.data[key] = series
	}
	for _, c := range candles {
		series[c.TimestampMs] = c
	}

	return nil
}

// GetHistoricalData retrieves candles within [start, end] (inclusive),
// ordered by timestamp ASC. A positive limit keeps the most recent records.
func (s *CandleStore) GetHistoricalData(_ context.Context, symbol, timeframe string, start, end time.Time, limit int) ([]domain.RawCandle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	startMs, endMs := start.UnixMilli(), end.UnixMilli()
	result := make([]domain.RawCandle, 0)
	for ts, c := range s.data[seriesKey(symbol, timeframe)] {
		if ts >= startMs && ts <= endMs {
			result = append(result, c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

var _ storage.CandleStore = (*CandleStore)(nil)
