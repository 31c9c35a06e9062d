package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse.
// Prices and volume are stored as Decimal(38, 12); values that do not parse
// as decimals are rejected at insert time.
type CandleStore struct {
	conn *Conn
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// InsertBulk adds multiple candles for one series. Fails entire batch on
// duplicate (symbol, timeframe, timestamp_ms).
func (s *CandleStore) InsertBulk(ctx context.Context, symbol, timeframe string, candles []domain.RawCandle) error {
	if symbol == "" || timeframe == "" {
		return storage.ErrInvalidInput
	}
	if len(candles) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[int64]struct{}, len(candles))
	for _, c := range candles {
		if _, exists := seen[c.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		seen[c.TimestampMs] = struct{}{}
	}

	// Check for duplicates against existing rows
	first, last := candles[0].TimestampMs, candles[0].TimestampMs
	for _, c := range candles {
		first = min(first, c.TimestampMs)
		last = max(last, c.TimestampMs)
	}
	existing, err := s.existingTimestamps(ctx, symbol, timeframe, first, last)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	for _, c := range candles {
		if _, exists := existing[c.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
	}

	rows := make([][5]decimal.Decimal, len(candles))
	for i, c := range candles {
		for j, field := range [5]string{c.Open, c.High, c.Low, c.Close, c.Volume} {
			v, err := decimal.NewFromString(field)
			if err != nil {
				return fmt.Errorf("candle %d: %w", c.TimestampMs, storage.ErrInvalidInput)
			}
			rows[i][j] = v
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO candles (
			symbol, timeframe, timestamp_ms, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, c := range candles {
		r := rows[i]
		if err := batch.Append(symbol, timeframe, c.TimestampMs, r[0], r[1], r[2], r[3], r[4]); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetHistoricalData retrieves candles within [start, end] (inclusive),
// ordered by timestamp ASC. A positive limit keeps the most recent records.
func (s *CandleStore) GetHistoricalData(ctx context.Context, symbol, timeframe string, start, end time.Time, limit int) ([]domain.RawCandle, error) {
	query := `
		SELECT timestamp_ms, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND timeframe = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`
	args := []any{symbol, timeframe, start.UnixMilli(), end.UnixMilli()}
	if limit > 0 {
		// Keep the most recent rows, then restore ascending order.
		query = `
			SELECT * FROM (
				SELECT timestamp_ms, open, high, low, close, volume
				FROM candles
				WHERE symbol = ? AND timeframe = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
				ORDER BY timestamp_ms DESC
				LIMIT ?
			) ORDER BY timestamp_ms ASC
		`
		args = append(args, uint64(limit))
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// existingTimestamps returns the stored timestamps of a series within [from, to].
func (s *CandleStore) existingTimestamps(ctx context.Context, symbol, timeframe string, from, to int64) (map[int64]struct{}, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT timestamp_ms FROM candles
		WHERE symbol = ? AND timeframe = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
	`, symbol, timeframe, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[int64]struct{})
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		existing[ts] = struct{}{}
	}
	return existing, rows.Err()
}

// scanCandles scans multiple rows.
func scanCandles(rows chRows) ([]domain.RawCandle, error) {
	candles := make([]domain.RawCandle, 0)

	for rows.Next() {
		var c domain.RawCandle
		var open, high, low, closePrice, volume decimal.Decimal

		if err := rows.Scan(&c.TimestampMs, &open, &high, &low, &closePrice, &volume); err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}

		c.Open = open.String()
		c.High = high.String()
		c.Low = low.String()
		c.Close = closePrice.String()
		c.Volume = volume.String()
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}

	return candles, nil
}
