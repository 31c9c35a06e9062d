// Package csvfile reads and writes candle history as CSV files.
//
// A directory holds one file per series named <symbol>_<timeframe>.csv, with
// "/" in the symbol replaced by "-" (BTC/USDT 1h -> BTC-USDT_1h.csv). Files
// carry a header row: timestamp,open,high,low,close,volume.
package csvfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/storage"
)

// Source is a read-only storage.CandleSource backed by a directory of CSV files.
type Source struct {
	dir string
}

// NewSource creates a Source reading from dir.
func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

var _ storage.CandleSource = (*Source)(nil)

// FileName returns the file name of a series.
func FileName(symbol, timeframe string) string {
	return fmt.Sprintf("%s_%s.csv", strings.ReplaceAll(symbol, "/", "-"), timeframe)
}

// GetHistoricalData reads the series file and returns candles within
// [start, end] ordered by timestamp ASC. A positive limit keeps the most
// recent records. A missing file yields storage.ErrNotFound.
func (s *Source) GetHistoricalData(ctx context.Context, symbol, timeframe string, start, end time.Time, limit int) ([]domain.RawCandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	all, err := ReadFile(filepath.Join(s.dir, FileName(symbol, timeframe)))
	if err != nil {
		return nil, err
	}

	startMs, endMs := start.UnixMilli(), end.UnixMilli()
	result := make([]domain.RawCandle, 0, len(all))
	for _, c := range all {
		if c.TimestampMs >= startMs && c.TimestampMs <= endMs {
			result = append(result, c)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

// ReadFile parses a candle CSV file in file order.
func ReadFile(path string) ([]domain.RawCandle, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("open candle file: %w", err)
	}
	defer f.Close()

	var candles []domain.RawCandle
	if err := gocsv.UnmarshalFile(f, &candles); err != nil {
		return nil, fmt.Errorf("parse candle file %s: %w", filepath.Base(path), err)
	}
	return candles, nil
}

// WriteFile writes candles to path, replacing any existing file.
func WriteFile(path string, candles []domain.RawCandle) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create candle file: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&candles, f); err != nil {
		return fmt.Errorf("write candle file: %w", err)
	}
	return nil
}
