// Package candles cleans raw OHLCV records into validated candles.
package candles

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"crypto-strategy-lab/internal/domain"
)

// ErrInsufficientData is matched by InsufficientDataError via errors.Is.
var ErrInsufficientData = errors.New("insufficient candle data")

// InsufficientDataError is returned when fewer valid candles remain than
// the configured minimum. Non-retryable.
type InsufficientDataError struct {
	Got int
	Min int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient candle data: got %d valid candles, need at least %d", e.Got, e.Min)
}

// Is reports whether target is ErrInsufficientData.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// Config holds validation thresholds.
type Config struct {
	MinCandles int // defaults to domain.DefaultMinCandles
	MaxCandles int // defaults to domain.DefaultMaxCandles
}

// Report describes what validation did to the input.
type Report struct {
	Received  int
	Rejected  int
	Truncated int
}

// Validate parses, filters and sorts raw records.
// Steps:
//  1. Parse every record, silently dropping malformed ones
//  2. Sort ascending by timestamp (stable, duplicates are kept)
//  3. Keep the most recent MaxCandles
//  4. Fail with InsufficientDataError below MinCandles
func Validate(raw []domain.RawCandle, cfg Config) ([]domain.Candle, error) {
	out, _, err := ValidateWithReport(raw, cfg)
	return out, err
}

// ValidateWithReport is Validate plus counts of dropped records.
func ValidateWithReport(raw []domain.RawCandle, cfg Config) ([]domain.Candle, Report, error) {
	cfg = cfg.withDefaults()
	report := Report{Received: len(raw)}

	out := make([]domain.Candle, 0, len(raw))
	for _, r := range raw {
		c, ok := Parse(r)
		if !ok {
			report.Rejected++
			continue
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	if len(out) > cfg.MaxCandles {
		report.Truncated = len(out) - cfg.MaxCandles
		out = out[len(out)-cfg.MaxCandles:]
	}

	if len(out) < cfg.MinCandles {
		return nil, report, &InsufficientDataError{Got: len(out), Min: cfg.MinCandles}
	}

	return out, report, nil
}

// Parse converts one raw record. Returns false if any field is missing,
// non-numeric, or violates low <= {open, close} <= high, volume >= 0.
func Parse(r domain.RawCandle) (domain.Candle, bool) {
	if r.TimestampMs <= 0 {
		return domain.Candle{}, false
	}

	var fields [5]decimal.Decimal
	for i, s := range []string{r.Open, r.High, r.Low, r.Close, r.Volume} {
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return domain.Candle{}, false
		}
		fields[i] = d
	}

	c := domain.Candle{
		Timestamp: time.UnixMilli(r.TimestampMs).UTC(),
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}
	if !IsValid(c) {
		return domain.Candle{}, false
	}
	return c, true
}

// IsValid checks the OHLC invariant on an already-typed candle.
// Prices must also be strictly positive.
func IsValid(c domain.Candle) bool {
	if !c.Low.IsPositive() {
		return false
	}
	if c.Low.GreaterThan(c.Open) || c.Low.GreaterThan(c.Close) {
		return false
	}
	if c.High.LessThan(c.Open) || c.High.LessThan(c.Close) {
		return false
	}
	return !c.Volume.IsNegative()
}

func (c Config) withDefaults() Config {
	if c.MinCandles <= 0 {
		c.MinCandles = domain.DefaultMinCandles
	}
	if c.MaxCandles <= 0 {
		c.MaxCandles = domain.DefaultMaxCandles
	}
	return c
}
