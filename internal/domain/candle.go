package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawCandle is an unvalidated OHLCV record as delivered by a data source.
// Price and volume fields are kept as text so that malformed values can be
// detected and dropped by the candle validator.
type RawCandle struct {
	TimestampMs int64  `csv:"timestamp" json:"timestamp"` // bar open time (ms)
	Open        string `csv:"open" json:"open"`
	High        string `csv:"high" json:"high"`
	Low         string `csv:"low" json:"low"`
	Close       string `csv:"close" json:"close"`
	Volume      string `csv:"volume" json:"volume"`
}

// Candle is a validated OHLCV bar.
// Invariant: Low <= {Open, Close} <= High and Volume >= 0.
type Candle struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// Day returns the UTC calendar day of the candle, used for per-day trade caps.
func (c Candle) Day() string {
	return c.Timestamp.UTC().Format("2006-01-02")
}
