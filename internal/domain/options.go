package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Default backtest option values.
const (
	DefaultSymbol           = "BTC/USDT"
	DefaultTimeframe        = "1h"
	DefaultInitialCapital   = 10000
	DefaultMaxRisk          = 0.10 // fraction of cash committed per trade
	DefaultMaxDrawdownLimit = 0.25
	DefaultMaxOpenTrades    = 1
	DefaultMaxTradesPerDay  = 10
	DefaultMinCandles       = 20
	DefaultMaxCandles       = 10000
	DefaultLookback         = 30 * 24 * time.Hour

	DefaultSpread     = 0.0005
	DefaultSlippage   = 0.0005
	DefaultCommission = 0.001
	DefaultPrecision  = 8

	MinBacktestPeriod = 24 * time.Hour
	MaxBacktestPeriod = 365 * 24 * time.Hour
)

// CostConfig parameterizes the trading cost model. Rates are fractions
// (0.001 = 0.1%). Precision is the number of decimal places prices are
// rounded to.
type CostConfig struct {
	Spread     decimal.Decimal `json:"spread" yaml:"spread"`
	Slippage   decimal.Decimal `json:"slippage" yaml:"slippage"`
	Commission decimal.Decimal `json:"commission" yaml:"commission"`
	Precision  int32           `json:"precision" yaml:"precision"`
}

// DefaultCostConfig returns the default cost model parameters.
func DefaultCostConfig() CostConfig {
	return CostConfig{
		Spread:     decimal.NewFromFloat(DefaultSpread),
		Slippage:   decimal.NewFromFloat(DefaultSlippage),
		Commission: decimal.NewFromFloat(DefaultCommission),
		Precision:  DefaultPrecision,
	}
}

// Validate rejects negative rates and precision.
func (c CostConfig) Validate() error {
	if c.Spread.IsNegative() {
		return NewValidationError("spread", "must not be negative")
	}
	if c.Slippage.IsNegative() {
		return NewValidationError("slippage", "must not be negative")
	}
	if c.Commission.IsNegative() {
		return NewValidationError("commission", "must not be negative")
	}
	if c.Precision < 0 {
		return NewValidationError("precision", "must not be negative")
	}
	return nil
}

// CostOptions holds per-run cost settings. A nil field takes its default,
// so an explicit zero (for example Precision 0) is kept.
type CostOptions struct {
	Spread     *decimal.Decimal `json:"spread,omitempty" yaml:"spread,omitempty"`
	Slippage   *decimal.Decimal `json:"slippage,omitempty" yaml:"slippage,omitempty"`
	Commission *decimal.Decimal `json:"commission,omitempty" yaml:"commission,omitempty"`
	Precision  *int32           `json:"precision,omitempty" yaml:"precision,omitempty"`
}

// CostOptionsFrom returns options with every field of cfg set.
func CostOptionsFrom(cfg CostConfig) CostOptions {
	return CostOptions{
		Spread:     Ptr(cfg.Spread),
		Slippage:   Ptr(cfg.Slippage),
		Commission: Ptr(cfg.Commission),
		Precision:  Ptr(cfg.Precision),
	}
}

// Config resolves the options into a CostConfig, defaulting each unset
// field on its own.
func (c CostOptions) Config() CostConfig {
	cfg := DefaultCostConfig()
	if c.Spread != nil {
		cfg.Spread = *c.Spread
	}
	if c.Slippage != nil {
		cfg.Slippage = *c.Slippage
	}
	if c.Commission != nil {
		cfg.Commission = *c.Commission
	}
	if c.Precision != nil {
		cfg.Precision = *c.Precision
	}
	return cfg
}

// Ptr returns a pointer to v. Used to set optional option fields.
func Ptr[T any](v T) *T {
	return &v
}

// BacktestOptions configures one backtest run.
type BacktestOptions struct {
	Symbol         string           `json:"symbol" yaml:"symbol"`
	Timeframe      string           `json:"timeframe" yaml:"timeframe"`
	StartDate      time.Time        `json:"startDate" yaml:"startDate"`
	EndDate        time.Time        `json:"endDate" yaml:"endDate"`
	InitialCapital *decimal.Decimal `json:"initialCapital,omitempty" yaml:"initialCapital,omitempty"`
	MaxRisk        *float64         `json:"maxRisk,omitempty" yaml:"maxRisk,omitempty"`
	Costs          CostOptions      `json:"costs" yaml:"costs"`

	// Capacity and risk controls
	MaxOpenTrades    int           `json:"maxOpenTrades" yaml:"maxOpenTrades"`
	MaxTradesPerDay  int           `json:"maxTradesPerDay" yaml:"maxTradesPerDay"`
	MaxDrawdownLimit float64       `json:"maxDrawdownLimit" yaml:"maxDrawdownLimit"`
	MaxHoldDuration  time.Duration `json:"maxHoldDuration" yaml:"maxHoldDuration"`

	// Data requirements
	MinCandles int `json:"minCandles" yaml:"minCandles"`
	MaxCandles int `json:"maxCandles" yaml:"maxCandles"`

	// SkipPeriodCheck disables the 1..365 day range rule. Used by
	// walk-forward windows, whose length is set by the analysis.
	SkipPeriodCheck bool `json:"-" yaml:"-"`
}

// DefaultBacktestOptions returns options with every default applied and
// the date range ending at now.
func DefaultBacktestOptions(now time.Time) BacktestOptions {
	return BacktestOptions{}.WithDefaults(now)
}

// WithDefaults fills unset fields with defaults. Capital, risk and cost
// fields are unset when nil; the rest when zero. The date range defaults
// to the DefaultLookback window ending at now.
func (o BacktestOptions) WithDefaults(now time.Time) BacktestOptions {
	if o.Symbol == "" {
		o.Symbol = DefaultSymbol
	}
	if o.Timeframe == "" {
		o.Timeframe = DefaultTimeframe
	}
	if o.EndDate.IsZero() {
		o.EndDate = now
	}
	if o.StartDate.IsZero() {
		o.StartDate = o.EndDate.Add(-DefaultLookback)
	}
	if o.InitialCapital == nil {
		o.InitialCapital = Ptr(decimal.NewFromInt(DefaultInitialCapital))
	}
	if o.MaxRisk == nil {
		o.MaxRisk = Ptr(DefaultMaxRisk)
	}
	o.Costs = CostOptionsFrom(o.Costs.Config())
	if o.MaxOpenTrades == 0 {
		o.MaxOpenTrades = DefaultMaxOpenTrades
	}
	if o.MaxTradesPerDay == 0 {
		o.MaxTradesPerDay = DefaultMaxTradesPerDay
	}
	if o.MaxDrawdownLimit == 0 {
		o.MaxDrawdownLimit = DefaultMaxDrawdownLimit
	}
	if o.MinCandles == 0 {
		o.MinCandles = DefaultMinCandles
	}
	if o.MaxCandles == 0 {
		o.MaxCandles = DefaultMaxCandles
	}
	return o
}

// Validate checks options after defaults have been applied.
func (o BacktestOptions) Validate() error {
	if !o.StartDate.Before(o.EndDate) {
		return NewValidationError("startDate", "must be before endDate")
	}
	if !o.SkipPeriodCheck {
		period := o.EndDate.Sub(o.StartDate)
		if period < MinBacktestPeriod {
			return NewValidationError("dateRange", "must span at least 1 day")
		}
		if period > MaxBacktestPeriod {
			return NewValidationError("dateRange", "must not exceed 365 days")
		}
	}
	if !o.Capital().IsPositive() {
		return NewValidationError("initialCapital", "must be positive")
	}
	if r := o.RiskFraction(); r <= 0 || r > 1 {
		return NewValidationError("maxRisk", "must be in (0, 1]")
	}
	if o.MaxOpenTrades < 0 {
		return NewValidationError("maxOpenTrades", "must not be negative")
	}
	if o.MaxTradesPerDay < 0 {
		return NewValidationError("maxTradesPerDay", "must not be negative")
	}
	if o.MaxDrawdownLimit <= 0 || o.MaxDrawdownLimit > 1 {
		return NewValidationError("maxDrawdownLimit", "must be in (0, 1]")
	}
	if o.MinCandles < 1 {
		return NewValidationError("minCandles", "must be at least 1")
	}
	if o.MaxCandles < o.MinCandles {
		return NewValidationError("maxCandles", "must be >= minCandles")
	}
	return o.Costs.Config().Validate()
}

// Capital returns the initial capital, or the default when unset.
func (o BacktestOptions) Capital() decimal.Decimal {
	if o.InitialCapital == nil {
		return decimal.NewFromInt(DefaultInitialCapital)
	}
	return *o.InitialCapital
}

// RiskFraction returns the per-trade cash fraction, or the default when
// unset.
func (o BacktestOptions) RiskFraction() float64 {
	if o.MaxRisk == nil {
		return DefaultMaxRisk
	}
	return *o.MaxRisk
}
