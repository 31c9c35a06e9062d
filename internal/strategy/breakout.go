package strategy

import (
	"github.com/shopspring/decimal"

	"crypto-strategy-lab/internal/domain"
)

// Breakout parameter keys.
const (
	ParamBreakoutBuffer = "breakoutBuffer" // close must clear prev high by this fraction
	ParamVolumeFactor   = "volumeFactor"   // volume must be >= prev volume * factor; 0 disables
	ParamFailurePct     = "failurePct"     // close below entry by this fraction = failed breakout
)

// DefaultFailurePct is the failed-breakout exit threshold.
const DefaultFailurePct = 0.005

// BreakoutEvaluator enters long when price closes above the previous high
// and exits when the breakout fails back below the entry price.
// Long only.
type BreakoutEvaluator struct{}

// NewBreakout creates a breakout evaluator.
func NewBreakout() *BreakoutEvaluator {
	return &BreakoutEvaluator{}
}

// EvaluateEntry reports a close above the previous high, optionally
// confirmed by volume.
func (e *BreakoutEvaluator) EvaluateEntry(s domain.Strategy, current, previous domain.Candle) bool {
	buffer := nonNegative(s.Parameters, ParamBreakoutBuffer, 0)
	level := previous.High.Mul(decimal.NewFromFloat(1 + buffer))
	if !current.Close.GreaterThan(level) {
		return false
	}

	factor := nonNegative(s.Parameters, ParamVolumeFactor, 0)
	if factor == 0 {
		return true
	}
	return current.Volume.GreaterThanOrEqual(previous.Volume.Mul(decimal.NewFromFloat(factor)))
}

// EvaluateExit reports a failed breakout after the entry candle.
func (e *BreakoutEvaluator) EvaluateExit(s domain.Strategy, trade *domain.Trade, current domain.Candle) bool {
	if !current.Timestamp.After(trade.EntryTime) {
		return false
	}
	failure := nonNegative(s.Parameters, ParamFailurePct, DefaultFailurePct)
	return pctChange(trade.EntryPrice, current.Close) <= -failure
}

// Ensure BreakoutEvaluator implements Evaluator
var _ Evaluator = (*BreakoutEvaluator)(nil)
