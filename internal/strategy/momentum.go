package strategy

import (
	"crypto-strategy-lab/internal/domain"
)

// Momentum parameter keys.
const (
	ParamEntryThreshold   = "entryThreshold"   // min close-to-close move to enter
	ParamExitThreshold    = "exitThreshold"    // adverse candle body that triggers exit
	ParamAllowShort       = "allowShort"       // 1 enables short entries on down moves
	ParamPositionFraction = "positionFraction" // fraction of cash per trade
)

// Momentum defaults.
const (
	DefaultEntryThreshold = 0.01
	DefaultExitThreshold  = 0.01
)

// MomentumEvaluator follows strong close-to-close moves.
//   - entry: |close/prevClose - 1| >= entryThreshold (down moves only with allowShort)
//   - side: short on down moves when allowShort, else long
//   - exit: candle body moves against the position by exitThreshold
type MomentumEvaluator struct{}

// NewMomentum creates a momentum evaluator.
func NewMomentum() *MomentumEvaluator {
	return &MomentumEvaluator{}
}

// EvaluateEntry reports a momentum breakout versus the previous close.
func (e *MomentumEvaluator) EvaluateEntry(s domain.Strategy, current, previous domain.Candle) bool {
	threshold := nonNegative(s.Parameters, ParamEntryThreshold, DefaultEntryThreshold)
	change := pctChange(previous.Close, current.Close)

	if change >= threshold {
		return true
	}
	return allowShort(s) && change <= -threshold
}

// EvaluateExit reports an adverse candle body.
func (e *MomentumEvaluator) EvaluateExit(s domain.Strategy, trade *domain.Trade, current domain.Candle) bool {
	threshold := nonNegative(s.Parameters, ParamExitThreshold, DefaultExitThreshold)
	body := pctChange(current.Open, current.Close)

	if trade.Side == domain.SideShort {
		return body >= threshold
	}
	return body <= -threshold
}

// SelectSide goes short on down moves when shorting is allowed.
func (e *MomentumEvaluator) SelectSide(s domain.Strategy, current, previous domain.Candle) domain.Side {
	if allowShort(s) && current.Close.LessThan(previous.Close) {
		return domain.SideShort
	}
	return domain.SideLong
}

// PositionFraction returns the positionFraction parameter (0 = engine default).
func (e *MomentumEvaluator) PositionFraction(s domain.Strategy, _ domain.Candle) float64 {
	return nonNegative(s.Parameters, ParamPositionFraction, 0)
}

func allowShort(s domain.Strategy) bool {
	return s.Parameters.Get(ParamAllowShort, 0) >= 1
}

// Ensure MomentumEvaluator implements Evaluator, SideSelector and PositionSizer
var (
	_ Evaluator     = (*MomentumEvaluator)(nil)
	_ SideSelector  = (*MomentumEvaluator)(nil)
	_ PositionSizer = (*MomentumEvaluator)(nil)
)
