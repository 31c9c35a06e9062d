package strategy

import (
	"crypto-strategy-lab/internal/domain"
)

// Evaluator decides entries and exits for a strategy.
// Implementations must be pure and deterministic: the same inputs always
// produce the same answer, and nothing outside the arguments is read.
type Evaluator interface {
	// EvaluateEntry reports whether a new position should open at current.
	EvaluateEntry(s domain.Strategy, current, previous domain.Candle) bool

	// EvaluateExit reports whether the open trade should close at current.
	EvaluateExit(s domain.Strategy, trade *domain.Trade, current domain.Candle) bool
}

// SideSelector is an optional Evaluator extension choosing the direction
// of a new position. Evaluators without it always open long.
type SideSelector interface {
	SelectSide(s domain.Strategy, current, previous domain.Candle) domain.Side
}

// PositionSizer is an optional Evaluator extension choosing the fraction of
// cash committed to a new position. The engine caps the result at the run's
// maxRisk; non-positive values fall back to maxRisk.
type PositionSizer interface {
	PositionFraction(s domain.Strategy, current domain.Candle) float64
}
