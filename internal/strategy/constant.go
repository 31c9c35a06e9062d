package strategy

import (
	"crypto-strategy-lab/internal/domain"
)

// ConstantEvaluator returns fixed answers regardless of market data.
// Useful as a baseline and in tests.
type ConstantEvaluator struct {
	Entry bool
	Exit  bool
}

// NewBuyAndHold creates an evaluator that always enters and never exits.
func NewBuyAndHold() *ConstantEvaluator {
	return &ConstantEvaluator{Entry: true, Exit: false}
}

// NewIdle creates an evaluator that never trades.
func NewIdle() *ConstantEvaluator {
	return &ConstantEvaluator{}
}

// EvaluateEntry returns the fixed entry answer.
func (e *ConstantEvaluator) EvaluateEntry(domain.Strategy, domain.Candle, domain.Candle) bool {
	return e.Entry
}

// EvaluateExit returns the fixed exit answer.
func (e *ConstantEvaluator) EvaluateExit(domain.Strategy, *domain.Trade, domain.Candle) bool {
	return e.Exit
}

// Ensure ConstantEvaluator implements Evaluator
var _ Evaluator = (*ConstantEvaluator)(nil)
