// Package signalgate decides whether a live trading signal may create an
// order. A signal must pass risk validation and a historical backtest of
// its strategy before it is released.
package signalgate

import (
	"time"

	"crypto-strategy-lab/internal/domain"
)

// Decision represents the final GO/NO-GO result.
type Decision string

const (
	DecisionGO   Decision = "GO"
	DecisionNOGO Decision = "NO-GO"
)

// CriterionResult represents pass/fail for one criterion.
type CriterionResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// Criteria are the backtest thresholds a signal's strategy must meet.
type Criteria struct {
	MinTrades            int     // closed trades in the backtest
	MinWinRate           float64 // 0..1
	MaxDrawdown          float64 // 0..1
	MaxConsecutiveLosses int
}

// DefaultCriteria returns the default gate thresholds.
func DefaultCriteria() Criteria {
	return Criteria{
		MinTrades:            5,
		MinWinRate:           0.4,
		MaxDrawdown:          0.2,
		MaxConsecutiveLosses: 5,
	}
}

// GateResult contains the decision for one signal with its checklist.
type GateResult struct {
	SignalID    string
	UserID      string
	Decision    Decision
	Risk        domain.RiskAssessment
	Backtest    *domain.BacktestResult // nil when the backtest did not run or failed
	GOCriteria  []CriterionResult
	NOGOChecks  []CriterionResult // Pass=false means triggered
	Reason      string            // set when the gate stopped before evaluating criteria
	EvaluatedAt time.Time
}

// Released reports whether the signal may create an order.
func (r *GateResult) Released() bool {
	return r != nil && r.Decision == DecisionGO
}
