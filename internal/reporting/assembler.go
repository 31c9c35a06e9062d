// Package reporting packages simulation output into results and renders
// them as Markdown and CSV.
package reporting

import (
	"time"

	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/metrics"
)

// Assembler builds immutable BacktestResults from finished simulations.
type Assembler struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewAssembler creates an Assembler using the UTC wall clock.
func NewAssembler() *Assembler {
	return &Assembler{now: func() time.Time { return time.Now().UTC() }}
}

// WithClock sets a custom clock function for deterministic output.
func (a *Assembler) WithClock(now func() time.Time) *Assembler {
	a.now = now
	return a
}

// Assemble computes performance metrics and packages one run. The
// strategy and summary are copied so later mutation of the inputs does not
// leak into the result.
func (a *Assembler) Assemble(
	backtestID string,
	s domain.Strategy,
	opts domain.BacktestOptions,
	summary *domain.SimulationSummary,
	startedAt time.Time,
) *domain.BacktestResult {
	r := &domain.BacktestResult{
		BacktestID:  backtestID,
		Strategy:    s,
		Options:     opts,
		Summary:     *summary,
		Metrics:     metrics.Compute(summary.Trades, summary.Portfolio, summary.EquityCurve),
		StartedAt:   startedAt,
		CompletedAt: a.now(),
	}
	return r.Clone()
}
