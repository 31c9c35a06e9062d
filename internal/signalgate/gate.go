package signalgate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/observability"
	"crypto-strategy-lab/internal/optimizer"
)

// Options configures a Gate.
type Options struct {
	Criteria Criteria               // zero value uses DefaultCriteria
	Logger   logrus.FieldLogger     // optional
	Metrics  *observability.Metrics // optional
	Clock    func() time.Time       // defaults to UTC wall clock
}

// Gate evaluates live signals.
type Gate struct {
	risk     RiskManager
	runner   optimizer.Runner
	criteria Criteria
	logger   logrus.FieldLogger
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewGate creates a Gate that validates with risk and backtests with runner.
func NewGate(risk RiskManager, runner optimizer.Runner, opts Options) *Gate {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.Criteria == (Criteria{}) {
		opts.Criteria = DefaultCriteria()
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &Gate{
		risk:     risk,
		runner:   runner,
		criteria: opts.Criteria,
		logger:   logger,
		metrics:  opts.Metrics,
		now:      opts.Clock,
	}
}

// Evaluate decides whether sig may create an order.
// Steps:
//  1. Validate the signal with the RiskManager; an invalid signal is NO-GO
//     and no backtest is attempted
//  2. Backtest the signal's strategy on history with opts
//  3. Check the backtest against the GO criteria and NO-GO triggers
//
// A failed backtest is a NO-GO, not an error. Errors are returned only for
// risk manager failures and cancellation.
func (g *Gate) Evaluate(ctx context.Context, sig domain.Signal, userID string, portfolioValue decimal.Decimal, opts domain.BacktestOptions) (*GateResult, error) {
	logger := g.logger.WithFields(logrus.Fields{
		"signal_id": sig.ID,
		"strategy":  sig.Strategy.Name,
		"symbol":    sig.Symbol,
	})
	result := &GateResult{
		SignalID:    sig.ID,
		UserID:      userID,
		Decision:    DecisionNOGO,
		EvaluatedAt: g.now(),
	}

	// 1. Risk validation
	risk, err := g.risk.ValidateSignal(ctx, sig, userID, portfolioValue)
	if err != nil {
		return nil, fmt.Errorf("validate signal: %w", err)
	}
	result.Risk = risk
	if !risk.Valid {
		result.Reason = "risk validation failed: " + strings.Join(risk.Errors, "; ")
		return g.finish(logger, result), nil
	}

	// 2. Historical backtest
	if opts.Symbol == "" {
		opts.Symbol = sig.Symbol
	}
	bt, err := g.runner.RunBacktest(ctx, sig.Strategy, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		result.Reason = "backtest failed: " + err.Error()
		return g.finish(logger, result), nil
	}
	result.Backtest = bt

	// 3. Criteria
	result.GOCriteria = g.evaluateGOCriteria(bt)
	result.NOGOChecks = g.evaluateNOGOTriggers(bt)
	if allPass(result.GOCriteria) && allPass(result.NOGOChecks) {
		result.Decision = DecisionGO
	}
	return g.finish(logger, result), nil
}

func (g *Gate) finish(logger logrus.FieldLogger, r *GateResult) *GateResult {
	g.metrics.RecordSignalDecision(string(r.Decision))
	entry := logger.WithField("decision", r.Decision)
	if r.Reason != "" {
		entry = entry.WithField("reason", r.Reason)
	}
	entry.Info("signal evaluated")
	return r
}

// evaluateGOCriteria evaluates the 4 GO criteria.
func (g *Gate) evaluateGOCriteria(bt *domain.BacktestResult) []CriterionResult {
	m := bt.Metrics
	return []CriterionResult{
		{
			Name:      "Minimum trades",
			Threshold: fmt.Sprintf(">= %d", g.criteria.MinTrades),
			Actual:    fmt.Sprintf("%d", m.TotalTrades),
			Pass:      m.TotalTrades >= g.criteria.MinTrades,
		},
		{
			Name:      "Win rate",
			Threshold: fmt.Sprintf(">= %.2f%%", g.criteria.MinWinRate*100),
			Actual:    fmt.Sprintf("%.2f%%", m.WinRate*100),
			Pass:      m.WinRate >= g.criteria.MinWinRate,
		},
		{
			Name:      "Net profit",
			Threshold: "> 0",
			Actual:    m.NetProfit.StringFixed(2),
			Pass:      m.NetProfit.IsPositive(),
		},
		{
			Name:      "Max drawdown",
			Threshold: fmt.Sprintf("<= %.2f%%", g.criteria.MaxDrawdown*100),
			Actual:    fmt.Sprintf("%.2f%%", m.MaxDrawdown*100),
			Pass:      m.MaxDrawdown <= g.criteria.MaxDrawdown,
		},
	}
}

// evaluateNOGOTriggers evaluates the 2 NO-GO triggers.
// Pass=true means NOT triggered, Pass=false means triggered.
func (g *Gate) evaluateNOGOTriggers(bt *domain.BacktestResult) []CriterionResult {
	m := bt.Metrics
	return []CriterionResult{
		{
			Name:      "Circuit breaker tripped",
			Threshold: "status == aborted",
			Actual:    string(bt.Summary.Status),
			Pass:      bt.Summary.Status != domain.RunStatusAborted,
		},
		{
			Name:      "Losing streak",
			Threshold: fmt.Sprintf("> %d consecutive losses", g.criteria.MaxConsecutiveLosses),
			Actual:    fmt.Sprintf("%d", m.MaxConsecutiveLosses),
			Pass:      m.MaxConsecutiveLosses <= g.criteria.MaxConsecutiveLosses,
		},
	}
}

func allPass(results []CriterionResult) bool {
	for _, c := range results {
		if !c.Pass {
			return false
		}
	}
	return true
}
