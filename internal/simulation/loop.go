// Package simulation replays candles through a strategy against a
// simulated portfolio.
package simulation

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"crypto-strategy-lab/internal/costs"
	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/portfolio"
	"crypto-strategy-lab/internal/progress"
	"crypto-strategy-lab/internal/strategy"
)

// State is the lifecycle state of a Loop.
type State int32

// State constants. Completed, Aborted, Cancelled and Failed are terminal.
const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateAborted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// DefaultProgressEmissions is the number of progress events per run.
const DefaultProgressEmissions = 10

// LoopOptions contains configuration for creating a Loop.
type LoopOptions struct {
	RunID     string
	Strategy  domain.Strategy
	Candles   []domain.Candle // validated, ascending
	Options   domain.BacktestOptions
	Evaluator strategy.Evaluator
	Progress  progress.Publisher // optional
	Logger    logrus.FieldLogger // optional

	// ProgressEmissions is how many progress events a run emits; 0 uses
	// DefaultProgressEmissions, negative disables progress.
	ProgressEmissions int
}

// Loop runs exactly one (strategy, candles, options) simulation.
// A Loop owns all of its state and is not reusable.
type Loop struct {
	opts   LoopOptions
	logger logrus.FieldLogger
	state  atomic.Int32

	ledger    *portfolio.Ledger
	book      *Book
	lifecycle *Lifecycle

	tradesPerDay map[string]int
	processed    int
	abortReason  string
	emitted      int
}

// NewLoop creates a simulation loop in the Idle state.
// Options must already have defaults applied.
func NewLoop(opts LoopOptions) *Loop {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithFields(logrus.Fields{
		"backtest_id": opts.RunID,
		"strategy":    opts.Strategy.Name,
		"symbol":      opts.Options.Symbol,
	})

	ledger := portfolio.NewLedger(opts.Options.Capital())
	book := NewBook()
	maxHold := opts.Options.MaxHoldDuration
	if hours := opts.Strategy.Parameters.Get(domain.ParamMaxHoldHours, 0); hours > 0 {
		maxHold = time.Duration(hours * float64(time.Hour))
	}

	return &Loop{
		opts:         opts,
		logger:       logger,
		ledger:       ledger,
		book:         book,
		lifecycle:    NewLifecycle(opts.Strategy, opts.Options.Symbol, costs.NewModel(opts.Options.Costs.Config()), ledger, book, maxHold),
		tradesPerDay: make(map[string]int),
	}
}

// State returns the current state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Run executes the simulation.
// Per candle after the first:
//  1. Mark-to-market the portfolio
//  2. Close open trades whose exit triggers fire
//  3. Open a trade if entry fires and capacity allows
//  4. Abort when drawdown exceeds maxDrawdownLimit
//
// Returns ErrCancelled when ctx is done at a candle boundary, and a
// *SimulationError for any fault inside the loop, including panics.
func (l *Loop) Run(ctx context.Context) (summary *domain.SimulationSummary, err error) {
	if !l.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, ErrAlreadyStarted
	}
	candles := l.opts.Candles
	if len(candles) == 0 {
		l.setState(StateFailed)
		return nil, ErrNoCandles
	}

	defer func() {
		if r := recover(); r != nil {
			l.setState(StateFailed)
			summary = nil
			err = &SimulationError{Step: l.processed - 1, Err: fmt.Errorf("panic: %v", r)}
			l.logger.WithError(err).Error("simulation panicked")
		}
	}()

	l.logger.WithField("candles", len(candles)).Debug("simulation started")

	var prev domain.Candle
	for i, c := range candles {
		if ctxErr := ctx.Err(); ctxErr != nil {
			l.setState(StateCancelled)
			l.logger.WithField("step", i).Info("simulation cancelled")
			return nil, fmt.Errorf("%w: %v", ErrCancelled, ctxErr)
		}
		l.processed++

		if err := l.step(i, c, prev); err != nil {
			l.setState(StateFailed)
			l.logger.WithError(err).Error("simulation failed")
			return nil, err
		}
		prev = c
		l.emitProgress(len(candles))

		if l.State() == StateAborted {
			break
		}
	}

	last := candles[l.processed-1]
	if l.State() == StateRunning {
		if err := l.lifecycle.CloseAll(last, domain.ExitReasonBacktestEnded); err != nil {
			l.setState(StateFailed)
			return nil, &SimulationError{Step: l.processed - 1, Err: err}
		}
		l.ledger.Revalue(last.Close, nil)
		l.setState(StateCompleted)
	}
	l.publish(100, fmt.Sprintf("simulation %s", l.State()))

	l.logger.WithFields(logrus.Fields{
		"status":    l.State().String(),
		"processed": l.processed,
		"trades":    l.book.ClosedCount(),
	}).Debug("simulation finished")

	return l.summary(), nil
}

// step processes candle i. The first candle only seeds the equity curve.
func (l *Loop) step(i int, c, prev domain.Candle) error {
	// 1. Mark-to-market
	if err := l.ledger.MarkToMarket(c, l.book.OpenTrades()); err != nil {
		return &SimulationError{Step: i, Err: err}
	}
	if i == 0 {
		return nil
	}

	// 2. Exits
	for _, idx := range l.book.OpenIndices() {
		reason, ok := l.lifecycle.ExitReason(l.opts.Evaluator, l.book.At(idx), c)
		if !ok {
			continue
		}
		if _, err := l.lifecycle.CloseTrade(idx, c, reason); err != nil {
			return &SimulationError{Step: i, Err: err}
		}
	}

	// 3. Entries
	if l.canOpen(c) && l.opts.Evaluator.EvaluateEntry(l.opts.Strategy, c, prev) {
		side := l.selectSide(c, prev)
		notional := l.ledger.Cash().Mul(decimal.NewFromFloat(l.positionFraction(c)))
		size := l.lifecycle.PositionSize(c, side, notional)
		if t := l.lifecycle.OpenTrade(c, size, side); t != nil {
			l.tradesPerDay[c.Day()]++
		}
	}
	l.ledger.Revalue(c.Close, l.book.OpenTrades())

	// 4. Circuit breaker
	if dd := l.ledger.Drawdown(); dd > l.opts.Options.MaxDrawdownLimit {
		l.abortReason = fmt.Sprintf("drawdown %.4f exceeded limit %.4f", dd, l.opts.Options.MaxDrawdownLimit)
		if err := l.lifecycle.CloseAll(c, domain.ExitReasonCircuitBreaker); err != nil {
			return &SimulationError{Step: i, Err: err}
		}
		l.ledger.Revalue(c.Close, nil)
		l.setState(StateAborted)
		l.logger.WithField("step", i).Warn("circuit breaker tripped: " + l.abortReason)
	}
	return nil
}

// canOpen checks the capacity limits that do not depend on a signal.
func (l *Loop) canOpen(c domain.Candle) bool {
	o := l.opts.Options
	if o.MaxOpenTrades > 0 && l.book.OpenCount() >= o.MaxOpenTrades {
		return false
	}
	if o.MaxTradesPerDay > 0 && l.tradesPerDay[c.Day()] >= o.MaxTradesPerDay {
		return false
	}
	return l.ledger.Cash().IsPositive()
}

func (l *Loop) selectSide(c, prev domain.Candle) domain.Side {
	if sel, ok := l.opts.Evaluator.(strategy.SideSelector); ok {
		if side := sel.SelectSide(l.opts.Strategy, c, prev); side == domain.SideShort {
			return domain.SideShort
		}
	}
	return domain.SideLong
}

func (l *Loop) positionFraction(c domain.Candle) float64 {
	maxRisk := l.opts.Options.RiskFraction()
	sizer, ok := l.opts.Evaluator.(strategy.PositionSizer)
	if !ok {
		return maxRisk
	}
	f := sizer.PositionFraction(l.opts.Strategy, c)
	if f <= 0 || f > maxRisk {
		return maxRisk
	}
	return f
}

func (l *Loop) emitProgress(total int) {
	n := l.emissions()
	if n <= 0 {
		return
	}
	every := (total + n - 1) / n
	if l.processed%every != 0 || l.processed == total {
		return
	}
	pct := float64(l.processed) * 100 / float64(total)
	l.publish(pct, fmt.Sprintf("processed %d/%d candles", l.processed, total))
}

func (l *Loop) emissions() int {
	switch {
	case l.opts.Progress == nil || l.opts.ProgressEmissions < 0:
		return 0
	case l.opts.ProgressEmissions == 0:
		return DefaultProgressEmissions
	default:
		return l.opts.ProgressEmissions
	}
}

func (l *Loop) publish(pct float64, msg string) {
	if l.emissions() == 0 {
		return
	}
	l.opts.Progress.Publish(progress.Event{
		RunID:    l.opts.RunID,
		Seq:      l.emitted,
		Progress: pct,
		Message:  msg,
		At:       time.Now(),
	})
	l.emitted++
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
}

func (l *Loop) summary() *domain.SimulationSummary {
	status := domain.RunStatusCompleted
	if l.State() == StateAborted {
		status = domain.RunStatusAborted
	}
	candles := l.opts.Candles
	return &domain.SimulationSummary{
		Status:           status,
		AbortReason:      l.abortReason,
		CandlesTotal:     len(candles),
		CandlesProcessed: l.processed,
		FirstCandle:      candles[0].Timestamp,
		LastCandle:       candles[l.processed-1].Timestamp,
		Portfolio:        l.ledger.Snapshot(),
		Trades:           l.book.ClosedTrades(),
		EquityCurve:      l.ledger.EquityCurve(),
	}
}
