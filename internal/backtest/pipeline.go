// Package backtest wires candle retrieval, validation, simulation and
// reporting into runnable backtests, and exposes the Engine surface.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"crypto-strategy-lab/internal/candles"
	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/observability"
	"crypto-strategy-lab/internal/progress"
	"crypto-strategy-lab/internal/reporting"
	"crypto-strategy-lab/internal/simulation"
	"crypto-strategy-lab/internal/storage"
	"crypto-strategy-lab/internal/strategy"
)

// ErrDataSource wraps failures of the historical data source.
var ErrDataSource = errors.New("historical data source failed")

// PipelineOptions configures a Pipeline.
type PipelineOptions struct {
	Source    storage.CandleSource
	Evaluator strategy.Evaluator

	Progress progress.Publisher     // optional
	Logger   logrus.FieldLogger     // optional
	Metrics  *observability.Metrics // optional

	Clock       func() time.Time // defaults to UTC wall clock
	IDGenerator func() string    // defaults to uuid.NewString

	// ProgressEmissions is passed to every simulation loop.
	ProgressEmissions int
}

// Pipeline runs isolated backtests. Every call builds its own loop, ledger
// and trade book, so a Pipeline is safe for concurrent use.
type Pipeline struct {
	opts      PipelineOptions
	logger    logrus.FieldLogger
	assembler *reporting.Assembler
}

// NewPipeline creates a Pipeline.
func NewPipeline(opts PipelineOptions) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.IDGenerator == nil {
		opts.IDGenerator = uuid.NewString
	}
	return &Pipeline{
		opts:      opts,
		logger:    logger,
		assembler: reporting.NewAssembler().WithClock(opts.Clock),
	}
}

// RunBacktest runs one backtest under a freshly generated id.
// Implements optimizer.Runner.
func (p *Pipeline) RunBacktest(ctx context.Context, s domain.Strategy, opts domain.BacktestOptions) (*domain.BacktestResult, error) {
	return p.Run(ctx, p.opts.IDGenerator(), s, opts)
}

// Run executes one backtest. A panic from the data source, evaluator or
// any other collaborator is returned as a *simulation.SimulationError.
func (p *Pipeline) Run(ctx context.Context, id string, s domain.Strategy, opts domain.BacktestOptions) (result *domain.BacktestResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &simulation.SimulationError{Step: -1, Err: fmt.Errorf("panic: %v", r)}
			p.logger.WithError(err).WithField("backtest_id", id).Error("backtest panicked")
		}
	}()
	return p.run(ctx, id, s, opts)
}

// run executes one backtest.
// Steps:
//  1. Apply option defaults, falling back to the strategy symbol
//  2. Validate strategy and options
//  3. Fetch candles from the source and clean them
//  4. Run the simulation loop
//  5. Assemble the result with performance metrics
func (p *Pipeline) run(ctx context.Context, id string, s domain.Strategy, opts domain.BacktestOptions) (*domain.BacktestResult, error) {
	startedAt := p.opts.Clock()
	if opts.Symbol == "" {
		opts.Symbol = s.Symbol
	}
	opts = opts.WithDefaults(startedAt)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if p.opts.Source == nil || p.opts.Evaluator == nil {
		return nil, errors.New("pipeline requires a candle source and an evaluator")
	}

	logger := p.logger.WithFields(logrus.Fields{
		"backtest_id": id,
		"strategy":    s.Name,
		"symbol":      opts.Symbol,
	})

	raw, err := p.opts.Source.GetHistoricalData(ctx, opts.Symbol, opts.Timeframe, opts.StartDate, opts.EndDate, opts.MaxCandles)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataSource, err)
	}

	series, report, err := candles.ValidateWithReport(raw, candles.Config{
		MinCandles: opts.MinCandles,
		MaxCandles: opts.MaxCandles,
	})
	p.opts.Metrics.RecordCandlesRejected(report.Rejected)
	if err != nil {
		logger.WithField("received", report.Received).Info("backtest rejected: insufficient data")
		return nil, err
	}

	loop := simulation.NewLoop(simulation.LoopOptions{
		RunID:             id,
		Strategy:          s,
		Candles:           series,
		Options:           opts,
		Evaluator:         p.opts.Evaluator,
		Progress:          p.opts.Progress,
		Logger:            p.logger,
		ProgressEmissions: p.opts.ProgressEmissions,
	})

	summary, err := loop.Run(ctx)
	elapsed := p.opts.Clock().Sub(startedAt).Seconds()
	if err != nil {
		status := string(domain.RunStatusFailed)
		if errors.Is(err, simulation.ErrCancelled) {
			status = string(domain.RunStatusCancelled)
		}
		p.opts.Metrics.RecordBacktest(status, elapsed, 0, 0)
		return nil, err
	}

	result := p.assembler.Assemble(id, s, opts, summary, startedAt)
	p.opts.Metrics.RecordBacktest(string(summary.Status), elapsed, len(summary.Trades), result.CompletedAt.Unix())

	logger.WithFields(logrus.Fields{
		"status":  summary.Status,
		"trades":  result.Metrics.TotalTrades,
		"sharpe":  result.Metrics.SharpeRatio,
		"candles": report.Received,
	}).Info("backtest finished")

	return result, nil
}

// multiPublisher forwards events to every publisher.
type multiPublisher []progress.Publisher

func (m multiPublisher) Publish(e progress.Event) {
	for _, p := range m {
		p.Publish(e)
	}
}

func tee(pubs ...progress.Publisher) progress.Publisher {
	var out multiPublisher
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}
