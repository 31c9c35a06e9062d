// Package walkforward runs rolling train/test validation of a strategy.
package walkforward

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"

	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/observability"
	"crypto-strategy-lab/internal/optimizer"
)

// ErrNoPeriods is returned when the date range is shorter than one step.
var ErrNoPeriods = errors.New("date range yields no walk-forward period")

// Sweeper optimizes parameters on one window. *optimizer.Optimizer implements it.
type Sweeper interface {
	Run(ctx context.Context, base domain.Strategy, ranges domain.ParameterRanges, opts domain.BacktestOptions) (*domain.OptimizationResult, error)
}

// Options configures an Analyzer.
type Options struct {
	Logger  logrus.FieldLogger     // optional
	Metrics *observability.Metrics // optional
	Clock   func() time.Time       // defaults to time.Now, used for EndDate defaults
}

// Analyzer re-optimizes on each training window and tests the winner on the
// following window.
type Analyzer struct {
	runner  optimizer.Runner
	sweeper Sweeper
	logger  logrus.FieldLogger
	metrics *observability.Metrics
	clock   func() time.Time
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(runner optimizer.Runner, sweeper Sweeper, opts Options) *Analyzer {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Analyzer{
		runner:  runner,
		sweeper: sweeper,
		logger:  logger,
		metrics: opts.Metrics,
		clock:   clock,
	}
}

// Run executes the analysis.
// Steps:
//  1. Apply defaults and generate windows
//  2. Per window, pick parameters on training data: an optimizer sweep when
//     ParameterRanges is set, otherwise a single pass with the base parameters
//  3. Backtest the chosen parameters on the testing window
//  4. Aggregate the periods that succeeded
//
// A failing period is logged, recorded in Skipped and excluded from the
// aggregate. Periods are returned in window order, most recent first.
func (a *Analyzer) Run(ctx context.Context, base domain.Strategy, opts domain.WalkForwardOptions) (*domain.WalkForwardResult, error) {
	opts = opts.WithDefaults()
	opts.Backtest = opts.Backtest.WithDefaults(a.clock())
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}

	windows := Windows(opts)
	if len(windows) == 0 {
		return nil, ErrNoPeriods
	}

	result := &domain.WalkForwardResult{
		TotalPeriods: len(windows),
		Periods:      make([]domain.WalkForwardPeriod, 0, len(windows)),
	}

	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("walk-forward cancelled: %w", err)
		}

		period, err := a.runPeriod(ctx, base, opts, w)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("walk-forward cancelled: %w", ctx.Err())
			}
			if result.Skipped == nil {
				result.Skipped = make(map[int]string)
			}
			result.Skipped[w.Index] = err.Error()
			a.metrics.RecordPeriod("skipped")
			a.logger.WithFields(logrus.Fields{
				"strategy": base.Name,
				"period":   w.Index,
			}).WithError(err).Warn("walk-forward period skipped")
			continue
		}
		a.metrics.RecordPeriod("ok")
		result.Periods = append(result.Periods, *period)
	}

	result.OverallPerformance = Summarize(result.Periods)

	a.logger.WithFields(logrus.Fields{
		"strategy":       base.Name,
		"periods":        result.TotalPeriods,
		"successful":     len(result.Periods),
		"average_return": result.OverallPerformance.AverageReturn,
	}).Info("walk-forward analysis finished")

	return result, nil
}

func (a *Analyzer) runPeriod(ctx context.Context, base domain.Strategy, opts domain.WalkForwardOptions, w Window) (*domain.WalkForwardPeriod, error) {
	best, trainingSharpe, err := a.train(ctx, base, opts, w)
	if err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}

	test, err := a.runner.RunBacktest(ctx, base.WithParameters(best), w.testing(opts.Backtest))
	if err != nil {
		return nil, fmt.Errorf("testing: %w", err)
	}

	return &domain.WalkForwardPeriod{
		Index:          w.Index,
		TrainingStart:  w.TrainingStart,
		TrainingEnd:    w.TrainingEnd,
		TestingStart:   w.TestingStart,
		TestingEnd:     w.TestingEnd,
		BestParameters: best,
		TrainingSharpe: trainingSharpe,
		TestResult:     test,
		TestReturn:     test.Metrics.TotalReturn,
	}, nil
}

// train returns the parameter overrides chosen on the training window.
func (a *Analyzer) train(ctx context.Context, base domain.Strategy, opts domain.WalkForwardOptions, w Window) (domain.Parameters, float64, error) {
	trainOpts := w.training(opts.Backtest)

	if len(opts.ParameterRanges) == 0 || a.sweeper == nil {
		r, err := a.runner.RunBacktest(ctx, base, trainOpts)
		if err != nil {
			return nil, 0, err
		}
		return base.Parameters.Clone(), r.Metrics.SharpeRatio, nil
	}

	opt, err := a.sweeper.Run(ctx, base, opts.ParameterRanges, trainOpts)
	if err != nil {
		return nil, 0, err
	}
	return opt.BestParameters, opt.BestSharpe, nil
}

// Summarize aggregates per-period test returns. Best and worst are the
// first period with the maximum and minimum return; both are -1 when
// there are no periods.
func Summarize(periods []domain.WalkForwardPeriod) domain.WalkForwardSummary {
	summary := domain.WalkForwardSummary{BestPeriod: -1, WorstPeriod: -1}
	if len(periods) == 0 {
		return summary
	}

	returns := make([]float64, len(periods))
	positive := 0
	for i, p := range periods {
		returns[i] = p.TestReturn
		if p.TestReturn > 0 {
			positive++
		}
		if summary.BestPeriod < 0 || p.TestReturn > summary.BestReturn {
			summary.BestPeriod, summary.BestReturn = p.Index, p.TestReturn
		}
		if summary.WorstPeriod < 0 || p.TestReturn < summary.WorstReturn {
			summary.WorstPeriod, summary.WorstReturn = p.Index, p.TestReturn
		}
	}

	mean, err := stats.Mean(returns)
	if err == nil {
		summary.AverageReturn = mean
	}
	summary.Consistency = float64(positive) / float64(len(periods))
	return summary
}
