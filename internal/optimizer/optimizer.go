// Package optimizer runs exhaustive parameter grid searches.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/observability"
)

// DefaultMaxCombinations bounds the grid size of one sweep.
const DefaultMaxCombinations = 10000

// ErrNoSuccessfulRuns is returned with the result when every combination failed.
var ErrNoSuccessfulRuns = errors.New("no parameter combination completed")

// Runner executes one fully isolated backtest.
type Runner interface {
	RunBacktest(ctx context.Context, s domain.Strategy, opts domain.BacktestOptions) (*domain.BacktestResult, error)
}

// Options configures an Optimizer.
type Options struct {
	// Workers is the number of concurrent backtests; <= 1 runs sequentially.
	Workers         int
	MaxCombinations int                    // 0 uses DefaultMaxCombinations
	Logger          logrus.FieldLogger     // optional
	Metrics         *observability.Metrics // optional
}

// Optimizer sweeps a parameter grid, one backtest per combination.
type Optimizer struct {
	runner  Runner
	opts    Options
	logger  logrus.FieldLogger
	metrics *observability.Metrics
}

// New creates an Optimizer on top of runner.
func New(runner Runner, opts Options) *Optimizer {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.MaxCombinations <= 0 {
		opts.MaxCombinations = DefaultMaxCombinations
	}
	return &Optimizer{
		runner:  runner,
		opts:    opts,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// Run evaluates every combination of ranges against base.
// Steps:
//  1. Validate the grid and generate combinations (see Combinations)
//  2. Run one backtest per combination with the overridden parameters
//  3. Log and record failed combinations, excluding them from results
//  4. Pick the maximum Sharpe ratio, first-seen wins ties
//
// Runs are returned in combination order regardless of worker count.
// Returns ErrNoSuccessfulRuns, together with the result, when nothing
// completed, and ctx.Err() when the sweep was cancelled.
func (o *Optimizer) Run(ctx context.Context, base domain.Strategy, ranges domain.ParameterRanges, opts domain.BacktestOptions) (*domain.OptimizationResult, error) {
	if err := o.validate(ranges); err != nil {
		return nil, err
	}

	combos := Combinations(ranges)
	results := make([]*domain.BacktestResult, len(combos))
	errs := make([]error, len(combos))

	workers := o.opts.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, combo := range combos {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s := base.WithParameters(domain.Parameters(combo))
			results[i], errs[i] = o.runner.RunBacktest(gctx, s, opts)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("optimization cancelled: %w", err)
	}

	out := &domain.OptimizationResult{
		TotalCombinations: len(combos),
		Runs:              make([]domain.OptimizationRun, 0, len(combos)),
	}

	found := false
	for i, combo := range combos {
		if errs[i] != nil || results[i] == nil {
			o.recordFailure(out, i, combo, errs[i])
			continue
		}
		o.metrics.RecordCombination("ok")

		params := domain.Parameters(combo).Clone()
		out.Runs = append(out.Runs, domain.OptimizationRun{Index: i, Parameters: params, Result: results[i]})

		sharpe := results[i].Metrics.SharpeRatio
		if !found || sharpe > out.BestSharpe {
			found = true
			out.BestSharpe = sharpe
			out.BestParameters = params
		}
	}
	out.SuccessfulTests = len(out.Runs)

	o.logger.WithFields(logrus.Fields{
		"strategy":     base.Name,
		"combinations": out.TotalCombinations,
		"successful":   out.SuccessfulTests,
		"best_sharpe":  out.BestSharpe,
	}).Info("optimization finished")

	if !found {
		return out, ErrNoSuccessfulRuns
	}
	return out, nil
}

func (o *Optimizer) recordFailure(out *domain.OptimizationResult, i int, combo domain.ParameterCombination, err error) {
	if err == nil {
		err = errors.New("backtest returned no result")
	}
	if out.Failures == nil {
		out.Failures = make(map[int]string)
	}
	out.Failures[i] = err.Error()
	o.metrics.RecordCombination("failed")
	o.logger.WithFields(logrus.Fields{
		"combination": i,
		"parameters":  domain.Parameters(combo).String(),
	}).WithError(err).Warn("optimization combination failed")
}

func (o *Optimizer) validate(ranges domain.ParameterRanges) error {
	for k, values := range ranges {
		if len(values) == 0 {
			return domain.NewValidationError("parameterRanges."+k, "must list at least one value")
		}
	}
	if _, ok := Count(ranges, o.opts.MaxCombinations); !ok {
		return domain.NewValidationError("parameterRanges",
			fmt.Sprintf("combinations exceed the limit of %d", o.opts.MaxCombinations))
	}
	return nil
}

// RankBySharpe returns runs ordered by Sharpe ratio descending. Equal
// ratios keep combination order.
func RankBySharpe(runs []domain.OptimizationRun) []domain.OptimizationRun {
	ranked := make([]domain.OptimizationRun, len(runs))
	copy(ranked, runs)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Result.Metrics.SharpeRatio > ranked[j].Result.Metrics.SharpeRatio
	})
	return ranked
}
