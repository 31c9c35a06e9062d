package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"crypto-strategy-lab/internal/backtest"
	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/reporting"
)

func newRunCmd(a *app) *cobra.Command {
	var sf strategyFlags
	var of outputFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one backtest",
		Example: `  backtest run --evaluator momentum --param stopLoss=0.02 --param takeProfit=0.04 \
    --symbol BTC/USDT --start 2025-01-01 --end 2025-03-01 --out ./out`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := sf.strategy()
			if err != nil {
				return err
			}
			opts, err := sf.options(a.cfg, s, time.Now())
			if err != nil {
				return err
			}
			engine, err := a.engine(cmd.Context(), sf.evaluator)
			if err != nil {
				return err
			}

			resp := engine.RunBacktest(cmd.Context(), s, opts)
			if !resp.Success {
				if of.asJSON {
					_ = of.emit(cmd, resp, nil)
				}
				return responseError(resp.ErrorKind, resp.Error)
			}

			trades, err := reporting.RenderTradesCSV(resp.Results.Summary.Trades)
			if err != nil {
				return err
			}
			return of.emit(cmd, resp, map[string]string{
				"backtest_" + resp.BacktestID + ".md": reporting.RenderBacktestMarkdown(resp.Results),
				"trades_" + resp.BacktestID + ".csv":  trades,
			})
		},
	}
	sf.register(cmd, domain.DefaultLookback)
	of.register(cmd)
	return cmd
}

func newOptimizeCmd(a *app) *cobra.Command {
	var sf strategyFlags
	var of outputFlags
	var ranges []string

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Grid-search strategy parameters",
		Example: `  backtest optimize --evaluator breakout \
    --range stopLoss=0.01,0.02 --range takeProfit=0.02,0.04`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := sf.strategy()
			if err != nil {
				return err
			}
			opts, err := sf.options(a.cfg, s, time.Now())
			if err != nil {
				return err
			}
			pr, err := parseRanges(ranges)
			if err != nil {
				return err
			}
			engine, err := a.engine(cmd.Context(), sf.evaluator)
			if err != nil {
				return err
			}

			resp := engine.RunOptimization(cmd.Context(), s, pr, opts)
			if !resp.Success {
				if of.asJSON {
					_ = of.emit(cmd, resp, nil)
				}
				return responseError(resp.ErrorKind, resp.Error)
			}

			result := &domain.OptimizationResult{
				TotalCombinations: resp.TotalCombinations,
				SuccessfulTests:   resp.SuccessfulTests,
				Runs:              resp.Results,
				BestParameters:    resp.BestParameters,
				BestSharpe:        resp.BestSharpe,
				Failures:          resp.Failures,
			}
			return of.emit(cmd, resp, map[string]string{
				"optimization.md": reporting.RenderOptimizationMarkdown(result),
			})
		},
	}
	sf.register(cmd, domain.DefaultLookback)
	of.register(cmd)
	cmd.Flags().StringArrayVar(&ranges, "range", nil, "parameter values key=v1,v2,... (repeatable)")
	_ = cmd.MarkFlagRequired("range")
	return cmd
}

func newWalkForwardCmd(a *app) *cobra.Command {
	var sf strategyFlags
	var of outputFlags
	var ranges []string
	var wf domain.WalkForwardOptions

	cmd := &cobra.Command{
		Use:   "walkforward",
		Short: "Run a rolling walk-forward analysis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := sf.strategy()
			if err != nil {
				return err
			}
			opts, err := sf.options(a.cfg, s, time.Now())
			if err != nil {
				return err
			}
			pr, err := parseRanges(ranges)
			if err != nil {
				return err
			}
			engine, err := a.engine(cmd.Context(), sf.evaluator)
			if err != nil {
				return err
			}

			wf.Backtest = opts
			wf.ParameterRanges = pr
			resp := engine.RunWalkForwardAnalysis(cmd.Context(), s, wf)
			if !resp.Success {
				if of.asJSON {
					_ = of.emit(cmd, resp, nil)
				}
				return responseError(resp.ErrorKind, resp.Error)
			}

			result := &domain.WalkForwardResult{
				TotalPeriods:       resp.TotalPeriods,
				Periods:            resp.Results,
				Skipped:            resp.Skipped,
				OverallPerformance: resp.OverallPerformance,
			}
			return of.emit(cmd, resp, map[string]string{
				"walkforward.md": reporting.RenderWalkForwardMarkdown(result),
			})
		},
	}
	// The default lookback covers several training plus testing windows.
	sf.register(cmd, 180*24*time.Hour)
	of.register(cmd)
	fl := cmd.Flags()
	fl.StringArrayVar(&ranges, "range", nil, "parameter values key=v1,v2,... re-optimized per window (repeatable)")
	fl.DurationVar(&wf.TrainingPeriod, "training", domain.DefaultTrainingPeriod, "training window length")
	fl.DurationVar(&wf.TestingPeriod, "testing", domain.DefaultTestingPeriod, "testing window length")
	fl.DurationVar(&wf.StepSize, "step", domain.DefaultStepSize, "distance between windows")
	fl.IntVar(&wf.MaxPeriods, "max-periods", domain.DefaultMaxPeriods, "maximum number of windows")
	return cmd
}

// responseError turns a failed response into a command error.
func responseError(kind backtest.ErrorKind, msg string) error {
	return fmt.Errorf("%s: %s", kind, msg)
}
