package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"crypto-strategy-lab/internal/backtest"
	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/signalgate"
	"crypto-strategy-lab/internal/strategy"
)

func newGateCmd(a *app) *cobra.Command {
	var sf strategyFlags
	var of outputFlags
	var side, price, size, portfolio, userID string
	limits := signalgate.DefaultLimits()
	criteria := signalgate.DefaultCriteria()

	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Check a live signal against risk limits and a historical backtest",
		Example: `  backtest gate --evaluator momentum --symbol BTC/USDT --side long \
    --price 64000 --size 0.05 --portfolio-value 25000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := sf.strategy()
			if err != nil {
				return err
			}
			opts, err := sf.options(a.cfg, s, time.Now())
			if err != nil {
				return err
			}
			sig, err := buildSignal(s, opts.Symbol, side, price, size)
			if err != nil {
				return err
			}
			pv, err := decimal.NewFromString(portfolio)
			if err != nil {
				return fmt.Errorf("--portfolio-value: %w", err)
			}

			evaluator, err := strategy.FromName(sf.evaluator)
			if err != nil {
				return err
			}
			source, err := a.candleSource(cmd.Context())
			if err != nil {
				return err
			}
			pipeline := backtest.NewPipeline(backtest.PipelineOptions{
				Source:            source,
				Evaluator:         evaluator,
				Logger:            a.logger,
				Metrics:           a.metrics,
				ProgressEmissions: -1,
			})
			gate := signalgate.NewGate(signalgate.NewLimitsRiskManager(limits), pipeline, signalgate.Options{
				Criteria: criteria,
				Logger:   a.logger,
				Metrics:  a.metrics,
			})

			result, err := gate.Evaluate(cmd.Context(), sig, userID, pv, opts)
			if err != nil {
				return err
			}
			return of.emit(cmd, result, map[string]string{
				"gate_" + sig.ID + ".md": signalgate.RenderMarkdown(result),
			})
		},
	}
	sf.register(cmd, domain.DefaultLookback)
	of.register(cmd)

	fl := cmd.Flags()
	fl.StringVar(&side, "side", string(domain.SideLong), "signal side: long or short")
	fl.StringVar(&price, "price", "", "signal price")
	fl.StringVar(&size, "size", "", "signal size in base units")
	fl.StringVar(&portfolio, "portfolio-value", "", "current portfolio value")
	fl.StringVar(&userID, "user", "", "user id recorded in the report")
	fl.Float64Var(&limits.MaxPositionFraction, "max-position", limits.MaxPositionFraction, "max signal notional as a fraction of portfolio value")
	fl.BoolVar(&limits.AllowShort, "allow-short", limits.AllowShort, "accept short signals")
	fl.IntVar(&criteria.MinTrades, "min-trades", criteria.MinTrades, "minimum backtest trades")
	fl.Float64Var(&criteria.MinWinRate, "min-win-rate", criteria.MinWinRate, "minimum backtest win rate")
	fl.Float64Var(&criteria.MaxDrawdown, "max-drawdown", criteria.MaxDrawdown, "maximum backtest drawdown")
	_ = cmd.MarkFlagRequired("price")
	_ = cmd.MarkFlagRequired("size")
	_ = cmd.MarkFlagRequired("portfolio-value")
	return cmd
}

func buildSignal(s domain.Strategy, symbol, side, price, size string) (domain.Signal, error) {
	sig := domain.Signal{
		ID:          uuid.NewString(),
		Strategy:    s,
		Symbol:      symbol,
		Side:        domain.Side(side),
		GeneratedAt: time.Now().UTC(),
	}
	if sig.Side != domain.SideLong && sig.Side != domain.SideShort {
		return sig, fmt.Errorf("--side must be long or short, got %q", side)
	}
	var err error
	if sig.Price, err = decimal.NewFromString(price); err != nil {
		return sig, fmt.Errorf("--price: %w", err)
	}
	if sig.Size, err = decimal.NewFromString(size); err != nil {
		return sig, fmt.Errorf("--size: %w", err)
	}
	return sig, nil
}
