package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/optimizer"
)

// RenderMarkdown renders the stored-results report as Markdown.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Backtest Results Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Results: %d | Strategies: %d\n\n", r.ResultCount, r.StrategyCount))

	if len(r.StatusCounts) > 0 {
		statuses := make([]string, 0, len(r.StatusCounts))
		for s := range r.StatusCounts {
			statuses = append(statuses, s)
		}
		sort.Strings(statuses)
		sb.WriteString("| Status | Runs |\n")
		sb.WriteString("|--------|------|\n")
		for _, s := range statuses {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", s, r.StatusCounts[s]))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Strategy Leaders\n\n")
	writeResultTable(&sb, r.StrategyLeaders, "No results available.")

	sb.WriteString("## All Results\n\n")
	writeResultTable(&sb, r.Results, "No results available.")

	return sb.String()
}

func writeResultTable(sb *strings.Builder, rows []ResultRow, empty string) {
	if len(rows) == 0 {
		sb.WriteString(empty + "\n\n")
		return
	}
	sb.WriteString("| Backtest | Strategy | Parameters | Status | Trades | WinRate | PF | Sharpe | Calmar | MaxDD | Return | Net |\n")
	sb.WriteString("|----------|----------|------------|--------|--------|---------|----|--------|--------|-------|--------|-----|\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %s |\n",
			r.BacktestID, r.Strategy, r.Parameters, r.Status, r.TotalTrades,
			r.WinRate, r.ProfitFactor, r.SharpeRatio, r.CalmarRatio, r.MaxDrawdown, r.TotalReturn, r.NetProfit))
	}
	sb.WriteString("\n")
}

// RenderBacktestMarkdown renders a single backtest result.
func RenderBacktestMarkdown(r *domain.BacktestResult) string {
	var sb strings.Builder
	m := r.Metrics
	s := r.Summary

	sb.WriteString(fmt.Sprintf("# Backtest %s\n\n", r.BacktestID))
	sb.WriteString(fmt.Sprintf("Strategy: %s", r.Strategy.Name))
	if len(r.Strategy.Parameters) > 0 {
		sb.WriteString(fmt.Sprintf(" (%s)", r.Strategy.Parameters.String()))
	}
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Market: %s %s, %s to %s\n\n", r.Options.Symbol, r.Options.Timeframe,
		r.Options.StartDate.UTC().Format(time.RFC3339), r.Options.EndDate.UTC().Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Status: %s", s.Status))
	if s.AbortReason != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", s.AbortReason))
	}
	sb.WriteString(fmt.Sprintf(" | Candles: %d/%d\n\n", s.CandlesProcessed, s.CandlesTotal))

	sb.WriteString("## Performance\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Initial Capital | %s |\n", s.Portfolio.InitialCapital.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Final Value | %s |\n", m.FinalValue.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Net Profit | %s |\n", m.NetProfit.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Total Return | %.4f |\n", m.TotalReturn))
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", m.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.4f |\n", m.WinRate))
	sb.WriteString(fmt.Sprintf("| Profit Factor | %.4f |\n", m.ProfitFactor))
	sb.WriteString(fmt.Sprintf("| Sharpe Ratio | %.4f |\n", m.SharpeRatio))
	sb.WriteString(fmt.Sprintf("| Calmar Ratio | %.4f |\n", m.CalmarRatio))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.4f |\n", m.MaxDrawdown))
	sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", m.MaxConsecutiveLosses))
	sb.WriteString(fmt.Sprintf("| Average Trade Duration | %s |\n", m.AverageTradeDuration))
	sb.WriteString(fmt.Sprintf("| Exposure | %.4f |\n", m.Exposure))
	sb.WriteString(fmt.Sprintf("| Commission | %s |\n", m.TotalCommission.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Slippage | %s |\n", m.TotalSlippage.StringFixed(2)))
	sb.WriteString("\n")

	sb.WriteString("## Trades\n\n")
	if len(s.Trades) == 0 {
		sb.WriteString("No trades.\n")
		return sb.String()
	}
	sb.WriteString("| Side | Entry | Entry Price | Exit | Exit Price | Net P&L | Reason |\n")
	sb.WriteString("|------|-------|-------------|------|------------|---------|--------|\n")
	for _, t := range s.Trades {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s |\n",
			t.Side, t.EntryTime.UTC().Format(time.RFC3339), t.EntryPrice.String(),
			t.ExitTime.UTC().Format(time.RFC3339), t.ExitPrice.String(), t.NetPnL.StringFixed(2), t.ExitReason))
	}
	return sb.String()
}

// RenderOptimizationMarkdown renders a parameter sweep ranked by Sharpe.
func RenderOptimizationMarkdown(r *domain.OptimizationResult) string {
	var sb strings.Builder

	sb.WriteString("# Optimization Report\n\n")
	sb.WriteString(fmt.Sprintf("Combinations: %d | Successful: %d\n\n", r.TotalCombinations, r.SuccessfulTests))
	if r.SuccessfulTests > 0 {
		sb.WriteString(fmt.Sprintf("Best parameters: %s (Sharpe %.4f)\n\n", r.BestParameters.String(), r.BestSharpe))
	}

	if len(r.Runs) > 0 {
		sb.WriteString("| Rank | # | Parameters | Trades | WinRate | Sharpe | MaxDD | Return |\n")
		sb.WriteString("|------|---|------------|--------|---------|--------|-------|--------|\n")
		for i, run := range optimizer.RankBySharpe(r.Runs) {
			m := run.Result.Metrics
			sb.WriteString(fmt.Sprintf("| %d | %d | %s | %d | %.4f | %.4f | %.4f | %.4f |\n",
				i+1, run.Index, run.Parameters.String(), m.TotalTrades, m.WinRate, m.SharpeRatio, m.MaxDrawdown, m.TotalReturn))
		}
		sb.WriteString("\n")
	}

	if len(r.Failures) > 0 {
		sb.WriteString("## Failed Combinations\n\n")
		for _, i := range sortedKeys(r.Failures) {
			sb.WriteString(fmt.Sprintf("- #%d: %s\n", i, r.Failures[i]))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderWalkForwardMarkdown renders walk-forward periods and the aggregate.
func RenderWalkForwardMarkdown(r *domain.WalkForwardResult) string {
	var sb strings.Builder
	o := r.OverallPerformance

	sb.WriteString("# Walk-Forward Report\n\n")
	sb.WriteString(fmt.Sprintf("Periods: %d | Successful: %d\n\n", r.TotalPeriods, len(r.Periods)))

	sb.WriteString("## Overall Performance\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Average Return | %.4f |\n", o.AverageReturn))
	sb.WriteString(fmt.Sprintf("| Consistency | %.4f |\n", o.Consistency))
	if o.BestPeriod >= 0 {
		sb.WriteString(fmt.Sprintf("| Best Period | %d (%.4f) |\n", o.BestPeriod, o.BestReturn))
		sb.WriteString(fmt.Sprintf("| Worst Period | %d (%.4f) |\n", o.WorstPeriod, o.WorstReturn))
	}
	sb.WriteString("\n")

	sb.WriteString("## Periods\n\n")
	if len(r.Periods) == 0 {
		sb.WriteString("No successful periods.\n\n")
	} else {
		sb.WriteString("| # | Training | Testing | Parameters | Train Sharpe | Test Return |\n")
		sb.WriteString("|---|----------|---------|------------|--------------|-------------|\n")
		for _, p := range r.Periods {
			sb.WriteString(fmt.Sprintf("| %d | %s to %s | %s to %s | %s | %.4f | %.4f |\n",
				p.Index,
				p.TrainingStart.UTC().Format("2006-01-02"), p.TrainingEnd.UTC().Format("2006-01-02"),
				p.TestingStart.UTC().Format("2006-01-02"), p.TestingEnd.UTC().Format("2006-01-02"),
				p.BestParameters.String(), p.TrainingSharpe, p.TestReturn))
		}
		sb.WriteString("\n")
	}

	if len(r.Skipped) > 0 {
		sb.WriteString("## Skipped Periods\n\n")
		for _, i := range sortedKeys(r.Skipped) {
			sb.WriteString(fmt.Sprintf("- #%d: %s\n", i, r.Skipped[i]))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func sortedKeys(m map[int]string) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
