// Package metrics derives performance statistics from a finished run.
// Every function is pure.
package metrics

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"crypto-strategy-lab/internal/domain"
)

// Compute calculates performance metrics from closed trades (in closing
// order), the final portfolio and its equity curve.
// A run without trades yields domain.EmptyMetrics plus portfolio-level
// return and drawdown.
func Compute(trades []domain.Trade, p domain.PortfolioSnapshot, curve []domain.EquityPoint) domain.PerformanceMetrics {
	m := domain.EmptyMetrics(p.TotalValue)
	m.TotalReturn = computeTotalReturn(p)
	m.MaxDrawdown = finite(p.MaxDrawdown)

	n := len(trades)
	if n == 0 {
		return m
	}

	var wins, losses []decimal.Decimal
	returns := make([]float64, 0, n)
	var totalDuration time.Duration

	for i := range trades {
		t := &trades[i]
		if t.IsWin() {
			wins = append(wins, t.NetPnL)
			m.TotalProfit = m.TotalProfit.Add(t.NetPnL)
			if t.NetPnL.GreaterThan(m.LargestWin) {
				m.LargestWin = t.NetPnL
			}
		} else {
			losses = append(losses, t.NetPnL)
			m.TotalLoss = m.TotalLoss.Add(t.NetPnL.Abs())
			if t.NetPnL.LessThan(m.LargestLoss) {
				m.LargestLoss = t.NetPnL
			}
		}
		m.TotalCommission = m.TotalCommission.Add(t.Commission)
		m.TotalSlippage = m.TotalSlippage.Add(t.Slippage)
		returns = append(returns, t.Return())
		totalDuration += t.Duration
	}

	m.TotalTrades = n
	m.WinningTrades = len(wins)
	m.LosingTrades = len(losses)
	m.WinRate = computeWinRate(len(wins), n)
	m.AverageWin = computeMean(wins)
	m.AverageLoss = computeMean(losses)
	m.NetProfit = m.TotalProfit.Sub(m.TotalLoss)
	m.ProfitFactor = computeProfitFactor(m.TotalProfit, m.TotalLoss)
	m.SharpeRatio = computeSharpe(returns)
	m.CalmarRatio = computeCalmar(p)
	m.MaxConsecutiveLosses = computeMaxConsecutiveLosses(trades)
	m.AverageTradeDuration = totalDuration / time.Duration(n)
	m.Exposure = computeExposure(trades, curve)

	return m
}

// computeWinRate returns wins / total, or 0 when total is 0.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// computeMean returns the arithmetic mean, or zero for no values.
func computeMean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(values[0], values[1:]...).Div(decimal.NewFromInt(int64(len(values))))
}

// computeProfitFactor returns totalProfit / totalLoss, or 0 when there
// were no losses.
func computeProfitFactor(totalProfit, totalLoss decimal.Decimal) float64 {
	if totalLoss.IsZero() {
		return 0
	}
	return finite(totalProfit.Div(totalLoss).InexactFloat64())
}

// computeSharpe returns mean(r) / stddev(r) over per-trade returns using
// the population standard deviation. 0 for fewer than 2 trades or zero
// dispersion.
func computeSharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, err := stats.Mean(returns)
	if err != nil {
		return 0
	}
	sd, err := stats.StandardDeviationPopulation(returns)
	if err != nil || sd == 0 {
		return 0
	}
	return finite(mean / sd)
}

// computeCalmar returns (finalValue - peakValue) / peakValue divided by
// maxDrawdown, or 0 when maxDrawdown is 0.
func computeCalmar(p domain.PortfolioSnapshot) float64 {
	if p.MaxDrawdown == 0 || !p.PeakValue.IsPositive() {
		return 0
	}
	fromPeak := p.TotalValue.Sub(p.PeakValue).Div(p.PeakValue).InexactFloat64()
	return finite(fromPeak / p.MaxDrawdown)
}

// computeTotalReturn returns (finalValue - initialCapital) / initialCapital.
func computeTotalReturn(p domain.PortfolioSnapshot) float64 {
	if !p.InitialCapital.IsPositive() {
		return 0
	}
	return finite(p.TotalValue.Sub(p.InitialCapital).Div(p.InitialCapital).InexactFloat64())
}

// computeMaxConsecutiveLosses returns the longest run of non-winning
// trades in closing order.
func computeMaxConsecutiveLosses(trades []domain.Trade) int {
	maxRun, run := 0, 0
	for i := range trades {
		if trades[i].IsWin() {
			run = 0
			continue
		}
		run++
		if run > maxRun {
			maxRun = run
		}
	}
	return maxRun
}

// computeExposure returns the fraction of equity points at which at least
// one trade was held. A trade is held at t when entry < t <= exit, since
// each step marks before it trades.
func computeExposure(trades []domain.Trade, curve []domain.EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}
	held := 0
	for _, pt := range curve {
		for i := range trades {
			if trades[i].EntryTime.Before(pt.Timestamp) && !trades[i].ExitTime.Before(pt.Timestamp) {
				held++
				break
			}
		}
	}
	return float64(held) / float64(len(curve))
}

// finite maps NaN and infinities to 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
