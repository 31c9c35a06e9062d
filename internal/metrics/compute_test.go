package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"crypto-strategy-lab/internal/domain"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func closedTrade(entryHour, exitHour int, entryValue, net float64) domain.Trade {
	return domain.Trade{
		ID:         "t",
		Side:       domain.SideLong,
		EntryValue: decimal.NewFromFloat(entryValue),
		EntryTime:  t0.Add(time.Duration(entryHour) * time.Hour),
		ExitTime:   t0.Add(time.Duration(exitHour) * time.Hour),
		NetPnL:     decimal.NewFromFloat(net),
		Commission: decimal.NewFromFloat(0.5),
		Slippage:   decimal.NewFromFloat(0.25),
		Duration:   time.Duration(exitHour-entryHour) * time.Hour,
		Status:     domain.TradeStatusClosed,
	}
}

func snapshot(initial, final, peak, maxDD float64) domain.PortfolioSnapshot {
	return domain.PortfolioSnapshot{
		InitialCapital: decimal.NewFromFloat(initial),
		Cash:           decimal.NewFromFloat(final),
		TotalValue:     decimal.NewFromFloat(final),
		PeakValue:      decimal.NewFromFloat(peak),
		MaxDrawdown:    maxDD,
	}
}

func hourlyCurve(n int) []domain.EquityPoint {
	out := make([]domain.EquityPoint, n)
	for i := range out {
		out[i] = domain.EquityPoint{Timestamp: t0.Add(time.Duration(i) * time.Hour)}
	}
	return out
}

func TestCompute_NoTrades(t *testing.T) {
	m := Compute(nil, snapshot(10000, 10000, 10000, 0), hourlyCurve(5))

	assert.Zero(t, m.TotalTrades)
	assert.Zero(t, m.WinRate)
	assert.Zero(t, m.ProfitFactor)
	assert.Zero(t, m.SharpeRatio)
	assert.Zero(t, m.CalmarRatio)
	assert.Zero(t, m.Exposure)
	assert.True(t, m.AverageWin.IsZero())
	assert.True(t, m.NetProfit.IsZero())
	assert.True(t, m.FinalValue.Equal(decimal.NewFromInt(10000)))

	for _, v := range []float64{m.WinRate, m.ProfitFactor, m.SharpeRatio, m.CalmarRatio, m.TotalReturn, m.MaxDrawdown} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestCompute_WinLossStatistics(t *testing.T) {
	trades := []domain.Trade{
		closedTrade(1, 3, 1000, 100),
		closedTrade(3, 5, 1000, -50),
		closedTrade(5, 6, 1000, -30),
		closedTrade(6, 9, 1000, 0), // zero P&L counts as a loss
		closedTrade(9, 10, 1000, 200),
	}
	m := Compute(trades, snapshot(10000, 10220, 10300, 0.02), hourlyCurve(12))

	assert.Equal(t, 5, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 3, m.LosingTrades)
	assert.InDelta(t, 0.4, m.WinRate, 1e-12)
	assert.True(t, m.TotalProfit.Equal(decimal.NewFromInt(300)))
	assert.True(t, m.TotalLoss.Equal(decimal.NewFromInt(80)))
	assert.True(t, m.NetProfit.Equal(decimal.NewFromInt(220)))
	assert.InDelta(t, 3.75, m.ProfitFactor, 1e-12)
	assert.True(t, m.AverageWin.Equal(decimal.NewFromInt(150)))
	assert.InDelta(t, -80.0/3, m.AverageLoss.InexactFloat64(), 1e-9)
	assert.True(t, m.LargestWin.Equal(decimal.NewFromInt(200)))
	assert.True(t, m.LargestLoss.Equal(decimal.NewFromInt(-50)))
	assert.True(t, m.TotalCommission.Equal(decimal.NewFromFloat(2.5)))
	assert.True(t, m.TotalSlippage.Equal(decimal.NewFromFloat(1.25)))
	assert.Equal(t, 3, m.MaxConsecutiveLosses)
	assert.Equal(t, 108*time.Minute, m.AverageTradeDuration) // 9h / 5
	assert.InDelta(t, 0.022, m.TotalReturn, 1e-12)
}

func TestCompute_Sharpe(t *testing.T) {
	// returns 0.1, -0.05, 0.2: mean 0.0833.., population sd 0.10274..
	trades := []domain.Trade{
		closedTrade(0, 1, 1000, 100),
		closedTrade(1, 2, 1000, -50),
		closedTrade(2, 3, 1000, 200),
	}
	m := Compute(trades, snapshot(10000, 10250, 10250, 0.01), hourlyCurve(4))

	mean := (0.1 - 0.05 + 0.2) / 3
	variance := (math.Pow(0.1-mean, 2) + math.Pow(-0.05-mean, 2) + math.Pow(0.2-mean, 2)) / 3
	assert.InDelta(t, mean/math.Sqrt(variance), m.SharpeRatio, 1e-9)
}

func TestCompute_SharpeDegenerate(t *testing.T) {
	single := Compute([]domain.Trade{closedTrade(0, 1, 1000, 100)}, snapshot(10000, 10100, 10100, 0), nil)
	assert.Zero(t, single.SharpeRatio, "fewer than 2 trades")

	same := Compute([]domain.Trade{
		closedTrade(0, 1, 1000, 100),
		closedTrade(1, 2, 1000, 100),
	}, snapshot(10000, 10200, 10200, 0), nil)
	assert.Zero(t, same.SharpeRatio, "zero dispersion")
	assert.Zero(t, same.ProfitFactor, "no losses")
}

func TestCompute_Calmar(t *testing.T) {
	trades := []domain.Trade{closedTrade(0, 1, 1000, -500)}

	m := Compute(trades, snapshot(10000, 9500, 10000, 0.05), nil)
	// (9500 - 10000) / 10000 / 0.05
	assert.InDelta(t, -1.0, m.CalmarRatio, 1e-12)

	noDD := Compute(trades, snapshot(10000, 9500, 10000, 0), nil)
	assert.Zero(t, noDD.CalmarRatio)
}

func TestCompute_Exposure(t *testing.T) {
	// held at hours 2,3 (first trade) and 6 (second)
	trades := []domain.Trade{
		closedTrade(1, 3, 1000, 10),
		closedTrade(5, 6, 1000, 10),
	}
	m := Compute(trades, snapshot(10000, 10020, 10020, 0), hourlyCurve(10))
	assert.InDelta(t, 0.3, m.Exposure, 1e-12)
}

func TestCompute_Bounds(t *testing.T) {
	trades := []domain.Trade{
		closedTrade(0, 1, 1000, -10),
		closedTrade(1, 2, 1000, -20),
	}
	m := Compute(trades, snapshot(10000, 9970, 10000, 0.003), hourlyCurve(3))

	assert.GreaterOrEqual(t, m.WinRate, 0.0)
	assert.LessOrEqual(t, m.WinRate, 1.0)
	assert.GreaterOrEqual(t, m.ProfitFactor, 0.0)
}
