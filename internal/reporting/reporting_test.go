package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/storage/memory"
)

var (
	t0    = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	fixed = func() time.Time { return time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC) }
)

func winningTrade() domain.Trade {
	return domain.Trade{
		ID:         "trade-1",
		Symbol:     "BTC/USDT",
		Side:       domain.SideLong,
		Size:       decimal.RequireFromString("0.01"),
		EntryPrice: decimal.NewFromInt(100000),
		EntryValue: decimal.NewFromInt(1000),
		EntryTime:  t0.Add(time.Hour),
		ExitPrice:  decimal.NewFromInt(110000),
		ExitValue:  decimal.NewFromInt(1100),
		ExitTime:   t0.Add(3 * time.Hour),
		ExitReason: domain.ExitReasonBacktestEnded,
		GrossPnL:   decimal.NewFromInt(100),
		Commission: decimal.RequireFromString("2.1"),
		Slippage:   decimal.RequireFromString("1.05"),
		NetPnL:     decimal.RequireFromString("96.85"),
		Duration:   2 * time.Hour,
		Status:     domain.TradeStatusClosed,
	}
}

func testSummary() *domain.SimulationSummary {
	return &domain.SimulationSummary{
		Status:           domain.RunStatusCompleted,
		CandlesTotal:     4,
		CandlesProcessed: 4,
		FirstCandle:      t0,
		LastCandle:       t0.Add(3 * time.Hour),
		Portfolio: domain.PortfolioSnapshot{
			InitialCapital: decimal.NewFromInt(10000),
			Cash:           decimal.RequireFromString("10096.85"),
			TotalValue:     decimal.RequireFromString("10096.85"),
			PeakValue:      decimal.RequireFromString("10096.85"),
		},
		Trades: []domain.Trade{winningTrade()},
		EquityCurve: []domain.EquityPoint{
			{Timestamp: t0}, {Timestamp: t0.Add(time.Hour)}, {Timestamp: t0.Add(2 * time.Hour)}, {Timestamp: t0.Add(3 * time.Hour)},
		},
	}
}

func TestAssembler_Assemble(t *testing.T) {
	s := domain.Strategy{Name: "momentum", Parameters: domain.Parameters{"entryThreshold": 0.01}}
	summary := testSummary()
	started := t0.Add(48 * time.Hour)

	r := NewAssembler().WithClock(fixed).Assemble("bt-1", s, domain.BacktestOptions{Symbol: "BTC/USDT"}, summary, started)

	assert.Equal(t, "bt-1", r.BacktestID)
	assert.Equal(t, started, r.StartedAt)
	assert.Equal(t, fixed(), r.CompletedAt)
	assert.Equal(t, 1, r.Metrics.TotalTrades)
	assert.Equal(t, 1.0, r.Metrics.WinRate)
	assert.True(t, r.Metrics.NetProfit.Equal(decimal.RequireFromString("96.85")))

	// Mutating inputs does not leak into the result.
	s.Parameters["entryThreshold"] = 0.5
	summary.Trades[0].ExitReason = "changed"
	assert.Equal(t, 0.01, r.Strategy.Parameters["entryThreshold"])
	assert.Equal(t, domain.ExitReasonBacktestEnded, r.Summary.Trades[0].ExitReason)
}

func storedResult(id, strategy string, sharpe float64, status domain.RunStatus, started time.Time) *domain.BacktestResult {
	m := domain.EmptyMetrics(decimal.NewFromInt(10000))
	m.SharpeRatio = sharpe
	return &domain.BacktestResult{
		BacktestID:  id,
		Strategy:    domain.Strategy{Name: strategy},
		Summary:     domain.SimulationSummary{Status: status},
		Metrics:     m,
		StartedAt:   started,
		CompletedAt: started,
	}
}

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBacktestResultStore()
	for _, r := range []*domain.BacktestResult{
		storedResult("a", "momentum", 0.5, domain.RunStatusCompleted, t0),
		storedResult("b", "momentum", 1.5, domain.RunStatusCompleted, t0.Add(time.Minute)),
		storedResult("c", "breakout", 1.5, domain.RunStatusAborted, t0.Add(2*time.Minute)),
		storedResult("d", "breakout", -1, domain.RunStatusCompleted, t0.Add(3*time.Minute)),
	} {
		require.NoError(t, store.Insert(ctx, r))
	}

	report, err := NewGenerator(store).WithClock(fixed).Generate(ctx)
	require.NoError(t, err)

	assert.Equal(t, fixed(), report.GeneratedAt)
	assert.Equal(t, 4, report.ResultCount)
	assert.Equal(t, 2, report.StrategyCount)

	var ids []string
	for _, r := range report.Results {
		ids = append(ids, r.BacktestID)
	}
	assert.Equal(t, []string{"b", "c", "a", "d"}, ids)

	require.Len(t, report.StrategyLeaders, 2)
	assert.Equal(t, "breakout", report.StrategyLeaders[0].Strategy)
	assert.Equal(t, "c", report.StrategyLeaders[0].BacktestID)
	assert.Equal(t, "b", report.StrategyLeaders[1].BacktestID)

	assert.Equal(t, 3, report.StatusCounts["completed"])
	assert.Equal(t, 1, report.StatusCounts["aborted"])

	md := RenderMarkdown(report)
	assert.Contains(t, md, "# Backtest Results Report")
	assert.Contains(t, md, "Results: 4 | Strategies: 2")
	assert.Contains(t, md, "| aborted | 1 |")
}

func TestGenerator_Empty(t *testing.T) {
	report, err := NewGenerator(memory.NewBacktestResultStore()).WithClock(fixed).Generate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.ResultCount)
	assert.Contains(t, RenderMarkdown(report), "No results available.")
}

func TestRenderTradesCSV(t *testing.T) {
	out, err := RenderTradesCSV([]domain.Trade{winningTrade()})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,symbol,side,size,entry_time,entry_price"))
	assert.Contains(t, lines[1], "trade-1,BTC/USDT,long,0.01,2026-02-01T01:00:00Z,100000")
	assert.Contains(t, lines[1], ",96.85,7200")
}

func TestRenderResultsCSV(t *testing.T) {
	row := NewResultRow(storedResult("a", "momentum", 0.5, domain.RunStatusCompleted, t0))
	out, err := RenderResultsCSV([]ResultRow{row})
	require.NoError(t, err)
	assert.Contains(t, out, "backtest_id,strategy,parameters")
	assert.Contains(t, out, "a,momentum,,,,completed,0")
}

func TestRenderBacktestMarkdown(t *testing.T) {
	r := NewAssembler().WithClock(fixed).Assemble("bt-md", domain.Strategy{Name: "breakout"},
		domain.BacktestOptions{Symbol: "ETH/USDT", Timeframe: "4h", StartDate: t0, EndDate: t0.Add(72 * time.Hour)},
		testSummary(), t0)

	md := RenderBacktestMarkdown(r)
	assert.Contains(t, md, "# Backtest bt-md")
	assert.Contains(t, md, "Market: ETH/USDT 4h")
	assert.Contains(t, md, "| Net Profit | 96.85 |")
	assert.Contains(t, md, "Backtest ended")
}

func TestRenderOptimizationMarkdown(t *testing.T) {
	res := &domain.OptimizationResult{
		TotalCombinations: 3,
		SuccessfulTests:   2,
		BestParameters:    domain.Parameters{"stopLoss": 0.02},
		BestSharpe:        1.2,
		Runs: []domain.OptimizationRun{
			{Index: 0, Parameters: domain.Parameters{"stopLoss": 0.01}, Result: storedResult("x", "s", 0.3, domain.RunStatusCompleted, t0)},
			{Index: 2, Parameters: domain.Parameters{"stopLoss": 0.02}, Result: storedResult("y", "s", 1.2, domain.RunStatusCompleted, t0)},
		},
		Failures: map[int]string{1: "insufficient candle data"},
	}

	md := RenderOptimizationMarkdown(res)
	assert.Contains(t, md, "Best parameters: stopLoss=0.02 (Sharpe 1.2000)")
	assert.Contains(t, md, "| 1 | 2 | stopLoss=0.02 |")
	assert.Contains(t, md, "- #1: insufficient candle data")
}

func TestRenderWalkForwardMarkdown(t *testing.T) {
	res := &domain.WalkForwardResult{
		TotalPeriods: 2,
		Periods: []domain.WalkForwardPeriod{{
			Index: 0, TrainingStart: t0, TrainingEnd: t0.Add(24 * time.Hour),
			TestingStart: t0.Add(24 * time.Hour), TestingEnd: t0.Add(48 * time.Hour),
			BestParameters: domain.Parameters{"stopLoss": 0.01}, TestReturn: 0.02,
		}},
		Skipped:            map[int]string{1: "training: boom"},
		OverallPerformance: domain.WalkForwardSummary{AverageReturn: 0.02, Consistency: 1},
	}

	md := RenderWalkForwardMarkdown(res)
	assert.Contains(t, md, "Periods: 2 | Successful: 1")
	assert.Contains(t, md, "| 0 | 2026-02-01 to 2026-02-02 |")
	assert.Contains(t, md, "- #1: training: boom")
}
