package reporting

import (
	"context"
	"sort"
	"time"

	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/storage"
)

// Generator produces reports from stored results.
type Generator struct {
	resultStore storage.BacktestResultStore
	now         func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(resultStore storage.BacktestResultStore) *Generator {
	return &Generator{
		resultStore: resultStore,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report over every stored result.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	results, err := g.resultStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]ResultRow, len(results))
	statuses := make(map[string]int)
	for i, r := range results {
		rows[i] = NewResultRow(r)
		statuses[rows[i].Status]++
	}
	sortBySharpe(rows)

	leaders := strategyLeaders(rows)

	return &Report{
		GeneratedAt:     g.now(),
		ResultCount:     len(rows),
		StrategyCount:   len(leaders),
		Results:         rows,
		StrategyLeaders: leaders,
		StatusCounts:    statuses,
	}, nil
}

// NewResultRow flattens a result.
func NewResultRow(r *domain.BacktestResult) ResultRow {
	m := r.Metrics
	return ResultRow{
		BacktestID:   r.BacktestID,
		Strategy:     r.Strategy.Name,
		Parameters:   r.Strategy.Parameters.String(),
		Symbol:       r.Options.Symbol,
		Timeframe:    r.Options.Timeframe,
		Status:       string(r.Summary.Status),
		TotalTrades:  m.TotalTrades,
		WinRate:      m.WinRate,
		ProfitFactor: m.ProfitFactor,
		SharpeRatio:  m.SharpeRatio,
		CalmarRatio:  m.CalmarRatio,
		MaxDrawdown:  m.MaxDrawdown,
		TotalReturn:  m.TotalReturn,
		NetProfit:    m.NetProfit.StringFixed(2),
		FinalValue:   m.FinalValue.StringFixed(2),
	}
}

// strategyLeaders picks the first row per strategy name from rows
// already sorted by Sharpe, then orders leaders by name.
func strategyLeaders(sorted []ResultRow) []ResultRow {
	seen := make(map[string]struct{})
	var leaders []ResultRow
	for _, r := range sorted {
		if _, ok := seen[r.Strategy]; ok {
			continue
		}
		seen[r.Strategy] = struct{}{}
		leaders = append(leaders, r)
	}
	sort.Slice(leaders, func(i, j int) bool {
		return leaders[i].Strategy < leaders[j].Strategy
	})
	return leaders
}

// sortBySharpe sorts by (sharpe DESC, backtest_id ASC).
func sortBySharpe(rows []ResultRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SharpeRatio != rows[j].SharpeRatio {
			return rows[i].SharpeRatio > rows[j].SharpeRatio
		}
		return rows[i].BacktestID < rows[j].BacktestID
	})
}
