package reporting

import "time"

// Report summarizes every stored backtest result.
type Report struct {
	GeneratedAt   time.Time
	ResultCount   int
	StrategyCount int

	// Results sorted by Sharpe ratio DESC, backtest_id ASC
	Results []ResultRow

	// Best result per strategy name, sorted by strategy name
	StrategyLeaders []ResultRow

	// Status breakdown (completed / aborted)
	StatusCounts map[string]int
}

// ResultRow is the flat view of one BacktestResult.
type ResultRow struct {
	BacktestID   string  `csv:"backtest_id"`
	Strategy     string  `csv:"strategy"`
	Parameters   string  `csv:"parameters"`
	Symbol       string  `csv:"symbol"`
	Timeframe    string  `csv:"timeframe"`
	Status       string  `csv:"status"`
	TotalTrades  int     `csv:"total_trades"`
	WinRate      float64 `csv:"win_rate"`
	ProfitFactor float64 `csv:"profit_factor"`
	SharpeRatio  float64 `csv:"sharpe_ratio"`
	CalmarRatio  float64 `csv:"calmar_ratio"`
	MaxDrawdown  float64 `csv:"max_drawdown"`
	TotalReturn  float64 `csv:"total_return"`
	NetProfit    string  `csv:"net_profit"`
	FinalValue   string  `csv:"final_value"`
}

// TradeRow is the CSV view of one closed trade.
type TradeRow struct {
	ID         string `csv:"id"`
	Symbol     string `csv:"symbol"`
	Side       string `csv:"side"`
	Size       string `csv:"size"`
	EntryTime  string `csv:"entry_time"`
	EntryPrice string `csv:"entry_price"`
	EntryValue string `csv:"entry_value"`
	ExitTime   string `csv:"exit_time"`
	ExitPrice  string `csv:"exit_price"`
	ExitValue  string `csv:"exit_value"`
	ExitReason string `csv:"exit_reason"`
	GrossPnL   string `csv:"gross_pnl"`
	Commission string `csv:"commission"`
	Slippage   string `csv:"slippage"`
	NetPnL     string `csv:"net_pnl"`
	DurationS  int64  `csv:"duration_seconds"`
}
