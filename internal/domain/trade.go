package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

// Side constants.
const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// TradeStatus is the lifecycle state of a trade: open -> closed.
type TradeStatus string

// TradeStatus constants.
const (
	TradeStatusOpen   TradeStatus = "open"
	TradeStatusClosed TradeStatus = "closed"
)

// Exit reasons recorded on closed trades.
const (
	ExitReasonCondition      = "Exit condition met"
	ExitReasonStopLoss       = "Stop loss triggered"
	ExitReasonTakeProfit     = "Take profit triggered"
	ExitReasonMaxHold        = "Maximum hold time exceeded"
	ExitReasonCircuitBreaker = "Max drawdown limit exceeded"
	ExitReasonBacktestEnded  = "Backtest ended"
)

// Trade is a simulated position owned by exactly one simulation run.
type Trade struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Size       decimal.Decimal `json:"size"` // base units, > 0
	EntryPrice decimal.Decimal `json:"entryPrice"`
	EntryValue decimal.Decimal `json:"entryValue"`
	EntryTime  time.Time       `json:"entryTime"`
	Status     TradeStatus     `json:"status"`

	// Protective levels; invalid when the strategy sets none.
	StopLoss   decimal.NullDecimal `json:"stopLoss"`
	TakeProfit decimal.NullDecimal `json:"takeProfit"`

	// Set on close
	ExitPrice  decimal.Decimal `json:"exitPrice"`
	ExitValue  decimal.Decimal `json:"exitValue"`
	ExitTime   time.Time       `json:"exitTime"`
	ExitReason string          `json:"exitReason"`
	GrossPnL   decimal.Decimal `json:"grossPnl"`
	Commission decimal.Decimal `json:"commission"`
	Slippage   decimal.Decimal `json:"slippage"`
	NetPnL     decimal.Decimal `json:"netPnl"` // gross - commission - slippage
	Duration   time.Duration   `json:"duration"`
}

// UnrealizedPnL returns the open profit/loss of the trade at price.
func (t *Trade) UnrealizedPnL(price decimal.Decimal) decimal.Decimal {
	if t.Side == SideShort {
		return t.EntryPrice.Sub(price).Mul(t.Size)
	}
	return price.Sub(t.EntryPrice).Mul(t.Size)
}

// MarkValue returns the mark-to-market value of the trade at price:
// the capital committed at entry plus unrealized profit/loss.
func (t *Trade) MarkValue(price decimal.Decimal) decimal.Decimal {
	return t.EntryValue.Add(t.UnrealizedPnL(price))
}

// IsWin reports whether a closed trade finished with positive net P&L.
func (t *Trade) IsWin() bool {
	return t.NetPnL.IsPositive()
}

// Return is net P&L relative to entry value.
func (t *Trade) Return() float64 {
	if t.EntryValue.IsZero() {
		return 0
	}
	return t.NetPnL.Div(t.EntryValue).InexactFloat64()
}
