package simulation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"crypto-strategy-lab/internal/costs"
	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/idhash"
	"crypto-strategy-lab/internal/portfolio"
	"crypto-strategy-lab/internal/strategy"
)

// sizePrecision is the number of decimal places position sizes are
// truncated to.
const sizePrecision = 8

// Aggregates are running win/loss totals over closed trades.
type Aggregates struct {
	Wins        int
	Losses      int
	LargestWin  decimal.Decimal
	LargestLoss decimal.Decimal // most negative net P&L
	TotalProfit decimal.Decimal
	TotalLoss   decimal.Decimal // absolute value
}

// Lifecycle opens and closes trades for one run, applying the cost model
// and keeping the ledger and book consistent.
type Lifecycle struct {
	strategy domain.Strategy
	symbol   string
	costs    *costs.Model
	ledger   *portfolio.Ledger
	book     *Book
	maxHold  time.Duration
	seq      int
	agg      Aggregates
}

// NewLifecycle creates a trade lifecycle manager. maxHold of zero disables
// the hold-time exit.
func NewLifecycle(s domain.Strategy, symbol string, model *costs.Model, ledger *portfolio.Ledger, book *Book, maxHold time.Duration) *Lifecycle {
	return &Lifecycle{
		strategy: s,
		symbol:   symbol,
		costs:    model,
		ledger:   ledger,
		book:     book,
		maxHold:  maxHold,
	}
}

// Aggregates returns the running win/loss totals.
func (lc *Lifecycle) Aggregates() Aggregates {
	return lc.agg
}

// PositionSize converts a cash notional into base units at the entry fill
// price, truncated to sizePrecision places.
func (lc *Lifecycle) PositionSize(c domain.Candle, side domain.Side, notional decimal.Decimal) decimal.Decimal {
	price := lc.costs.EntryPrice(c.Close, side)
	if !price.IsPositive() {
		return decimal.Zero
	}
	return notional.Div(price).Truncate(sizePrecision)
}

// OpenTrade opens a position of size at the candle close.
// Returns nil when size is not positive or the entry value exceeds cash;
// both are capacity limits, not errors.
func (lc *Lifecycle) OpenTrade(c domain.Candle, size decimal.Decimal, side domain.Side) *domain.Trade {
	if !size.IsPositive() {
		return nil
	}

	entryPrice := lc.costs.EntryPrice(c.Close, side)
	entryValue := entryPrice.Mul(size)
	if entryValue.GreaterThan(lc.ledger.Cash()) {
		return nil
	}
	if err := lc.ledger.Debit(entryValue); err != nil {
		return nil
	}

	t := domain.Trade{
		ID:         idhash.ComputeTradeID(lc.strategy.Name, lc.symbol, side, c.Timestamp.UnixMilli(), lc.seq),
		Symbol:     lc.symbol,
		Side:       side,
		Size:       size,
		EntryPrice: entryPrice,
		EntryValue: entryValue,
		EntryTime:  c.Timestamp,
		Status:     domain.TradeStatusOpen,
		StopLoss:   stopLossLevel(entryPrice, side, lc.strategy.Parameters.Get(domain.ParamStopLoss, 0)),
		TakeProfit: takeProfitLevel(entryPrice, side, lc.strategy.Parameters.Get(domain.ParamTakeProfit, 0)),
	}
	idx, err := lc.book.Add(t)
	if err != nil {
		// Ids embed the run sequence; a collision means a broken invariant.
		panic(err)
	}
	lc.seq++
	return lc.book.At(idx)
}

// CloseTrade closes the open trade at idx at the candle close.
// Steps:
//  1. Exit price via the cost model
//  2. Gross P&L by side, then commission and slippage
//  3. Credit settlement (entry value + net P&L) to cash
//  4. Move the trade to the closed log and update aggregates
func (lc *Lifecycle) CloseTrade(idx int, c domain.Candle, reason string) (*domain.Trade, error) {
	t := lc.book.At(idx)
	if t.Status != domain.TradeStatusOpen {
		return nil, fmt.Errorf("trade %s is already closed", t.ID)
	}

	// 1. Exit price
	exitPrice := lc.costs.ExitPrice(c.Close, t.Side)
	exitValue := exitPrice.Mul(t.Size)

	// 2. P&L
	gross := exitPrice.Sub(t.EntryPrice).Mul(t.Size)
	if t.Side == domain.SideShort {
		gross = t.EntryPrice.Sub(exitPrice).Mul(t.Size)
	}
	commission, slippage := lc.costs.TradingCosts(t.EntryValue, exitValue)
	net := gross.Sub(commission).Sub(slippage)

	// 3. Settlement
	lc.ledger.Credit(t.EntryValue.Add(net))

	duration := c.Timestamp.Sub(t.EntryTime)
	if duration < 0 {
		duration = 0
	}

	t.ExitPrice = exitPrice
	t.ExitValue = exitValue
	t.ExitTime = c.Timestamp
	t.ExitReason = reason
	t.GrossPnL = gross
	t.Commission = commission
	t.Slippage = slippage
	t.NetPnL = net
	t.Duration = duration
	t.Status = domain.TradeStatusClosed

	// 4. Book and aggregates
	if err := lc.book.MarkClosed(idx); err != nil {
		return nil, err
	}
	lc.record(t)

	return t, nil
}

// ExitReason returns the first exit trigger that fires for the trade at c.
// Priority: strategy exit condition, stop loss, take profit, max hold.
func (lc *Lifecycle) ExitReason(eval strategy.Evaluator, t *domain.Trade, c domain.Candle) (string, bool) {
	if eval.EvaluateExit(lc.strategy, t, c) {
		return domain.ExitReasonCondition, true
	}

	if t.StopLoss.Valid {
		if t.Side == domain.SideShort && c.High.GreaterThanOrEqual(t.StopLoss.Decimal) ||
			t.Side != domain.SideShort && c.Low.LessThanOrEqual(t.StopLoss.Decimal) {
			return domain.ExitReasonStopLoss, true
		}
	}

	if t.TakeProfit.Valid {
		if t.Side == domain.SideShort && c.Low.LessThanOrEqual(t.TakeProfit.Decimal) ||
			t.Side != domain.SideShort && c.High.GreaterThanOrEqual(t.TakeProfit.Decimal) {
			return domain.ExitReasonTakeProfit, true
		}
	}

	if lc.maxHold > 0 && c.Timestamp.Sub(t.EntryTime) > lc.maxHold {
		return domain.ExitReasonMaxHold, true
	}

	return "", false
}

// CloseAll closes every open trade at c with reason, in opening order.
func (lc *Lifecycle) CloseAll(c domain.Candle, reason string) error {
	for _, idx := range lc.book.OpenIndices() {
		if _, err := lc.CloseTrade(idx, c, reason); err != nil {
			return err
		}
	}
	return nil
}

func (lc *Lifecycle) record(t *domain.Trade) {
	if t.IsWin() {
		lc.agg.Wins++
		lc.agg.TotalProfit = lc.agg.TotalProfit.Add(t.NetPnL)
		if t.NetPnL.GreaterThan(lc.agg.LargestWin) {
			lc.agg.LargestWin = t.NetPnL
		}
		return
	}
	lc.agg.Losses++
	lc.agg.TotalLoss = lc.agg.TotalLoss.Add(t.NetPnL.Abs())
	if t.NetPnL.LessThan(lc.agg.LargestLoss) {
		lc.agg.LargestLoss = t.NetPnL
	}
}

// stopLossLevel returns the stop price for a fractional stop, or an
// invalid value when pct is not positive.
func stopLossLevel(entry decimal.Decimal, side domain.Side, pct float64) decimal.NullDecimal {
	if pct <= 0 {
		return decimal.NullDecimal{}
	}
	offset := decimal.NewFromFloat(pct)
	if side == domain.SideShort {
		return decimal.NewNullDecimal(entry.Mul(decimal.NewFromInt(1).Add(offset)))
	}
	return decimal.NewNullDecimal(entry.Mul(decimal.NewFromInt(1).Sub(offset)))
}

// takeProfitLevel returns the target price for a fractional take profit,
// or an invalid value when pct is not positive.
func takeProfitLevel(entry decimal.Decimal, side domain.Side, pct float64) decimal.NullDecimal {
	if pct <= 0 {
		return decimal.NullDecimal{}
	}
	offset := decimal.NewFromFloat(pct)
	if side == domain.SideShort {
		return decimal.NewNullDecimal(entry.Mul(decimal.NewFromInt(1).Sub(offset)))
	}
	return decimal.NewNullDecimal(entry.Mul(decimal.NewFromInt(1).Add(offset)))
}
