// Package portfolio tracks simulated cash, equity and drawdown for one run.
package portfolio

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"crypto-strategy-lab/internal/domain"
)

var (
	// ErrInsufficientCash is returned when a debit exceeds available cash.
	ErrInsufficientCash = errors.New("insufficient cash")

	// ErrOutOfOrder is returned when mark-to-market goes back in time.
	ErrOutOfOrder = errors.New("mark-to-market out of chronological order")

	// ErrInvalidAmount is returned for negative debits.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Ledger is the portfolio of a single simulation run.
// Not safe for concurrent use; a run owns its ledger exclusively.
//
// Invariants after every MarkToMarket / Revalue:
//   - totalValue = cash + sum(open trade MarkValue at the mark price)
//   - drawdown = max(0, (peakValue - totalValue) / peakValue)
//   - maxDrawdown never decreases
type Ledger struct {
	initial     decimal.Decimal
	cash        decimal.Decimal
	totalValue  decimal.Decimal
	peakValue   decimal.Decimal
	drawdown    float64
	maxDrawdown float64

	lastMark time.Time
	marked   bool
	curve    []domain.EquityPoint
}

// NewLedger creates a ledger funded with initialCapital.
func NewLedger(initialCapital decimal.Decimal) *Ledger {
	return &Ledger{
		initial:    initialCapital,
		cash:       initialCapital,
		totalValue: initialCapital,
		peakValue:  initialCapital,
	}
}

// Cash returns available cash.
func (l *Ledger) Cash() decimal.Decimal { return l.cash }

// TotalValue returns cash plus open position value as of the last mark.
func (l *Ledger) TotalValue() decimal.Decimal { return l.totalValue }

// PeakValue returns the highest total value observed.
func (l *Ledger) PeakValue() decimal.Decimal { return l.peakValue }

// Drawdown returns the current fractional decline from peak.
func (l *Ledger) Drawdown() float64 { return l.drawdown }

// MaxDrawdown returns the largest drawdown observed.
func (l *Ledger) MaxDrawdown() float64 { return l.maxDrawdown }

// Debit removes amount from cash when a trade opens.
func (l *Ledger) Debit(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: debit %s", ErrInvalidAmount, amount)
	}
	if amount.GreaterThan(l.cash) {
		return fmt.Errorf("%w: need %s, have %s", ErrInsufficientCash, amount, l.cash)
	}
	l.cash = l.cash.Sub(amount)
	return nil
}

// Credit returns settlement proceeds to cash when a trade closes.
// amount is negative when a position lost more than its entry value.
func (l *Ledger) Credit(amount decimal.Decimal) {
	l.cash = l.cash.Add(amount)
}

// MarkToMarket revalues the portfolio at the candle's close and appends a
// point to the equity curve. Candles must arrive in non-decreasing
// timestamp order; equal timestamps are accepted.
func (l *Ledger) MarkToMarket(c domain.Candle, open []*domain.Trade) error {
	if l.marked && c.Timestamp.Before(l.lastMark) {
		return fmt.Errorf("%w: %s before %s", ErrOutOfOrder,
			c.Timestamp.UTC().Format(time.RFC3339), l.lastMark.UTC().Format(time.RFC3339))
	}
	l.lastMark = c.Timestamp
	l.marked = true

	l.Revalue(c.Close, open)
	l.curve = append(l.curve, domain.EquityPoint{
		Timestamp:  c.Timestamp,
		Cash:       l.cash,
		TotalValue: l.totalValue,
		Drawdown:   l.drawdown,
	})
	return nil
}

// Revalue recomputes total value and drawdown at price without recording an
// equity point. Used after trades open or close within a step.
func (l *Ledger) Revalue(price decimal.Decimal, open []*domain.Trade) {
	total := l.cash
	for _, t := range open {
		total = total.Add(t.MarkValue(price))
	}
	l.totalValue = total

	if total.GreaterThan(l.peakValue) {
		l.peakValue = total
	}
	l.drawdown = 0
	if l.peakValue.IsPositive() && total.LessThan(l.peakValue) {
		l.drawdown = l.peakValue.Sub(total).Div(l.peakValue).InexactFloat64()
	}
	if l.drawdown > l.maxDrawdown {
		l.maxDrawdown = l.drawdown
	}
}

// EquityCurve returns a copy of the recorded equity points.
func (l *Ledger) EquityCurve() []domain.EquityPoint {
	out := make([]domain.EquityPoint, len(l.curve))
	copy(out, l.curve)
	return out
}

// Snapshot returns the current portfolio state.
func (l *Ledger) Snapshot() domain.PortfolioSnapshot {
	return domain.PortfolioSnapshot{
		InitialCapital: l.initial,
		Cash:           l.cash,
		TotalValue:     l.totalValue,
		PeakValue:      l.peakValue,
		Drawdown:       l.drawdown,
		MaxDrawdown:    l.maxDrawdown,
	}
}
