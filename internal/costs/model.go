// Package costs applies spread, slippage and commission to simulated fills.
package costs

import (
	"github.com/shopspring/decimal"

	"crypto-strategy-lab/internal/domain"
)

var one = decimal.NewFromInt(1)

// Model computes cost-adjusted fill prices and per-trade costs.
// A Model is immutable and safe for concurrent use.
type Model struct {
	spread     decimal.Decimal
	slippage   decimal.Decimal
	commission decimal.Decimal
	precision  int32
}

// NewModel creates a cost model from configuration.
func NewModel(cfg domain.CostConfig) *Model {
	return &Model{
		spread:     cfg.Spread,
		slippage:   cfg.Slippage,
		commission: cfg.Commission,
		precision:  cfg.Precision,
	}
}

// Config returns the parameters the model was built from.
func (m *Model) Config() domain.CostConfig {
	return domain.CostConfig{
		Spread:     m.spread,
		Slippage:   m.slippage,
		Commission: m.commission,
		Precision:  m.precision,
	}
}

// EntryPrice returns the fill price for opening a position at mid.
//   - long buys above mid: mid * (1 + spread)
//   - short sells below mid: mid * (1 - spread)
func (m *Model) EntryPrice(mid decimal.Decimal, side domain.Side) decimal.Decimal {
	if side == domain.SideShort {
		return m.round(mid.Mul(one.Sub(m.spread)))
	}
	return m.round(mid.Mul(one.Add(m.spread)))
}

// ExitPrice returns the fill price for closing a position at mid.
// Uses the opposite adjustment of EntryPrice.
func (m *Model) ExitPrice(mid decimal.Decimal, side domain.Side) decimal.Decimal {
	if side == domain.SideShort {
		return m.round(mid.Mul(one.Add(m.spread)))
	}
	return m.round(mid.Mul(one.Sub(m.spread)))
}

// TradingCosts returns commission and slippage for a round trip:
//   - commission = (entryValue + exitValue) * commissionRate
//   - slippage = (entryValue + exitValue) * slippageRate
func (m *Model) TradingCosts(entryValue, exitValue decimal.Decimal) (commission, slippage decimal.Decimal) {
	notional := entryValue.Add(exitValue)
	return notional.Mul(m.commission), notional.Mul(m.slippage)
}

// round rounds half away from zero to the configured precision.
func (m *Model) round(d decimal.Decimal) decimal.Decimal {
	return d.Round(m.precision)
}
