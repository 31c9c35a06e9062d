package strategy

import (
	"github.com/shopspring/decimal"

	"crypto-strategy-lab/internal/domain"
)

// pctChange returns (to - from) / from, or 0 when from is zero.
func pctChange(from, to decimal.Decimal) float64 {
	if from.IsZero() {
		return 0
	}
	return to.Sub(from).Div(from).InexactFloat64()
}

// nonNegative returns the parameter value, or def when absent or negative.
func nonNegative(p domain.Parameters, key string, def float64) float64 {
	v := p.Get(key, def)
	if v < 0 {
		return def
	}
	return v
}
