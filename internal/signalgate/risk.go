package signalgate

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"crypto-strategy-lab/internal/domain"
)

// RiskManager validates a signal against account-level limits.
type RiskManager interface {
	ValidateSignal(ctx context.Context, sig domain.Signal, userID string, portfolioValue decimal.Decimal) (domain.RiskAssessment, error)
}

// Limits configures a LimitsRiskManager.
type Limits struct {
	// MaxPositionFraction caps signal notional as a fraction of portfolio
	// value. Larger signals are scaled down, not rejected.
	MaxPositionFraction float64
	AllowShort          bool
	MaxSignalAge        time.Duration // 0 disables the staleness warning
	SizePrecision       int32
}

// DefaultLimits returns conservative risk limits.
func DefaultLimits() Limits {
	return Limits{
		MaxPositionFraction: 0.10,
		MaxSignalAge:        5 * time.Minute,
		SizePrecision:       8,
	}
}

// LimitsRiskManager is a RiskManager enforcing static Limits.
type LimitsRiskManager struct {
	limits Limits
	now    func() time.Time
}

// NewLimitsRiskManager creates a LimitsRiskManager.
func NewLimitsRiskManager(limits Limits) *LimitsRiskManager {
	return &LimitsRiskManager{limits: limits, now: time.Now}
}

// WithClock sets a custom clock function for deterministic output.
func (m *LimitsRiskManager) WithClock(now func() time.Time) *LimitsRiskManager {
	m.now = now
	return m
}

// ValidateSignal checks the signal and returns an assessment. RiskScore is
// the signal notional relative to the position cap, clamped to [0, 1].
func (m *LimitsRiskManager) ValidateSignal(_ context.Context, sig domain.Signal, _ string, portfolioValue decimal.Decimal) (domain.RiskAssessment, error) {
	var out domain.RiskAssessment

	if sig.Symbol == "" {
		out.Errors = append(out.Errors, "symbol is required")
	}
	if !sig.Price.IsPositive() {
		out.Errors = append(out.Errors, "price must be positive")
	}
	if !sig.Size.IsPositive() {
		out.Errors = append(out.Errors, "size must be positive")
	}
	if !portfolioValue.IsPositive() {
		out.Errors = append(out.Errors, "portfolio value must be positive")
	}
	if sig.Side == domain.SideShort && !m.limits.AllowShort {
		out.Errors = append(out.Errors, "short signals are not allowed")
	}
	if len(out.Errors) > 0 {
		out.RiskScore = 1
		return out, nil
	}

	if m.limits.MaxSignalAge > 0 && !sig.GeneratedAt.IsZero() {
		if age := m.now().Sub(sig.GeneratedAt); age > m.limits.MaxSignalAge {
			out.Warnings = append(out.Warnings, fmt.Sprintf("signal is stale: generated %s ago", age.Round(time.Second)))
		}
	}

	adjusted := sig
	notional := sig.Price.Mul(sig.Size)
	fraction := notional.Div(portfolioValue).InexactFloat64()
	if limit := m.limits.MaxPositionFraction; limit > 0 {
		out.RiskScore = fraction / limit
		if fraction > limit {
			maxNotional := portfolioValue.Mul(decimal.NewFromFloat(limit))
			adjusted.Size = maxNotional.Div(sig.Price).Truncate(m.limits.SizePrecision)
			out.Warnings = append(out.Warnings, fmt.Sprintf(
				"position size reduced from %s to %s (%.2f%% of portfolio exceeds %.2f%%)",
				sig.Size, adjusted.Size, fraction*100, limit*100))
		}
	}
	if !adjusted.Size.IsPositive() {
		out.Errors = append(out.Errors, "adjusted size rounds to zero")
		out.RiskScore = 1
		return out, nil
	}
	if out.RiskScore > 1 {
		out.RiskScore = 1
	}

	out.Valid = true
	out.AdjustedSignal = &adjusted
	return out, nil
}

var _ RiskManager = (*LimitsRiskManager)(nil)
