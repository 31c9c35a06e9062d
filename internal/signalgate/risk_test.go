package signalgate

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-strategy-lab/internal/domain"
)

func newRiskManager(limits Limits) *LimitsRiskManager {
	return NewLimitsRiskManager(limits).WithClock(func() time.Time { return evaluatedAt })
}

func TestLimitsRiskManager_WithinLimits(t *testing.T) {
	m := newRiskManager(DefaultLimits())

	// 0.01 * 50000 = 500, 5% of 10000
	out, err := m.ValidateSignal(context.Background(), signal(), "user-1", decimal.NewFromInt(10000))
	require.NoError(t, err)

	assert.True(t, out.Valid)
	assert.Empty(t, out.Errors)
	assert.Empty(t, out.Warnings)
	assert.InDelta(t, 0.5, out.RiskScore, 1e-9)
	require.NotNil(t, out.AdjustedSignal)
	assert.True(t, out.AdjustedSignal.Size.Equal(decimal.RequireFromString("0.01")))
}

func TestLimitsRiskManager_ScalesOversizedSignal(t *testing.T) {
	m := newRiskManager(DefaultLimits())
	sig := signal()
	sig.Size = decimal.RequireFromString("0.05") // 2500, 25% of 10000

	out, err := m.ValidateSignal(context.Background(), sig, "user-1", decimal.NewFromInt(10000))
	require.NoError(t, err)

	assert.True(t, out.Valid)
	assert.Equal(t, 1.0, out.RiskScore)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "position size reduced")
	require.NotNil(t, out.AdjustedSignal)
	assert.True(t, out.AdjustedSignal.Size.Equal(decimal.RequireFromString("0.02")), out.AdjustedSignal.Size.String())
	assert.True(t, sig.Size.Equal(decimal.RequireFromString("0.05")), "input signal must not be modified")
}

func TestLimitsRiskManager_Rejects(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(s *domain.Signal)
		portfolio decimal.Decimal
		want      string
	}{
		{"missing symbol", func(s *domain.Signal) { s.Symbol = "" }, decimal.NewFromInt(10000), "symbol is required"},
		{"zero size", func(s *domain.Signal) { s.Size = decimal.Zero }, decimal.NewFromInt(10000), "size must be positive"},
		{"negative price", func(s *domain.Signal) { s.Price = decimal.NewFromInt(-1) }, decimal.NewFromInt(10000), "price must be positive"},
		{"empty portfolio", func(s *domain.Signal) {}, decimal.Zero, "portfolio value must be positive"},
		{"short not allowed", func(s *domain.Signal) { s.Side = domain.SideShort }, decimal.NewFromInt(10000), "short signals are not allowed"},
		{"rounds to zero", func(s *domain.Signal) { s.Price = decimal.NewFromInt(1_000_000_000_000) }, decimal.NewFromInt(10), "adjusted size rounds to zero"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := signal()
			tt.mutate(&sig)

			out, err := newRiskManager(DefaultLimits()).ValidateSignal(context.Background(), sig, "user-1", tt.portfolio)
			require.NoError(t, err)

			assert.False(t, out.Valid)
			assert.Equal(t, 1.0, out.RiskScore)
			assert.Nil(t, out.AdjustedSignal)
			assert.Contains(t, strings.Join(out.Errors, "; "), tt.want)
		})
	}
}

func TestLimitsRiskManager_StaleSignal(t *testing.T) {
	m := newRiskManager(DefaultLimits())
	sig := signal()
	sig.GeneratedAt = evaluatedAt.Add(-10 * time.Minute)

	out, err := m.ValidateSignal(context.Background(), sig, "user-1", decimal.NewFromInt(10000))
	require.NoError(t, err)

	assert.True(t, out.Valid)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "stale")
}

func TestLimitsRiskManager_AllowShort(t *testing.T) {
	limits := DefaultLimits()
	limits.AllowShort = true
	sig := signal()
	sig.Side = domain.SideShort

	out, err := newRiskManager(limits).ValidateSignal(context.Background(), sig, "user-1", decimal.NewFromInt(10000))
	require.NoError(t, err)
	assert.True(t, out.Valid)
}
