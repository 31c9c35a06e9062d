package portfolio

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-strategy-lab/internal/domain"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func candleAt(hour int, close float64) domain.Candle {
	p := decimal.NewFromFloat(close)
	return domain.Candle{
		Timestamp: t0.Add(time.Duration(hour) * time.Hour),
		Open:      p,
		High:      p,
		Low:       p,
		Close:     p,
		Volume:    decimal.NewFromInt(1),
	}
}

func openTrade(side domain.Side, price, size float64) *domain.Trade {
	p := decimal.NewFromFloat(price)
	s := decimal.NewFromFloat(size)
	return &domain.Trade{
		ID:         "t1",
		Side:       side,
		Size:       s,
		EntryPrice: p,
		EntryValue: p.Mul(s),
		Status:     domain.TradeStatusOpen,
	}
}

func TestLedger_DebitCredit(t *testing.T) {
	l := NewLedger(decimal.NewFromInt(1000))

	require.NoError(t, l.Debit(decimal.NewFromInt(400)))
	assert.True(t, l.Cash().Equal(decimal.NewFromInt(600)))

	err := l.Debit(decimal.NewFromInt(601))
	assert.True(t, errors.Is(err, ErrInsufficientCash))
	assert.True(t, l.Cash().Equal(decimal.NewFromInt(600)), "failed debit must not change cash")

	err = l.Debit(decimal.NewFromInt(-1))
	assert.True(t, errors.Is(err, ErrInvalidAmount))

	l.Credit(decimal.NewFromInt(450))
	assert.True(t, l.Cash().Equal(decimal.NewFromInt(1050)))
}

func TestLedger_TotalValueInvariant(t *testing.T) {
	l := NewLedger(decimal.NewFromInt(10000))
	long := openTrade(domain.SideLong, 100, 5)
	short := openTrade(domain.SideShort, 100, 3)
	require.NoError(t, l.Debit(long.EntryValue))
	require.NoError(t, l.Debit(short.EntryValue))
	open := []*domain.Trade{long, short}

	for i, price := range []float64{100, 110, 90, 95, 120} {
		c := candleAt(i, price)
		require.NoError(t, l.MarkToMarket(c, open))

		want := l.Cash()
		for _, tr := range open {
			want = want.Add(tr.MarkValue(c.Close))
		}
		assert.True(t, l.TotalValue().Equal(want), "step %d: total %s, want %s", i, l.TotalValue(), want)
	}
}

func TestLedger_DrawdownAndMonotoneMax(t *testing.T) {
	l := NewLedger(decimal.NewFromInt(1000))
	tr := openTrade(domain.SideLong, 100, 10)
	require.NoError(t, l.Debit(tr.EntryValue))
	open := []*domain.Trade{tr}

	prices := []float64{100, 120, 90, 110, 130, 125}
	prevMax := 0.0
	for i, p := range prices {
		require.NoError(t, l.MarkToMarket(candleAt(i, p), open))
		assert.GreaterOrEqual(t, l.Drawdown(), 0.0)
		assert.GreaterOrEqual(t, l.MaxDrawdown(), prevMax, "maxDrawdown decreased at step %d", i)
		prevMax = l.MaxDrawdown()
	}

	// peak 1200 at 120, trough 900 at 90
	assert.InDelta(t, 0.25, l.MaxDrawdown(), 1e-9)
	assert.True(t, l.PeakValue().Equal(decimal.NewFromInt(1300)))
	// 1250 vs peak 1300
	assert.InDelta(t, 50.0/1300.0, l.Drawdown(), 1e-9)
	assert.Len(t, l.EquityCurve(), len(prices))
}

func TestLedger_RejectsOutOfOrderMark(t *testing.T) {
	l := NewLedger(decimal.NewFromInt(1000))

	require.NoError(t, l.MarkToMarket(candleAt(5, 100), nil))
	require.NoError(t, l.MarkToMarket(candleAt(5, 101), nil), "equal timestamps are allowed")

	err := l.MarkToMarket(candleAt(4, 100), nil)
	assert.True(t, errors.Is(err, ErrOutOfOrder))
	assert.Len(t, l.EquityCurve(), 2)
}

func TestLedger_Snapshot(t *testing.T) {
	l := NewLedger(decimal.NewFromInt(500))
	snap := l.Snapshot()

	assert.True(t, snap.InitialCapital.Equal(decimal.NewFromInt(500)))
	assert.True(t, snap.TotalValue.Equal(snap.Cash))
	assert.Zero(t, snap.Drawdown)
	assert.Zero(t, snap.MaxDrawdown)
}
