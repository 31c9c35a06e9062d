package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-strategy-lab/internal/config"
	"crypto-strategy-lab/internal/domain"
)

func TestParseParams(t *testing.T) {
	p, err := parseParams([]string{"stopLoss=0.02", " takeProfit = 0.04"})
	require.NoError(t, err)
	assert.Equal(t, domain.Parameters{"stopLoss": 0.02, "takeProfit": 0.04}, p)

	_, err = parseParams([]string{"stopLoss"})
	assert.Error(t, err)
	_, err = parseParams([]string{"stopLoss=abc"})
	assert.Error(t, err)
}

func TestParseRanges(t *testing.T) {
	r, err := parseRanges([]string{"stopLoss=0.01,0.02", "takeProfit=0.02, 0.04,"})
	require.NoError(t, err)
	assert.Equal(t, domain.ParameterRanges{
		"stopLoss":   {0.01, 0.02},
		"takeProfit": {0.02, 0.04},
	}, r)

	_, err = parseRanges([]string{"=1,2"})
	assert.Error(t, err)
	_, err = parseRanges([]string{"stopLoss=1,x"})
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	want := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2025-02-03", "2025-02-03T00:00", "2025-02-03T01:00:00+01:00"} {
		got, err := parseTime(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}
	_, err := parseTime("yesterday")
	assert.Error(t, err)
}

func TestStrategyFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: trend
symbol: ETH/USDT
parameters:
  stopLoss: 0.03
  lookback: 20
`), 0o600))

	sf := strategyFlags{
		file:      path,
		evaluator: "momentum",
		params:    []string{"stopLoss=0.01"},
		end:       "2025-03-01",
		lookback:  7 * 24 * time.Hour,
	}

	s, err := sf.strategy()
	require.NoError(t, err)
	assert.Equal(t, "trend", s.Name)
	assert.Equal(t, "ETH/USDT", s.Symbol)
	assert.Equal(t, domain.Parameters{"stopLoss": 0.01, "lookback": 20}, s.Parameters)

	cfg := config.Default()
	opts, err := sf.options(&cfg, s, time.Now())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), opts.EndDate)
	assert.Equal(t, time.Date(2025, 2, 22, 0, 0, 0, 0, time.UTC), opts.StartDate)
	assert.Equal(t, "ETH/USDT", opts.Symbol)
	assert.Equal(t, cfg.Engine.Timeframe, opts.Timeframe)
}

func TestStrategyFlags_DefaultName(t *testing.T) {
	sf := strategyFlags{evaluator: "breakout"}
	s, err := sf.strategy()
	require.NoError(t, err)
	assert.Equal(t, "breakout", s.Name)
}

func TestNewerThan(t *testing.T) {
	rows := []domain.RawCandle{{TimestampMs: 1}, {TimestampMs: 2}, {TimestampMs: 2}, {TimestampMs: 3}}

	got := newerThan(rows, 1)

	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].TimestampMs)
	assert.Equal(t, int64(3), got[1].TimestampMs)
	assert.Empty(t, newerThan(rows, 3))
	assert.Len(t, newerThan(rows, -1), 3)
}
