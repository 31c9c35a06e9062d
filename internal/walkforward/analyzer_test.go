package walkforward

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/optimizer"
)

var end = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

// windowRunner returns a total return keyed by the start of the tested window.
type windowRunner struct {
	calls   []domain.BacktestOptions
	returns map[time.Time]float64
	fail    map[time.Time]bool
}

func (r *windowRunner) RunBacktest(_ context.Context, s domain.Strategy, opts domain.BacktestOptions) (*domain.BacktestResult, error) {
	r.calls = append(r.calls, opts)
	if r.fail[opts.StartDate] {
		return nil, errors.New("insufficient candle data")
	}
	return &domain.BacktestResult{
		Strategy: s,
		Options:  opts,
		Metrics: domain.PerformanceMetrics{
			TotalReturn: r.returns[opts.StartDate],
			SharpeRatio: s.Parameters.Get("stopLoss", 0) * 10,
		},
	}, nil
}

func baseOptions() domain.WalkForwardOptions {
	return domain.WalkForwardOptions{
		Backtest: domain.BacktestOptions{
			StartDate: end.Add(-42 * 24 * time.Hour),
			EndDate:   end,
		},
		TrainingPeriod: 28 * 24 * time.Hour,
		TestingPeriod:  7 * 24 * time.Hour,
		StepSize:       7 * 24 * time.Hour,
		MaxPeriods:     4,
	}
}

func TestWindows(t *testing.T) {
	opts := baseOptions().WithDefaults()
	windows := Windows(opts)

	// 42 days / 7 day step = 6, capped at 4
	require.Len(t, windows, 4)

	day := 24 * time.Hour
	assert.Equal(t, end, windows[0].TestingEnd)
	assert.Equal(t, end.Add(-7*day), windows[0].TrainingEnd)
	assert.Equal(t, end.Add(-35*day), windows[0].TrainingStart)

	for i, w := range windows {
		assert.Equal(t, i, w.Index)
		assert.Equal(t, w.TrainingEnd, w.TestingStart)
		assert.Equal(t, opts.TrainingPeriod, w.TrainingEnd.Sub(w.TrainingStart))
		assert.Equal(t, opts.TestingPeriod, w.TestingEnd.Sub(w.TestingStart))
		if i > 0 {
			assert.Equal(t, opts.StepSize, windows[i-1].TrainingEnd.Sub(w.TrainingEnd))
		}
	}
}

func TestWindows_ShortRange(t *testing.T) {
	opts := baseOptions()
	opts.Backtest.StartDate = end.Add(-3 * 24 * time.Hour)
	assert.Empty(t, Windows(opts.WithDefaults()))
}

func TestAnalyzer_SinglePass(t *testing.T) {
	windows := Windows(baseOptions().WithDefaults())
	runner := &windowRunner{returns: map[time.Time]float64{
		windows[0].TestingStart: 0.05,
		windows[1].TestingStart: -0.02,
		windows[2].TestingStart: 0.01,
		windows[3].TestingStart: 0.03,
	}}
	logger, _ := test.NewNullLogger()

	a := NewAnalyzer(runner, nil, Options{Logger: logger})
	res, err := a.Run(context.Background(), domain.Strategy{Name: "momentum", Parameters: domain.Parameters{"stopLoss": 0.02}}, baseOptions())
	require.NoError(t, err)

	assert.Equal(t, 4, res.TotalPeriods)
	require.Len(t, res.Periods, 4)
	// one training and one testing run per period
	assert.Len(t, runner.calls, 8)
	for _, c := range runner.calls {
		assert.True(t, c.SkipPeriodCheck)
	}

	perf := res.OverallPerformance
	assert.InDelta(t, 0.0175, perf.AverageReturn, 1e-12)
	assert.InDelta(t, 0.75, perf.Consistency, 1e-12)
	assert.Equal(t, 0, perf.BestPeriod)
	assert.Equal(t, 1, perf.WorstPeriod)
	assert.InDelta(t, 0.05, perf.BestReturn, 1e-12)
	assert.InDelta(t, -0.02, perf.WorstReturn, 1e-12)
	assert.Equal(t, domain.Parameters{"stopLoss": 0.02}, res.Periods[0].BestParameters)
}

func TestAnalyzer_WithOptimizer(t *testing.T) {
	runner := &windowRunner{}
	logger, _ := test.NewNullLogger()
	opt := optimizer.New(runner, optimizer.Options{Logger: logger})

	opts := baseOptions()
	opts.MaxPeriods = 1
	opts.ParameterRanges = domain.ParameterRanges{"stopLoss": {0.01, 0.03, 0.02}}

	res, err := NewAnalyzer(runner, opt, Options{Logger: logger}).Run(context.Background(), domain.Strategy{Name: "s"}, opts)
	require.NoError(t, err)
	require.Len(t, res.Periods, 1)

	p := res.Periods[0]
	assert.Equal(t, domain.Parameters{"stopLoss": 0.03}, p.BestParameters)
	assert.InDelta(t, 0.3, p.TrainingSharpe, 1e-12)
	assert.Equal(t, 0.03, p.TestResult.Strategy.Parameters["stopLoss"])
	// three training runs plus one test
	assert.Len(t, runner.calls, 4)
}

func TestAnalyzer_SkipsFailedPeriods(t *testing.T) {
	windows := Windows(baseOptions().WithDefaults())
	runner := &windowRunner{
		returns: map[time.Time]float64{windows[0].TestingStart: 0.1, windows[2].TestingStart: 0.2, windows[3].TestingStart: -0.1},
		fail:    map[time.Time]bool{windows[1].TrainingStart: true},
	}
	logger, hook := test.NewNullLogger()

	res, err := NewAnalyzer(runner, nil, Options{Logger: logger}).Run(context.Background(), domain.Strategy{Name: "s"}, baseOptions())
	require.NoError(t, err)

	assert.Equal(t, 4, res.TotalPeriods)
	assert.Len(t, res.Periods, 3)
	assert.Contains(t, res.Skipped, 1)
	assert.InDelta(t, 0.2/3, res.OverallPerformance.AverageReturn, 1e-12)
	assert.Equal(t, 2, res.OverallPerformance.BestPeriod)
	assert.Equal(t, 3, res.OverallPerformance.WorstPeriod)
	assert.NotEmpty(t, hook.AllEntries())
}

func TestAnalyzer_Errors(t *testing.T) {
	logger, _ := test.NewNullLogger()
	a := NewAnalyzer(&windowRunner{}, nil, Options{Logger: logger})

	opts := baseOptions()
	opts.Backtest.StartDate = end.Add(-24 * time.Hour)
	_, err := a.Run(context.Background(), domain.Strategy{Name: "s"}, opts)
	assert.ErrorIs(t, err, ErrNoPeriods)

	_, err = a.Run(context.Background(), domain.Strategy{}, baseOptions())
	assert.ErrorIs(t, err, domain.ErrValidation)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Run(ctx, domain.Strategy{Name: "s"}, baseOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, -1, s.BestPeriod)
	assert.Equal(t, -1, s.WorstPeriod)
	assert.Zero(t, s.AverageReturn)
	assert.Zero(t, s.Consistency)
}
