package walkforward

import (
	"time"

	"crypto-strategy-lab/internal/domain"
)

// Window is one train/test split. Testing starts where training ends.
type Window struct {
	Index         int
	TrainingStart time.Time
	TrainingEnd   time.Time
	TestingStart  time.Time
	TestingEnd    time.Time
}

// Windows generates the rolling windows of an analysis.
//
// The anchor is EndDate - TestingPeriod, so the testing window of period 0
// ends at EndDate. Period i trains on
// [anchor - (TrainingPeriod + i*StepSize), anchor - i*StepSize] and tests on
// the TestingPeriod that follows. The number of periods is
// min(MaxPeriods, (EndDate - StartDate) / StepSize). Options must have
// defaults applied.
func Windows(opts domain.WalkForwardOptions) []Window {
	total := opts.Backtest.EndDate.Sub(opts.Backtest.StartDate)
	n := int(total / opts.StepSize)
	if opts.MaxPeriods < n {
		n = opts.MaxPeriods
	}
	if n <= 0 {
		return nil
	}

	anchor := opts.Backtest.EndDate.Add(-opts.TestingPeriod)
	windows := make([]Window, 0, n)
	for i := 0; i < n; i++ {
		trainingEnd := anchor.Add(-time.Duration(i) * opts.StepSize)
		windows = append(windows, Window{
			Index:         i,
			TrainingStart: trainingEnd.Add(-opts.TrainingPeriod),
			TrainingEnd:   trainingEnd,
			TestingStart:  trainingEnd,
			TestingEnd:    trainingEnd.Add(opts.TestingPeriod),
		})
	}
	return windows
}

// training returns the backtest options restricted to the training window.
func (w Window) training(base domain.BacktestOptions) domain.BacktestOptions {
	base.StartDate, base.EndDate = w.TrainingStart, w.TrainingEnd
	base.SkipPeriodCheck = true
	return base
}

// testing returns the backtest options restricted to the testing window.
func (w Window) testing(base domain.BacktestOptions) domain.BacktestOptions {
	base.StartDate, base.EndDate = w.TestingStart, w.TestingEnd
	base.SkipPeriodCheck = true
	return base
}
