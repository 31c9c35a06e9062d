package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunStatus is the terminal status of a simulation run.
type RunStatus string

// RunStatus constants.
const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusAborted   RunStatus = "aborted"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

// EquityPoint is one mark-to-market observation of the portfolio.
type EquityPoint struct {
	Timestamp  time.Time       `json:"timestamp"`
	Cash       decimal.Decimal `json:"cash"`
	TotalValue decimal.Decimal `json:"totalValue"`
	Drawdown   float64         `json:"drawdown"`
}

// PortfolioSnapshot is the final state of a portfolio ledger.
type PortfolioSnapshot struct {
	InitialCapital decimal.Decimal `json:"initialCapital"`
	Cash           decimal.Decimal `json:"cash"`
	TotalValue     decimal.Decimal `json:"totalValue"`
	PeakValue      decimal.Decimal `json:"peakValue"`
	Drawdown       float64         `json:"drawdown"`
	MaxDrawdown    float64         `json:"maxDrawdown"`
}

// SimulationSummary summarizes the state of one finished run.
type SimulationSummary struct {
	Status           RunStatus         `json:"status"`
	AbortReason      string            `json:"abortReason,omitempty"`
	CandlesTotal     int               `json:"candlesTotal"`
	CandlesProcessed int               `json:"candlesProcessed"`
	FirstCandle      time.Time         `json:"firstCandle"`
	LastCandle       time.Time         `json:"lastCandle"`
	Portfolio        PortfolioSnapshot `json:"portfolio"`
	Trades           []Trade           `json:"trades"`
	EquityCurve      []EquityPoint     `json:"equityCurve"`
}

// BacktestResult packages one run. Immutable once produced.
type BacktestResult struct {
	BacktestID  string             `json:"backtestId"`
	Strategy    Strategy           `json:"strategy"`
	Options     BacktestOptions    `json:"options"`
	Summary     SimulationSummary  `json:"summary"`
	Metrics     PerformanceMetrics `json:"metrics"`
	StartedAt   time.Time          `json:"startedAt"`
	CompletedAt time.Time          `json:"completedAt"`
}

// Clone returns a deep copy of the result.
func (r *BacktestResult) Clone() *BacktestResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Strategy = r.Strategy.Clone()
	if r.Summary.Trades != nil {
		out.Summary.Trades = make([]Trade, len(r.Summary.Trades))
		copy(out.Summary.Trades, r.Summary.Trades)
	}
	if r.Summary.EquityCurve != nil {
		out.Summary.EquityCurve = make([]EquityPoint, len(r.Summary.EquityCurve))
		copy(out.Summary.EquityCurve, r.Summary.EquityCurve)
	}
	return &out
}

// OptimizationRun is one successful combination of a parameter sweep.
type OptimizationRun struct {
	Index      int             `json:"index"`
	Parameters Parameters      `json:"parameters"`
	Result     *BacktestResult `json:"result"`
}

// OptimizationResult holds the outcome of a parameter sweep.
type OptimizationResult struct {
	TotalCombinations int               `json:"totalCombinations"`
	SuccessfulTests   int               `json:"successfulTests"`
	Runs              []OptimizationRun `json:"runs"` // in combination order
	BestParameters    Parameters        `json:"bestParameters"`
	BestSharpe        float64           `json:"bestSharpe"`
	Failures          map[int]string    `json:"failures,omitempty"` // combination index -> error
}

// WalkForwardOptions configures a rolling walk-forward analysis.
type WalkForwardOptions struct {
	Backtest        BacktestOptions `json:"backtest"`
	TrainingPeriod  time.Duration   `json:"trainingPeriod"`
	TestingPeriod   time.Duration   `json:"testingPeriod"`
	StepSize        time.Duration   `json:"stepSize"`
	MaxPeriods      int             `json:"maxPeriods"`
	ParameterRanges ParameterRanges `json:"parameterRanges,omitempty"`
}

// Default walk-forward values.
const (
	DefaultTrainingPeriod = 60 * 24 * time.Hour
	DefaultTestingPeriod  = 14 * 24 * time.Hour
	DefaultStepSize       = 14 * 24 * time.Hour
	DefaultMaxPeriods     = 6
)

// WithDefaults fills zero-valued walk-forward fields.
func (o WalkForwardOptions) WithDefaults() WalkForwardOptions {
	if o.TrainingPeriod == 0 {
		o.TrainingPeriod = DefaultTrainingPeriod
	}
	if o.TestingPeriod == 0 {
		o.TestingPeriod = DefaultTestingPeriod
	}
	if o.StepSize == 0 {
		o.StepSize = DefaultStepSize
	}
	if o.MaxPeriods == 0 {
		o.MaxPeriods = DefaultMaxPeriods
	}
	return o
}

// Validate checks walk-forward durations.
func (o WalkForwardOptions) Validate() error {
	if o.TrainingPeriod <= 0 {
		return NewValidationError("trainingPeriod", "must be positive")
	}
	if o.TestingPeriod <= 0 {
		return NewValidationError("testingPeriod", "must be positive")
	}
	if o.StepSize <= 0 {
		return NewValidationError("stepSize", "must be positive")
	}
	if o.MaxPeriods < 1 {
		return NewValidationError("maxPeriods", "must be at least 1")
	}
	return nil
}

// WalkForwardPeriod is the outcome of one train/test window.
type WalkForwardPeriod struct {
	Index          int             `json:"index"`
	TrainingStart  time.Time       `json:"trainingStart"`
	TrainingEnd    time.Time       `json:"trainingEnd"`
	TestingStart   time.Time       `json:"testingStart"`
	TestingEnd     time.Time       `json:"testingEnd"`
	BestParameters Parameters      `json:"bestParameters"`
	TrainingSharpe float64         `json:"trainingSharpe"`
	TestResult     *BacktestResult `json:"testResult"`
	TestReturn     float64         `json:"testReturn"`
}

// WalkForwardSummary aggregates the successful periods.
type WalkForwardSummary struct {
	AverageReturn float64 `json:"averageReturn"`
	Consistency   float64 `json:"consistency"` // fraction of periods with positive return
	BestPeriod    int     `json:"bestPeriod"`  // period index, -1 when none
	WorstPeriod   int     `json:"worstPeriod"`
	BestReturn    float64 `json:"bestReturn"`
	WorstReturn   float64 `json:"worstReturn"`
}

// WalkForwardResult holds all periods of an analysis.
type WalkForwardResult struct {
	TotalPeriods       int                 `json:"totalPeriods"`
	Periods            []WalkForwardPeriod `json:"periods"`
	Skipped            map[int]string      `json:"skipped,omitempty"` // period index -> error
	OverallPerformance WalkForwardSummary  `json:"overallPerformance"`
}
