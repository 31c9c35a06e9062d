package backtest

import (
	"time"

	"crypto-strategy-lab/internal/domain"
)

// ErrorKind classifies the failure carried by a response.
type ErrorKind string

// ErrorKind constants.
const (
	ErrorKindValidation       ErrorKind = "validation"
	ErrorKindInsufficientData ErrorKind = "insufficient_data"
	ErrorKindSimulation       ErrorKind = "simulation"
	ErrorKindCancelled        ErrorKind = "cancelled"
	ErrorKindBusy             ErrorKind = "busy"
	ErrorKindDataSource       ErrorKind = "data_source"
	ErrorKindStorage          ErrorKind = "storage"
)

// BacktestResponse is returned by Engine.RunBacktest.
type BacktestResponse struct {
	Success       bool                   `json:"success"`
	BacktestID    string                 `json:"backtestId"`
	Results       *domain.BacktestResult `json:"results,omitempty"`
	Error         string                 `json:"error,omitempty"`
	ErrorKind     ErrorKind              `json:"errorKind,omitempty"`
	ExecutionTime time.Duration          `json:"executionTime"`
}

func (r BacktestResponse) fail(err error, elapsed time.Duration) BacktestResponse {
	r.Success = false
	r.Error = err.Error()
	r.ErrorKind = Classify(err)
	r.ExecutionTime = elapsed
	return r
}

// OptimizationResponse is returned by Engine.RunOptimization.
// Results are in combination order.
type OptimizationResponse struct {
	Success           bool                     `json:"success"`
	TotalCombinations int                      `json:"totalCombinations"`
	SuccessfulTests   int                      `json:"successfulTests"`
	Results           []domain.OptimizationRun `json:"results"`
	Failures          map[int]string           `json:"failures,omitempty"`
	BestParameters    domain.Parameters        `json:"bestParameters,omitempty"`
	BestSharpe        float64                  `json:"bestSharpe"`
	Error             string                   `json:"error,omitempty"`
	ErrorKind         ErrorKind                `json:"errorKind,omitempty"`
	ExecutionTime     time.Duration            `json:"executionTime"`
}

func (r OptimizationResponse) fail(err error, elapsed time.Duration) OptimizationResponse {
	r.Success = false
	r.Error = err.Error()
	r.ErrorKind = Classify(err)
	r.ExecutionTime = elapsed
	return r
}

// WalkForwardResponse is returned by Engine.RunWalkForwardAnalysis.
type WalkForwardResponse struct {
	Success            bool                       `json:"success"`
	TotalPeriods       int                        `json:"totalPeriods"`
	Results            []domain.WalkForwardPeriod `json:"results"`
	Skipped            map[int]string             `json:"skipped,omitempty"`
	OverallPerformance domain.WalkForwardSummary  `json:"overallPerformance"`
	Error              string                     `json:"error,omitempty"`
	ErrorKind          ErrorKind                  `json:"errorKind,omitempty"`
	ExecutionTime      time.Duration              `json:"executionTime"`
}

func (r WalkForwardResponse) fail(err error, elapsed time.Duration) WalkForwardResponse {
	r.Success = false
	r.Error = err.Error()
	r.ErrorKind = Classify(err)
	r.ExecutionTime = elapsed
	return r
}

// Status is a snapshot of the engine.
type Status struct {
	Running    bool      `json:"running"`
	Operation  string    `json:"operation,omitempty"`
	BacktestID string    `json:"backtestId,omitempty"`
	StartedAt  time.Time `json:"startedAt,omitempty"`
	Progress   float64   `json:"progress"`
	Message    string    `json:"message,omitempty"`
}
