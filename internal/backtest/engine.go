package backtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"crypto-strategy-lab/internal/candles"
	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/observability"
	"crypto-strategy-lab/internal/optimizer"
	"crypto-strategy-lab/internal/progress"
	"crypto-strategy-lab/internal/simulation"
	"crypto-strategy-lab/internal/storage"
	"crypto-strategy-lab/internal/storage/memory"
	"crypto-strategy-lab/internal/strategy"
	"crypto-strategy-lab/internal/walkforward"
)

// Engine errors
var (
	ErrAlreadyRunning = errors.New("a backtest is already running")
	ErrNotFound       = errors.New("backtest result not found")
)

// Operation names reported by GetStatus.
const (
	OperationBacktest     = "backtest"
	OperationOptimization = "optimization"
	OperationWalkForward  = "walk_forward"
)

// EngineOptions configures an Engine.
type EngineOptions struct {
	Source    storage.CandleSource
	Evaluator strategy.Evaluator
	Store     storage.BacktestResultStore // defaults to an in-memory store

	// Workers bounds concurrent backtests inside one optimization sweep.
	Workers         int
	MaxCombinations int // 0 uses optimizer.DefaultMaxCombinations

	Logger   logrus.FieldLogger     // optional
	Metrics  *observability.Metrics // optional
	Progress progress.Publisher     // optional

	Clock             func() time.Time // defaults to UTC wall clock
	IDGenerator       func() string    // defaults to uuid.NewString
	ProgressEmissions int
}

// Engine executes one operation at a time: a backtest, an optimization
// sweep or a walk-forward analysis. Completed backtest results are kept in
// the result store.
type Engine struct {
	pipeline  *Pipeline
	optimizer *optimizer.Optimizer
	analyzer  *walkforward.Analyzer
	store     storage.BacktestResultStore
	logger    logrus.FieldLogger
	metrics   *observability.Metrics
	clock     func() time.Time
	ids       func() string

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	status Status
}

// NewEngine creates an idle Engine.
func NewEngine(opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.Store == nil {
		opts.Store = memory.NewBacktestResultStore()
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.IDGenerator == nil {
		opts.IDGenerator = uuid.NewString
	}

	e := &Engine{
		store:   opts.Store,
		logger:  logger,
		metrics: opts.Metrics,
		clock:   opts.Clock,
		ids:     opts.IDGenerator,
	}
	e.pipeline = NewPipeline(PipelineOptions{
		Source:            opts.Source,
		Evaluator:         opts.Evaluator,
		Progress:          tee(opts.Progress, statusRecorder{e}),
		Logger:            logger,
		Metrics:           opts.Metrics,
		Clock:             opts.Clock,
		IDGenerator:       opts.IDGenerator,
		ProgressEmissions: opts.ProgressEmissions,
	})
	e.optimizer = optimizer.New(e.pipeline, optimizer.Options{
		Workers:         opts.Workers,
		MaxCombinations: opts.MaxCombinations,
		Logger:          logger,
		Metrics:         opts.Metrics,
	})
	e.analyzer = walkforward.NewAnalyzer(e.pipeline, e.optimizer, walkforward.Options{
		Logger:  logger,
		Metrics: opts.Metrics,
		Clock:   opts.Clock,
	})
	return e
}

// RunBacktest runs one backtest and stores the result under a new id.
func (e *Engine) RunBacktest(ctx context.Context, s domain.Strategy, opts domain.BacktestOptions) BacktestResponse {
	started := time.Now()
	id := e.ids()
	resp := BacktestResponse{BacktestID: id}

	ctx, release, err := e.acquire(ctx, OperationBacktest, id)
	if err != nil {
		return resp.fail(err, time.Since(started))
	}
	defer release()

	result, err := e.pipeline.Run(ctx, id, s, opts)
	if err != nil {
		e.logFailure(err, OperationBacktest, id)
		return resp.fail(err, time.Since(started))
	}
	if err := e.store.Insert(ctx, result); err != nil {
		err = fmt.Errorf("store backtest result: %w", err)
		e.logFailure(err, OperationBacktest, id)
		return resp.fail(err, time.Since(started))
	}

	resp.Success = true
	resp.Results = result
	resp.ExecutionTime = time.Since(started)
	return resp
}

// RunOptimization sweeps every combination of ranges over base.
// Individual combination results are not stored.
func (e *Engine) RunOptimization(ctx context.Context, base domain.Strategy, ranges domain.ParameterRanges, opts domain.BacktestOptions) OptimizationResponse {
	started := time.Now()
	var resp OptimizationResponse

	ctx, release, err := e.acquire(ctx, OperationOptimization, "")
	if err != nil {
		return resp.fail(err, time.Since(started))
	}
	defer release()

	result, err := e.optimizer.Run(ctx, base, ranges, opts)
	if result != nil {
		resp.TotalCombinations = result.TotalCombinations
		resp.SuccessfulTests = result.SuccessfulTests
		resp.Results = result.Runs
		resp.Failures = result.Failures
	}
	if err != nil {
		e.logFailure(err, OperationOptimization, "")
		return resp.fail(err, time.Since(started))
	}

	resp.Success = true
	resp.BestParameters = result.BestParameters
	resp.BestSharpe = result.BestSharpe
	resp.ExecutionTime = time.Since(started)
	return resp
}

// RunWalkForwardAnalysis runs a rolling train/test analysis of base.
func (e *Engine) RunWalkForwardAnalysis(ctx context.Context, base domain.Strategy, opts domain.WalkForwardOptions) WalkForwardResponse {
	started := time.Now()
	var resp WalkForwardResponse

	ctx, release, err := e.acquire(ctx, OperationWalkForward, "")
	if err != nil {
		return resp.fail(err, time.Since(started))
	}
	defer release()

	result, err := e.analyzer.Run(ctx, base, opts)
	if result != nil {
		resp.TotalPeriods = result.TotalPeriods
		resp.Results = result.Periods
		resp.Skipped = result.Skipped
		resp.OverallPerformance = result.OverallPerformance
	}
	if err != nil {
		e.logFailure(err, OperationWalkForward, "")
		return resp.fail(err, time.Since(started))
	}

	resp.Success = true
	resp.ExecutionTime = time.Since(started)
	return resp
}

// GetBacktestResults returns a stored result. Returns ErrNotFound if the id
// is unknown.
func (e *Engine) GetBacktestResults(ctx context.Context, backtestID string) (*domain.BacktestResult, error) {
	r, err := e.store.GetByID(ctx, backtestID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, backtestID)
	}
	if err != nil {
		return nil, fmt.Errorf("get backtest result: %w", err)
	}
	return r, nil
}

// GetAllResults returns every stored result ordered by start time.
func (e *Engine) GetAllResults(ctx context.Context) ([]*domain.BacktestResult, error) {
	results, err := e.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get backtest results: %w", err)
	}
	return results, nil
}

// CancelBacktest cancels the running operation. The simulation observes
// the cancellation at the next candle boundary and its partial results are
// discarded. Returns false when nothing is running.
func (e *Engine) CancelBacktest() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel == nil {
		return false
	}
	e.cancel()
	e.logger.WithFields(logrus.Fields{
		"operation":   e.status.Operation,
		"backtest_id": e.status.BacktestID,
	}).Info("cancellation requested")
	return true
}

// GetStatus returns a snapshot of the engine state.
func (e *Engine) GetStatus() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.status
	st.Running = e.running.Load()
	return st
}

// ClearResults removes results completed more than olderThanHours ago and
// returns how many were removed. olderThanHours <= 0 removes everything.
func (e *Engine) ClearResults(ctx context.Context, olderThanHours float64) (int, error) {
	cutoff := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	if olderThanHours > 0 {
		cutoff = e.clock().Add(-time.Duration(olderThanHours * float64(time.Hour)))
	}
	n, err := e.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("clear results: %w", err)
	}
	e.logger.WithFields(logrus.Fields{
		"removed": n,
		"cutoff":  cutoff,
	}).Info("backtest results cleared")
	return n, nil
}

// acquire takes the single-run token and installs a cancel func.
func (e *Engine) acquire(ctx context.Context, op, id string) (context.Context, func(), error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, nil, ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)

	e.mu.Lock()
	e.cancel = cancel
	e.status = Status{
		Operation:  op,
		BacktestID: id,
		StartedAt:  e.clock(),
	}
	e.mu.Unlock()

	release := func() {
		cancel()
		e.mu.Lock()
		e.cancel = nil
		e.status.Progress = 100
		e.mu.Unlock()
		e.running.Store(false)
	}
	return ctx, release, nil
}

func (e *Engine) recordProgress(ev progress.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel == nil {
		return
	}
	if e.status.BacktestID != "" && ev.RunID != e.status.BacktestID {
		return
	}
	e.status.Progress = ev.Progress
	e.status.Message = ev.Message
}

func (e *Engine) logFailure(err error, op, id string) {
	kind := Classify(err)
	entry := e.logger.WithError(err).WithFields(logrus.Fields{
		"operation": op,
		"kind":      kind,
	})
	if id != "" {
		entry = entry.WithField("backtest_id", id)
	}
	switch kind {
	case ErrorKindSimulation, ErrorKindStorage, ErrorKindDataSource:
		entry.Error("operation failed")
	default:
		entry.Info("operation rejected")
	}
}

// statusRecorder mirrors progress events into the engine status.
type statusRecorder struct {
	e *Engine
}

func (r statusRecorder) Publish(ev progress.Event) {
	r.e.recordProgress(ev)
}

// Classify maps an error to the ErrorKind reported in responses.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadyRunning):
		return ErrorKindBusy
	case errors.Is(err, domain.ErrValidation), errors.Is(err, walkforward.ErrNoPeriods):
		return ErrorKindValidation
	case errors.Is(err, candles.ErrInsufficientData):
		return ErrorKindInsufficientData
	case errors.Is(err, simulation.ErrCancelled), errors.Is(err, context.Canceled):
		return ErrorKindCancelled
	case errors.Is(err, ErrDataSource):
		return ErrorKindDataSource
	case errors.Is(err, storage.ErrDuplicateKey), errors.Is(err, storage.ErrInvalidInput):
		return ErrorKindStorage
	}
	return ErrorKindSimulation // includes *simulation.SimulationError
}
