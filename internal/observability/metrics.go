// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// All Record methods are safe to call on a nil *Metrics.
type Metrics struct {
	// Backtest metrics
	BacktestRuns           *prometheus.CounterVec
	BacktestDuration       prometheus.Histogram
	TradesSimulated        prometheus.Counter
	CircuitBreakerTrips    prometheus.Counter
	CandlesRejected        prometheus.Counter
	LastSuccessfulBacktest prometheus.Gauge

	// Sweep metrics
	OptimizerCombinations *prometheus.CounterVec
	WalkForwardPeriods    *prometheus.CounterVec

	// Live path
	SignalDecisions *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "crypto_strategy_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		BacktestRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by terminal status",
		}, []string{"status"}),
		BacktestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Backtest execution duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		TradesSimulated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_simulated_total",
			Help:      "Total number of trades simulated",
		}),
		CircuitBreakerTrips: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "circuit_breaker_trips_total",
			Help:      "Total number of runs aborted by the drawdown circuit breaker",
		}),
		CandlesRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "candles_rejected_total",
			Help:      "Total number of malformed candles dropped by validation",
		}),
		LastSuccessfulBacktest: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_backtest_timestamp",
			Help:      "Unix timestamp of last completed backtest",
		}),
		OptimizerCombinations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "combinations_total",
			Help:      "Total number of optimizer combinations by status",
		}, []string{"status"}),
		WalkForwardPeriods: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "walkforward",
			Name:      "periods_total",
			Help:      "Total number of walk-forward periods by status",
		}, []string{"status"}),
		SignalDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signalgate",
			Name:      "decisions_total",
			Help:      "Total number of signal gate decisions",
		}, []string{"decision"}),
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordBacktest records one finished backtest run.
func (m *Metrics) RecordBacktest(status string, durationSeconds float64, trades int, finishedUnix int64) {
	if m == nil {
		return
	}
	m.BacktestRuns.WithLabelValues(status).Inc()
	m.BacktestDuration.Observe(durationSeconds)
	m.TradesSimulated.Add(float64(trades))
	switch status {
	case "completed":
		m.LastSuccessfulBacktest.Set(float64(finishedUnix))
	case "aborted":
		m.CircuitBreakerTrips.Inc()
	}
}

// RecordCandlesRejected adds dropped candles to the rejection counter.
func (m *Metrics) RecordCandlesRejected(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CandlesRejected.Add(float64(n))
}

// RecordCombination records an optimizer combination outcome ("ok" or "failed").
func (m *Metrics) RecordCombination(status string) {
	if m == nil {
		return
	}
	m.OptimizerCombinations.WithLabelValues(status).Inc()
}

// RecordPeriod records a walk-forward period outcome ("ok" or "skipped").
func (m *Metrics) RecordPeriod(status string) {
	if m == nil {
		return
	}
	m.WalkForwardPeriods.WithLabelValues(status).Inc()
}

// RecordSignalDecision records a GO / NO-GO decision of the signal gate.
func (m *Metrics) RecordSignalDecision(decision string) {
	if m == nil {
		return
	}
	m.SignalDecisions.WithLabelValues(decision).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
