package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"crypto-strategy-lab/internal/backtest"
	"crypto-strategy-lab/internal/config"
	"crypto-strategy-lab/internal/observability"
	"crypto-strategy-lab/internal/progress"
	"crypto-strategy-lab/internal/storage"
	chstore "crypto-strategy-lab/internal/storage/clickhouse"
	"crypto-strategy-lab/internal/storage/csvfile"
	"crypto-strategy-lab/internal/storage/memory"
	pgstore "crypto-strategy-lab/internal/storage/postgres"
	"crypto-strategy-lab/internal/strategy"
)

func (a *app) postgresPool(ctx context.Context) (*pgstore.Pool, error) {
	if a.cfg.Storage.PostgresDSN == "" {
		return nil, fmt.Errorf("postgres DSN is not configured (set storage.postgresDSN or %sPOSTGRES_DSN)", config.EnvPrefix)
	}
	pool, err := pgstore.NewPool(ctx, a.cfg.Storage.PostgresDSN, a.cfg.Storage.MaxConns)
	if err != nil {
		return nil, err
	}
	a.onClose(pool.Close)
	return pool, nil
}

func (a *app) clickhouseConn(ctx context.Context) (*chstore.Conn, error) {
	if a.cfg.Storage.ClickhouseDSN == "" {
		return nil, fmt.Errorf("clickhouse DSN is not configured (set storage.clickhouseDSN or %sCLICKHOUSE_DSN)", config.EnvPrefix)
	}
	conn, err := chstore.NewConn(ctx, a.cfg.Storage.ClickhouseDSN)
	if err != nil {
		return nil, err
	}
	a.onClose(func() { _ = conn.Close() })
	return conn, nil
}

// resultStore opens the configured backtest result store.
func (a *app) resultStore(ctx context.Context) (storage.BacktestResultStore, error) {
	backend := strings.ToLower(a.cfg.Storage.Results)
	switch backend {
	case config.BackendPostgres:
		pool, err := a.postgresPool(ctx)
		if err != nil {
			return nil, err
		}
		return observability.InstrumentResultStore(pgstore.NewBacktestResultStore(pool), a.metrics, backend), nil
	default:
		return memory.NewBacktestResultStore(), nil
	}
}

// candleSource opens the configured historical candle source.
func (a *app) candleSource(ctx context.Context) (storage.CandleSource, error) {
	backend := strings.ToLower(a.cfg.Storage.Candles)
	switch backend {
	case config.BackendClickhouse:
		conn, err := a.clickhouseConn(ctx)
		if err != nil {
			return nil, err
		}
		return observability.InstrumentCandleSource(chstore.NewCandleStore(conn), a.metrics, backend), nil
	default:
		return csvfile.NewSource(a.cfg.Storage.CSVDir), nil
	}
}

// checkpointStore returns the postgres checkpoint store when postgres is
// configured, otherwise an in-memory one that lasts for this process only.
func (a *app) checkpointStore(ctx context.Context) (storage.ImportCheckpointStore, error) {
	if a.cfg.Storage.PostgresDSN == "" {
		a.logger.Warn("postgres not configured: import checkpoints will not persist")
		return memory.NewImportCheckpointStore(), nil
	}
	pool, err := a.postgresPool(ctx)
	if err != nil {
		return nil, err
	}
	return pgstore.NewImportCheckpointStore(pool), nil
}

// engine builds an Engine on the configured stores.
func (a *app) engine(ctx context.Context, evaluatorName string) (*backtest.Engine, error) {
	evaluator, err := strategy.FromName(evaluatorName)
	if err != nil {
		return nil, err
	}
	source, err := a.candleSource(ctx)
	if err != nil {
		return nil, err
	}
	store, err := a.resultStore(ctx)
	if err != nil {
		return nil, err
	}

	bus := progress.NewBus(a.logger)
	if err := bus.Subscribe(a.logProgress); err != nil {
		return nil, err
	}
	a.onClose(bus.Wait)

	return backtest.NewEngine(backtest.EngineOptions{
		Source:            source,
		Evaluator:         evaluator,
		Store:             store,
		Workers:           a.cfg.Optimizer.Workers,
		MaxCombinations:   a.cfg.Optimizer.MaxCombinations,
		Logger:            a.logger,
		Metrics:           a.metrics,
		Progress:          bus,
		ProgressEmissions: a.cfg.Engine.ProgressEmissions,
	}), nil
}

func (a *app) logProgress(e progress.Event) {
	a.logger.WithFields(logrus.Fields{
		"backtest_id": e.RunID,
		"progress":    e.Progress,
	}).Debug(e.Message)
}
