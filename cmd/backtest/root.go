package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"crypto-strategy-lab/internal/config"
	"crypto-strategy-lab/internal/observability"
)

// app holds the state shared by every subcommand.
type app struct {
	configPath  string
	envFile     string
	logLevel    string
	logFormat   string
	metricsAddr string

	cfg     *config.Config
	logger  *logrus.Logger
	metrics *observability.Metrics
	closers []func()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "backtest",
		Short:         "Backtest, optimize and walk-forward test trading strategies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "YAML config file")
	f.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before CSL_ overrides")
	f.StringVar(&a.logLevel, "log-level", "", "log level override: debug, info, warn, error")
	f.StringVar(&a.logFormat, "log-format", "", "log format override: text, json")
	f.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9102")

	root.AddCommand(
		newRunCmd(a),
		newOptimizeCmd(a),
		newWalkForwardCmd(a),
		newGateCmd(a),
		newImportCmd(a),
		newMigrateCmd(a),
		newReportCmd(a),
		newClearCmd(a),
	)
	return root
}

// setup loads configuration, then configures logging and metrics.
func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load(a.configPath, a.envFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if a.metricsAddr != "" {
		cfg.Metrics.Addr = a.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = logrus.New()
	a.logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(strings.ToLower(cfg.Logging.Level))
	if err != nil {
		return err
	}
	a.logger.SetLevel(level)
	if strings.EqualFold(cfg.Logging.Format, "json") {
		a.logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		a.logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	a.metrics = observability.NewMetrics(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)
	if cfg.Metrics.Addr != "" {
		a.serveMetrics(ctx, cfg.Metrics.Addr)
	}
	return nil
}

func (a *app) serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.WithField("addr", addr).Info("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("metrics server failed")
		}
	}()
	a.onClose(func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
