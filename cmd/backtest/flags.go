package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"crypto-strategy-lab/internal/config"
	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/strategy"
)

// strategyFlags are shared by run, optimize, walkforward and gate.
type strategyFlags struct {
	file      string
	name      string
	evaluator string
	symbol    string
	timeframe string
	params    []string
	start     string
	end       string
	lookback  time.Duration
}

func (f *strategyFlags) register(cmd *cobra.Command, lookback time.Duration) {
	fl := cmd.Flags()
	fl.StringVar(&f.file, "strategy-file", "", "YAML strategy definition (name, symbol, parameters, conditions)")
	fl.StringVar(&f.name, "name", "", "strategy name (defaults to the evaluator name)")
	fl.StringVar(&f.evaluator, "evaluator", strategy.TypeMomentum, "condition evaluator: "+strings.Join(strategy.Names(), ", "))
	fl.StringVar(&f.symbol, "symbol", "", "trading pair, e.g. BTC/USDT (defaults to config)")
	fl.StringVar(&f.timeframe, "timeframe", "", "candle timeframe, e.g. 1h (defaults to config)")
	fl.StringArrayVar(&f.params, "param", nil, "strategy parameter key=value (repeatable)")
	fl.StringVar(&f.start, "start", "", "start date, RFC3339 or YYYY-MM-DD")
	fl.StringVar(&f.end, "end", "", "end date, RFC3339 or YYYY-MM-DD (defaults to now)")
	fl.DurationVar(&f.lookback, "lookback", lookback, "window length when --start is omitted")
}

// strategy builds the strategy from the file and flags; flags win.
func (f *strategyFlags) strategy() (domain.Strategy, error) {
	var s domain.Strategy
	if f.file != "" {
		b, err := os.ReadFile(f.file)
		if err != nil {
			return s, fmt.Errorf("read strategy file: %w", err)
		}
		if err := yaml.Unmarshal(b, &s); err != nil {
			return s, fmt.Errorf("parse strategy file %s: %w", f.file, err)
		}
	}
	if f.name != "" {
		s.Name = f.name
	}
	if s.Name == "" {
		s.Name = f.evaluator
	}
	if f.symbol != "" {
		s.Symbol = f.symbol
	}
	params, err := parseParams(f.params)
	if err != nil {
		return s, err
	}
	return s.WithParameters(params), nil
}

// options builds backtest options from config and the date flags. The
// symbol comes from --symbol, then the strategy, then config.
func (f *strategyFlags) options(cfg *config.Config, s domain.Strategy, now time.Time) (domain.BacktestOptions, error) {
	end := now.UTC()
	if f.end != "" {
		t, err := parseTime(f.end)
		if err != nil {
			return domain.BacktestOptions{}, fmt.Errorf("--end: %w", err)
		}
		end = t
	}
	start := end.Add(-f.lookback)
	if f.start != "" {
		t, err := parseTime(f.start)
		if err != nil {
			return domain.BacktestOptions{}, fmt.Errorf("--start: %w", err)
		}
		start = t
	}

	opts := cfg.BacktestOptions(start, end)
	if s.Symbol != "" {
		opts.Symbol = s.Symbol
	}
	if f.timeframe != "" {
		opts.Timeframe = f.timeframe
	}
	return opts, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

// parseParams parses key=value pairs.
func parseParams(pairs []string) (domain.Parameters, error) {
	out := make(domain.Parameters, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q: want key=value", p)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid parameter %q: %w", p, err)
		}
		out[strings.TrimSpace(k)] = f
	}
	return out, nil
}

// parseRanges parses key=v1,v2,... value lists.
func parseRanges(specs []string) (domain.ParameterRanges, error) {
	out := make(domain.ParameterRanges, len(specs))
	for _, spec := range specs {
		k, list, ok := strings.Cut(spec, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid range %q: want key=v1,v2", spec)
		}
		var values []float64
		for _, v := range strings.Split(list, ",") {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid range %q: %w", spec, err)
			}
			values = append(values, f)
		}
		out[strings.TrimSpace(k)] = values
	}
	return out, nil
}

// outputFlags control where reports are written.
type outputFlags struct {
	dir    string
	asJSON bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.dir, "out", "", "directory for report files (stdout when empty)")
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "print the response as JSON")
}

// emit writes either the JSON response or the named files. With no output
// directory the Markdown file is printed to stdout.
func (o *outputFlags) emit(cmd *cobra.Command, response any, files map[string]string) error {
	if o.asJSON {
		b, err := json.MarshalIndent(response, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return err
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	if o.dir == "" {
		for _, name := range names {
			if strings.HasSuffix(name, ".md") {
				_, err := fmt.Fprint(cmd.OutOrStdout(), files[name])
				return err
			}
		}
		return nil
	}

	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, name := range names {
		path := filepath.Join(o.dir, name)
		if err := os.WriteFile(path, []byte(files[name]), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	}
	return nil
}
