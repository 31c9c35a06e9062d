package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"crypto-strategy-lab/internal/reporting"
	"crypto-strategy-lab/internal/strategy"
)

func newReportCmd(a *app) *cobra.Command {
	var of outputFlags

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize stored backtest results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.resultStore(cmd.Context())
			if err != nil {
				return err
			}
			report, err := reporting.NewGenerator(store).Generate(cmd.Context())
			if err != nil {
				return err
			}
			results, err := reporting.RenderResultsCSV(report.Results)
			if err != nil {
				return err
			}
			return of.emit(cmd, report, map[string]string{
				"report.md":   reporting.RenderMarkdown(report),
				"results.csv": results,
			})
		},
	}
	of.register(cmd)
	return cmd
}

func newClearCmd(a *app) *cobra.Command {
	var olderThan float64

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete stored backtest results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := a.engine(cmd.Context(), strategy.TypeIdle)
			if err != nil {
				return err
			}
			n, err := engine.ClearResults(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d results\n", n)
			return nil
		},
	}
	cmd.Flags().Float64Var(&olderThan, "older-than-hours", 0, "only delete results completed more than this many hours ago (0 deletes all)")
	return cmd
}
