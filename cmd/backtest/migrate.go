package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"crypto-strategy-lab/internal/storage/migrations"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded PostgreSQL and ClickHouse migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ran := false

			if a.cfg.Storage.PostgresDSN != "" {
				pool, err := a.postgresPool(ctx)
				if err != nil {
					return err
				}
				applied, err := migrations.RunPostgresMigrations(ctx, pool)
				if err != nil {
					return fmt.Errorf("postgres migrations: %w", err)
				}
				a.logger.WithField("applied", applied).Info("postgres migrations complete")
				ran = true
			}

			if a.cfg.Storage.ClickhouseDSN != "" {
				conn, err := migrations.RunClickhouseMigrations(ctx, a.cfg.Storage.ClickhouseDSN)
				if err != nil {
					return fmt.Errorf("clickhouse migrations: %w", err)
				}
				_ = conn.Close()
				a.logger.Info("clickhouse migrations complete")
				ran = true
			}

			if !ran {
				return errors.New("no database configured: set a postgres or clickhouse DSN")
			}
			return nil
		},
	}
}
