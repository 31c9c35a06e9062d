package main

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/storage"
	chstore "crypto-strategy-lab/internal/storage/clickhouse"
	"crypto-strategy-lab/internal/storage/csvfile"
)

// DefaultImportBatchSize is the number of candles per ClickHouse insert.
const DefaultImportBatchSize = 5000

func newImportCmd(a *app) *cobra.Command {
	var (
		file      string
		symbol    string
		timeframe string
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a candle CSV file into ClickHouse",
		Long: `Import appends candles newer than the last import checkpoint of the
symbol/timeframe, so an interrupted import can be rerun safely. The CSV
header must be: timestamp,open,high,low,close,volume (timestamp in ms).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if batchSize <= 0 {
				return errors.New("--batch-size must be positive")
			}

			rows, err := csvfile.ReadFile(file)
			if err != nil {
				return err
			}
			sort.SliceStable(rows, func(i, j int) bool { return rows[i].TimestampMs < rows[j].TimestampMs })

			conn, err := a.clickhouseConn(ctx)
			if err != nil {
				return err
			}
			store := chstore.NewCandleStore(conn)
			checkpoints, err := a.checkpointStore(ctx)
			if err != nil {
				return err
			}

			cp, err := checkpoints.Get(ctx, symbol, timeframe)
			switch {
			case errors.Is(err, storage.ErrNotFound):
				cp = &storage.ImportCheckpoint{Symbol: symbol, Timeframe: timeframe, LastTimestampMs: -1}
			case err != nil:
				return fmt.Errorf("load checkpoint: %w", err)
			}

			pending := newerThan(rows, cp.LastTimestampMs)
			logger := a.logger.WithFields(logrus.Fields{
				"symbol":    symbol,
				"timeframe": timeframe,
				"file":      file,
			})
			logger.WithFields(logrus.Fields{
				"rows":    len(rows),
				"pending": len(pending),
			}).Info("import started")

			for start := 0; start < len(pending); start += batchSize {
				end := min(start+batchSize, len(pending))
				batch := pending[start:end]
				if err := store.InsertBulk(ctx, symbol, timeframe, batch); err != nil {
					return fmt.Errorf("insert batch at row %d: %w", start, err)
				}

				cp.LastTimestampMs = batch[len(batch)-1].TimestampMs
				cp.Rows += int64(len(batch))
				cp.UpdatedAt = time.Now().UTC()
				if err := checkpoints.Set(ctx, cp); err != nil {
					return fmt.Errorf("save checkpoint: %w", err)
				}
				logger.WithField("imported", end).Debug("batch imported")
			}

			logger.WithField("total_rows", cp.Rows).Info("import finished")
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d candles for %s %s\n", len(pending), symbol, timeframe)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&file, "file", "", "candle CSV file")
	fl.StringVar(&symbol, "symbol", domain.DefaultSymbol, "trading pair")
	fl.StringVar(&timeframe, "timeframe", domain.DefaultTimeframe, "candle timeframe")
	fl.IntVar(&batchSize, "batch-size", DefaultImportBatchSize, "candles per insert")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// newerThan returns the sorted rows after lastMs, dropping repeated
// timestamps within the file.
func newerThan(rows []domain.RawCandle, lastMs int64) []domain.RawCandle {
	out := make([]domain.RawCandle, 0, len(rows))
	for _, r := range rows {
		if r.TimestampMs <= lastMs {
			continue
		}
		if n := len(out); n > 0 && out[n-1].TimestampMs == r.TimestampMs {
			continue
		}
		out = append(out, r)
	}
	return out
}
