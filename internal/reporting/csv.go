package reporting

import (
	"fmt"
	"time"

	"github.com/gocarina/gocsv"

	"crypto-strategy-lab/internal/domain"
)

// RenderTradesCSV renders closed trades as CSV with a header row.
func RenderTradesCSV(trades []domain.Trade) (string, error) {
	rows := make([]TradeRow, len(trades))
	for i, t := range trades {
		rows[i] = TradeRow{
			ID:         t.ID,
			Symbol:     t.Symbol,
			Side:       string(t.Side),
			Size:       t.Size.String(),
			EntryTime:  t.EntryTime.UTC().Format(time.RFC3339),
			EntryPrice: t.EntryPrice.String(),
			EntryValue: t.EntryValue.String(),
			ExitTime:   t.ExitTime.UTC().Format(time.RFC3339),
			ExitPrice:  t.ExitPrice.String(),
			ExitValue:  t.ExitValue.String(),
			ExitReason: t.ExitReason,
			GrossPnL:   t.GrossPnL.String(),
			Commission: t.Commission.String(),
			Slippage:   t.Slippage.String(),
			NetPnL:     t.NetPnL.String(),
			DurationS:  int64(t.Duration / time.Second),
		}
	}
	return marshalRows(&rows)
}

// RenderResultsCSV renders result rows as CSV with a header row.
func RenderResultsCSV(rows []ResultRow) (string, error) {
	return marshalRows(&rows)
}

func marshalRows(rows any) (string, error) {
	out, err := gocsv.MarshalString(rows)
	if err != nil {
		return "", fmt.Errorf("marshal csv: %w", err)
	}
	return out, nil
}
