package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PerformanceMetrics is a read-only snapshot derived from the closed trades
// and the final portfolio of one run. All ratios are finite.
type PerformanceMetrics struct {
	TotalTrades   int     `json:"totalTrades"`
	WinningTrades int     `json:"winningTrades"`
	LosingTrades  int     `json:"losingTrades"`
	WinRate       float64 `json:"winRate"`      // winning / total
	ProfitFactor  float64 `json:"profitFactor"` // totalProfit / totalLoss

	AverageWin      decimal.Decimal `json:"averageWin"`
	AverageLoss     decimal.Decimal `json:"averageLoss"`
	LargestWin      decimal.Decimal `json:"largestWin"`
	LargestLoss     decimal.Decimal `json:"largestLoss"`
	TotalProfit     decimal.Decimal `json:"totalProfit"`
	TotalLoss       decimal.Decimal `json:"totalLoss"` // absolute value
	NetProfit       decimal.Decimal `json:"netProfit"`
	TotalCommission decimal.Decimal `json:"totalCommission"`
	TotalSlippage   decimal.Decimal `json:"totalSlippage"`
	FinalValue      decimal.Decimal `json:"finalValue"`

	TotalReturn          float64       `json:"totalReturn"` // (final - initial) / initial
	SharpeRatio          float64       `json:"sharpeRatio"`
	CalmarRatio          float64       `json:"calmarRatio"`
	MaxDrawdown          float64       `json:"maxDrawdown"`
	MaxConsecutiveLosses int           `json:"maxConsecutiveLosses"`
	AverageTradeDuration time.Duration `json:"averageTradeDuration"`
	Exposure             float64       `json:"exposure"` // fraction of steps with an open trade
}

// EmptyMetrics returns the metrics of a run without trades.
func EmptyMetrics(finalValue decimal.Decimal) PerformanceMetrics {
	return PerformanceMetrics{
		AverageWin:      decimal.Zero,
		AverageLoss:     decimal.Zero,
		LargestWin:      decimal.Zero,
		LargestLoss:     decimal.Zero,
		TotalProfit:     decimal.Zero,
		TotalLoss:       decimal.Zero,
		NetProfit:       decimal.Zero,
		TotalCommission: decimal.Zero,
		TotalSlippage:   decimal.Zero,
		FinalValue:      finalValue,
	}
}
