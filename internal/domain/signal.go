package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Signal is a generated trading signal on the live path. Before it may
// create an order it must pass risk validation and a historical backtest
// of its strategy.
type Signal struct {
	ID          string          `json:"id"`
	Strategy    Strategy        `json:"strategy"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	Price       decimal.Decimal `json:"price"`
	Size        decimal.Decimal `json:"size"`
	GeneratedAt time.Time       `json:"generatedAt"`
}

// RiskAssessment is produced by a RiskManager for one signal.
type RiskAssessment struct {
	Valid          bool     `json:"valid"`
	Errors         []string `json:"errors,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
	RiskScore      float64  `json:"riskScore"`
	AdjustedSignal *Signal  `json:"adjustedSignal,omitempty"`
}
