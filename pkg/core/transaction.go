package core

import "time"

// TransactionType discriminates ledger entries.
type TransactionType string

const (
	TransactionBuy     TransactionType = "buy"
	TransactionSell    TransactionType = "sell"
	TransactionFunding TransactionType = "funding"
)

// Transaction is one append-only ledger entry, created whenever cash or
// holdings change. Amount is always the USD magnitude of the cash movement
// (spent for buy, received for sell, added for funding); QuantityChanged is
// signed (positive buy, negative sell, zero funding).
type Transaction struct {
	Date                   time.Time       `json:"date"`
	Type                   TransactionType `json:"type"`
	Price                  float64         `json:"price"`
	Amount                 float64         `json:"amount"`
	QuantityChanged        float64         `json:"quantityChanged"`
	Reason                 string          `json:"reason"`
	PortfolioValueSnapshot float64         `json:"portfolioValueSnapshot"`
}

// IsCashOnly reports whether the entry moves cash without touching holdings,
// which is how funding deposits appear during ledger replay.
func (t Transaction) IsCashOnly() bool {
	return t.QuantityChanged == 0 && t.Amount > 0
}

// PortfolioValuePoint is one derived entry per candle of the replayed ledger.
type PortfolioValuePoint struct {
	Date         time.Time `json:"date"`
	Value        float64   `json:"value"`
	QuantityHeld float64   `json:"quantityHeld"`
	Price        float64   `json:"price"`
}

// StrategyMetrics summarizes a backtest run. Immutable once computed.
type StrategyMetrics struct {
	TotalReturn     float64 `json:"totalReturn"`  // percent
	AvgBuyPrice     float64 `json:"avgBuyPrice"`  // USD per unit, buys only
	MaxDrawdown     float64 `json:"maxDrawdown"`  // percent, peak to trough
	FinalValue      float64 `json:"finalValue"`   // USD
	SharpeRatio     float64 `json:"sharpeRatio"`  // annualized, 0% risk-free
	TotalInvestment float64 `json:"totalInvestment"`
	TotalQuantity   float64 `json:"totalQuantity"`
}
