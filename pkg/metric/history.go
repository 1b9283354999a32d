// Package metric turns a transaction ledger and a candle series into a
// portfolio value history and summary performance metrics.
package metric

import (
	"time"

	"github.com/samber/lo"

	"github.com/hodlsim/hodlsim/pkg/core"
)

const dateKeyLayout = "2006-01-02"

// BuildPortfolioHistory replays transactions grouped by calendar date against
// each candle in order, maintaining running holdings and cash. The value at
// each candle is quantityHeld*close + availableCash. Each date's group is
// applied exactly once, on the first candle of that date, so intraday
// timeframes do not re-apply it on every candle of the day.
//
// Cash-only entries (funding) add to cash; sells add their USD amount to
// cash; everything else is a purchase and subtracts its amount from cash.
func BuildPortfolioHistory(
	transactions []core.Transaction,
	candles []core.Candle,
	startDate time.Time,
	initial core.PortfolioState,
) []core.PortfolioValuePoint {
	byDate := lo.GroupBy(transactions, func(tx core.Transaction) string {
		return tx.Date.UTC().Format(dateKeyLayout)
	})

	quantityHeld := initial.AssetQuantity
	availableCash := initial.USDC

	history := make([]core.PortfolioValuePoint, 0, len(candles))
	for _, candle := range candles {
		if candle.Time.Before(startDate) {
			continue
		}

		dateKey := candle.Time.UTC().Format(dateKeyLayout)
		for _, tx := range byDate[dateKey] {
			switch {
			case tx.IsCashOnly():
				availableCash += tx.Amount
			case tx.Type == core.TransactionSell:
				availableCash += tx.Amount
				quantityHeld += tx.QuantityChanged
			default:
				availableCash -= tx.Amount
				quantityHeld += tx.QuantityChanged
			}
		}
		delete(byDate, dateKey)

		history = append(history, core.PortfolioValuePoint{
			Date:         candle.Time,
			Value:        quantityHeld*candle.Close + availableCash,
			QuantityHeld: quantityHeld,
			Price:        candle.Close,
		})
	}

	return history
}
