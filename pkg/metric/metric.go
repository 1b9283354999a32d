package metric

import (
	"math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/hodlsim/hodlsim/pkg/core"
)

// periodsPerYear annualizes the Sharpe ratio assuming a 252-period trading
// year at a 0% risk-free rate. The constant is a deliberate design choice
// and is not reinterpreted per timeframe.
const periodsPerYear = 252

// Calculate summarizes a backtest from its ledger and replayed value history.
// totalCapital is the total initial portfolio value plus any scheduled
// funding, and is the base for the total return percentage.
func Calculate(
	transactions []core.Transaction,
	portfolioHistory []core.PortfolioValuePoint,
	totalCapital float64,
) (core.StrategyMetrics, error) {
	if len(portfolioHistory) == 0 {
		return core.StrategyMetrics{}, core.ErrEmptyHistory
	}

	last := portfolioHistory[len(portfolioHistory)-1]

	var totalReturn float64
	if totalCapital != 0 {
		totalReturn = (last.Value - totalCapital) / totalCapital * 100
	}

	return core.StrategyMetrics{
		TotalReturn:     totalReturn,
		AvgBuyPrice:     averageBuyPrice(transactions),
		MaxDrawdown:     maxDrawdown(portfolioHistory),
		FinalValue:      last.Value,
		SharpeRatio:     sharpeRatio(portfolioHistory),
		TotalInvestment: totalCapital,
		TotalQuantity:   last.QuantityHeld,
	}, nil
}

// averageBuyPrice is total USD spent on buys divided by total quantity
// bought, over buy-type transactions only. Zero when there are no buys.
func averageBuyPrice(transactions []core.Transaction) float64 {
	buys := lo.Filter(transactions, func(tx core.Transaction, _ int) bool {
		return tx.Type == core.TransactionBuy
	})

	var amount, quantity float64
	for _, tx := range buys {
		amount += tx.Amount
		quantity += tx.QuantityChanged
	}

	if quantity == 0 {
		return 0
	}
	return amount / quantity
}

// maxDrawdown tracks the running peak of the value series and reports the
// largest observed peak-to-trough decline in percent. Zero for a
// monotonically non-decreasing series.
func maxDrawdown(history []core.PortfolioValuePoint) float64 {
	var peak, worst float64
	for _, point := range history {
		if point.Value > peak {
			peak = point.Value
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - point.Value) / peak * 100; dd > worst {
			worst = dd
		}
	}
	return worst
}

// sharpeRatio annualizes mean/stddev of per-step simple returns. Zero when
// fewer than two points exist or the return series has no variance.
func sharpeRatio(history []core.PortfolioValuePoint) float64 {
	if len(history) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		prev := history[i-1].Value
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (history[i].Value-prev)/prev)
	}

	mean, stdDev := stat.MeanStdDev(returns, nil)
	if stdDev == 0 || math.IsNaN(stdDev) {
		return 0
	}

	return mean * periodsPerYear / (stdDev * math.Sqrt(periodsPerYear))
}
