package strategy

import (
	"fmt"

	"github.com/hodlsim/hodlsim/pkg/core"
)

// simState is the running bookkeeping shared by the fixed-schedule
// strategies: current holdings, cash, and the ledger under construction.
type simState struct {
	qty  float64
	cash float64
	txs  []core.Transaction
}

func newSimState(p core.PortfolioState) *simState {
	return &simState{qty: p.AssetQuantity, cash: p.USDC}
}

func (s *simState) value(price float64) float64 {
	return s.qty*price + s.cash
}

// fund appends a scheduled deposit when the funding boundary is crossed
// between prev and the current candle. Returns true when cash was added.
func (s *simState) fund(sched core.FundingSchedule, prev core.Candle, candle core.Candle) bool {
	if !sched.Due(prev.Time, candle.Time) {
		return false
	}

	s.cash += sched.Amount
	s.txs = append(s.txs, core.Transaction{
		Date:                   candle.Time,
		Type:                   core.TransactionFunding,
		Price:                  candle.Close,
		Amount:                 sched.Amount,
		Reason:                 fmt.Sprintf("scheduled %s funding deposit of $%.2f", sched.Frequency, sched.Amount),
		PortfolioValueSnapshot: s.value(candle.Close),
	})
	return true
}

// buy spends the given USD amount at the candle's close. The caller is
// responsible for capping; amount must be positive.
func (s *simState) buy(candle core.Candle, amount float64, reason string) {
	quantity := amount / candle.Close
	s.cash -= amount
	s.qty += quantity
	s.txs = append(s.txs, core.Transaction{
		Date:                   candle.Time,
		Type:                   core.TransactionBuy,
		Price:                  candle.Close,
		Amount:                 amount,
		QuantityChanged:        quantity,
		Reason:                 reason,
		PortfolioValueSnapshot: s.value(candle.Close),
	})
}

// sell liquidates the given USD value of holdings at the candle's close.
func (s *simState) sell(candle core.Candle, amount float64, reason string) {
	quantity := amount / candle.Close
	s.cash += amount
	s.qty -= quantity
	s.txs = append(s.txs, core.Transaction{
		Date:                   candle.Time,
		Type:                   core.TransactionSell,
		Price:                  candle.Close,
		Amount:                 amount,
		QuantityChanged:        -quantity,
		Reason:                 reason,
		PortfolioValueSnapshot: s.value(candle.Close),
	})
}
