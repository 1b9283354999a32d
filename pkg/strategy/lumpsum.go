package strategy

import (
	"fmt"

	"github.com/hodlsim/hodlsim/pkg/core"
)

// LumpSum buys the entire available cash balance at the first candle and
// then only records scheduled funding deposits. Starting with only non-cash
// assets skips the initial purchase.
type LumpSum struct{}

func NewLumpSum() LumpSum { return LumpSum{} }

func (LumpSum) ID() string   { return "lump-sum" }
func (LumpSum) Name() string { return "Lump Sum" }

func (LumpSum) Run(ctx Context, _ Parameters) ([]core.Transaction, error) {
	if len(ctx.Candles) == 0 {
		return nil, &core.InsufficientDataError{Required: 1, Got: 0}
	}

	state := newSimState(ctx.Portfolio)

	first := ctx.Candles[0]
	if state.cash > 0 {
		amount := state.cash
		state.buy(first, amount, fmt.Sprintf(
			"lump sum purchase of entire available balance ($%.2f at $%.2f)", amount, first.Close))
	}

	for i := 1; i < len(ctx.Candles); i++ {
		state.fund(ctx.Funding, ctx.Candles[i-1], ctx.Candles[i])
	}

	return state.txs, nil
}
