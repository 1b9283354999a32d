package strategy

import (
	"fmt"

	"github.com/hodlsim/hodlsim/pkg/core"
)

// DCAParams configures the periodic dollar-cost-averaging strategy.
type DCAParams struct {
	Frequency string `param:"frequency" validate:"oneof=daily weekly monthly"`
}

func defaultDCAParams() DCAParams {
	return DCAParams{Frequency: "weekly"}
}

// DCA divides the starting cash evenly across the date range's period count
// and buys on each schedule boundary until cash runs out. Scheduled funding
// deposits replenish cash and let later periods resume buying.
type DCA struct{}

func NewDCA() DCA { return DCA{} }

func (DCA) ID() string   { return "dca" }
func (DCA) Name() string { return "Dollar-Cost Averaging" }

func (DCA) Run(ctx Context, params Parameters) ([]core.Transaction, error) {
	p := defaultDCAParams()
	p.Frequency = stringParam(params, "frequency", p.Frequency)
	if err := checkBounds(p); err != nil {
		return nil, err
	}

	if len(ctx.Candles) == 0 {
		return nil, &core.InsufficientDataError{Required: 1, Got: 0}
	}

	freq := core.FundingFrequency(p.Frequency)
	boundaries := countPeriods(ctx.Candles, freq)
	perPeriod := ctx.Portfolio.USDC / float64(boundaries)

	state := newSimState(ctx.Portfolio)
	period := 0

	for i, candle := range ctx.Candles {
		if i > 0 {
			state.fund(ctx.Funding, ctx.Candles[i-1], candle)
		}

		if i > 0 && !core.PeriodBoundary(freq, ctx.Candles[i-1].Time, candle.Time) {
			continue
		}
		period++

		if state.cash <= 0 {
			continue // nothing left to invest this period
		}

		amount := perPeriod
		capped := false
		if amount > state.cash {
			amount = state.cash
			capped = true
		}

		reason := fmt.Sprintf("scheduled %s DCA purchase %d of %d ($%.2f)",
			p.Frequency, period, boundaries, amount)
		if capped {
			reason += " (capped to remaining cash)"
		}
		state.buy(candle, amount, reason)
	}

	return state.txs, nil
}

// countPeriods counts schedule boundaries over the candle series; the first
// candle always opens a period.
func countPeriods(candles []core.Candle, freq core.FundingFrequency) int {
	count := 1
	for i := 1; i < len(candles); i++ {
		if core.PeriodBoundary(freq, candles[i-1].Time, candles[i].Time) {
			count++
		}
	}
	return count
}
