package strategy

import (
	"fmt"
	"math"

	"github.com/hodlsim/hodlsim/pkg/core"
)

// RebalancingParams configures the target-allocation strategy.
type RebalancingParams struct {
	TargetAllocation   float64 `param:"targetAllocation" validate:"gt=0,lte=1"`
	RebalanceThreshold float64 `param:"rebalanceThreshold" validate:"gte=0,lte=0.5"`
}

func defaultRebalancingParams() RebalancingParams {
	return RebalancingParams{TargetAllocation: 0.5, RebalanceThreshold: 0.05}
}

// Rebalancing maintains a target allocation fraction between the risk asset
// and cash. The first candle trades straight to target; afterwards a single
// corrective trade fires whenever the observed allocation drifts outside
// [target-threshold, target+threshold]. Funding deposits are processed
// before the drift check on the candle they occur.
type Rebalancing struct{}

func NewRebalancing() Rebalancing { return Rebalancing{} }

func (Rebalancing) ID() string   { return "rebalancing" }
func (Rebalancing) Name() string { return "Rebalancing" }

func (Rebalancing) Run(ctx Context, params Parameters) ([]core.Transaction, error) {
	p := defaultRebalancingParams()
	p.TargetAllocation = floatParam(params, "targetAllocation", p.TargetAllocation)
	p.RebalanceThreshold = floatParam(params, "rebalanceThreshold", p.RebalanceThreshold)
	if err := checkBounds(p); err != nil {
		return nil, err
	}

	if len(ctx.Candles) == 0 {
		return nil, &core.InsufficientDataError{Required: 1, Got: 0}
	}

	state := newSimState(ctx.Portfolio)

	for i, candle := range ctx.Candles {
		if i > 0 {
			state.fund(ctx.Funding, ctx.Candles[i-1], candle)
		}

		total := state.value(candle.Close)
		if total <= 0 {
			continue
		}

		assetValue := state.qty * candle.Close
		allocation := assetValue / total

		drifted := math.Abs(allocation-p.TargetAllocation) > p.RebalanceThreshold
		if i > 0 && !drifted {
			continue
		}

		// Size a single corrective trade that lands exactly on target.
		delta := p.TargetAllocation*total - assetValue
		if math.Abs(delta) < 1e-9 {
			continue
		}

		if i == 0 {
			reason := fmt.Sprintf("initial allocation to %.1f%% target (allocation was %.1f%%)",
				p.TargetAllocation*100, allocation*100)
			if delta > 0 {
				state.buy(candle, delta, reason)
			} else {
				state.sell(candle, -delta, reason)
			}
			continue
		}

		reason := fmt.Sprintf(
			"rebalance: allocation %.1f%% drifted outside %.1f%%±%.1f%%, trading $%.2f back to target",
			allocation*100, p.TargetAllocation*100, p.RebalanceThreshold*100, math.Abs(delta))
		if delta > 0 {
			state.buy(candle, delta, reason)
		} else {
			state.sell(candle, -delta, reason)
		}
	}

	return state.txs, nil
}
