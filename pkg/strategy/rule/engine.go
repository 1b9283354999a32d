package rule

import (
	"fmt"
	"math"
	"sort"

	"github.com/hodlsim/hodlsim/pkg/core"
	"github.com/hodlsim/hodlsim/pkg/strategy"
)

// Strategy runs a rule Config as a backtest strategy under the identifier
// "custom-strategy". The config comes either from the constructor or, when
// absent, from the caller's parameter bag ("name", "rules").
type Strategy struct {
	cfg *Config
}

func New() *Strategy { return &Strategy{} }

func NewWithConfig(cfg Config) *Strategy { return &Strategy{cfg: &cfg} }

func (s *Strategy) ID() string { return "custom-strategy" }

func (s *Strategy) Name() string {
	if s.cfg != nil && s.cfg.Name != "" {
		return s.cfg.Name
	}
	return "Custom Strategy"
}

func (s *Strategy) Run(ctx strategy.Context, params strategy.Parameters) ([]core.Transaction, error) {
	cfg := s.cfg
	if cfg == nil {
		parsed, err := ParseParams(params)
		if err != nil {
			return nil, err
		}
		cfg = parsed
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	if len(ctx.Candles) == 0 {
		return nil, &core.InsufficientDataError{Required: 1, Got: 0}
	}

	exec := newExecutor(ctx)
	rules := orderedRules(cfg.Rules)

	for i, candle := range ctx.Candles {
		if i > 0 {
			exec.fund(ctx.Funding, ctx.Candles[i-1], candle)
		}

		ectx := exec.contextAt(i, ctx.Candles)
		for _, r := range rules {
			outcome := r.When.Evaluate(ectx)
			if !outcome.Fired {
				continue
			}
			// Actions within one rule compound against the running
			// portfolio, so refresh the context between them.
			for _, action := range r.Then {
				exec.apply(action, r.ID, outcome.Severity, candle)
				ectx = exec.contextAt(i, ctx.Candles)
			}
		}
	}

	return exec.txs, nil
}

// orderedRules returns the enabled rules in ascending priority, preserving
// input order on ties.
func orderedRules(rules []Rule) []Rule {
	ordered := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})
	return ordered
}

// executor is the engine's running portfolio bookkeeping.
type executor struct {
	qty  float64
	cash float64
	txs  []core.Transaction

	// Running cost basis for take-profit decisions. Initial holdings are
	// based at the first candle's close.
	buyAmount   float64
	buyQuantity float64

	indicators *indicatorCache
}

func newExecutor(ctx strategy.Context) *executor {
	e := &executor{
		qty:        ctx.Portfolio.AssetQuantity,
		cash:       ctx.Portfolio.USDC,
		indicators: newIndicatorCache(ctx.Candles),
	}
	if e.qty > 0 {
		e.buyQuantity = e.qty
		e.buyAmount = e.qty * ctx.Candles[0].Close
	}
	return e
}

func (e *executor) value(price float64) float64 {
	return e.qty*price + e.cash
}

func (e *executor) avgBuyPrice() float64 {
	if e.buyQuantity == 0 {
		return 0
	}
	return e.buyAmount / e.buyQuantity
}

func (e *executor) contextAt(i int, candles []core.Candle) *EvaluationContext {
	return &EvaluationContext{
		Date:          candles[i].Time,
		Price:         candles[i].Close,
		Index:         i,
		Candles:       candles[:i+1],
		AssetQuantity: e.qty,
		AvailableCash: e.cash,
		AvgBuyPrice:   e.avgBuyPrice(),
		indicators:    e.indicators,
	}
}

func (e *executor) fund(sched core.FundingSchedule, prev, candle core.Candle) {
	if !sched.Due(prev.Time, candle.Time) {
		return
	}
	e.cash += sched.Amount
	e.txs = append(e.txs, core.Transaction{
		Date:                   candle.Time,
		Type:                   core.TransactionFunding,
		Price:                  candle.Close,
		Amount:                 sched.Amount,
		Reason:                 fmt.Sprintf("scheduled %s funding deposit of $%.2f", sched.Frequency, sched.Amount),
		PortfolioValueSnapshot: e.value(candle.Close),
	})
}

// apply executes one action against the running portfolio. Unaffordable or
// empty trades record nothing.
func (e *executor) apply(action Action, ruleID string, severity float64, candle core.Candle) {
	switch a := action.(type) {
	case BuyFixedAction:
		e.buy(candle, a.Amount, fmt.Sprintf("rule %q: buy fixed $%.2f", ruleID, a.Amount))

	case BuyPercentageAction:
		desired := e.cash * a.Percentage / 100
		e.buy(candle, desired, fmt.Sprintf("rule %q: buy %.1f%% of available cash ($%.2f)",
			ruleID, a.Percentage, desired))

	case BuyScaledAction:
		desired := a.BaseAmount * a.ScaleFactor * severity
		if a.MaxAmount > 0 {
			desired = math.Min(desired, a.MaxAmount)
		}
		e.buy(candle, desired, fmt.Sprintf(
			"rule %q: scaled buy $%.2f (base $%.2f, scale %.2f, severity %.2f)",
			ruleID, desired, a.BaseAmount, a.ScaleFactor, severity))

	case SellFixedAction:
		e.sell(candle, a.Amount, fmt.Sprintf("rule %q: sell fixed $%.2f", ruleID, a.Amount))

	case SellPercentageAction:
		desired := e.qty * candle.Close * a.Percentage / 100
		e.sell(candle, desired, fmt.Sprintf("rule %q: sell %.1f%% of holdings ($%.2f)",
			ruleID, a.Percentage, desired))

	case TakeProfitAction:
		avg := e.avgBuyPrice()
		if avg <= 0 || candle.Close < avg*(1+a.GainThreshold) {
			return
		}
		desired := e.qty * candle.Close * a.Percentage / 100
		e.sell(candle, desired, fmt.Sprintf(
			"rule %q: take profit, price $%.2f is %.1f%% above avg cost $%.2f, selling %.1f%% of holdings",
			ruleID, candle.Close, (candle.Close/avg-1)*100, avg, a.Percentage))

	case RebalanceAction:
		// Placeholder: in-rule rebalancing semantics are unspecified, so
		// this action has zero portfolio effect.

	case LimitOrderAction:
		if !withinTolerance(candle.Close, a.LimitPrice) {
			return
		}
		reason := fmt.Sprintf("rule %q: limit %s triggered at $%.2f (limit $%.2f)",
			ruleID, a.Side, candle.Close, a.LimitPrice)
		if a.Side == "buy" {
			e.buy(candle, a.Amount, reason)
		} else {
			e.sell(candle, a.Amount, reason)
		}
	}
}

func (e *executor) buy(candle core.Candle, desired float64, reason string) {
	if desired <= 0 || e.cash <= 0 {
		return
	}
	amount := desired
	if amount > e.cash {
		amount = e.cash
		reason += " (capped to available cash)"
	}

	quantity := amount / candle.Close
	e.cash -= amount
	e.qty += quantity
	e.buyAmount += amount
	e.buyQuantity += quantity
	e.txs = append(e.txs, core.Transaction{
		Date:                   candle.Time,
		Type:                   core.TransactionBuy,
		Price:                  candle.Close,
		Amount:                 amount,
		QuantityChanged:        quantity,
		Reason:                 reason,
		PortfolioValueSnapshot: e.value(candle.Close),
	})
}

func (e *executor) sell(candle core.Candle, desired float64, reason string) {
	held := e.qty * candle.Close
	if desired <= 0 || held <= 0 {
		return
	}
	amount := desired
	if amount > held {
		amount = held
		reason += " (capped to current holdings)"
	}

	quantity := amount / candle.Close
	e.cash += amount
	e.qty -= quantity
	e.txs = append(e.txs, core.Transaction{
		Date:                   candle.Time,
		Type:                   core.TransactionSell,
		Price:                  candle.Close,
		Amount:                 amount,
		QuantityChanged:        -quantity,
		Reason:                 reason,
		PortfolioValueSnapshot: e.value(candle.Close),
	})
}
