// Package rule implements the custom-strategy engine: a per-time-step
// interpreter that evaluates user-authored WHEN conditions against the
// running portfolio and applies the resulting THEN actions.
package rule

// Config is a user-authored custom strategy: a named set of rules.
type Config struct {
	Name  string
	Rules []Rule
}

// Rule pairs one WHEN condition with one or more THEN actions. Rules run in
// ascending Priority order (ties keep input order); disabled rules never
// fire.
type Rule struct {
	ID       string
	Priority int
	Enabled  bool
	When     Condition
	Then     []Action
}

// Outcome is the result of evaluating a condition at one time step.
// Severity is a normalized [0,1] measure of how far a triggering condition
// exceeded its threshold; conditions without a severity notion report zero.
type Outcome struct {
	Fired    bool
	Severity float64
}

// Condition is a closed tagged union; the concrete variants live in
// condition.go and validation is exhaustive over them.
type Condition interface {
	Evaluate(ctx *EvaluationContext) Outcome
}

// Action is a closed tagged union; the concrete variants live in action.go
// and execution is an exhaustive type switch in the engine.
type Action interface {
	isAction()
}

// Condition discriminator values understood by the decoder.
const (
	condSchedule       = "schedule"
	condPriceChange    = "price_change"
	condPriceLevel     = "price_level"
	condPriceStreak    = "price_streak"
	condPortfolioValue = "portfolio_value"
	condVolumeChange   = "volume_change"
	condIndicator      = "indicator"
	condAnd            = "and"
	condOr             = "or"
)

// Action discriminator values understood by the decoder.
const (
	actBuyFixed       = "buy_fixed"
	actBuyPercentage  = "buy_percentage"
	actBuyScaled      = "buy_scaled"
	actSellFixed      = "sell_fixed"
	actSellPercentage = "sell_percentage"
	actTakeProfit     = "take_profit"
	actRebalance      = "rebalance"
	actLimitOrder     = "limit_order"
)
