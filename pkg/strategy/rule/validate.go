package rule

import (
	"errors"
	"fmt"

	"github.com/hodlsim/hodlsim/pkg/core"
)

// maxConditionDepth bounds and/or nesting. Condition trees come from
// trusted configuration and are small; the guard catches malformed input.
const maxConditionDepth = 16

// Validate structurally checks a config before any simulation. Problems are
// aggregated per rule so the caller can report everything at once.
func Validate(cfg *Config) error {
	if cfg == nil || len(cfg.Rules) == 0 {
		return errors.New("custom strategy config must contain at least one rule")
	}

	var all core.RuleConfigErrors
	seen := make(map[string]bool, len(cfg.Rules))

	for i, r := range cfg.Rules {
		id := r.ID
		if id == "" {
			id = fmt.Sprintf("rule-%d", i)
		}

		var problems []string
		if r.ID == "" {
			problems = append(problems, "missing rule id")
		} else if seen[r.ID] {
			problems = append(problems, fmt.Sprintf("duplicate rule id %q", r.ID))
		}
		seen[r.ID] = true

		if r.When == nil {
			problems = append(problems, "missing when condition")
		} else {
			problems = append(problems, checkCondition(r.When, 0)...)
		}

		if len(r.Then) == 0 {
			problems = append(problems, "rule must have at least one action")
		}
		for _, action := range r.Then {
			problems = append(problems, checkAction(action)...)
		}

		if len(problems) > 0 {
			all = append(all, &core.RuleConfigError{RuleID: id, Problems: problems})
		}
	}

	if len(all) > 0 {
		return all
	}
	return nil
}

func checkCondition(cond Condition, depth int) []string {
	if depth > maxConditionDepth {
		return []string{fmt.Sprintf("condition nesting exceeds %d levels", maxConditionDepth)}
	}

	var problems []string
	switch c := cond.(type) {
	case *ScheduleCondition:
		switch c.Frequency {
		case "daily":
		case "weekly":
			if c.DayOfWeek < 0 || c.DayOfWeek > 6 {
				problems = append(problems, "schedule dayOfWeek must be 0..6")
			}
		case "monthly":
			if c.DayOfMonth < 1 || c.DayOfMonth > 31 {
				problems = append(problems, "schedule dayOfMonth must be 1..31")
			}
		default:
			problems = append(problems, fmt.Sprintf("schedule frequency %q must be daily, weekly or monthly", c.Frequency))
		}

	case *PriceChangeCondition:
		if c.Direction != "drop" && c.Direction != "rise" {
			problems = append(problems, fmt.Sprintf("price_change direction %q must be drop or rise", c.Direction))
		}
		if c.Threshold <= 0 || c.Threshold > 1 {
			problems = append(problems, "price_change threshold must be in (0,1]")
		}
		switch c.Window {
		case "24h", "7d", "30d", "all_time":
		default:
			problems = append(problems, fmt.Sprintf("price_change window %q must be 24h, 7d, 30d or all_time", c.Window))
		}

	case *PriceLevelCondition:
		if c.Operator != "above" && c.Operator != "below" && c.Operator != "equals" {
			problems = append(problems, fmt.Sprintf("price_level operator %q must be above, below or equals", c.Operator))
		}
		if c.Price <= 0 {
			problems = append(problems, "price_level price must be positive")
		}

	case *PriceStreakCondition:
		if c.Direction != "up" && c.Direction != "down" {
			problems = append(problems, fmt.Sprintf("price_streak direction %q must be up or down", c.Direction))
		}
		if c.Length < 1 {
			problems = append(problems, "price_streak length must be at least 1")
		}

	case *PortfolioValueCondition:
		if c.Operator != "above" && c.Operator != "below" {
			problems = append(problems, fmt.Sprintf("portfolio_value operator %q must be above or below", c.Operator))
		}
		if c.Value <= 0 {
			problems = append(problems, "portfolio_value value must be positive")
		}

	case *VolumeChangeCondition:
		if c.Threshold <= 0 {
			problems = append(problems, "volume_change threshold must be positive")
		}
		if c.Lookback < 1 {
			problems = append(problems, "volume_change lookback must be at least 1")
		}

	case *IndicatorCondition:
		problems = append(problems, checkIndicatorCondition(c)...)

	case *AndCondition:
		if len(c.Conditions) == 0 {
			problems = append(problems, "and condition needs at least one child")
		}
		for _, child := range c.Conditions {
			problems = append(problems, checkCondition(child, depth+1)...)
		}

	case *OrCondition:
		if len(c.Conditions) == 0 {
			problems = append(problems, "or condition needs at least one child")
		}
		for _, child := range c.Conditions {
			problems = append(problems, checkCondition(child, depth+1)...)
		}

	default:
		problems = append(problems, fmt.Sprintf("unsupported condition %T", cond))
	}

	return problems
}

func checkIndicatorCondition(c *IndicatorCondition) []string {
	var problems []string

	switch c.Indicator {
	case indicatorRSI, indicatorMA:
	case "macd", "bollinger":
		problems = append(problems, fmt.Sprintf("indicator %q is not implemented", c.Indicator))
	default:
		problems = append(problems, fmt.Sprintf("unknown indicator %q", c.Indicator))
	}

	if c.Period < 2 || c.Period > 200 {
		problems = append(problems, "indicator period must be in [2,200]")
	}

	switch c.Operator {
	case "less_than", "greater_than", "equals":
	case "crosses_above", "crosses_below":
		if c.Indicator != indicatorMA {
			problems = append(problems, fmt.Sprintf("operator %q is only valid for the ma indicator", c.Operator))
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown indicator operator %q", c.Operator))
	}

	if c.Indicator == indicatorRSI && (c.Value < 0 || c.Value > 100) {
		problems = append(problems, "rsi comparison value must be in [0,100]")
	}

	return problems
}

func checkAction(action Action) []string {
	var problems []string

	switch a := action.(type) {
	case BuyFixedAction:
		if a.Amount <= 0 {
			problems = append(problems, "buy_fixed amount must be positive")
		}
	case BuyPercentageAction:
		if a.Percentage <= 0 || a.Percentage > 100 {
			problems = append(problems, "buy_percentage percentage must be in (0,100]")
		}
	case BuyScaledAction:
		if a.BaseAmount <= 0 {
			problems = append(problems, "buy_scaled baseAmount must be positive")
		}
		if a.ScaleFactor <= 0 {
			problems = append(problems, "buy_scaled scaleFactor must be positive")
		}
		if a.MaxAmount < 0 {
			problems = append(problems, "buy_scaled maxAmount must not be negative")
		}
	case SellFixedAction:
		if a.Amount <= 0 {
			problems = append(problems, "sell_fixed amount must be positive")
		}
	case SellPercentageAction:
		if a.Percentage <= 0 || a.Percentage > 100 {
			problems = append(problems, "sell_percentage percentage must be in (0,100]")
		}
	case TakeProfitAction:
		if a.GainThreshold <= 0 {
			problems = append(problems, "take_profit gainThreshold must be positive")
		}
		if a.Percentage <= 0 || a.Percentage > 100 {
			problems = append(problems, "take_profit percentage must be in (0,100]")
		}
	case RebalanceAction:
		if a.TargetAllocation <= 0 || a.TargetAllocation > 1 {
			problems = append(problems, "rebalance targetAllocation must be in (0,1]")
		}
	case LimitOrderAction:
		if a.Side != "buy" && a.Side != "sell" {
			problems = append(problems, fmt.Sprintf("limit_order side %q must be buy or sell", a.Side))
		}
		if a.LimitPrice <= 0 {
			problems = append(problems, "limit_order limitPrice must be positive")
		}
		if a.Amount <= 0 {
			problems = append(problems, "limit_order amount must be positive")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported action %T", action))
	}

	return problems
}
