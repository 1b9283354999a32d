package rule

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hodlsim/hodlsim/pkg/core"
	"github.com/hodlsim/hodlsim/pkg/strategy"
)

// ParseYAML decodes a rule config from YAML (or JSON, which is a YAML
// subset). The document shape mirrors the parameter bag: a top-level name
// plus a list of rules with type-discriminated conditions and actions.
func ParseYAML(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse rule config: %w", err)
	}
	return ParseParams(raw)
}

// ParseParams decodes a rule config out of a caller parameter bag. Shape
// problems are aggregated per rule, like validation failures.
func ParseParams(params strategy.Parameters) (*Config, error) {
	cfg := &Config{Name: getString(params, "name", "")}

	rawRules, ok := params["rules"].([]any)
	if !ok || len(rawRules) == 0 {
		return nil, fmt.Errorf("custom strategy parameters must contain a non-empty rules list")
	}

	var decodeErrs core.RuleConfigErrors
	for i, raw := range rawRules {
		m, ok := asMap(raw)
		if !ok {
			decodeErrs = append(decodeErrs, &core.RuleConfigError{
				RuleID:   fmt.Sprintf("rule-%d", i),
				Problems: []string{"rule must be a mapping"},
			})
			continue
		}

		rule, problems := decodeRule(m)
		if rule.ID == "" {
			rule.ID = fmt.Sprintf("rule-%d", i)
		}
		if len(problems) > 0 {
			decodeErrs = append(decodeErrs, &core.RuleConfigError{RuleID: rule.ID, Problems: problems})
			continue
		}
		cfg.Rules = append(cfg.Rules, rule)
	}

	if len(decodeErrs) > 0 {
		return nil, decodeErrs
	}
	return cfg, nil
}

func decodeRule(m map[string]any) (Rule, []string) {
	var problems []string

	rule := Rule{
		ID:       getString(m, "id", ""),
		Priority: getInt(m, "priority", 0),
		Enabled:  getBool(m, "enabled", true),
	}

	whenRaw, ok := asMap(m["when"])
	if !ok {
		problems = append(problems, "missing or malformed when condition")
	} else {
		cond, condProblems := decodeCondition(whenRaw)
		rule.When = cond
		problems = append(problems, condProblems...)
	}

	thenRaw, ok := m["then"].([]any)
	if !ok || len(thenRaw) == 0 {
		problems = append(problems, "missing or empty then action list")
	}
	for _, rawAction := range thenRaw {
		am, ok := asMap(rawAction)
		if !ok {
			problems = append(problems, "action must be a mapping")
			continue
		}
		action, actionProblems := decodeAction(am)
		if action != nil {
			rule.Then = append(rule.Then, action)
		}
		problems = append(problems, actionProblems...)
	}

	return rule, problems
}

func decodeCondition(m map[string]any) (Condition, []string) {
	condType := getString(m, "type", "")

	switch condType {
	case condSchedule:
		return &ScheduleCondition{
			Frequency:  getString(m, "frequency", ""),
			DayOfWeek:  time.Weekday(getInt(m, "dayOfWeek", 1)),
			DayOfMonth: getInt(m, "dayOfMonth", 1),
		}, nil

	case condPriceChange:
		return &PriceChangeCondition{
			Direction: getString(m, "direction", "drop"),
			Threshold: getFloat(m, "threshold", 0),
			Window:    getString(m, "window", "all_time"),
		}, nil

	case condPriceLevel:
		return &PriceLevelCondition{
			Operator: getString(m, "operator", ""),
			Price:    getFloat(m, "price", 0),
		}, nil

	case condPriceStreak:
		return &PriceStreakCondition{
			Direction: getString(m, "direction", ""),
			Length:    getInt(m, "length", 0),
		}, nil

	case condPortfolioValue:
		return &PortfolioValueCondition{
			Operator: getString(m, "operator", ""),
			Value:    getFloat(m, "value", 0),
		}, nil

	case condVolumeChange:
		return &VolumeChangeCondition{
			Threshold: getFloat(m, "threshold", 0),
			Lookback:  getInt(m, "lookback", 20),
		}, nil

	case condIndicator:
		return &IndicatorCondition{
			Indicator: getString(m, "indicator", ""),
			Period:    getInt(m, "period", 14),
			Operator:  getString(m, "operator", ""),
			Value:     getFloat(m, "value", 0),
		}, nil

	case condAnd, condOr:
		children, problems := decodeChildren(m)
		if condType == condAnd {
			return &AndCondition{Conditions: children}, problems
		}
		return &OrCondition{Conditions: children}, problems

	case "":
		return nil, []string{"condition is missing a type"}
	default:
		return nil, []string{fmt.Sprintf("unknown condition type %q", condType)}
	}
}

func decodeChildren(m map[string]any) ([]Condition, []string) {
	raw, ok := m["conditions"].([]any)
	if !ok {
		return nil, []string{"combinator condition needs a conditions list"}
	}

	var children []Condition
	var problems []string
	for _, rawChild := range raw {
		cm, ok := asMap(rawChild)
		if !ok {
			problems = append(problems, "nested condition must be a mapping")
			continue
		}
		child, childProblems := decodeCondition(cm)
		if child != nil {
			children = append(children, child)
		}
		problems = append(problems, childProblems...)
	}
	return children, problems
}

func decodeAction(m map[string]any) (Action, []string) {
	actionType := getString(m, "type", "")

	switch actionType {
	case actBuyFixed:
		return BuyFixedAction{Amount: getFloat(m, "amount", 0)}, nil
	case actBuyPercentage:
		return BuyPercentageAction{Percentage: getFloat(m, "percentage", 0)}, nil
	case actBuyScaled:
		return BuyScaledAction{
			BaseAmount:  getFloat(m, "baseAmount", 0),
			ScaleFactor: getFloat(m, "scaleFactor", 1),
			MaxAmount:   getFloat(m, "maxAmount", 0),
		}, nil
	case actSellFixed:
		return SellFixedAction{Amount: getFloat(m, "amount", 0)}, nil
	case actSellPercentage:
		return SellPercentageAction{Percentage: getFloat(m, "percentage", 0)}, nil
	case actTakeProfit:
		return TakeProfitAction{
			GainThreshold: getFloat(m, "gainThreshold", 0),
			Percentage:    getFloat(m, "percentage", 100),
		}, nil
	case actRebalance:
		return RebalanceAction{TargetAllocation: getFloat(m, "targetAllocation", 0)}, nil
	case actLimitOrder:
		return LimitOrderAction{
			Side:       getString(m, "side", ""),
			LimitPrice: getFloat(m, "limitPrice", 0),
			Amount:     getFloat(m, "amount", 0),
		}, nil
	case "":
		return nil, []string{"action is missing a type"}
	default:
		return nil, []string{fmt.Sprintf("unknown action type %q", actionType)}
	}
}

// asMap tolerates both map shapes YAML decoders produce.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func getString(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return fallback
}

func getFloat(m map[string]any, key string, fallback float64) float64 {
	switch n := m[key].(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return fallback
	}
}

func getInt(m map[string]any, key string, fallback int) int {
	switch n := m[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}

func getBool(m map[string]any, key string, fallback bool) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}
	return fallback
}
