package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hodlsim/hodlsim/pkg/core"
)

func validRule(id string) Rule {
	return Rule{
		ID: id, Enabled: true,
		When: &PriceLevelCondition{Operator: "above", Price: 100},
		Then: []Action{BuyFixedAction{Amount: 10}},
	}
}

func TestValidate_AcceptsWellFormedConfig(t *testing.T) {
	cfg := &Config{Rules: []Rule{validRule("a"), validRule("b")}}
	require.NoError(t, Validate(cfg))
}

func TestValidate_RequiresRules(t *testing.T) {
	require.Error(t, Validate(&Config{}))
	require.Error(t, Validate(nil))
}

func TestValidate_AggregatesAllProblemsPerRule(t *testing.T) {
	cfg := &Config{Rules: []Rule{
		{
			ID: "broken", Enabled: true,
			When: &IndicatorCondition{Indicator: "bollinger", Period: 1, Operator: "sideways"},
			// no actions at all
		},
		validRule("fine"),
		{
			ID: "also-broken", Enabled: true,
			When: &PriceChangeCondition{Direction: "sideways", Threshold: 2, Window: "1y"},
			Then: []Action{BuyPercentageAction{Percentage: 150}},
		},
	}}

	err := Validate(cfg)
	var cfgErrs core.RuleConfigErrors
	require.ErrorAs(t, err, &cfgErrs)
	require.Len(t, cfgErrs, 2)

	assert.Equal(t, "broken", cfgErrs[0].RuleID)
	// Unimplemented indicator, bad period, bad operator, missing actions.
	assert.Len(t, cfgErrs[0].Problems, 4)

	assert.Equal(t, "also-broken", cfgErrs[1].RuleID)
	assert.Len(t, cfgErrs[1].Problems, 4)
}

func TestValidate_RejectsUnimplementedIndicators(t *testing.T) {
	for _, name := range []string{"macd", "bollinger"} {
		cfg := &Config{Rules: []Rule{{
			ID: "r", Enabled: true,
			When: &IndicatorCondition{Indicator: name, Period: 14, Operator: "less_than", Value: 30},
			Then: []Action{BuyFixedAction{Amount: 10}},
		}}}

		err := Validate(cfg)
		var cfgErrs core.RuleConfigErrors
		require.ErrorAs(t, err, &cfgErrs, name)
		assert.Contains(t, cfgErrs[0].Problems[0], "not implemented")
	}
}

func TestValidate_CrossOperatorsOnlyForMA(t *testing.T) {
	cfg := &Config{Rules: []Rule{{
		ID: "r", Enabled: true,
		When: &IndicatorCondition{Indicator: "rsi", Period: 14, Operator: "crosses_above", Value: 50},
		Then: []Action{BuyFixedAction{Amount: 10}},
	}}}

	err := Validate(cfg)
	var cfgErrs core.RuleConfigErrors
	require.ErrorAs(t, err, &cfgErrs)
	assert.Contains(t, cfgErrs[0].Problems[0], "only valid for the ma indicator")

	ok := &Config{Rules: []Rule{{
		ID: "r", Enabled: true,
		When: &IndicatorCondition{Indicator: "ma", Period: 20, Operator: "crosses_above"},
		Then: []Action{BuyFixedAction{Amount: 10}},
	}}}
	require.NoError(t, Validate(ok))
}

func TestValidate_DuplicateRuleIDs(t *testing.T) {
	cfg := &Config{Rules: []Rule{validRule("dup"), validRule("dup")}}

	err := Validate(cfg)
	var cfgErrs core.RuleConfigErrors
	require.ErrorAs(t, err, &cfgErrs)
	require.Len(t, cfgErrs, 1)
	assert.Contains(t, cfgErrs[0].Problems[0], "duplicate rule id")
}

func TestValidate_NestingDepthGuard(t *testing.T) {
	var cond Condition = &PriceLevelCondition{Operator: "above", Price: 100}
	for i := 0; i < maxConditionDepth+2; i++ {
		cond = &AndCondition{Conditions: []Condition{cond}}
	}

	cfg := &Config{Rules: []Rule{{
		ID: "too-deep", Enabled: true,
		When: cond,
		Then: []Action{BuyFixedAction{Amount: 10}},
	}}}

	err := Validate(cfg)
	var cfgErrs core.RuleConfigErrors
	require.ErrorAs(t, err, &cfgErrs)
	assert.Contains(t, cfgErrs[0].Problems[0], "nesting exceeds")
}

func TestValidate_ActionBounds(t *testing.T) {
	cases := []struct {
		name   string
		action Action
	}{
		{"zero buy", BuyFixedAction{}},
		{"overdrawn percentage", SellPercentageAction{Percentage: 120}},
		{"bad limit side", LimitOrderAction{Side: "hold", LimitPrice: 100, Amount: 10}},
		{"bad rebalance target", RebalanceAction{TargetAllocation: 2}},
		{"zero scale", BuyScaledAction{BaseAmount: 100}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Rules: []Rule{{
				ID: "r", Enabled: true,
				When: &PriceLevelCondition{Operator: "above", Price: 100},
				Then: []Action{tc.action},
			}}}
			require.Error(t, Validate(cfg))
		})
	}
}
