package rule

import (
	"math"
	"time"

	"github.com/hodlsim/hodlsim/pkg/core"
)

// priceEqualityTolerance is the relative tolerance for the "equals"
// operators and for limit order matching: 0.1% of the reference price.
const priceEqualityTolerance = 0.001

// ScheduleCondition fires on calendar boundaries: every day, weekly on a
// given weekday, or monthly on a given day of month. It fires on the first
// candle of the matching day.
type ScheduleCondition struct {
	Frequency  string       // daily|weekly|monthly
	DayOfWeek  time.Weekday // weekly only
	DayOfMonth int          // monthly only, 1..31
}

func (c *ScheduleCondition) Evaluate(ctx *EvaluationContext) Outcome {
	if !firstCandleOfDay(ctx) {
		return Outcome{}
	}

	date := ctx.Date.UTC()
	switch c.Frequency {
	case "daily":
		return Outcome{Fired: true}
	case "weekly":
		return Outcome{Fired: date.Weekday() == c.DayOfWeek}
	case "monthly":
		return Outcome{Fired: date.Day() == c.DayOfMonth}
	}
	return Outcome{}
}

func firstCandleOfDay(ctx *EvaluationContext) bool {
	if ctx.Index == 0 {
		return true
	}
	return !core.SameDay(ctx.Candles[ctx.Index-1].Time, ctx.Date)
}

// PriceChangeCondition fires when price has dropped (risen) at least
// Threshold relative to the reference extreme of the trailing window: the
// window high for drops, the window low for rises.
type PriceChangeCondition struct {
	Direction string  // drop|rise
	Threshold float64 // fraction, e.g. 0.1 for 10%
	Window    string  // 24h|7d|30d|all_time
}

func (c *PriceChangeCondition) Evaluate(ctx *EvaluationContext) Outcome {
	cutoff := windowCutoff(c.Window, ctx.Date)

	var reference float64
	if c.Direction == "rise" {
		reference = math.MaxFloat64
	}
	for i := ctx.Index; i >= 0; i-- {
		candle := ctx.Candles[i]
		if !cutoff.IsZero() && candle.Time.Before(cutoff) {
			break
		}
		if c.Direction == "rise" {
			reference = math.Min(reference, candle.Close)
		} else {
			reference = math.Max(reference, candle.Close)
		}
	}
	if reference <= 0 || reference == math.MaxFloat64 {
		return Outcome{}
	}

	var change float64
	if c.Direction == "rise" {
		change = (ctx.Price - reference) / reference
	} else {
		change = (reference - ctx.Price) / reference
	}

	if change < c.Threshold {
		return Outcome{}
	}
	return Outcome{Fired: true, Severity: thresholdSeverity(change, c.Threshold)}
}

func windowCutoff(window string, now time.Time) time.Time {
	switch window {
	case "24h":
		return now.Add(-24 * time.Hour)
	case "7d":
		return now.Add(-7 * 24 * time.Hour)
	case "30d":
		return now.Add(-30 * 24 * time.Hour)
	default: // all_time
		return time.Time{}
	}
}

// PriceLevelCondition compares the current price against an absolute level.
type PriceLevelCondition struct {
	Operator string // above|below|equals
	Price    float64
}

func (c *PriceLevelCondition) Evaluate(ctx *EvaluationContext) Outcome {
	switch c.Operator {
	case "above":
		return Outcome{Fired: ctx.Price > c.Price}
	case "below":
		return Outcome{Fired: ctx.Price < c.Price}
	case "equals":
		return Outcome{Fired: withinTolerance(ctx.Price, c.Price)}
	}
	return Outcome{}
}

// PriceStreakCondition fires after Length consecutive closes moving in the
// same direction.
type PriceStreakCondition struct {
	Direction string // up|down
	Length    int
}

func (c *PriceStreakCondition) Evaluate(ctx *EvaluationContext) Outcome {
	if ctx.Index < c.Length {
		return Outcome{}
	}

	for step := 0; step < c.Length; step++ {
		i := ctx.Index - step
		prev, cur := ctx.Candles[i-1].Close, ctx.Candles[i].Close
		if c.Direction == "up" && cur <= prev {
			return Outcome{}
		}
		if c.Direction == "down" && cur >= prev {
			return Outcome{}
		}
	}
	return Outcome{Fired: true}
}

// PortfolioValueCondition compares the running portfolio value against an
// absolute USD level.
type PortfolioValueCondition struct {
	Operator string // above|below
	Value    float64
}

func (c *PortfolioValueCondition) Evaluate(ctx *EvaluationContext) Outcome {
	switch c.Operator {
	case "above":
		return Outcome{Fired: ctx.Value() > c.Value}
	case "below":
		return Outcome{Fired: ctx.Value() < c.Value}
	}
	return Outcome{}
}

// VolumeChangeCondition fires when current volume exceeds the trailing
// average by at least Threshold (fractional increase).
type VolumeChangeCondition struct {
	Threshold float64
	Lookback  int // trailing candles, excluding the current one
}

func (c *VolumeChangeCondition) Evaluate(ctx *EvaluationContext) Outcome {
	if ctx.Index == 0 {
		return Outcome{}
	}

	start := ctx.Index - c.Lookback
	if start < 0 {
		start = 0
	}
	trailing := core.Volumes(ctx.Candles[start:ctx.Index])
	var sum float64
	for _, v := range trailing {
		sum += v
	}
	avg := sum / float64(len(trailing))
	if avg <= 0 {
		return Outcome{}
	}

	change := ctx.Candles[ctx.Index].Volume/avg - 1
	if change < c.Threshold {
		return Outcome{}
	}
	return Outcome{Fired: true, Severity: thresholdSeverity(change, c.Threshold)}
}

// IndicatorCondition evaluates RSI or moving-average signals. For rsi the
// indicator value is compared against Value; for ma the current price is
// compared against the moving average, and the cross operators detect the
// price crossing the average between the previous and current step.
type IndicatorCondition struct {
	Indicator string // rsi|ma
	Period    int
	Operator  string // less_than|greater_than|equals|crosses_above|crosses_below
	Value     float64
}

func (c *IndicatorCondition) Evaluate(ctx *EvaluationContext) Outcome {
	switch c.Indicator {
	case indicatorRSI:
		return c.evaluateRSI(ctx)
	case indicatorMA:
		return c.evaluateMA(ctx)
	}
	return Outcome{}
}

func (c *IndicatorCondition) evaluateRSI(ctx *EvaluationContext) Outcome {
	rsi, ok := ctx.indicators.value(indicatorRSI, c.Period, ctx.Index)
	if !ok {
		return Outcome{}
	}

	switch c.Operator {
	case "less_than":
		if rsi >= c.Value {
			return Outcome{}
		}
		return Outcome{Fired: true, Severity: clamp01(safeDiv(c.Value-rsi, c.Value))}
	case "greater_than":
		if rsi <= c.Value {
			return Outcome{}
		}
		return Outcome{Fired: true, Severity: clamp01(safeDiv(rsi-c.Value, 100-c.Value))}
	case "equals":
		return Outcome{Fired: withinTolerance(rsi, c.Value)}
	}
	return Outcome{}
}

func (c *IndicatorCondition) evaluateMA(ctx *EvaluationContext) Outcome {
	ma, ok := ctx.indicators.value(indicatorMA, c.Period, ctx.Index)
	if !ok {
		return Outcome{}
	}

	switch c.Operator {
	case "less_than":
		if ctx.Price >= ma {
			return Outcome{}
		}
		return Outcome{Fired: true, Severity: clamp01(safeDiv(ma-ctx.Price, ma))}
	case "greater_than":
		if ctx.Price <= ma {
			return Outcome{}
		}
		return Outcome{Fired: true, Severity: clamp01(safeDiv(ctx.Price-ma, ma))}
	case "equals":
		return Outcome{Fired: withinTolerance(ctx.Price, ma)}
	case "crosses_above", "crosses_below":
		prevMA, prevOK := ctx.indicators.value(indicatorMA, c.Period, ctx.Index-1)
		if !prevOK {
			return Outcome{}
		}
		price := core.Series[float64]{ctx.Candles[ctx.Index-1].Close, ctx.Price}
		average := core.Series[float64]{prevMA, ma}
		severity := clamp01(safeDiv(math.Abs(ctx.Price-ma), ma))
		if c.Operator == "crosses_above" && price.Crossover(average) {
			return Outcome{Fired: true, Severity: severity}
		}
		if c.Operator == "crosses_below" && price.Crossunder(average) {
			return Outcome{Fired: true, Severity: severity}
		}
		return Outcome{}
	}
	return Outcome{}
}

// AndCondition fires when every child fires. All children are evaluated;
// there is no short-circuiting. Severity is the maximum child severity.
type AndCondition struct {
	Conditions []Condition
}

func (c *AndCondition) Evaluate(ctx *EvaluationContext) Outcome {
	fired := true
	var severity float64
	for _, child := range c.Conditions {
		outcome := child.Evaluate(ctx)
		fired = fired && outcome.Fired
		severity = math.Max(severity, outcome.Severity)
	}
	if len(c.Conditions) == 0 {
		fired = false
	}
	return Outcome{Fired: fired, Severity: severity}
}

// OrCondition fires when any child fires. All children are evaluated; there
// is no short-circuiting. Severity is the maximum severity of fired children.
type OrCondition struct {
	Conditions []Condition
}

func (c *OrCondition) Evaluate(ctx *EvaluationContext) Outcome {
	var fired bool
	var severity float64
	for _, child := range c.Conditions {
		outcome := child.Evaluate(ctx)
		if outcome.Fired {
			fired = true
			severity = math.Max(severity, outcome.Severity)
		}
	}
	return Outcome{Fired: fired, Severity: severity}
}

// thresholdSeverity measures how far past the threshold an observed change
// landed, normalized by the threshold itself.
func thresholdSeverity(observed, threshold float64) float64 {
	if threshold <= 0 {
		return 1
	}
	return clamp01((observed - threshold) / threshold)
}

func withinTolerance(a, b float64) bool {
	if b == 0 {
		return a == 0
	}
	return math.Abs(a-b) <= math.Abs(b)*priceEqualityTolerance
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
