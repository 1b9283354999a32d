package rule

import (
	"fmt"
	"time"

	"github.com/hodlsim/hodlsim/pkg/core"
	"github.com/hodlsim/hodlsim/pkg/indicator"
)

// EvaluationContext is the view a rule sees at one time step: the current
// candle, the running portfolio, and the historical window up to and
// including the current candle. Conditions treat it as read-only; the
// engine updates the portfolio fields as actions execute.
type EvaluationContext struct {
	Date  time.Time
	Price float64
	Index int
	// Candles is the window [0..Index] of the full series.
	Candles []core.Candle

	AssetQuantity float64
	AvailableCash float64

	// AvgBuyPrice is the running average cost of the position, used by
	// take-profit actions. Zero while nothing has been bought.
	AvgBuyPrice float64

	indicators *indicatorCache
}

// Value is the portfolio value at the current price.
func (ctx *EvaluationContext) Value() float64 {
	return ctx.AssetQuantity*ctx.Price + ctx.AvailableCash
}

// indicatorCache memoizes full-series indicator values so rules that reuse
// the same indicator and period across steps do not recompute them. Wilder
// smoothing and trailing means only depend on the prefix, so the value at
// index i equals the value computed over the window ending at i.
type indicatorCache struct {
	candles []core.Candle
	series  map[string][]float64
}

func newIndicatorCache(candles []core.Candle) *indicatorCache {
	return &indicatorCache{
		candles: candles,
		series:  make(map[string][]float64),
	}
}

// value returns the indicator value at index i, or (0, false) while the
// indicator is still warming up or the series is too short for the period.
func (c *indicatorCache) value(name string, period, i int) (float64, bool) {
	key := fmt.Sprintf("%s:%d", name, period)
	values, ok := c.series[key]
	if !ok {
		var err error
		switch name {
		case indicatorRSI:
			values, err = indicator.RSICandles(c.candles, period)
		case indicatorMA:
			values, err = indicator.SMACandles(c.candles, period)
		}
		if err != nil {
			values = nil
		}
		c.series[key] = values
	}

	if !indicator.Defined(values, i) {
		return 0, false
	}
	return values[i], true
}

const (
	indicatorRSI = "rsi"
	indicatorMA  = "ma"
)
