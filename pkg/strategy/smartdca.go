package strategy

import (
	"fmt"
	"math"
	"strings"

	"github.com/hodlsim/hodlsim/pkg/core"
	"github.com/hodlsim/hodlsim/pkg/indicator"
)

// SmartDCAParams configures the indicator-scaled weekly DCA variants. All
// variants share one parameter surface; each variant only consults the
// fields backing its own signals.
type SmartDCAParams struct {
	RSIPeriod         int     `param:"rsiPeriod" validate:"gte=2,lte=50"`
	OversoldThreshold float64 `param:"oversoldThreshold" validate:"gte=0,lte=100"`
	MAPeriod          int     `param:"maPeriod" validate:"gte=2,lte=200"`
	DropThreshold     float64 `param:"dropThreshold" validate:"gte=0,lte=1"`
	LookbackPeriod    int     `param:"lookbackPeriod" validate:"gte=2,lte=365"`
	Multiplier        float64 `param:"multiplier" validate:"gte=0.1,lte=10"`
	MaxMultiplier     float64 `param:"maxMultiplier" validate:"gte=1,lte=10"`
	AllowNegativeUSDC bool    `param:"allowNegativeUsdc"`
}

func defaultSmartDCAParams() SmartDCAParams {
	return SmartDCAParams{
		RSIPeriod:         14,
		OversoldThreshold: 30,
		MAPeriod:          50,
		DropThreshold:     0.1,
		LookbackPeriod:    30,
		Multiplier:        2.0,
		MaxMultiplier:     3.0,
	}
}

// SmartDCA is a weekly DCA whose purchase size is scaled by technical
// signals. The base amount is the starting cash divided by the week count of
// the date range; a week's actual buy is base times a signal multiplier.
//
// Single-signal variants apply their configured multiplier when the signal
// fires. The combined variant adds +0.5 per fired signal on top of 1.0,
// capped at maxMultiplier.
type SmartDCA struct {
	id       string
	name     string
	useRSI   bool
	useDip   bool
	useMA    bool
	combined bool
}

func NewRSIDCA() *SmartDCA {
	return &SmartDCA{id: "rsi-dca", name: "RSI-Weighted DCA", useRSI: true}
}

func NewDipBuyerDCA() *SmartDCA {
	return &SmartDCA{id: "dip-buyer-dca", name: "Dip Buyer DCA", useDip: true}
}

func NewMovingAverageDCA() *SmartDCA {
	return &SmartDCA{id: "moving-average-dca", name: "Moving Average DCA", useMA: true}
}

func NewCombinedSmartDCA() *SmartDCA {
	return &SmartDCA{
		id: "combined-smart-dca", name: "Combined Smart DCA",
		useRSI: true, useDip: true, useMA: true, combined: true,
	}
}

func (s *SmartDCA) ID() string   { return s.id }
func (s *SmartDCA) Name() string { return s.name }

func (s *SmartDCA) Run(ctx Context, params Parameters) ([]core.Transaction, error) {
	p := s.mergeParams(params)
	if err := checkBounds(p); err != nil {
		return nil, err
	}

	if len(ctx.Candles) == 0 {
		return nil, &core.InsufficientDataError{Required: 1, Got: 0}
	}

	closes := core.Closes(ctx.Candles)

	var rsi, sma []float64
	var err error
	if s.useRSI {
		if rsi, err = indicator.RSI(closes, p.RSIPeriod); err != nil {
			return nil, err
		}
	}
	if s.useMA {
		if sma, err = indicator.SMA(closes, p.MAPeriod); err != nil {
			return nil, err
		}
	}

	base := ctx.Portfolio.USDC / float64(weeksBetween(ctx))
	state := newSimState(ctx.Portfolio)

	for i, candle := range ctx.Candles {
		if i > 0 {
			state.fund(ctx.Funding, ctx.Candles[i-1], candle)
			if !core.PeriodBoundary(core.FundingWeekly, ctx.Candles[i-1].Time, candle.Time) {
				continue
			}
		}

		multiplier, signals := s.multiplierAt(i, closes, rsi, sma, p)
		desired := base * multiplier

		if state.cash <= 0 && !p.AllowNegativeUSDC {
			continue // fully unaffordable, skip the period entirely
		}

		amount := desired
		capped := false
		if !p.AllowNegativeUSDC && amount > state.cash {
			amount = state.cash
			capped = true
		}
		if amount <= 0 {
			continue
		}

		reason := fmt.Sprintf("weekly DCA purchase of $%.2f (multiplier %.2f)", amount, multiplier)
		if len(signals) > 0 {
			reason = fmt.Sprintf("weekly DCA purchase of $%.2f (multiplier %.2f: %s)",
				amount, multiplier, strings.Join(signals, ", "))
		}
		if capped {
			reason += " (capped to remaining cash)"
		}
		state.buy(candle, amount, reason)
	}

	return state.txs, nil
}

func (s *SmartDCA) mergeParams(params Parameters) SmartDCAParams {
	p := defaultSmartDCAParams()
	p.RSIPeriod = intParam(params, "rsiPeriod", p.RSIPeriod)
	p.OversoldThreshold = floatParam(params, "oversoldThreshold", p.OversoldThreshold)
	p.MAPeriod = intParam(params, "maPeriod", p.MAPeriod)
	p.DropThreshold = floatParam(params, "dropThreshold", p.DropThreshold)
	p.LookbackPeriod = intParam(params, "lookbackPeriod", p.LookbackPeriod)
	p.Multiplier = floatParam(params, "multiplier", p.Multiplier)
	p.MaxMultiplier = floatParam(params, "maxMultiplier", p.MaxMultiplier)
	p.AllowNegativeUSDC = boolParam(params, "allowNegativeUsdc", p.AllowNegativeUSDC)
	return p
}

// multiplierAt computes the purchase multiplier for the candle at index i
// along with human-readable labels for every fired signal.
func (s *SmartDCA) multiplierAt(i int, closes, rsi, sma []float64, p SmartDCAParams) (float64, []string) {
	var signals []string
	fired := 0

	if s.useRSI && indicator.Defined(rsi, i) && rsi[i] < p.OversoldThreshold {
		fired++
		signals = append(signals, fmt.Sprintf("RSI %.1f below %.1f", rsi[i], p.OversoldThreshold))
	}

	if s.useDip {
		if high := trailingHigh(closes, i, p.LookbackPeriod); high > 0 {
			drop := (high - closes[i]) / high
			if drop >= p.DropThreshold {
				fired++
				signals = append(signals, fmt.Sprintf("price down %.1f%% from %d-candle high",
					drop*100, p.LookbackPeriod))
			}
		}
	}

	if s.useMA && indicator.Defined(sma, i) && closes[i] < sma[i] {
		fired++
		signals = append(signals, fmt.Sprintf("price $%.2f below SMA(%d) $%.2f",
			closes[i], p.MAPeriod, sma[i]))
	}

	if fired == 0 {
		return 1.0, nil
	}
	if s.combined {
		return math.Min(1.0+0.5*float64(fired), p.MaxMultiplier), signals
	}
	return p.Multiplier, signals
}

// trailingHigh is the highest close in the window of `lookback` candles
// ending at index i (inclusive).
func trailingHigh(closes []float64, i, lookback int) float64 {
	start := i - lookback + 1
	if start < 0 {
		start = 0
	}
	var high float64
	for j := start; j <= i; j++ {
		if closes[j] > high {
			high = closes[j]
		}
	}
	return high
}

// weeksBetween is the week count of the simulated date range, rounded up
// and never below one.
func weeksBetween(ctx Context) int {
	start, end := ctx.StartDate, ctx.EndDate
	if start.IsZero() || end.IsZero() {
		start = ctx.Candles[0].Time
		end = ctx.Candles[len(ctx.Candles)-1].Time
	}

	days := end.Sub(start).Hours() / 24
	weeks := int(math.Ceil(days / 7))
	if weeks < 1 {
		weeks = 1
	}
	return weeks
}
