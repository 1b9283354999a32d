package core

import "time"

// AssetHolding is one position inside an initial portfolio snapshot.
type AssetHolding struct {
	Symbol   string  `yaml:"symbol" json:"symbol"`
	Quantity float64 `yaml:"quantity" json:"quantity"`
}

// InitialPortfolio is the snapshot of holdings at simulation start:
// zero or more asset positions plus a cash (USDC) balance.
type InitialPortfolio struct {
	Assets     []AssetHolding `yaml:"assets" json:"assets"`
	USDCAmount float64        `yaml:"usdcAmount" json:"usdcAmount"`
}

// AssetQuantity returns the total quantity held across all asset positions.
func (p InitialPortfolio) AssetQuantity() float64 {
	var qty float64
	for _, a := range p.Assets {
		qty += a.Quantity
	}
	return qty
}

// PortfolioState is the valuation of an InitialPortfolio at the first candle.
// It is computed once per backtest and treated as read-only afterwards.
type PortfolioState struct {
	AssetQuantity float64 // quantity of the risk asset held at start
	USDC          float64 // cash available at start
	TotalValue    float64 // AssetQuantity*firstClose + USDC
}

// ValueAt converts the portfolio snapshot into a PortfolioState using the
// given price (by convention the first candle's close) for asset valuation.
func (p InitialPortfolio) ValueAt(price float64) PortfolioState {
	qty := p.AssetQuantity()
	return PortfolioState{
		AssetQuantity: qty,
		USDC:          p.USDCAmount,
		TotalValue:    qty*price + p.USDCAmount,
	}
}

// FundingFrequency is the cadence of scheduled cash deposits.
type FundingFrequency string

const (
	FundingDaily   FundingFrequency = "daily"
	FundingWeekly  FundingFrequency = "weekly"
	FundingMonthly FundingFrequency = "monthly"
)

// FundingSchedule adds cash at fixed calendar intervals, independent of any
// purchase logic. An Amount <= 0 disables the schedule.
type FundingSchedule struct {
	Frequency FundingFrequency `yaml:"frequency" json:"frequency"`
	Amount    float64          `yaml:"amount" json:"amount"`
}

// Enabled reports whether the schedule deposits anything at all.
func (f FundingSchedule) Enabled() bool {
	return f.Amount > 0
}

// Due reports whether a deposit boundary is crossed between the previous
// candle time and the current one. The first candle of a series never
// triggers a deposit; funding starts at the first boundary after it.
func (f FundingSchedule) Due(prev, current time.Time) bool {
	if !f.Enabled() || prev.IsZero() {
		return false
	}
	return PeriodBoundary(f.Frequency, prev, current)
}

// PeriodBoundary reports whether current falls in a later calendar period
// (day, ISO week, or month) than prev. Unknown frequencies never cross.
func PeriodBoundary(freq FundingFrequency, prev, current time.Time) bool {
	prev, current = prev.UTC(), current.UTC()
	switch freq {
	case FundingDaily:
		return !SameDay(prev, current)
	case FundingWeekly:
		py, pw := prev.ISOWeek()
		cy, cw := current.ISOWeek()
		return py != cy || pw != cw
	case FundingMonthly:
		return prev.Year() != current.Year() || prev.Month() != current.Month()
	}
	return false
}
