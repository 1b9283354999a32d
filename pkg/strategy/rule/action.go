package rule

// BuyFixedAction buys a fixed USD amount, capped to available cash.
type BuyFixedAction struct {
	Amount float64
}

// BuyPercentageAction buys a percentage (0-100] of available cash.
type BuyPercentageAction struct {
	Percentage float64
}

// BuyScaledAction buys BaseAmount*ScaleFactor*severity, optionally capped by
// MaxAmount, letting a condition's severity drive position sizing.
type BuyScaledAction struct {
	BaseAmount  float64
	ScaleFactor float64
	MaxAmount   float64 // 0 disables the cap
}

// SellFixedAction sells a fixed USD value of holdings, capped to the
// position size.
type SellFixedAction struct {
	Amount float64
}

// SellPercentageAction sells a percentage (0-100] of current holdings.
type SellPercentageAction struct {
	Percentage float64
}

// TakeProfitAction sells Percentage of holdings once price exceeds the
// running average cost by GainThreshold (fraction).
type TakeProfitAction struct {
	GainThreshold float64
	Percentage    float64
}

// RebalanceAction is a documented no-op placeholder: its intended semantics
// (trading to TargetAllocation inside a rule) are not specified, so it
// records nothing and has zero portfolio effect.
type RebalanceAction struct {
	TargetAllocation float64
}

// LimitOrderAction executes a buy or sell of Amount only when the current
// price is within 0.1% of LimitPrice. It is re-evaluated each step against
// the static target price; no standing order persists across steps.
type LimitOrderAction struct {
	Side       string // buy|sell
	LimitPrice float64
	Amount     float64
}

func (BuyFixedAction) isAction()       {}
func (BuyPercentageAction) isAction()  {}
func (BuyScaledAction) isAction()      {}
func (SellFixedAction) isAction()      {}
func (SellPercentageAction) isAction() {}
func (TakeProfitAction) isAction()     {}
func (RebalanceAction) isAction()      {}
func (LimitOrderAction) isAction()     {}
