// Package strategy implements the investment policies that replay a candle
// series into a transaction ledger, plus the registry that dispatches them
// by their stable string identifiers.
package strategy

import (
	"time"

	"github.com/hodlsim/hodlsim/pkg/core"
)

// Parameters is the loosely-typed parameter bag supplied by callers.
// Unknown keys are ignored; missing keys fall back to per-strategy defaults.
type Parameters map[string]any

// Context carries the normalized, read-only inputs shared by all strategies.
// It is built once per backtest by Registry.Normalize and never mutated.
type Context struct {
	Candles   []core.Candle
	StartDate time.Time
	EndDate   time.Time
	Portfolio core.PortfolioState
	Funding   core.FundingSchedule
}

// Strategy is one investment policy. Run is pure: it consumes the context
// and parameters and produces a fresh transaction ledger, with no shared
// state between invocations.
type Strategy interface {
	// ID is the stable string identifier used for dispatch, e.g. "lump-sum".
	ID() string
	// Name is the human-readable display name.
	Name() string
	// Run simulates the policy over the candle series.
	Run(ctx Context, params Parameters) ([]core.Transaction, error)
}
