package strategy

import (
	"github.com/hodlsim/hodlsim/pkg/core"
)

// Descriptor is strategy metadata exposed without instantiating any
// simulation state.
type Descriptor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Registry maps stable strategy identifiers to implementations and
// normalizes the legacy input shapes into a single simulation context.
type Registry struct {
	order      []string
	strategies map[string]Strategy
}

// NewRegistry builds a registry over the given strategies, preserving
// registration order for listings.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[string]Strategy, len(strategies))}
	for _, s := range strategies {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a strategy under its identifier.
func (r *Registry) Register(s Strategy) {
	if _, exists := r.strategies[s.ID()]; !exists {
		r.order = append(r.order, s.ID())
	}
	r.strategies[s.ID()] = s
}

// Resolve returns the strategy registered under id.
func (r *Registry) Resolve(id string) (Strategy, error) {
	s, ok := r.strategies[id]
	if !ok {
		return nil, &core.StrategyNotFoundError{ID: id}
	}
	return s, nil
}

// Descriptors lists (id, display name) pairs in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, Descriptor{ID: id, Name: r.strategies[id].Name()})
	}
	return out
}

// Normalize converts the raw caller input into the shared Context. When an explicit
// portfolio is given, its asset holdings are valued at the first candle's
// close; otherwise the flat investment amount becomes the starting cash.
func Normalize(candles []core.Candle, investmentAmount float64,
	portfolio *core.InitialPortfolio, funding core.FundingSchedule) (Context, error) {

	if len(candles) == 0 {
		return Context{}, &core.InsufficientDataError{Required: 1, Got: 0}
	}

	snapshot := core.InitialPortfolio{USDCAmount: investmentAmount}
	if portfolio != nil {
		snapshot = *portfolio
	}

	return Context{
		Candles:   candles,
		StartDate: candles[0].Time,
		EndDate:   candles[len(candles)-1].Time,
		Portfolio: snapshot.ValueAt(candles[0].Close),
		Funding:   funding,
	}, nil
}
