// Package backtesting runs strategies over a shared candle series and
// assembles the side-by-side comparison result.
package backtesting

import (
	"context"
	"sync"
	"time"

	"github.com/hodlsim/hodlsim/pkg/core"
	"github.com/hodlsim/hodlsim/pkg/logger"
	"github.com/hodlsim/hodlsim/pkg/metric"
	"github.com/hodlsim/hodlsim/pkg/strategy"
	"github.com/hodlsim/hodlsim/pkg/strategy/rule"
)

// DefaultRegistry returns a registry holding every built-in strategy.
func DefaultRegistry() *strategy.Registry {
	return strategy.NewRegistry(
		strategy.NewLumpSum(),
		strategy.NewDCA(),
		strategy.NewRSIDCA(),
		strategy.NewDipBuyerDCA(),
		strategy.NewMovingAverageDCA(),
		strategy.NewCombinedSmartDCA(),
		strategy.NewRebalancing(),
		rule.New(),
	)
}

// Request describes one comparison run.
type Request struct {
	Candles          []core.Candle
	InvestmentAmount float64
	Portfolio        *core.InitialPortfolio
	Funding          core.FundingSchedule

	// StrategyIDs selects which strategies to run; empty means every
	// registered strategy.
	StrategyIDs []string

	// Parameters holds per-strategy parameter bags keyed by strategy id.
	Parameters map[string]strategy.Parameters
}

// StrategyResult is the outcome of one strategy inside a comparison. A
// failed strategy carries Error and empty metrics; its siblings still run.
type StrategyResult struct {
	ID               string                     `json:"id"`
	Name             string                     `json:"name"`
	Transactions     []core.Transaction         `json:"transactions,omitempty"`
	PortfolioHistory []core.PortfolioValuePoint `json:"portfolioHistory,omitempty"`
	Metrics          core.StrategyMetrics       `json:"metrics"`
	Error            string                     `json:"error,omitempty"`
}

// Metadata describes the shared inputs of a comparison run.
type Metadata struct {
	InvestmentAmount float64   `json:"investmentAmount"`
	StartDate        time.Time `json:"startDate"`
	EndDate          time.Time `json:"endDate"`
	Timeframe        string    `json:"timeframe"`
	CalculatedAt     time.Time `json:"calculatedAt"`
}

// ComparisonResult holds per-strategy results in request order.
type ComparisonResult struct {
	Results  []StrategyResult `json:"results"`
	Metadata Metadata         `json:"metadata"`
}

// Option configures a Runner.
type Option func(*Runner)

// WithParallelism caps how many strategies evaluate concurrently.
func WithParallelism(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// WithProgress registers a callback invoked after each strategy finishes.
func WithProgress(fn func(completed, total int, id string)) Option {
	return func(r *Runner) { r.progress = fn }
}

// Runner evaluates strategies concurrently over a shared read-only candle
// slice and computes their metrics.
type Runner struct {
	registry    *strategy.Registry
	log         logger.Logger
	parallelism int
	progress    func(completed, total int, id string)
}

// NewRunner builds a runner over the given registry.
func NewRunner(registry *strategy.Registry, log logger.Logger, opts ...Option) *Runner {
	r := &Runner{registry: registry, log: log, parallelism: 4}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the requested strategies and assembles the comparison.
// Per-strategy failures are recorded on their result entry; only an empty
// candle series or context cancellation fails the whole run.
func (r *Runner) Run(ctx context.Context, req Request) (*ComparisonResult, error) {
	simCtx, err := strategy.Normalize(req.Candles, req.InvestmentAmount, req.Portfolio, req.Funding)
	if err != nil {
		return nil, err
	}

	ids := req.StrategyIDs
	if len(ids) == 0 {
		for _, descriptor := range r.registry.Descriptors() {
			ids = append(ids, descriptor.ID)
		}
	}

	r.log.WithFields(map[string]any{
		"strategies": len(ids),
		"candles":    len(simCtx.Candles),
		"start":      simCtx.StartDate.Format("2006-01-02"),
		"end":        simCtx.EndDate.Format("2006-01-02"),
	}).Info("starting comparison run")

	results := make([]StrategyResult, len(ids))
	semaphore := make(chan struct{}, r.parallelism)
	var completed int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(slot int, id string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results[slot] = r.runOne(simCtx, id, req.Parameters[id])

			mu.Lock()
			completed++
			done := completed
			mu.Unlock()
			if r.progress != nil {
				r.progress(done, len(ids), id)
			}
		}(i, id)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &ComparisonResult{
		Results: results,
		Metadata: Metadata{
			InvestmentAmount: req.InvestmentAmount,
			StartDate:        simCtx.StartDate,
			EndDate:          simCtx.EndDate,
			Timeframe:        simCtx.Candles[0].Timeframe,
			CalculatedAt:     time.Now().UTC(),
		},
	}, nil
}

// runOne evaluates a single strategy and computes its metrics.
func (r *Runner) runOne(simCtx strategy.Context, id string, params strategy.Parameters) StrategyResult {
	result := StrategyResult{ID: id}

	impl, err := r.registry.Resolve(id)
	if err != nil {
		r.log.WithError(err).WithField("strategy", id).Error("strategy not found")
		result.Error = err.Error()
		return result
	}
	result.Name = impl.Name()

	transactions, err := impl.Run(simCtx, params)
	if err != nil {
		r.log.WithError(err).WithField("strategy", id).Error("strategy run failed")
		result.Error = err.Error()
		return result
	}

	history := metric.BuildPortfolioHistory(transactions, simCtx.Candles, simCtx.StartDate, simCtx.Portfolio)
	metrics, err := metric.Calculate(transactions, history, totalCapital(simCtx.Portfolio, transactions))
	if err != nil {
		r.log.WithError(err).WithField("strategy", id).Error("metric calculation failed")
		result.Error = err.Error()
		return result
	}

	r.log.WithFields(map[string]any{
		"strategy":     id,
		"transactions": len(transactions),
		"finalValue":   metrics.FinalValue,
		"totalReturn":  metrics.TotalReturn,
	}).Info("strategy evaluated")

	result.Transactions = transactions
	result.PortfolioHistory = history
	result.Metrics = metrics
	return result
}

// totalCapital is the initial portfolio value plus all scheduled funding
// deposits, the base for return percentages.
func totalCapital(initial core.PortfolioState, transactions []core.Transaction) float64 {
	total := initial.TotalValue
	for _, tx := range transactions {
		if tx.Type == core.TransactionFunding {
			total += tx.Amount
		}
	}
	return total
}
