package backtesting

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hodlsim/hodlsim/pkg/core"
	"github.com/hodlsim/hodlsim/pkg/logger"
	"github.com/hodlsim/hodlsim/pkg/strategy"
)

type nopLogger struct{}

func (nopLogger) WithField(string, any) logger.Logger     { return nopLogger{} }
func (nopLogger) WithFields(map[string]any) logger.Logger { return nopLogger{} }
func (nopLogger) WithError(error) logger.Logger           { return nopLogger{} }
func (nopLogger) Debug(...any)                            {}
func (nopLogger) Info(...any)                             {}
func (nopLogger) Warn(...any)                             {}
func (nopLogger) Error(...any)                            {}
func (nopLogger) Fatal(...any)                            {}
func (nopLogger) Debugf(string, ...any)                   {}
func (nopLogger) Infof(string, ...any)                    {}
func (nopLogger) Warnf(string, ...any)                    {}
func (nopLogger) Errorf(string, ...any)                   {}
func (nopLogger) Fatalf(string, ...any)                   {}
func (nopLogger) SetLevel(logger.Level)                   {}
func (nopLogger) GetLevel() logger.Level                  { return logger.Disabled }

func dailyCandles(n int, price float64) []core.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]core.Candle, n)
	for i := range candles {
		candles[i] = core.Candle{
			Time: start.AddDate(0, 0, i), Open: price, High: price, Low: price,
			Close: price, Volume: 1000, Timeframe: "1d",
		}
	}
	return candles
}

func newTestRunner(opts ...Option) *Runner {
	return NewRunner(DefaultRegistry(), nopLogger{}, opts...)
}

func TestDefaultRegistry_ListsEveryStrategy(t *testing.T) {
	descriptors := DefaultRegistry().Descriptors()

	ids := make([]string, len(descriptors))
	for i, d := range descriptors {
		ids[i] = d.ID
	}

	assert.Equal(t, []string{
		"lump-sum", "dca", "rsi-dca", "dip-buyer-dca", "moving-average-dca",
		"combined-smart-dca", "rebalancing", "custom-strategy",
	}, ids)
}

func TestRun_ComparesStrategiesInRequestOrder(t *testing.T) {
	req := Request{
		Candles:          dailyCandles(30, 100),
		InvestmentAmount: 10000,
		StrategyIDs:      []string{"dca", "lump-sum"},
	}

	result, err := newTestRunner().Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Results, 2)

	assert.Equal(t, "dca", result.Results[0].ID)
	assert.Equal(t, "lump-sum", result.Results[1].ID)
	for _, sr := range result.Results {
		assert.Empty(t, sr.Error)
		assert.NotEmpty(t, sr.Transactions)
		assert.Len(t, sr.PortfolioHistory, 30)
		// Flat price: every strategy ends at its starting capital.
		assert.InDelta(t, 10000.0, sr.Metrics.FinalValue, 1e-6)
	}

	assert.Equal(t, "1d", result.Metadata.Timeframe)
	assert.Equal(t, req.Candles[0].Time, result.Metadata.StartDate)
	assert.Equal(t, req.Candles[29].Time, result.Metadata.EndDate)
}

func TestRun_UnknownStrategyDoesNotAbortSiblings(t *testing.T) {
	req := Request{
		Candles:          dailyCandles(10, 100),
		InvestmentAmount: 1000,
		StrategyIDs:      []string{"lump-sum", "no-such-strategy"},
	}

	result, err := newTestRunner().Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Results, 2)

	assert.Empty(t, result.Results[0].Error)
	assert.NotEmpty(t, result.Results[0].Transactions)

	assert.Contains(t, result.Results[1].Error, "strategy not found")
	assert.Empty(t, result.Results[1].Transactions)
}

func TestRun_StrategyFailureIsRecordedPerResult(t *testing.T) {
	req := Request{
		Candles:          dailyCandles(10, 100),
		InvestmentAmount: 1000,
		// custom-strategy without rules parameters fails its config parse.
		StrategyIDs: []string{"custom-strategy", "lump-sum"},
	}

	result, err := newTestRunner().Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Results, 2)

	assert.NotEmpty(t, result.Results[0].Error)
	assert.Empty(t, result.Results[1].Error)
}

func TestRun_TotalInvestmentIncludesFunding(t *testing.T) {
	req := Request{
		Candles:          dailyCandles(15, 100),
		InvestmentAmount: 1000,
		Funding:          core.FundingSchedule{Frequency: core.FundingWeekly, Amount: 500},
		StrategyIDs:      []string{"dca"},
	}

	result, err := newTestRunner().Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)

	// 15 daily candles from a Monday cross two weekly boundaries.
	sr := result.Results[0]
	require.Empty(t, sr.Error)
	assert.InDelta(t, 2000.0, sr.Metrics.TotalInvestment, 1e-9)
}

func TestRun_PerStrategyParameters(t *testing.T) {
	req := Request{
		Candles:          dailyCandles(28, 100),
		InvestmentAmount: 8400,
		StrategyIDs:      []string{"dca"},
		Parameters: map[string]strategy.Parameters{
			"dca": {"frequency": "daily"},
		},
	}

	result, err := newTestRunner().Run(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, result.Results[0].Error)

	// Daily cadence: one purchase per candle.
	assert.Len(t, result.Results[0].Transactions, 28)
}

func TestRun_EmptyCandlesFailsWholeRun(t *testing.T) {
	_, err := newTestRunner().Run(context.Background(), Request{InvestmentAmount: 1000})
	var insufficient *core.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRunner().Run(ctx, Request{
		Candles:          dailyCandles(10, 100),
		InvestmentAmount: 1000,
		StrategyIDs:      []string{"lump-sum"},
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_ProgressCallback(t *testing.T) {
	var mu sync.Mutex
	var seen []int

	runner := newTestRunner(
		WithParallelism(2),
		WithProgress(func(completed, total int, _ string) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, completed)
			assert.Equal(t, 3, total)
		}),
	)

	_, err := runner.Run(context.Background(), Request{
		Candles:          dailyCandles(10, 100),
		InvestmentAmount: 1000,
		StrategyIDs:      []string{"lump-sum", "dca", "rebalancing"},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []int{1, 2, 3}, seen)
}

func TestRun_AllDefaultsDeterministic(t *testing.T) {
	params := map[string]strategy.Parameters{
		"custom-strategy": {
			"rules": []any{map[string]any{
				"id":   "weekly",
				"when": map[string]any{"type": "schedule", "frequency": "weekly", "dayOfWeek": 1},
				"then": []any{map[string]any{"type": "buy_fixed", "amount": 100}},
			}},
		},
	}

	run := func() *ComparisonResult {
		result, err := newTestRunner().Run(context.Background(), Request{
			Candles:          dailyCandles(60, 100),
			InvestmentAmount: 10000,
			Parameters:       params,
		})
		require.NoError(t, err)
		return result
	}

	first, second := run(), run()
	require.Len(t, first.Results, 8)
	for i := range first.Results {
		assert.Empty(t, first.Results[i].Error, first.Results[i].ID)
		assert.Equal(t, first.Results[i].Transactions, second.Results[i].Transactions)
		assert.Equal(t, first.Results[i].Metrics, second.Results[i].Metrics)
	}
}
