package strategy

import (
	"strings"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hodlsim/hodlsim/pkg/core"
)

// dailyCandles builds n daily candles starting Monday 2024-01-01 with closes
// produced by the price function.
func dailyCandles(n int, price func(i int) float64) []core.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]core.Candle, n)
	for i := range candles {
		p := price(i)
		candles[i] = core.Candle{
			Time: start.AddDate(0, 0, i), Open: p, High: p, Low: p, Close: p,
			Volume: 1000, Timeframe: "1d",
		}
	}
	return candles
}

func flatPrice(v float64) func(int) float64 {
	return func(int) float64 { return v }
}

func testContext(candles []core.Candle, cash float64) Context {
	ctx, err := Normalize(candles, cash, nil, core.FundingSchedule{})
	if err != nil {
		panic(err)
	}
	return ctx
}

func buys(txs []core.Transaction) []core.Transaction {
	return lo.Filter(txs, func(tx core.Transaction, _ int) bool {
		return tx.Type == core.TransactionBuy
	})
}

func TestLumpSum_SingleBuyAtFirstCandle(t *testing.T) {
	candles := dailyCandles(1, flatPrice(100))

	txs, err := NewLumpSum().Run(testContext(candles, 10000), nil)
	require.NoError(t, err)
	require.Len(t, txs, 1)

	tx := txs[0]
	assert.Equal(t, core.TransactionBuy, tx.Type)
	assert.InDelta(t, 10000.0, tx.Amount, 1e-9)
	assert.InDelta(t, 100.0, tx.QuantityChanged, 1e-9)
	assert.Contains(t, strings.ToLower(tx.Reason), "lump sum")
}

func TestLumpSum_SkipsBuyWithoutCash(t *testing.T) {
	candles := dailyCandles(5, flatPrice(100))
	portfolio := &core.InitialPortfolio{Assets: []core.AssetHolding{{Symbol: "BTC", Quantity: 2}}}

	ctx, err := Normalize(candles, 0, portfolio, core.FundingSchedule{})
	require.NoError(t, err)

	txs, err := NewLumpSum().Run(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestLumpSum_RecordsFundingDeposits(t *testing.T) {
	candles := dailyCandles(15, flatPrice(100))

	ctx, err := Normalize(candles, 1000, nil,
		core.FundingSchedule{Frequency: core.FundingWeekly, Amount: 200})
	require.NoError(t, err)

	txs, err := NewLumpSum().Run(ctx, nil)
	require.NoError(t, err)

	funding := lo.Filter(txs, func(tx core.Transaction, _ int) bool {
		return tx.Type == core.TransactionFunding
	})
	// 15 daily candles from Monday Jan 1 cross two ISO week boundaries.
	require.Len(t, funding, 2)
	assert.InDelta(t, 200.0, funding[0].Amount, 1e-9)
	assert.Zero(t, funding[0].QuantityChanged)
}

func TestDCA_WeeklyPurchaseCount(t *testing.T) {
	candles := dailyCandles(28, flatPrice(50))

	txs, err := NewDCA().Run(testContext(candles, 10000), Parameters{"frequency": "weekly"})
	require.NoError(t, err)

	purchases := buys(txs)
	require.Len(t, purchases, 4)
	for _, tx := range purchases {
		assert.InDelta(t, 2500.0, tx.Amount, 1e-9)
	}
}

func TestDCA_InvalidFrequency(t *testing.T) {
	candles := dailyCandles(7, flatPrice(50))

	_, err := NewDCA().Run(testContext(candles, 10000), Parameters{"frequency": "hourly"})

	var invalid *core.InvalidParameterError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "frequency", invalid.Field)
}

func TestDCA_StopsWhenCashExhausted(t *testing.T) {
	candles := dailyCandles(28, flatPrice(50))

	// Daily schedule with a tiny balance: once cash is gone there are no
	// zero-amount transactions.
	txs, err := NewDCA().Run(testContext(candles, 100), Parameters{"frequency": "daily"})
	require.NoError(t, err)

	for _, tx := range buys(txs) {
		assert.Greater(t, tx.Amount, 0.0)
	}
}

func TestSmartDCA_InvalidRSIPeriod(t *testing.T) {
	candles := dailyCandles(60, flatPrice(50))

	_, err := NewRSIDCA().Run(testContext(candles, 10000), Parameters{"rsiPeriod": 1})

	var invalid *core.InvalidParameterError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "rsiPeriod", invalid.Field)
	assert.Contains(t, invalid.Bound, "gte=2")
}

func TestSmartDCA_InsufficientData(t *testing.T) {
	candles := dailyCandles(5, flatPrice(50))

	_, err := NewRSIDCA().Run(testContext(candles, 10000), nil)

	var insufficient *core.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
}

func TestRSIDCA_OversoldWeekBuysMore(t *testing.T) {
	// Steadily falling prices: RSI is deeply oversold once defined.
	candles := dailyCandles(28, func(i int) float64 { return 200 - float64(i) })

	txs, err := NewRSIDCA().Run(testContext(candles, 10000), nil)
	require.NoError(t, err)

	purchases := buys(txs)
	require.GreaterOrEqual(t, len(purchases), 3)

	// Weeks before the RSI warm-up buy the plain base amount; the first
	// oversold week buys strictly more under the same base capital.
	assert.Greater(t, purchases[2].Amount, purchases[1].Amount)
	assert.Contains(t, purchases[2].Reason, "RSI")
}

func TestCombinedSmartDCA_MultiplierCap(t *testing.T) {
	s := NewCombinedSmartDCA()
	p := defaultSmartDCAParams()
	p.MaxMultiplier = 1.8

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 200 - float64(i)*2 // falling hard: dip + MA + RSI all fire
	}
	rsi := make([]float64, 60)
	sma := make([]float64, 60)
	for i := range rsi {
		rsi[i] = 5   // deeply oversold
		sma[i] = 500 // price far below MA
	}

	multiplier, signals := s.multiplierAt(59, closes, rsi, sma, p)
	assert.InDelta(t, 1.8, multiplier, 1e-9)
	assert.Len(t, signals, 3)
}

func TestSmartDCA_NoSignalMeansBaseMultiplier(t *testing.T) {
	s := NewRSIDCA()
	p := defaultSmartDCAParams()

	closes := []float64{100, 101, 102}
	rsi := []float64{55, 60, 65}

	multiplier, signals := s.multiplierAt(2, closes, rsi, nil, p)
	assert.InDelta(t, 1.0, multiplier, 1e-9)
	assert.Empty(t, signals)
}

func TestRebalancing_TradesToTargetOnFirstCandle(t *testing.T) {
	candles := dailyCandles(1, flatPrice(100))

	txs, err := NewRebalancing().Run(testContext(candles, 10000),
		Parameters{"targetAllocation": 0.5, "rebalanceThreshold": 0.05})
	require.NoError(t, err)
	require.Len(t, txs, 1)

	assert.Equal(t, core.TransactionBuy, txs[0].Type)
	assert.InDelta(t, 5000.0, txs[0].Amount, 1e-9)
}

func TestRebalancing_CorrectsDriftBackToTarget(t *testing.T) {
	prices := []float64{100, 100, 150}
	candles := dailyCandles(3, func(i int) float64 { return prices[i] })

	txs, err := NewRebalancing().Run(testContext(candles, 10000),
		Parameters{"targetAllocation": 0.5, "rebalanceThreshold": 0.05})
	require.NoError(t, err)
	require.Len(t, txs, 2)

	// Day 2: holdings 50*150=7500 vs cash 5000 -> 60% allocation, outside
	// the 45-55% band; a single sell of 1250 restores exactly 50%.
	correction := txs[1]
	assert.Equal(t, core.TransactionSell, correction.Type)
	assert.InDelta(t, 1250.0, correction.Amount, 1e-9)

	qty := 50.0 + correction.QuantityChanged
	cash := 5000.0 + correction.Amount
	allocation := qty * 150 / (qty*150 + cash)
	assert.InDelta(t, 0.5, allocation, 1e-9)
}

func TestRebalancing_InvalidTarget(t *testing.T) {
	candles := dailyCandles(1, flatPrice(100))

	_, err := NewRebalancing().Run(testContext(candles, 10000),
		Parameters{"targetAllocation": 1.5})

	var invalid *core.InvalidParameterError
	require.ErrorAs(t, err, &invalid)
}

func TestRegistry_ResolveAndDescriptors(t *testing.T) {
	registry := NewRegistry(NewLumpSum(), NewDCA())

	s, err := registry.Resolve("lump-sum")
	require.NoError(t, err)
	assert.Equal(t, "Lump Sum", s.Name())

	_, err = registry.Resolve("no-such-strategy")
	var notFound *core.StrategyNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "no-such-strategy", notFound.ID)

	descriptors := registry.Descriptors()
	require.Len(t, descriptors, 2)
	assert.Equal(t, "lump-sum", descriptors[0].ID)
	assert.Equal(t, "dca", descriptors[1].ID)
}

func TestNormalize_FlatAmountAndPortfolioShapes(t *testing.T) {
	candles := dailyCandles(3, flatPrice(200))

	flat, err := Normalize(candles, 5000, nil, core.FundingSchedule{})
	require.NoError(t, err)
	assert.InDelta(t, 5000.0, flat.Portfolio.USDC, 1e-9)
	assert.InDelta(t, 5000.0, flat.Portfolio.TotalValue, 1e-9)
	assert.Zero(t, flat.Portfolio.AssetQuantity)

	portfolio := &core.InitialPortfolio{
		Assets:     []core.AssetHolding{{Symbol: "BTC", Quantity: 2}},
		USDCAmount: 1000,
	}
	rich, err := Normalize(candles, 0, portfolio, core.FundingSchedule{})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, rich.Portfolio.AssetQuantity, 1e-9)
	// Holdings valued at the first candle's close: 2*200 + 1000.
	assert.InDelta(t, 1400.0, rich.Portfolio.TotalValue, 1e-9)
}

func TestNormalize_EmptyCandles(t *testing.T) {
	_, err := Normalize(nil, 1000, nil, core.FundingSchedule{})

	var insufficient *core.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
}

func TestDeterminism_SameInputsSameLedger(t *testing.T) {
	candles := dailyCandles(28, func(i int) float64 { return 100 + float64(i%5) })
	params := Parameters{"frequency": "weekly"}

	first, err := NewDCA().Run(testContext(candles, 10000), params)
	require.NoError(t, err)
	second, err := NewDCA().Run(testContext(candles, 10000), params)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
