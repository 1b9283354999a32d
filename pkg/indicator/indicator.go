// Package indicator provides technical indicators over price series, backed
// by go-talib. Outputs keep the input length; warm-up entries that have no
// defined value are NaN so callers can distinguish them from real zeros.
package indicator

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/hodlsim/hodlsim/pkg/core"
)

// RSI calculates the Relative Strength Index with Wilder's smoothing.
// Requires len(closes) >= period+1. The first `period` entries are NaN.
// RSI is 100 when the average loss over the window is zero.
func RSI(closes []float64, period int) ([]float64, error) {
	if len(closes) < period+1 {
		return nil, &core.InsufficientDataError{Required: period + 1, Got: len(closes)}
	}

	out := talib.Rsi(closes, period)
	padNaN(out, period)

	// Wilder's average loss at index i is zero only while no down move has
	// occurred in closes[..i]; once a loss enters, the smoothed average stays
	// positive. talib reports 0 for an all-flat window, but a zero average
	// loss means RSI pegs at 100.
	hasLoss := false
	for i := 1; i < len(closes); i++ {
		if closes[i] < closes[i-1] {
			hasLoss = true
		}
		if i >= period && !hasLoss {
			out[i] = 100
		}
	}
	return out, nil
}

// SMA calculates the Simple Moving Average: the arithmetic mean of the
// trailing `period` closes ending at each index. Requires
// len(closes) >= period. The first period-1 entries are NaN.
func SMA(closes []float64, period int) ([]float64, error) {
	if len(closes) < period {
		return nil, &core.InsufficientDataError{Required: period, Got: len(closes)}
	}

	out := talib.Sma(closes, period)
	padNaN(out, period-1)
	return out, nil
}

// RSICandles is RSI over the close prices of a candle series.
func RSICandles(candles []core.Candle, period int) ([]float64, error) {
	return RSI(core.Closes(candles), period)
}

// SMACandles is SMA over the close prices of a candle series.
func SMACandles(candles []core.Candle, period int) ([]float64, error) {
	return SMA(core.Closes(candles), period)
}

// Defined reports whether an indicator value at the given index is usable.
func Defined(values []float64, i int) bool {
	return i >= 0 && i < len(values) && !math.IsNaN(values[i])
}

func padNaN(values []float64, warmup int) {
	for i := 0; i < warmup && i < len(values); i++ {
		values[i] = math.NaN()
	}
}
