package core

import (
	"strconv"
	"time"
)

// Candle represents one OHLCV record for a single time bucket.
// Candles in a series are ordered by strictly increasing Time and
// share the same Timeframe; gaps are tolerated, duplicates are not.
type Candle struct {
	Time      time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timeframe string
}

// ToSlice converts a candle to a string slice for CSV serialization
// with the given decimal precision, in the feed's column order.
func (c Candle) ToSlice(precision int) []string {
	return []string{
		strconv.FormatInt(c.Time.Unix(), 10),
		strconv.FormatFloat(c.Open, 'f', precision, 64),
		strconv.FormatFloat(c.Close, 'f', precision, 64),
		strconv.FormatFloat(c.Low, 'f', precision, 64),
		strconv.FormatFloat(c.High, 'f', precision, 64),
		strconv.FormatFloat(c.Volume, 'f', precision, 64),
	}
}

// Closes extracts the close prices of a candle series, preserving order.
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// Volumes extracts the volumes of a candle series, preserving order.
func Volumes(candles []Candle) []float64 {
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		volumes[i] = c.Volume
	}
	return volumes
}

// SameDay reports whether two timestamps fall on the same calendar date (UTC).
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
