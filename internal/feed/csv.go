// Package feed loads historical candle data for backtests.
package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/xhit/go-str2duration/v2"

	"github.com/hodlsim/hodlsim/pkg/core"
)

var (
	// ErrNoCandles is returned when a file parses cleanly but holds no rows.
	ErrNoCandles = errors.New("no candles in feed")

	// defaultHeaderMap defines the column order for headerless files.
	defaultHeaderMap = map[string]int{
		"time": 0, "open": 1, "close": 2, "low": 3, "high": 4, "volume": 5,
	}
)

// CSVFeed holds the candle history loaded from a single CSV file.
type CSVFeed struct {
	Timeframe string
	Candles   []core.Candle
}

// NewCSVFeed reads candles from a CSV file. Rows are time,open,close,low,
// high,volume with unix-second or date timestamps; a header row naming the
// columns may reorder them. Timestamps must be strictly increasing.
func NewCSVFeed(file, timeframe string) (*CSVFeed, error) {
	if _, err := str2duration.ParseDuration(timeframe); err != nil {
		return nil, fmt.Errorf("invalid timeframe %q: %w", timeframe, err)
	}

	csvFile, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer csvFile.Close()

	lines, err := csv.NewReader(csvFile).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrNoCandles
	}

	headerMap, hasHeader := parseHeaders(lines[0])
	if hasHeader {
		lines = lines[1:]
	}

	candles := make([]core.Candle, 0, len(lines))
	for i, line := range lines {
		candle, err := parseCandle(line, headerMap, timeframe)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if len(candles) > 0 && !candle.Time.After(candles[len(candles)-1].Time) {
			return nil, fmt.Errorf("row %d: timestamp %s is not after the previous row",
				i+1, candle.Time.Format(time.RFC3339))
		}
		candles = append(candles, candle)
	}
	if len(candles) == 0 {
		return nil, ErrNoCandles
	}

	return &CSVFeed{Timeframe: timeframe, Candles: candles}, nil
}

// CandlesByPeriod returns the candles inside [start, end]. Zero bounds are
// open ended.
func (f *CSVFeed) CandlesByPeriod(start, end time.Time) []core.Candle {
	return lo.Filter(f.Candles, func(candle core.Candle, _ int) bool {
		if !start.IsZero() && candle.Time.Before(start) {
			return false
		}
		if !end.IsZero() && candle.Time.After(end) {
			return false
		}
		return true
	})
}

// Limit keeps only the trailing duration of the feed.
func (f *CSVFeed) Limit(duration time.Duration) *CSVFeed {
	if len(f.Candles) == 0 {
		return f
	}
	cutoff := f.Candles[len(f.Candles)-1].Time.Add(-duration)
	f.Candles = lo.Filter(f.Candles, func(candle core.Candle, _ int) bool {
		return candle.Time.After(cutoff)
	})
	return f
}

// WriteCSV saves candles in the feed's column order with a header row, so
// the output loads back through NewCSVFeed.
func WriteCSV(file string, candles []core.Candle, precision int) error {
	out, err := os.Create(file)
	if err != nil {
		return err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write([]string{"time", "open", "close", "low", "high", "volume"}); err != nil {
		return err
	}
	for _, candle := range candles {
		if err := w.Write(candle.ToSlice(precision)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// parseHeaders reports the column index map. A first row whose time column
// is not numeric is treated as a header naming the columns.
func parseHeaders(headers []string) (map[string]int, bool) {
	if _, err := strconv.Atoi(headers[0]); err == nil {
		return defaultHeaderMap, false
	}

	headerMap := make(map[string]int, len(headers))
	for index, header := range headers {
		headerMap[header] = index
	}
	return headerMap, true
}

func parseCandle(line []string, headerMap map[string]int, timeframe string) (core.Candle, error) {
	candle := core.Candle{Timeframe: timeframe}

	col := func(name string) (string, error) {
		index, ok := headerMap[name]
		if !ok || index >= len(line) {
			return "", fmt.Errorf("missing %s column", name)
		}
		return line[index], nil
	}

	raw, err := col("time")
	if err != nil {
		return core.Candle{}, err
	}
	if candle.Time, err = parseTimestamp(raw); err != nil {
		return core.Candle{}, err
	}

	fields := []struct {
		name string
		dst  *float64
	}{
		{"open", &candle.Open},
		{"close", &candle.Close},
		{"low", &candle.Low},
		{"high", &candle.High},
		{"volume", &candle.Volume},
	}
	for _, field := range fields {
		raw, err := col(field.name)
		if err != nil {
			return core.Candle{}, err
		}
		if *field.dst, err = strconv.ParseFloat(raw, 64); err != nil {
			return core.Candle{}, fmt.Errorf("bad %s value %q", field.name, raw)
		}
	}

	return candle, nil
}

// parseTimestamp accepts unix seconds, RFC 3339, or plain dates.
func parseTimestamp(raw string) (time.Time, error) {
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad timestamp %q", raw)
}
