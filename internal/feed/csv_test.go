package feed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewCSVFeed_HeaderlessUnixRows(t *testing.T) {
	// time,open,close,low,high,volume
	path := writeCSV(t, "1704067200,100,105,99,106,1000\n1704153600,105,103,101,107,1200\n")

	feed, err := NewCSVFeed(path, "1d")
	require.NoError(t, err)
	require.Len(t, feed.Candles, 2)

	first := feed.Candles[0]
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), first.Time)
	assert.Equal(t, 100.0, first.Open)
	assert.Equal(t, 105.0, first.Close)
	assert.Equal(t, 99.0, first.Low)
	assert.Equal(t, 106.0, first.High)
	assert.Equal(t, 1000.0, first.Volume)
	assert.Equal(t, "1d", first.Timeframe)
}

func TestNewCSVFeed_HeaderReordersColumns(t *testing.T) {
	path := writeCSV(t, "close,time,open,high,low,volume\n105,2024-01-01,100,106,99,1000\n")

	feed, err := NewCSVFeed(path, "1d")
	require.NoError(t, err)
	require.Len(t, feed.Candles, 1)

	assert.Equal(t, 100.0, feed.Candles[0].Open)
	assert.Equal(t, 105.0, feed.Candles[0].Close)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), feed.Candles[0].Time)
}

func TestNewCSVFeed_RejectsNonIncreasingTimestamps(t *testing.T) {
	duplicate := "1704067200,100,105,99,106,1000\n1704067200,105,103,101,107,1200\n"
	_, err := NewCSVFeed(writeCSV(t, duplicate), "1d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not after the previous row")

	backwards := "1704153600,100,105,99,106,1000\n1704067200,105,103,101,107,1200\n"
	_, err = NewCSVFeed(writeCSV(t, backwards), "1d")
	require.Error(t, err)
}

func TestNewCSVFeed_RejectsInvalidTimeframe(t *testing.T) {
	path := writeCSV(t, "1704067200,100,105,99,106,1000\n")
	_, err := NewCSVFeed(path, "fortnight")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timeframe")
}

func TestNewCSVFeed_RejectsMalformedRow(t *testing.T) {
	path := writeCSV(t, "1704067200,100,abc,99,106,1000\n")
	_, err := NewCSVFeed(path, "1d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
}

func TestNewCSVFeed_EmptyFile(t *testing.T) {
	_, err := NewCSVFeed(writeCSV(t, "time,open,close,low,high,volume\n"), "1d")
	require.ErrorIs(t, err, ErrNoCandles)
}

func TestCandlesByPeriod(t *testing.T) {
	path := writeCSV(t,
		"2024-01-01,100,100,100,100,1\n"+
			"2024-01-02,100,100,100,100,1\n"+
			"2024-01-03,100,100,100,100,1\n")

	feed, err := NewCSVFeed(path, "1d")
	require.NoError(t, err)

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	got := feed.CandlesByPeriod(start, time.Time{})
	require.Len(t, got, 2)
	assert.Equal(t, start, got[0].Time)

	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	got = feed.CandlesByPeriod(time.Time{}, end)
	require.Len(t, got, 2)

	all := feed.CandlesByPeriod(time.Time{}, time.Time{})
	assert.Len(t, all, 3)
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	path := writeCSV(t,
		"1704067200,100.5,105.25,99,106,1000\n"+
			"1704153600,105.25,103,101,107,1200\n")

	feed, err := NewCSVFeed(path, "1d")
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteCSV(out, feed.Candles, 2))

	reloaded, err := NewCSVFeed(out, "1d")
	require.NoError(t, err)
	assert.Equal(t, feed.Candles, reloaded.Candles)
}

func TestLimit(t *testing.T) {
	path := writeCSV(t,
		"2024-01-01,100,100,100,100,1\n"+
			"2024-01-02,100,100,100,100,1\n"+
			"2024-01-05,100,100,100,100,1\n")

	feed, err := NewCSVFeed(path, "1d")
	require.NoError(t, err)

	feed.Limit(72 * time.Hour)
	require.Len(t, feed.Candles, 1)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), feed.Candles[0].Time)
}
