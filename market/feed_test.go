package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(ts string, close float64) PriceBar {
	k, t, err := ParseTimestamp(ts)
	if err != nil {
		return PriceBar{Key: NormalizeTimestamp(ts), Close: close}
	}
	return PriceBar{Key: k, Time: t, Close: close}
}

func TestFeedNormalizeSortsAndAnnotates(t *testing.T) {
	t.Parallel()

	f := &Feed{
		Symbol:   "AAPL",
		Strategy: "ema",
		Bars: []PriceBar{
			bar("2024-01-03", 120),
			bar("2024-01-01", 100),
			bar("2024-01-02", 110),
		},
		BuySignals:  []Signal{{Key: NormalizeTimestamp("2024-01-01T00:00:00.000Z"), Price: 100}},
		SellSignals: []Signal{{Key: NormalizeTimestamp(float64(1704240000000)), Price: 120}},
	}

	n := f.Normalize()
	assert.Equal(t, 2, n)

	require.Len(t, f.Bars, 3)
	assert.Equal(t, 100.0, f.Bars[0].Close)
	assert.Equal(t, 110.0, f.Bars[1].Close)
	assert.Equal(t, 120.0, f.Bars[2].Close)

	assert.Equal(t, Buy, f.Bars[0].Signal)
	assert.Equal(t, None, f.Bars[1].Signal)
	assert.Equal(t, Sell, f.Bars[2].Signal)
}

func TestFeedNormalizeKeepsInlineSignal(t *testing.T) {
	t.Parallel()

	b := bar("2024-01-01", 100)
	b.Signal = Sell
	f := &Feed{
		Bars:       []PriceBar{b},
		BuySignals: []Signal{{Key: b.Key}},
	}

	assert.Equal(t, 0, f.Normalize())
	assert.Equal(t, Sell, f.Bars[0].Signal)
}

func TestFeedNormalizeUnmatchedSignal(t *testing.T) {
	t.Parallel()

	f := &Feed{
		Bars:       []PriceBar{bar("2024-01-01", 100)},
		BuySignals: []Signal{{Key: "2030-01-01T00:00:00Z"}},
	}
	assert.Equal(t, 0, f.Normalize())
	assert.Equal(t, None, f.Bars[0].Signal)
}

func TestSortBarsStableForDuplicates(t *testing.T) {
	t.Parallel()

	a := bar("2024-01-01", 1)
	b := bar("2024-01-01", 2)
	c := bar("2023-12-31", 3)
	bars := []PriceBar{a, b, c}
	SortBars(bars)

	assert.Equal(t, []float64{3, 1, 2}, []float64{bars[0].Close, bars[1].Close, bars[2].Close})
}

func TestSortBarsFallsBackToKeys(t *testing.T) {
	t.Parallel()

	bars := []PriceBar{{Key: "c"}, {Key: "a"}, {Key: "b"}}
	SortBars(bars)
	assert.Equal(t, Key("a"), bars[0].Key)
	assert.Equal(t, Key("c"), bars[2].Key)

	// keys that sort lexically against the parsed ones must not interleave
	mixed := []PriceBar{
		{Key: "3000"},
		bar("2024-01-02", 2),
		{Key: "1000"},
		bar("2024-01-01", 1),
	}
	SortBars(mixed)
	got := make([]Key, len(mixed))
	for i, b := range mixed {
		got[i] = b.Key
	}
	assert.Equal(t, []Key{"2024-01-01T00:00:00Z", "2024-01-02T00:00:00Z", "1000", "3000"}, got)

	a, b, c := PriceBar{Key: "zzz"}, bar("2024-01-01", 1), PriceBar{Key: "000"}
	assert.True(t, b.Before(a))
	assert.True(t, b.Before(c))
	assert.False(t, a.Before(b))
	assert.False(t, c.Before(b))
	assert.True(t, c.Before(a))
}

func TestFeedNormalizeJoinsCompactDates(t *testing.T) {
	t.Parallel()

	f := &Feed{
		Bars:       []PriceBar{bar("2024-01-02", 100), bar("2024-01-03", 110)},
		BuySignals: []Signal{{Key: NormalizeTimestamp("20240102"), Price: 100}},
	}
	assert.Equal(t, 1, f.Normalize())
	assert.Equal(t, Buy, f.Bars[0].Signal)
	assert.Equal(t, None, f.Bars[1].Signal)
}

func TestFeedRebuildSignalsAndClone(t *testing.T) {
	t.Parallel()

	f := &Feed{Symbol: "SPY", Strategy: "x", Bars: []PriceBar{
		{Key: "1", Close: 1, Signal: Buy},
		{Key: "2", Close: 2},
		{Key: "3", Close: 3, Signal: Sell},
	}, Metadata: map[string]any{"k": "v"}}
	f.RebuildSignals()
	require.Len(t, f.BuySignals, 1)
	require.Len(t, f.SellSignals, 1)
	assert.Equal(t, "SPY", f.SellSignals[0].Symbol)

	c := f.Clone()
	c.Bars[0].Close = 99
	c.Metadata["k"] = "changed"
	assert.Equal(t, 1.0, f.Bars[0].Close)
	assert.Equal(t, "v", f.Metadata["k"])
	assert.Equal(t, 3, c.Len())

	var nilFeed *Feed
	assert.Equal(t, 0, nilFeed.Len())
	assert.Nil(t, nilFeed.Clone())
}

func TestParseResolution(t *testing.T) {
	t.Parallel()

	r, err := ParseResolution("H1")
	require.NoError(t, err)
	assert.Equal(t, Resolution("1h"), r)
	assert.Equal(t, time.Hour, r.Duration())

	r, err = ParseResolution("1D")
	require.NoError(t, err)
	assert.Equal(t, Resolution("1d"), r)

	_, err = ParseResolution("7m")
	assert.Error(t, err)
}
