package sim

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/rustyeddy/tradereplay/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(policy RepeatBuyPolicy) *Ledger {
	l := NewLedger(policy)
	n := 0
	l.newID = func() string {
		n++
		return fmt.Sprintf("P%d", n)
	}
	return l
}

func sigBar(key string, close float64, s market.SignalType) market.PriceBar {
	return market.PriceBar{Key: market.Key(key), Close: close, Signal: s}
}

func TestLedgerBuyHoldSellScenario(t *testing.T) {
	t.Parallel()

	l := newTestLedger(IgnoreRepeatBuy)
	bars := []market.PriceBar{
		sigBar("1", 100, market.Buy),
		sigBar("2", 110, market.None),
		sigBar("3", 120, market.Sell),
	}

	ev := l.OnBar(bars[0])
	assert.Equal(t, Opened, ev.Action)
	pnl := l.PnL(MarkAt(bars[0].Close))
	assert.True(t, pnl.Open.IsZero())
	assert.Equal(t, 1, pnl.OpenPositions)

	ev = l.OnBar(bars[1])
	assert.Equal(t, NoAction, ev.Action)
	pnl = l.PnL(MarkAt(bars[1].Close))
	assert.Equal(t, "10", pnl.Open.String())
	assert.Equal(t, 1, pnl.OpenPositions)

	ev = l.OnBar(bars[2])
	assert.Equal(t, Closed, ev.Action)
	assert.Equal(t, "P1", ev.Position.ID)
	pnl = l.PnL(MarkAt(bars[2].Close))
	assert.Equal(t, "20", pnl.Realized.String())
	assert.True(t, pnl.Open.IsZero())
	assert.Equal(t, "20", pnl.Total.String())

	positions := l.Positions()
	require.Len(t, positions, 1)
	require.NotNil(t, positions[0].Exit)
	assert.Equal(t, market.Key("1"), positions[0].EntryKey)
	assert.Equal(t, market.Key("3"), positions[0].Exit.Key)
	assert.Equal(t, 120.0, positions[0].Exit.Price)
}

func TestLedgerSellWithoutBuyIsNoop(t *testing.T) {
	t.Parallel()

	l := newTestLedger(IgnoreRepeatBuy)
	ev := l.OnBar(sigBar("1", 100, market.Sell))

	assert.Equal(t, SellIgnored, ev.Action)
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.Positions())
}

func TestLedgerIgnoresRepeatBuy(t *testing.T) {
	t.Parallel()

	l := newTestLedger(IgnoreRepeatBuy)
	assert.Equal(t, Opened, l.OnBar(sigBar("1", 100, market.Buy)).Action)

	ev := l.OnBar(sigBar("2", 105, market.Buy))
	assert.Equal(t, BuyIgnored, ev.Action)
	assert.Equal(t, "P1", ev.Position.ID)

	assert.Len(t, l.OpenPositions(), 1)
	assert.Equal(t, 1, l.Len())
}

func TestLedgerPyramidFIFO(t *testing.T) {
	t.Parallel()

	l := newTestLedger(PyramidFIFO)
	l.OnBar(sigBar("1", 100, market.Buy))
	l.OnBar(sigBar("2", 105, market.Buy))
	require.Len(t, l.OpenPositions(), 2)

	ev := l.OnBar(sigBar("3", 110, market.Sell))
	assert.Equal(t, "P1", ev.Position.ID)

	open := l.OpenPositions()
	require.Len(t, open, 1)
	assert.Equal(t, "P2", open[0].ID)
}

func TestLedgerPyramidLIFO(t *testing.T) {
	t.Parallel()

	l := newTestLedger(PyramidLIFO)
	l.OnBar(sigBar("1", 100, market.Buy))
	l.OnBar(sigBar("2", 105, market.Buy))

	ev := l.OnBar(sigBar("3", 110, market.Sell))
	assert.Equal(t, "P2", ev.Position.ID)
	assert.Equal(t, "5", RealizedPL(ev.Position).String())

	open := l.OpenPositions()
	require.Len(t, open, 1)
	assert.Equal(t, "P1", open[0].ID)
}

func TestLedgerPositionsAreCopies(t *testing.T) {
	t.Parallel()

	l := newTestLedger(IgnoreRepeatBuy)
	l.OnBar(sigBar("1", 100, market.Buy))
	l.OnBar(sigBar("2", 90, market.Sell))

	ps := l.Positions()
	ps[0].EntryPrice = 1
	ps[0].Exit.Price = 1

	again := l.Positions()
	assert.Equal(t, 100.0, again[0].EntryPrice)
	assert.Equal(t, 90.0, again[0].Exit.Price)
}

func TestLedgerReset(t *testing.T) {
	t.Parallel()

	l := newTestLedger(IgnoreRepeatBuy)
	l.OnBar(sigBar("1", 100, market.Buy))
	l.Reset()

	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.OpenPositions())
	assert.Equal(t, Opened, l.OnBar(sigBar("2", 100, market.Buy)).Action)
}

func TestLedgerTotalIsRealizedPlusOpen(t *testing.T) {
	t.Parallel()

	for _, policy := range []RepeatBuyPolicy{IgnoreRepeatBuy, PyramidFIFO, PyramidLIFO} {
		policy := policy
		t.Run(policy.String(), func(t *testing.T) {
			t.Parallel()

			rng := rand.New(rand.NewSource(42))
			l := newTestLedger(policy)
			price := 100.0

			for i := 0; i < 2000; i++ {
				price += rng.Float64()*2 - 1
				sig := market.SignalType(rng.Intn(3))
				l.OnBar(sigBar(fmt.Sprint(i), price, sig))

				pnl := l.PnL(MarkAt(price))
				require.True(t, pnl.Total.Equal(pnl.Realized.Add(pnl.Open)), "step %d", i)
				if policy == IgnoreRepeatBuy {
					require.LessOrEqual(t, pnl.OpenPositions, 1)
				}
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]RepeatBuyPolicy{
		"":       IgnoreRepeatBuy,
		"ignore": IgnoreRepeatBuy,
		"FIFO":   PyramidFIFO,
		"lifo":   PyramidLIFO,
	} {
		got, err := ParsePolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParsePolicy("martingale")
	assert.Error(t, err)
}
