package replay

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/rustyeddy/tradereplay/feed"
	"github.com/rustyeddy/tradereplay/journal"
	"github.com/rustyeddy/tradereplay/market"
	"github.com/rustyeddy/tradereplay/sim"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const waitFor = 2 * time.Second
const pollEvery = 2 * time.Millisecond

type fakeLoader struct {
	mu    sync.Mutex
	feed  *market.Feed
	err   error
	calls int
	block bool
	began chan struct{}
}

func (l *fakeLoader) Load(ctx context.Context, q feed.Query) (*market.Feed, error) {
	l.mu.Lock()
	l.calls++
	f, err, block, began := l.feed, l.err, l.block, l.began
	l.mu.Unlock()

	if block {
		if began != nil {
			close(began)
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return f.Clone(), nil
}

func (l *fakeLoader) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

type memJournal struct {
	mu     sync.Mutex
	trades []journal.TradeRecord
	pnl    []journal.PnLSnapshot
}

func (j *memJournal) RecordTrade(t journal.TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades = append(j.trades, t)
	return nil
}

func (j *memJournal) RecordPnL(s journal.PnLSnapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pnl = append(j.pnl, s)
	return nil
}

func (j *memJournal) Close() error { return nil }

func barsFeed(closes []float64, sigs []market.SignalType) *market.Feed {
	f := &market.Feed{Symbol: "SPY", Strategy: "sma"}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		t := base.AddDate(0, 0, i)
		b := market.PriceBar{Key: market.Key(t.Format(time.RFC3339)), Time: t, Close: c}
		if i < len(sigs) {
			b.Signal = sigs[i]
		}
		f.Bars = append(f.Bars, b)
	}
	return f
}

func scenarioFeed() *market.Feed {
	return barsFeed([]float64{100, 110, 120}, []market.SignalType{market.Buy, market.None, market.Sell})
}

var testQuery = feed.Query{Source: feed.SourceStrategy, Symbol: "SPY", Strategy: "sma", Resolution: "1d"}

func newTestSession(t *testing.T, l feed.Loader, opts ...func(*Options)) (*Session, *clock.Mock) {
	t.Helper()
	mc := clock.NewMock()
	o := Options{
		Query:  testQuery,
		Loader: l,
		Clock:  mc,
		Logger: zaptest.NewLogger(t),
	}
	for _, fn := range opts {
		fn(&o)
	}
	s, err := NewSession(o)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mc
}

// advance moves the mock clock one interval and waits for the bar to play.
func advance(t *testing.T, s *Session, mc *clock.Mock, interval time.Duration) {
	t.Helper()
	want := s.Snapshot().Played + 1
	mc.Add(interval)
	require.Eventually(t, func() bool { return s.Snapshot().Played == want }, waitFor, pollEvery,
		"expected %d bars played", want)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSession_ScenarioBuyHoldSell(t *testing.T) {
	l := &fakeLoader{feed: scenarioFeed()}
	s, mc := newTestSession(t, l)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, Running, s.State())
	assert.Equal(t, 0, s.Snapshot().Played)

	advance(t, s, mc, time.Second)
	snap := s.Snapshot()
	assert.Equal(t, 0, snap.Cursor)
	assert.True(t, snap.PnL.Open.IsZero())
	assert.Equal(t, 1, snap.PnL.OpenPositions)

	advance(t, s, mc, time.Second)
	snap = s.Snapshot()
	assert.Equal(t, 1, snap.Cursor)
	assert.True(t, snap.PnL.Open.Equal(dec("10")), snap.PnL.Open.String())
	assert.True(t, snap.PnL.Realized.IsZero())

	advance(t, s, mc, time.Second)
	snap = s.Snapshot()
	assert.Equal(t, Finished, snap.State)
	assert.Equal(t, 2, snap.Cursor)
	assert.Equal(t, 3, snap.Total)
	assert.True(t, snap.PnL.Realized.Equal(dec("20")))
	assert.True(t, snap.PnL.Open.IsZero())
	assert.True(t, snap.PnL.Total.Equal(dec("20")))
	require.NotNil(t, snap.Bar)
	assert.Equal(t, 120.0, snap.Bar.Close)

	select {
	case <-s.Done():
	default:
		t.Fatal("done channel not closed on finish")
	}
	assert.False(t, s.clock.Held())

	// no wraparound
	mc.Add(5 * time.Second)
	assert.Equal(t, 3, s.Snapshot().Played)
}

func TestSession_SignalsDispatchNotifications(t *testing.T) {
	l := &fakeLoader{feed: scenarioFeed()}
	s, mc := newTestSession(t, l)

	require.NoError(t, s.Start(context.Background()))
	advance(t, s, mc, time.Second)

	n := s.Notifications()
	require.Len(t, n.History(), 1)
	assert.Equal(t, market.Buy, n.History()[0].Type)
	assert.Equal(t, "SPY", n.History()[0].Symbol)
	assert.Equal(t, "sma", n.History()[0].StrategyID)
	assert.Len(t, n.Ephemeral(), 1)

	advance(t, s, mc, time.Second)
	advance(t, s, mc, time.Second)
	assert.Len(t, n.History(), 2)

	// the BUY toast expires 3s after it was raised
	mc.Add(time.Second)
	require.Eventually(t, func() bool { return len(n.Ephemeral()) == 1 }, waitFor, pollEvery)
	assert.Equal(t, market.Sell, n.Ephemeral()[0].Type)
}

func TestSession_FetchFailure(t *testing.T) {
	boom := errors.New("connection refused")
	l := &fakeLoader{err: boom}
	s, _ := newTestSession(t, l)

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	snap := s.Snapshot()
	assert.Equal(t, Stopped, snap.State)
	assert.Contains(t, snap.Error, "connection refused")
	assert.Zero(t, snap.Total)
	assert.False(t, s.clock.Held())

	// no automatic retry
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, l.Calls())
}

func TestSession_EmptyFeed(t *testing.T) {
	l := &fakeLoader{feed: &market.Feed{}}
	s, _ := newTestSession(t, l)

	err := s.Start(context.Background())
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, Stopped, s.State())
}

func TestSession_PauseResume(t *testing.T) {
	l := &fakeLoader{feed: barsFeed([]float64{1, 2, 3, 4}, nil)}
	s, mc := newTestSession(t, l)

	require.NoError(t, s.Start(context.Background()))
	advance(t, s, mc, time.Second)

	require.NoError(t, s.Pause())
	assert.Equal(t, Paused, s.State())
	assert.False(t, s.clock.Held())

	mc.Add(5 * time.Second)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, s.Snapshot().Played)

	require.NoError(t, s.Resume())
	assert.Equal(t, Running, s.State())
	advance(t, s, mc, time.Second)
	assert.Equal(t, 1, s.Snapshot().Cursor)

	require.NoError(t, s.Pause())
	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, Running, s.State())
}

func TestSession_ResumeRequiresPause(t *testing.T) {
	l := &fakeLoader{feed: scenarioFeed()}
	s, _ := newTestSession(t, l)
	assert.ErrorIs(t, s.Resume(), ErrInvalidState)
}

func TestSession_ResetFromAnyCursor(t *testing.T) {
	for stop := 0; stop <= 3; stop++ {
		t.Run(fmt.Sprintf("after_%d_bars", stop), func(t *testing.T) {
			l := &fakeLoader{feed: scenarioFeed()}
			s, _ := newTestSession(t, l)

			for i := 0; i < stop; i++ {
				require.NoError(t, s.Step(context.Background()))
			}
			require.NoError(t, s.Reset())

			snap := s.Snapshot()
			assert.Equal(t, Stopped, snap.State)
			assert.Equal(t, 0, snap.Cursor)
			assert.Equal(t, 0, snap.Played)
			assert.Nil(t, snap.Bar)
			assert.Zero(t, snap.Positions)
			assert.True(t, snap.PnL.Total.IsZero())
			assert.Empty(t, s.Notifications().History())
			assert.Empty(t, s.Notifications().Ephemeral())
			assert.False(t, s.clock.Held())
		})
	}
}

func TestSession_ResetKeepsData(t *testing.T) {
	l := &fakeLoader{feed: scenarioFeed()}
	s, mc := newTestSession(t, l)

	require.NoError(t, s.Start(context.Background()))
	advance(t, s, mc, time.Second)
	require.NoError(t, s.Reset())

	done := s.Done()
	require.NoError(t, s.Start(context.Background()))
	for i := 0; i < 3; i++ {
		advance(t, s, mc, time.Second)
	}
	<-done
	assert.Equal(t, 1, l.Calls())
	assert.True(t, s.PnL().Realized.Equal(dec("20")))
}

func TestSession_StartOnFinishedReplays(t *testing.T) {
	l := &fakeLoader{feed: scenarioFeed()}
	s, _ := newTestSession(t, l)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Step(context.Background()))
	}
	require.Equal(t, Finished, s.State())
	assert.ErrorIs(t, s.Step(context.Background()), ErrInvalidState)

	require.NoError(t, s.Start(context.Background()))
	snap := s.Snapshot()
	assert.Equal(t, Running, snap.State)
	assert.Equal(t, 0, snap.Played)
	assert.Zero(t, snap.Positions)
	assert.Equal(t, 1, l.Calls())
}

func TestSession_StepLoadsAndPauses(t *testing.T) {
	l := &fakeLoader{feed: scenarioFeed()}
	s, _ := newTestSession(t, l)

	require.NoError(t, s.Step(context.Background()))
	snap := s.Snapshot()
	assert.Equal(t, Paused, snap.State)
	assert.Equal(t, 1, snap.Played)
	assert.Equal(t, 1, snap.PnL.OpenPositions)
	assert.False(t, s.clock.Held())
}

func TestSession_SetSpeedKeepsCursor(t *testing.T) {
	l := &fakeLoader{feed: barsFeed([]float64{1, 2, 3, 4, 5}, nil)}
	s, mc := newTestSession(t, l)

	require.NoError(t, s.Start(context.Background()))
	advance(t, s, mc, time.Second)

	require.NoError(t, s.SetSpeed(Speed4x))
	assert.Equal(t, 1, s.Snapshot().Played)
	advance(t, s, mc, 250*time.Millisecond)
	advance(t, s, mc, 250*time.Millisecond)
	assert.Equal(t, Speed4x, s.Snapshot().Speed)

	assert.Error(t, s.SetSpeed(Speed(3)))
}

func TestSession_ParamChangesLeaveOneTicker(t *testing.T) {
	l := &fakeLoader{feed: barsFeed([]float64{1, 2, 3, 4, 5, 6, 7, 8}, nil)}
	s, mc := newTestSession(t, l)

	require.NoError(t, s.Start(context.Background()))
	advance(t, s, mc, time.Second)

	symbols := []string{"QQQ", "IWM", "DIA", "AAPL", "MSFT", "TSLA", "NVDA", "AMZN", "META", "GOOG"}
	for _, sym := range symbols {
		q := testQuery
		q.Symbol = sym
		require.NoError(t, s.SetParams(q))

		snap := s.Snapshot()
		assert.Equal(t, Stopped, snap.State)
		assert.Zero(t, snap.Played)
		assert.Zero(t, snap.Total)
		assert.Zero(t, snap.Positions)

		require.NoError(t, s.Start(context.Background()))
	}

	require.Eventually(t, func() bool { return s.clock.Active() <= 1 }, waitFor, pollEvery)
	assert.Equal(t, len(symbols)+1, l.Calls())
	assert.Equal(t, "GOOG", s.Snapshot().Query.Symbol)

	// a single tick advances exactly one bar
	advance(t, s, mc, time.Second)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, s.Snapshot().Played)
}

func TestSession_SetParamsCancelsLoad(t *testing.T) {
	began := make(chan struct{})
	l := &fakeLoader{block: true, began: began}
	s, _ := newTestSession(t, l)

	errc := make(chan error, 1)
	go func() { errc <- s.Start(context.Background()) }()

	<-began
	assert.Equal(t, Loading, s.State())

	q := testQuery
	q.Symbol = "QQQ"
	require.NoError(t, s.SetParams(q))

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrLoadCanceled)
	case <-time.After(waitFor):
		t.Fatal("start did not return after params changed")
	}
	assert.Equal(t, Stopped, s.State())
	assert.Empty(t, s.Snapshot().Error)
}

func TestSession_SetParamsValidates(t *testing.T) {
	s, _ := newTestSession(t, &fakeLoader{feed: scenarioFeed()})
	assert.Error(t, s.SetParams(feed.Query{Source: feed.SourceStrategy}))
}

func TestSession_Journal(t *testing.T) {
	j := &memJournal{}
	l := &fakeLoader{feed: scenarioFeed()}
	s, _ := newTestSession(t, l, func(o *Options) { o.Journal = j; o.ID = "S1" })

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Step(context.Background()))
	}

	require.Len(t, j.trades, 1)
	assert.Equal(t, "S1", j.trades[0].SessionID)
	assert.Equal(t, "SPY", j.trades[0].Symbol)
	assert.True(t, j.trades[0].RealizedPL.Equal(dec("20")))

	require.Len(t, j.pnl, 3)
	assert.Equal(t, 1, j.pnl[1].Cursor)
	assert.True(t, j.pnl[1].Open.Equal(dec("10")))
	assert.True(t, j.pnl[2].Total.Equal(dec("20")))
}

func TestSession_Close(t *testing.T) {
	l := &fakeLoader{feed: scenarioFeed()}
	s, mc := newTestSession(t, l)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	<-s.Done()
	assert.ErrorIs(t, s.Start(context.Background()), ErrClosed)
	assert.ErrorIs(t, s.Step(context.Background()), ErrClosed)
	assert.ErrorIs(t, s.Reset(), ErrClosed)

	mc.Add(5 * time.Second)
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, s.Snapshot().Played)
	require.Eventually(t, func() bool { return s.clock.Active() == 0 }, waitFor, pollEvery)
}

func TestSession_TotalIsRealizedPlusOpen(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	closes := make([]float64, 200)
	sigs := make([]market.SignalType, 200)
	price := 100.0
	for i := range closes {
		price += r.Float64()*4 - 2
		closes[i] = price
		sigs[i] = market.SignalType(r.Intn(3))
	}

	for _, policy := range []sim.RepeatBuyPolicy{sim.IgnoreRepeatBuy, sim.PyramidFIFO, sim.PyramidLIFO} {
		l := &fakeLoader{feed: barsFeed(closes, sigs)}
		s, _ := newTestSession(t, l, func(o *Options) { o.Policy = policy })

		for s.State() != Finished {
			require.NoError(t, s.Step(context.Background()))
			pnl := s.PnL()
			require.True(t, pnl.Total.Equal(pnl.Realized.Add(pnl.Open)), "policy %v", policy)
			if policy == sim.IgnoreRepeatBuy {
				require.LessOrEqual(t, pnl.OpenPositions, 1)
			}
		}
	}
}

func TestNewSession_RequiresLoader(t *testing.T) {
	_, err := NewSession(Options{})
	assert.Error(t, err)
}
