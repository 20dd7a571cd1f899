package tui

import (
	"context"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rustyeddy/tradereplay/feed"
	"github.com/rustyeddy/tradereplay/market"
	"github.com/rustyeddy/tradereplay/replay"
)

type staticLoader struct{ feed *market.Feed }

func (l staticLoader) Load(context.Context, feed.Query) (*market.Feed, error) {
	return l.feed.Clone(), nil
}

func scenario() *market.Feed {
	f := &market.Feed{Symbol: "SPY", Strategy: "sma", DataSource: "test"}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	closes := []float64{100, 110, 120}
	sigs := []market.SignalType{market.Buy, market.None, market.Sell}
	for i, c := range closes {
		t := base.AddDate(0, 0, i)
		f.Bars = append(f.Bars, market.PriceBar{Key: market.Key(t.Format("2006-01-02")), Time: t, Close: c, Signal: sigs[i]})
	}
	return f
}

func newTestModel(t *testing.T) (Model, *replay.Session) {
	t.Helper()
	s, err := replay.NewSession(replay.Options{
		Query:  feed.Query{Source: feed.SourceStrategy, Symbol: "SPY", Strategy: "sma", Resolution: "1d"},
		Loader: staticLoader{feed: scenario()},
		Clock:  clock.NewMock(),
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(context.Background(), s), s
}

func keyMsg(k string) tea.KeyMsg {
	if k == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press sends a key and runs whatever command it returns.
func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	next, cmd := m.Update(keyMsg(k))
	m = next.(Model)
	if cmd != nil {
		if msg := cmd(); msg != nil {
			next, _ = m.Update(msg)
			m = next.(Model)
		}
	}
	return m
}

func TestStepKeyAdvancesSession(t *testing.T) {
	m, s := newTestModel(t)

	m = press(t, m, "n")
	assert.Equal(t, replay.Paused, s.State())
	assert.Equal(t, 1, m.snap.Played)
	assert.Len(t, m.ephemeral, 1)
	assert.Contains(t, m.View(), "BUY")

	m = press(t, m, "n")
	m = press(t, m, "n")
	assert.Equal(t, replay.Finished, m.snap.State)
	assert.Equal(t, "20.00", m.snap.PnL.Realized.StringFixed(2))
	assert.Contains(t, m.View(), "+20.00")
	assert.NoError(t, m.err)

	// Stepping a finished session reports the error inline.
	m = press(t, m, "n")
	assert.ErrorIs(t, m.err, replay.ErrInvalidState)
	assert.Contains(t, m.View(), "error:")
}

func TestToggleStartsAndPauses(t *testing.T) {
	m, s := newTestModel(t)

	m = press(t, m, " ")
	assert.Equal(t, replay.Running, s.State())
	assert.Equal(t, "started", m.status)

	m = press(t, m, " ")
	assert.Equal(t, replay.Paused, s.State())
	assert.Equal(t, replay.Paused, m.snap.State)
}

func TestSpeedKeys(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "+")
	assert.Equal(t, replay.Speed2x, m.snap.Speed)
	m = press(t, m, "+")
	m = press(t, m, "+")
	assert.Equal(t, replay.Speed4x, m.snap.Speed)
	m = press(t, m, "-")
	assert.Equal(t, replay.Speed2x, m.snap.Speed)
}

func TestResetAndClear(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "n")
	require.Len(t, m.history, 1)

	m = press(t, m, "x")
	assert.Empty(t, m.ephemeral)
	assert.Len(t, m.history, 1)

	m = press(t, m, "c")
	assert.Empty(t, m.history)

	m = press(t, m, "n")
	m = press(t, m, "r")
	assert.Equal(t, replay.Stopped, m.snap.State)
	assert.Equal(t, 0, m.snap.Played)
	assert.Empty(t, m.positions)
}

func TestQuitAndRefresh(t *testing.T) {
	m, _ := newTestModel(t)

	_, cmd := m.Update(keyMsg("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	next, cmd := m.Update(refreshMsg(time.Now()))
	assert.NotNil(t, cmd)
	assert.Contains(t, next.View(), "SPY")

	next, _ = next.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, next.(Model).width)
}
