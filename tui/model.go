// Package tui is a terminal front end for a single replay session.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradereplay/market"
	"github.com/rustyeddy/tradereplay/notify"
	"github.com/rustyeddy/tradereplay/replay"
	"github.com/rustyeddy/tradereplay/sim"
)

// RefreshInterval is how often the view polls the session.
const RefreshInterval = 100 * time.Millisecond

const (
	maxHistory   = 6
	maxPositions = 8
)

type refreshMsg time.Time

// commandMsg reports the result of a session command run off the UI loop.
type commandMsg struct {
	name string
	err  error
}

// Model renders a session and maps keys onto its commands. The session
// does its own playback; the model only polls snapshots.
type Model struct {
	ctx     context.Context
	session *replay.Session
	keys    KeyMap
	styles  styles
	help    help.Model
	bar     progress.Model

	snap      replay.Snapshot
	positions []sim.Position
	ephemeral []notify.Notification
	history   []notify.Notification
	status    string
	err       error
	width     int
}

func New(ctx context.Context, s *replay.Session) Model {
	m := Model{
		ctx:     ctx,
		session: s,
		keys:    DefaultKeyMap(),
		styles:  defaultStyles(),
		help:    help.New(),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		width:   80,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m *Model) refresh() {
	m.snap = m.session.Snapshot()
	m.positions = m.session.Positions()
	n := m.session.Notifications()
	m.ephemeral = n.Ephemeral()
	m.history = n.History()
}

// run executes fn as a tea.Cmd so a blocking load never stalls the UI.
func (m Model) run(name string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return commandMsg{name: name, err: fn()}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.bar.Width = min(max(msg.Width-30, 10), 60)
		return m, nil

	case refreshMsg:
		m.refresh()
		return m, tick()

	case commandMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.name
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.session
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		switch m.snap.State {
		case replay.Running:
			return m, m.run("paused", s.Pause)
		case replay.Loading:
			return m, nil
		}
		return m, m.run("started", func() error { return s.Start(m.ctx) })

	case key.Matches(msg, m.keys.Step):
		return m, m.run("stepped", func() error { return s.Step(m.ctx) })

	case key.Matches(msg, m.keys.Reset):
		return m, m.run("reset", s.Reset)

	case key.Matches(msg, m.keys.Faster):
		sp := m.snap.Speed.Faster()
		return m, m.run("speed "+sp.String(), func() error { return s.SetSpeed(sp) })

	case key.Matches(msg, m.keys.Slower):
		sp := m.snap.Speed.Slower()
		return m, m.run("speed "+sp.String(), func() error { return s.SetSpeed(sp) })

	case key.Matches(msg, m.keys.Dismiss):
		if len(m.ephemeral) > 0 {
			s.Notifications().Dismiss(m.ephemeral[0].ID)
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		s.Notifications().ClearAll()
		m.status = "alerts cleared"
		m.refresh()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	st := m.styles
	q := m.snap.Query

	title := st.Title.Render(fmt.Sprintf("%s · %s · %s", q.Symbol, q.Strategy, q.Resolution))
	meta := fmt.Sprintf("%s %s   %s %s",
		st.Label.Render("state"), st.Value.Render(m.snap.State.String()),
		st.Label.Render("speed"), st.Value.Render(m.snap.Speed.String()))
	if m.snap.DataSource != "" {
		meta += "   " + st.Label.Render("source") + " " + st.Value.Render(m.snap.DataSource)
	}
	b.WriteString(st.Header.Render(lipgloss.JoinVertical(lipgloss.Left, title, meta)))
	b.WriteString("\n")

	b.WriteString(m.bar.ViewAs(m.percent()))
	fmt.Fprintf(&b, "  %d/%d\n", m.snap.Played, m.snap.Total)

	if bar := m.snap.Bar; bar != nil {
		line := fmt.Sprintf("%s  close %.2f", bar.Key, bar.Close)
		if bar.Signal != market.None {
			line += "  " + m.signal(bar.Signal)
		}
		b.WriteString(line + "\n")
	} else {
		b.WriteString(st.Muted.Render("no bar played") + "\n")
	}

	pnl := m.snap.PnL
	fmt.Fprintf(&b, "\n%s %s   %s %s   %s %s\n",
		st.Label.Render("realized"), m.money(pnl.Realized),
		st.Label.Render("open"), m.money(pnl.Open),
		st.Label.Render("total"), m.money(pnl.Total))
	fmt.Fprintf(&b, "%s %d   %s %d\n",
		st.Label.Render("open positions"), pnl.OpenPositions,
		st.Label.Render("closed"), pnl.ClosedPositions)

	for _, n := range m.ephemeral {
		b.WriteString(st.Toast.Render(m.signal(n.Type)+" "+n.Body()) + "\n")
	}

	b.WriteString("\n" + st.Pane.Render(m.positionsView()) + "\n")
	if len(m.history) > 0 {
		b.WriteString(st.Pane.Render(m.historyView()) + "\n")
	}

	if m.err != nil {
		b.WriteString(st.Error.Render("error: "+m.err.Error()) + "\n")
	} else if m.snap.Error != "" {
		b.WriteString(st.Error.Render("error: "+m.snap.Error) + "\n")
	} else if m.status != "" {
		b.WriteString(st.Muted.Render(m.status) + "\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) percent() float64 {
	if m.snap.Total == 0 {
		return 0
	}
	return float64(m.snap.Played) / float64(m.snap.Total)
}

func (m Model) signal(t market.SignalType) string {
	switch t {
	case market.Buy:
		return m.styles.Buy.Render(t.String())
	case market.Sell:
		return m.styles.Sell.Render(t.String())
	}
	return t.String()
}

func (m Model) money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	switch d.Sign() {
	case 1:
		return m.styles.Positive.Render("+" + s)
	case -1:
		return m.styles.Negative.Render(s)
	}
	return m.styles.Neutral.Render(s)
}

func (m Model) positionsView() string {
	if len(m.positions) == 0 {
		return m.styles.Muted.Render("no positions")
	}
	rows := []string{m.styles.Title.Render("positions")}
	start := max(len(m.positions)-maxPositions, 0)
	for _, p := range m.positions[start:] {
		if p.IsOpen() {
			var upl decimal.Decimal
			if m.snap.Bar != nil {
				upl = sim.UnrealizedPL(p, m.snap.Bar.Close)
			}
			rows = append(rows, fmt.Sprintf("%-22s %8.2f  open      %s", p.EntryKey, p.EntryPrice, m.money(upl)))
			continue
		}
		rows = append(rows, fmt.Sprintf("%-22s %8.2f  → %8.2f %s", p.EntryKey, p.EntryPrice, p.Exit.Price, m.money(sim.RealizedPL(p))))
	}
	return strings.Join(rows, "\n")
}

func (m Model) historyView() string {
	rows := []string{m.styles.Title.Render("signals")}
	for i, n := range m.history {
		if i == maxHistory {
			rows = append(rows, m.styles.Muted.Render(fmt.Sprintf("… %d more", len(m.history)-maxHistory)))
			break
		}
		rows = append(rows, fmt.Sprintf("%s %s", m.signal(n.Type), n.Body()))
	}
	return strings.Join(rows, "\n")
}
