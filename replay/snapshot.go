package replay

import (
	"github.com/rustyeddy/tradereplay/feed"
	"github.com/rustyeddy/tradereplay/market"
	"github.com/rustyeddy/tradereplay/notify"
	"github.com/rustyeddy/tradereplay/sim"
)

// Snapshot is a consistent view of a session between two ticks.
type Snapshot struct {
	ID         string           `json:"id"`
	State      State            `json:"state"`
	Query      feed.Query       `json:"query"`
	Speed      Speed            `json:"speed"`
	Cursor     int              `json:"cursor"`
	Played     int              `json:"played"`
	Total      int              `json:"total"`
	Bar        *market.PriceBar `json:"bar,omitempty"`
	PnL        sim.PnL          `json:"pnl"`
	Positions  int              `json:"positions"`
	DataSource string           `json:"data_source,omitempty"`
	Error      string           `json:"error,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:        s.id,
		State:     s.state,
		Query:     s.query,
		Speed:     s.speed,
		Cursor:    s.cursor,
		Played:    s.played,
		Total:     s.feed.Len(),
		PnL:       s.pnl,
		Positions: s.ledger.Len(),
	}
	if s.feed != nil {
		snap.DataSource = s.feed.DataSource
		if s.played > 0 {
			bar := s.feed.Bars[s.cursor]
			snap.Bar = &bar
		}
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err is the last load failure, cleared by the next Start or Reset.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) PnL() sim.PnL {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pnl
}

// Positions is a copy of the ledger history.
func (s *Session) Positions() []sim.Position { return s.ledger.Positions() }

func (s *Session) OpenPositions() []sim.Position { return s.ledger.OpenPositions() }

// Notifications exposes the session's ephemeral and history lists.
func (s *Session) Notifications() *notify.Dispatcher { return s.notify }

// Feed returns a copy of the loaded feed, or nil.
func (s *Session) Feed() *market.Feed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feed.Clone()
}

// Report summarizes the session for printing or journaling.
func (s *Session) Report() (sim.PnL, sim.Stats) {
	s.mu.Lock()
	pnl := s.pnl
	s.mu.Unlock()
	return pnl, sim.Summarize(s.ledger.Positions())
}
