package sim

import (
	"time"

	"github.com/rustyeddy/tradereplay/market"
)

// Position is a long position opened on a BUY bar. Exit stays nil while the
// position is open and is filled in place by the SELL that closes it.
type Position struct {
	ID         string     `json:"id"`
	EntryKey   market.Key `json:"entry_timestamp"`
	EntryTime  time.Time  `json:"entry_time,omitempty"`
	EntryPrice float64    `json:"entry_price"`
	Exit       *Exit      `json:"exit,omitempty"`
}

// Exit holds the closing side of a Position.
type Exit struct {
	Key   market.Key `json:"exit_timestamp"`
	Time  time.Time  `json:"exit_time,omitempty"`
	Price float64    `json:"exit_price"`
}

// IsOpen reports whether the position still lacks exit fields.
func (p Position) IsOpen() bool { return p.Exit == nil }

// clone copies p including its exit so callers cannot mutate the ledger.
func (p Position) clone() Position {
	if p.Exit != nil {
		e := *p.Exit
		p.Exit = &e
	}
	return p
}
