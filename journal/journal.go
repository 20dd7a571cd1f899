package journal

import (
	"time"

	"github.com/rustyeddy/tradereplay/sim"
	"github.com/shopspring/decimal"
)

// TradeRecord is one closed position of a replay session.
type TradeRecord struct {
	TradeID    string
	SessionID  string
	Symbol     string
	Strategy   string
	EntryKey   string
	EntryTime  time.Time
	EntryPrice float64
	ExitKey    string
	ExitTime   time.Time
	ExitPrice  float64
	RealizedPL decimal.Decimal
	Reason     string
}

// PnLSnapshot is the PnL after one played bar.
type PnLSnapshot struct {
	SessionID     string
	Cursor        int
	Key           string
	Time          time.Time
	Price         float64
	Realized      decimal.Decimal
	Open          decimal.Decimal
	Total         decimal.Decimal
	OpenPositions int
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordPnL(PnLSnapshot) error
	Close() error
}

// TradeFromPosition builds the record for a closed position. ok is false
// while the position is still open.
func TradeFromPosition(sessionID, symbol, strategy string, p sim.Position) (rec TradeRecord, ok bool) {
	if p.Exit == nil {
		return TradeRecord{}, false
	}
	return TradeRecord{
		TradeID:    p.ID,
		SessionID:  sessionID,
		Symbol:     symbol,
		Strategy:   strategy,
		EntryKey:   string(p.EntryKey),
		EntryTime:  p.EntryTime,
		EntryPrice: p.EntryPrice,
		ExitKey:    string(p.Exit.Key),
		ExitTime:   p.Exit.Time,
		ExitPrice:  p.Exit.Price,
		RealizedPL: sim.RealizedPL(p),
		Reason:     "signal",
	}, true
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error { return nil }
func (Nop) RecordPnL(PnLSnapshot) error   { return nil }
func (Nop) Close() error                  { return nil }
