package sim

import (
	"sync"

	"github.com/rustyeddy/tradereplay/internal/id"
	"github.com/rustyeddy/tradereplay/market"
)

// Action describes what a bar did to the ledger.
type Action int

const (
	NoAction Action = iota
	Opened
	Closed
	BuyIgnored
	SellIgnored
)

func (a Action) String() string {
	switch a {
	case Opened:
		return "opened"
	case Closed:
		return "closed"
	case BuyIgnored:
		return "buy_ignored"
	case SellIgnored:
		return "sell_ignored"
	default:
		return "none"
	}
}

// Event is the outcome of Ledger.OnBar. Position is a copy of the position
// that was opened or closed.
type Event struct {
	Action   Action
	Position Position
	Bar      market.PriceBar
}

// Ledger is the append-only history of positions for one replay session.
//
// The open positions are tracked explicitly in entry order rather than found
// by scanning for missing exits. Under IgnoreRepeatBuy the open set holds at
// most one position.
type Ledger struct {
	mu        sync.RWMutex
	policy    RepeatBuyPolicy
	positions []*Position
	open      []*Position
	newID     func() string
}

func NewLedger(policy RepeatBuyPolicy) *Ledger {
	return &Ledger{
		policy: policy,
		newID:  id.New,
	}
}

func (l *Ledger) Policy() RepeatBuyPolicy { return l.policy }

// OnBar applies the bar's signal. It is called once per cursor advance.
func (l *Ledger) OnBar(bar market.PriceBar) Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch bar.Signal {
	case market.Buy:
		return l.buyLocked(bar)
	case market.Sell:
		return l.sellLocked(bar)
	}
	return Event{Action: NoAction, Bar: bar}
}

func (l *Ledger) buyLocked(bar market.PriceBar) Event {
	if l.policy == IgnoreRepeatBuy && len(l.open) > 0 {
		return Event{Action: BuyIgnored, Position: l.open[0].clone(), Bar: bar}
	}

	p := &Position{
		ID:         l.newID(),
		EntryKey:   bar.Key,
		EntryTime:  bar.Time,
		EntryPrice: bar.Close,
	}
	l.positions = append(l.positions, p)
	l.open = append(l.open, p)

	return Event{Action: Opened, Position: p.clone(), Bar: bar}
}

func (l *Ledger) sellLocked(bar market.PriceBar) Event {
	if len(l.open) == 0 {
		// no shorts
		return Event{Action: SellIgnored, Bar: bar}
	}

	i := 0
	if l.policy == PyramidLIFO {
		i = len(l.open) - 1
	}
	p := l.open[i]
	l.open = append(l.open[:i], l.open[i+1:]...)

	p.Exit = &Exit{
		Key:   bar.Key,
		Time:  bar.Time,
		Price: bar.Close,
	}
	return Event{Action: Closed, Position: p.clone(), Bar: bar}
}

// Positions returns a copy of the full history in entry order.
func (l *Ledger) Positions() []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p.clone())
	}
	return out
}

// OpenPositions returns copies of the positions that have no exit yet.
func (l *Ledger) OpenPositions() []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Position, 0, len(l.open))
	for _, p := range l.open {
		out = append(out, p.clone())
	}
	return out
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.positions)
}

// PnL prices the ledger at mark.
func (l *Ledger) PnL(mark Mark) PnL {
	return Calculate(l.Positions(), mark)
}

// Reset empties the ledger. It is the only way history is truncated.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.positions = nil
	l.open = nil
}
