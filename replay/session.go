package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/andres-erbsen/clock"
	"github.com/rustyeddy/tradereplay/feed"
	"github.com/rustyeddy/tradereplay/internal/id"
	"github.com/rustyeddy/tradereplay/journal"
	"github.com/rustyeddy/tradereplay/market"
	"github.com/rustyeddy/tradereplay/notify"
	"github.com/rustyeddy/tradereplay/sim"
	"go.uber.org/zap"
)

var (
	// ErrNoData is returned when a load succeeds with zero bars.
	ErrNoData = errors.New("feed has no bars")
	// ErrClosed is returned by every command after Close.
	ErrClosed = errors.New("session closed")
	// ErrLoadCanceled is returned by a Start or Step whose load was
	// superseded by Reset, SetParams or Close.
	ErrLoadCanceled = errors.New("load canceled")
	// ErrInvalidState is returned when a command does not apply to the
	// current state.
	ErrInvalidState = errors.New("invalid state")
)

// Options configure a Session. Loader is required.
type Options struct {
	ID      string
	Query   feed.Query
	Speed   Speed
	Policy  sim.RepeatBuyPolicy
	Loader  feed.Loader
	Clock   clock.Clock
	Notify  *notify.Dispatcher
	Journal journal.Journal
	Metrics *Metrics
	Logger  *zap.Logger
}

// Session replays one feed: it owns the playback clock, the ledger and the
// notification lists. Every mutation runs under mu, so ticks and user
// commands are applied one at a time.
type Session struct {
	mu sync.Mutex

	id      string
	query   feed.Query
	speed   Speed
	loader  feed.Loader
	clock   *Clock
	ledger  *sim.Ledger
	notify  *notify.Dispatcher
	journal journal.Journal
	metrics *Metrics
	log     *zap.Logger

	feed   *market.Feed
	cursor int // index of the last played bar, 0 before the first
	played int
	pnl    sim.PnL
	state  State
	err    error

	loadGen    uint64
	loadCancel context.CancelFunc

	done       chan struct{}
	doneClosed bool
	closed     bool
}

func NewSession(opts Options) (*Session, error) {
	if opts.Loader == nil {
		return nil, fmt.Errorf("session requires a feed loader")
	}
	if opts.ID == "" {
		opts.ID = id.New()
	}
	if opts.Speed == 0 {
		opts.Speed = Speed1x
	}
	if !opts.Speed.Valid() {
		return nil, fmt.Errorf("unsupported speed %d", opts.Speed)
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Journal == nil {
		opts.Journal = journal.Nop{}
	}
	log := opts.Logger.Named("replay").With(zap.String("session", opts.ID))
	if opts.Notify == nil {
		opts.Notify = notify.NewDispatcher(
			notify.WithClock(opts.Clock),
			notify.WithLogger(log),
			notify.WithSinkErrorHook(opts.Metrics.SinkError),
		)
	}

	return &Session{
		id:      opts.ID,
		query:   opts.Query,
		speed:   opts.Speed,
		loader:  opts.Loader,
		clock:   NewClock(opts.Clock),
		ledger:  sim.NewLedger(opts.Policy),
		notify:  opts.Notify,
		journal: opts.Journal,
		metrics: opts.Metrics,
		log:     log,
		pnl:     sim.Calculate(nil, sim.NoMark),
		done:    make(chan struct{}),
	}, nil
}

func (s *Session) ID() string { return s.id }

// Start begins playback. With no data loaded it fetches first and starts
// once the data arrives. Starting a paused session resumes it and starting
// a finished one replays the loaded data from the top.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	switch s.state {
	case Running, Loading:
		return nil
	case Paused:
		s.runLocked()
		return nil
	case Finished:
		s.resetLocked()
	}

	if s.feed == nil {
		if err := s.loadLocked(ctx); err != nil {
			return err
		}
	}
	s.runLocked()
	s.log.Info("playback started",
		zap.Int("bars", s.feed.Len()),
		zap.String("speed", s.speed.String()),
	)
	return nil
}

// loadLocked fetches the feed for the current query. s.mu is released while
// the loader runs and held again on return. On success the state is
// Stopped with the cursor at 0.
func (s *Session) loadLocked(ctx context.Context) error {
	s.loadGen++
	gen := s.loadGen
	q := s.query
	lctx, cancel := context.WithCancel(ctx)
	s.loadCancel = cancel
	s.state = Loading
	s.err = nil

	s.mu.Unlock()
	start := s.clock.Now()
	f, err := s.loader.Load(lctx, q)
	elapsed := s.clock.Now().Sub(start)
	s.mu.Lock()
	cancel()

	if gen != s.loadGen {
		// superseded while loading; the newer command owns the state
		return ErrLoadCanceled
	}
	s.loadCancel = nil

	if err == nil && f.Len() == 0 {
		err = ErrNoData
	}
	s.metrics.load(err == nil, elapsed.Seconds())
	if err != nil {
		s.state = Stopped
		s.err = fmt.Errorf("load %s: %w", q, err)
		s.log.Error("feed load failed", zap.Stringer("query", q), zap.Error(err))
		return s.err
	}

	s.feed = f
	s.cursor, s.played = 0, 0
	s.state = Stopped
	s.log.Debug("feed loaded",
		zap.Stringer("query", q),
		zap.Int("bars", f.Len()),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}

func (s *Session) cancelLoadLocked() {
	if s.loadCancel != nil {
		s.loadCancel()
		s.loadCancel = nil
	}
	s.loadGen++
}

func (s *Session) runLocked() {
	s.state = Running
	s.clock.Start(s.speed.Interval(), s.tick)
}

// Pause releases the clock and keeps the cursor. It is a no-op unless the
// session is running.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.state != Running {
		return nil
	}
	s.clock.Stop()
	s.state = Paused
	return nil
}

// Resume continues a paused session from its cursor.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	switch s.state {
	case Running:
		return nil
	case Paused:
		s.runLocked()
		return nil
	}
	return fmt.Errorf("%w: cannot resume while %s", ErrInvalidState, s.state)
}

// Step plays exactly one bar and leaves the session paused. It loads the
// feed first when needed.
func (s *Session) Step(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	switch s.state {
	case Running, Loading, Finished:
		return fmt.Errorf("%w: cannot step while %s", ErrInvalidState, s.state)
	}

	if s.feed == nil {
		if err := s.loadLocked(ctx); err != nil {
			return err
		}
	}
	s.advanceLocked()
	if s.state != Finished {
		s.state = Paused
	}
	return nil
}

// Reset stops playback and returns the cursor to 0 with an empty ledger and
// no notifications. Loaded data is kept.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.resetLocked()
	return nil
}

func (s *Session) resetLocked() {
	s.clock.Stop()
	if s.state == Loading {
		s.cancelLoadLocked()
	}
	s.cursor, s.played = 0, 0
	s.ledger.Reset()
	s.notify.ClearAll()
	s.pnl = sim.Calculate(nil, sim.NoMark)
	s.state = Stopped
	s.err = nil
	if s.doneClosed {
		s.done = make(chan struct{})
		s.doneClosed = false
	}
}

// SetParams replaces the query. Whatever the session was doing is
// abandoned: the clock is released, an in-flight load is canceled and the
// loaded data is dropped, so the next Start fetches again.
func (s *Session) SetParams(q feed.Query) error {
	if err := q.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.cancelLoadLocked()
	s.resetLocked()
	s.feed = nil
	s.query = q
	s.log.Info("params changed", zap.Stringer("query", q))
	return nil
}

// SetSpeed changes the tick interval. A running session re-acquires its
// clock at the new interval and keeps its cursor.
func (s *Session) SetSpeed(sp Speed) error {
	if !sp.Valid() {
		return fmt.Errorf("unsupported speed %d", sp)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.speed = sp
	if s.state == Running {
		s.clock.Start(sp.Interval(), s.tick)
	}
	return nil
}

func (s *Session) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Running || !s.clock.Valid(gen) {
		return
	}
	s.advanceLocked()
}

// advanceLocked plays the next bar: ledger, notification, PnL and journal,
// in that order.
func (s *Session) advanceLocked() {
	if s.feed == nil || s.played >= s.feed.Len() {
		s.finishLocked()
		return
	}

	bar := s.feed.Bars[s.played]
	s.cursor = s.played
	s.played++
	s.metrics.tick()

	ev := s.ledger.OnBar(bar)
	switch ev.Action {
	case sim.Opened:
		s.metrics.ledger(ev.Action.String())
	case sim.Closed:
		s.metrics.ledger(ev.Action.String())
		s.recordTradeLocked(ev.Position)
	case sim.BuyIgnored, sim.SellIgnored:
		s.metrics.ledger(ev.Action.String())
		s.log.Debug("signal ignored",
			zap.String("action", ev.Action.String()),
			zap.String("bar", bar.Key.String()),
		)
	}

	if sig, ok := market.SignalFromBar(bar, s.strategyLocked(), s.symbolLocked()); ok {
		s.notify.Dispatch(sig)
		s.metrics.signal(sig.Type.String())
	}

	s.pnl = s.ledger.PnL(sim.MarkAt(bar.Close))
	if err := s.journal.RecordPnL(journal.PnLSnapshot{
		SessionID:     s.id,
		Cursor:        s.cursor,
		Key:           bar.Key.String(),
		Time:          bar.Time,
		Price:         bar.Close,
		Realized:      s.pnl.Realized,
		Open:          s.pnl.Open,
		Total:         s.pnl.Total,
		OpenPositions: s.pnl.OpenPositions,
	}); err != nil {
		s.log.Warn("journal pnl failed", zap.Error(err))
	}

	if s.played == s.feed.Len() {
		s.finishLocked()
	}
}

func (s *Session) recordTradeLocked(p sim.Position) {
	rec, ok := journal.TradeFromPosition(s.id, s.symbolLocked(), s.strategyLocked(), p)
	if !ok {
		return
	}
	if err := s.journal.RecordTrade(rec); err != nil {
		s.log.Warn("journal trade failed", zap.String("trade", rec.TradeID), zap.Error(err))
	}
}

func (s *Session) finishLocked() {
	s.clock.Stop()
	s.state = Finished
	s.closeDoneLocked()
	s.log.Info("playback finished",
		zap.Int("bars", s.played),
		zap.String("realized", s.pnl.Realized.String()),
		zap.String("open", s.pnl.Open.String()),
		zap.String("total", s.pnl.Total.String()),
	)
}

func (s *Session) closeDoneLocked() {
	if !s.doneClosed {
		close(s.done)
		s.doneClosed = true
	}
}

func (s *Session) symbolLocked() string {
	if s.feed != nil && s.feed.Symbol != "" {
		return s.feed.Symbol
	}
	return s.query.Symbol
}

func (s *Session) strategyLocked() string {
	if s.feed != nil && s.feed.Strategy != "" {
		return s.feed.Strategy
	}
	return s.query.Strategy
}

// Done is closed when playback finishes or the session is closed. Reset
// replaces it with a fresh channel.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Close releases the clock, cancels any load and stops the notification
// sinks. The ledger stays readable.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.clock.Stop()
	s.cancelLoadLocked()
	if s.state == Running || s.state == Loading {
		s.state = Stopped
	}
	s.closeDoneLocked()
	s.mu.Unlock()

	s.notify.Close()
	return nil
}
