package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/rustyeddy/tradereplay/market"
	"go.uber.org/zap"
)

// EphemeralTTL is how long a notification stays in the ephemeral list.
const EphemeralTTL = 3 * time.Second

// Sink receives every dispatched notification. Sinks are best effort: they
// run asynchronously and their errors are only logged.
type Sink interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}

// Dispatcher keeps the ephemeral and history lists for one session and fans
// notifications out to sinks. Both lists are newest first.
type Dispatcher struct {
	mu        sync.Mutex
	clk       clock.Clock
	ttl       time.Duration
	nextID    int64
	ephemeral []Notification
	history   []Notification
	timers    map[int64]*clock.Timer
	sinks     []Sink
	closed    bool

	log         *zap.Logger
	onSinkError func(sink string)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Dispatcher)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(d *Dispatcher) { d.clk = c }
}

func WithTTL(ttl time.Duration) Option {
	return func(d *Dispatcher) { d.ttl = ttl }
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

func WithSinks(s ...Sink) Option {
	return func(d *Dispatcher) { d.sinks = append(d.sinks, s...) }
}

// WithSinkErrorHook is called with the sink name after every sink failure.
func WithSinkErrorHook(fn func(sink string)) Option {
	return func(d *Dispatcher) { d.onSinkError = fn }
}

func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		clk:    clock.New(),
		ttl:    EphemeralTTL,
		timers: make(map[int64]*clock.Timer),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.Named("notify")
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d
}

// Dispatch records sig in both lists, schedules its ephemeral expiry and
// hands it to the sinks. It never blocks on a sink and never fails.
func (d *Dispatcher) Dispatch(sig market.Signal) Notification {
	d.mu.Lock()
	d.nextID++
	n := Notification{
		ID:         d.nextID,
		Type:       sig.Type,
		Key:        sig.Key,
		Time:       sig.Time,
		Price:      sig.Price,
		StrategyID: sig.StrategyID,
		Symbol:     sig.Symbol,
		CreatedAt:  d.clk.Now(),
	}
	d.history = prepend(d.history, n)
	if d.closed {
		d.mu.Unlock()
		return n
	}

	d.ephemeral = prepend(d.ephemeral, n)
	id := n.ID
	d.timers[id] = d.clk.AfterFunc(d.ttl, func() { d.expire(id) })
	sinks := d.sinks
	d.wg.Add(len(sinks))
	d.mu.Unlock()

	for _, s := range sinks {
		d.runSink(s, n)
	}
	return n
}

// runSink expects the caller to have added to the waitgroup.
func (d *Dispatcher) runSink(s Sink, n Notification) {
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.sinkFailed(s, n, fmt.Errorf("panic: %v", r))
			}
		}()
		if err := s.Notify(d.ctx, n); err != nil {
			d.sinkFailed(s, n, err)
		}
	}()
}

func (d *Dispatcher) sinkFailed(s Sink, n Notification, err error) {
	d.log.Warn("notification sink failed",
		zap.String("sink", s.Name()),
		zap.Int64("id", n.ID),
		zap.Error(err),
	)
	if d.onSinkError != nil {
		d.onSinkError(s.Name())
	}
}

func (d *Dispatcher) expire(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.timers[id]; !ok {
		// cleared or dismissed already
		return
	}
	delete(d.timers, id)
	d.ephemeral = without(d.ephemeral, id)
}

// Ephemeral returns a copy of the notifications that have not expired.
func (d *Dispatcher) Ephemeral() []Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Notification(nil), d.ephemeral...)
}

// History returns a copy of the persistent list.
func (d *Dispatcher) History() []Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Notification(nil), d.history...)
}

// Dismiss removes a notification from the ephemeral list before it expires.
func (d *Dispatcher) Dismiss(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.timers[id]
	if !ok {
		return false
	}
	t.Stop()
	delete(d.timers, id)
	d.ephemeral = without(d.ephemeral, id)
	return true
}

// Remove deletes a notification from the history. The ephemeral list is not
// touched.
func (d *Dispatcher) Remove(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.history)
	d.history = without(d.history, id)
	return len(d.history) != n
}

// ClearAll empties both lists and cancels every pending expiry.
func (d *Dispatcher) ClearAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearLocked()
}

func (d *Dispatcher) clearLocked() {
	for id, t := range d.timers {
		t.Stop()
		delete(d.timers, id)
	}
	d.ephemeral = nil
	d.history = nil
}

// Pending is the number of scheduled ephemeral expiries.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// Wait blocks until every in-flight sink call has returned.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Close cancels pending expiries and in-flight sink calls and waits for
// them. Later dispatches only reach the history.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	for id, t := range d.timers {
		t.Stop()
		delete(d.timers, id)
	}
	d.ephemeral = nil
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
}

func prepend(list []Notification, n Notification) []Notification {
	out := make([]Notification, 0, len(list)+1)
	out = append(out, n)
	return append(out, list...)
}

func without(list []Notification, id int64) []Notification {
	out := list[:0]
	for _, n := range list {
		if n.ID != id {
			out = append(out, n)
		}
	}
	return out
}
