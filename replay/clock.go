package replay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/andres-erbsen/clock"
)

// Clock hands out at most one ticker lease at a time. Starting a new lease
// releases the previous one, and ticks delivered for a released lease are
// dropped, so a session can never run two tickers.
type Clock struct {
	clk clock.Clock

	mu     sync.Mutex
	gen    uint64
	ticker *clock.Ticker
	stop   chan struct{}

	loops atomic.Int32
}

func NewClock(c clock.Clock) *Clock {
	if c == nil {
		c = clock.New()
	}
	return &Clock{clk: c}
}

// Start acquires a new lease ticking every interval and returns its
// generation. tick runs on the lease's goroutine.
func (c *Clock) Start(interval time.Duration, tick func(gen uint64)) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseLocked()
	c.gen++
	gen := c.gen
	t := c.clk.Ticker(interval)
	stop := make(chan struct{})
	c.ticker, c.stop = t, stop

	c.loops.Add(1)
	go func() {
		defer c.loops.Add(-1)
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if c.Valid(gen) {
					tick(gen)
				}
			}
		}
	}()
	return gen
}

// Stop releases the current lease. It does not wait for an in-flight tick.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
}

func (c *Clock) releaseLocked() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	close(c.stop)
	c.ticker, c.stop = nil, nil
	c.gen++
}

// Valid reports whether gen is the lease currently held.
func (c *Clock) Valid(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticker != nil && c.gen == gen
}

// Held reports whether a lease is held.
func (c *Clock) Held() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticker != nil
}

// Active is the number of tick loops still running. A released loop exits
// shortly after Stop.
func (c *Clock) Active() int { return int(c.loops.Load()) }

func (c *Clock) Now() time.Time { return c.clk.Now() }
