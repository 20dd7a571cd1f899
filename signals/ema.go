package signals

import (
	"fmt"

	"github.com/rustyeddy/tradereplay/market"
)

// EMA computes an exponential moving average over bar closes.
type EMA struct {
	n     int
	alpha float64

	seen  int
	value float64
	ready bool

	name string
}

func NewEMA(period int) *EMA {
	if period <= 0 {
		panic("EMA period must be > 0")
	}
	return &EMA{
		n:     period,
		alpha: 2.0 / float64(period+1),
		name:  fmt.Sprintf("EMA(%d)", period),
	}
}

func (e *EMA) Name() string     { return e.name }
func (e *EMA) Warmup() int      { return e.n }
func (e *EMA) Ready() bool      { return e.ready }
func (e *EMA) Float64() float64 { return e.value }

func (e *EMA) Reset() {
	e.seen = 0
	e.value = 0
	e.ready = false
}

func (e *EMA) Update(b market.PriceBar) {
	x := b.Close

	e.seen++
	if e.seen == 1 {
		// seed with the first close
		e.value = x
	} else {
		e.value = e.alpha*x + (1.0-e.alpha)*e.value
	}

	if e.seen >= e.n {
		e.ready = true
	}
}
