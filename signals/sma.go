package signals

import (
	"fmt"

	"github.com/rustyeddy/tradereplay/market"
)

// SMA is a streaming simple moving average over the last n closes.
type SMA struct {
	n      int
	window []float64
	next   int
	sum    float64
	name   string
}

func NewSMA(period int) *SMA {
	if period <= 0 {
		panic("SMA period must be > 0")
	}
	return &SMA{
		n:      period,
		window: make([]float64, 0, period),
		name:   fmt.Sprintf("SMA(%d)", period),
	}
}

func (m *SMA) Name() string { return m.name }
func (m *SMA) Warmup() int  { return m.n }
func (m *SMA) Ready() bool  { return len(m.window) == m.n }

func (m *SMA) Reset() {
	m.window = m.window[:0]
	m.next = 0
	m.sum = 0
}

func (m *SMA) Update(b market.PriceBar) {
	if len(m.window) < m.n {
		m.window = append(m.window, b.Close)
		m.sum += b.Close
		return
	}
	m.sum += b.Close - m.window[m.next]
	m.window[m.next] = b.Close
	m.next = (m.next + 1) % m.n
}

func (m *SMA) Float64() float64 {
	if len(m.window) == 0 {
		return 0
	}
	return m.sum / float64(len(m.window))
}
