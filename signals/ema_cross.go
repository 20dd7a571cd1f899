package signals

import (
	"fmt"
	"math"

	"github.com/rustyeddy/tradereplay/market"
)

// Average is a streaming moving average of bar closes.
type Average interface {
	Name() string
	Update(b market.PriceBar)
	Ready() bool
	Float64() float64
	Reset()
}

// EMACross labels a bar BUY when the fast average crosses above the slow
// one and SELL when it crosses below. Only the cross itself is labeled, not
// every bar while the averages stay crossed. The averages are EMAs unless
// built with NewSMACross.
type EMACross struct {
	fast Average
	slow Average

	// -1 fast below slow, 0 unknown, +1 fast above slow
	prevRel   int
	minSpread float64
	name      string
}

type EMACrossConfig struct {
	FastPeriod int     `json:"fast" yaml:"fast"`
	SlowPeriod int     `json:"slow" yaml:"slow"`
	MinSpread  float64 `json:"min_spread,omitempty" yaml:"min_spread,omitempty"` // price units, 0 disables
}

func NewEMACross(cfg EMACrossConfig) (*EMACross, error) {
	if err := cfg.validate("ema-cross"); err != nil {
		return nil, err
	}
	return &EMACross{
		fast:      NewEMA(cfg.FastPeriod),
		slow:      NewEMA(cfg.SlowPeriod),
		minSpread: cfg.MinSpread,
		name:      fmt.Sprintf("EMA_CROSS(%d,%d)", cfg.FastPeriod, cfg.SlowPeriod),
	}, nil
}

// NewSMACross is the simple moving average variant, the local twin of the
// backend's sma_crossover strategy.
func NewSMACross(cfg EMACrossConfig) (*EMACross, error) {
	if err := cfg.validate("sma-cross"); err != nil {
		return nil, err
	}
	return &EMACross{
		fast:      NewSMA(cfg.FastPeriod),
		slow:      NewSMA(cfg.SlowPeriod),
		minSpread: cfg.MinSpread,
		name:      fmt.Sprintf("SMA_CROSS(%d,%d)", cfg.FastPeriod, cfg.SlowPeriod),
	}, nil
}

func (cfg EMACrossConfig) validate(name string) error {
	if cfg.FastPeriod <= 0 || cfg.SlowPeriod <= 0 {
		return fmt.Errorf("%s periods must be > 0", name)
	}
	if cfg.FastPeriod >= cfg.SlowPeriod {
		return fmt.Errorf("%s requires fast < slow (got %d >= %d)", name, cfg.FastPeriod, cfg.SlowPeriod)
	}
	return nil
}

func (x *EMACross) Name() string { return x.name }

func (x *EMACross) Reset() {
	x.fast.Reset()
	x.slow.Reset()
	x.prevRel = 0
}

func (x *EMACross) Ready() bool {
	return x.fast.Ready() && x.slow.Ready()
}

func (x *EMACross) Update(b market.PriceBar) market.SignalType {
	x.fast.Update(b)
	x.slow.Update(b)

	if !x.Ready() {
		return market.None
	}

	diff := x.fast.Float64() - x.slow.Float64()
	if x.minSpread > 0 && math.Abs(diff) < x.minSpread {
		return market.None
	}

	rel := 0
	if diff > 0 {
		rel = +1
	} else if diff < 0 {
		rel = -1
	}

	// first ready bar sets the baseline and never fires
	if x.prevRel == 0 {
		x.prevRel = rel
		return market.None
	}

	prev := x.prevRel
	if rel != 0 {
		x.prevRel = rel
	}

	switch {
	case prev == -1 && rel == +1:
		return market.Buy
	case prev == +1 && rel == -1:
		return market.Sell
	}
	return market.None
}
