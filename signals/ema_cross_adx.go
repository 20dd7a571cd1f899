package signals

import (
	"fmt"

	"github.com/rustyeddy/tradereplay/market"
)

// ADXConfig gates a cross on trend strength.
type ADXConfig struct {
	Period    int     `json:"period" yaml:"period"`
	Threshold float64 `json:"threshold" yaml:"threshold"` // e.g. 20 or 25
	RequireDI bool    `json:"require_di,omitempty" yaml:"require_di,omitempty"`
}

// ADXGate passes a cross through only while ADX is at or above the
// threshold. With RequireDI a BUY also needs +DI > -DI and a SELL the
// reverse. Before ADX is ready crosses pass unfiltered.
type ADXGate struct {
	cross     *EMACross
	adx       *ADX
	threshold float64
	requireDI bool
	name      string
}

func NewEMACrossADX(cross EMACrossConfig, cfg ADXConfig) (*ADXGate, error) {
	x, err := NewEMACross(cross)
	if err != nil {
		return nil, err
	}
	if cfg.Period <= 0 {
		cfg.Period = 14
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 20
	}
	return &ADXGate{
		cross:     x,
		adx:       NewADX(cfg.Period),
		threshold: cfg.Threshold,
		requireDI: cfg.RequireDI,
		name:      fmt.Sprintf("EMA_CROSS_ADX(%d,%d,ADX%d@%.1f)", cross.FastPeriod, cross.SlowPeriod, cfg.Period, cfg.Threshold),
	}, nil
}

func (g *ADXGate) Name() string { return g.name }

func (g *ADXGate) Reset() {
	g.cross.Reset()
	g.adx.Reset()
}

func (g *ADXGate) Update(b market.PriceBar) market.SignalType {
	g.adx.Update(b)
	sig := g.cross.Update(b)
	if sig == market.None || !g.adx.Ready() {
		return sig
	}
	if g.adx.Float64() < g.threshold {
		return market.None
	}
	if g.requireDI {
		switch {
		case sig == market.Buy && g.adx.PlusDI() <= g.adx.MinusDI():
			return market.None
		case sig == market.Sell && g.adx.MinusDI() <= g.adx.PlusDI():
			return market.None
		}
	}
	return sig
}
