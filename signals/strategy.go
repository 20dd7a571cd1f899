package signals

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/tradereplay/market"
)

// Strategy labels bars with signals, one bar at a time in feed order.
type Strategy interface {
	Name() string
	Reset()
	Update(b market.PriceBar) market.SignalType
}

// Noop never signals.
type Noop struct{}

func (Noop) Name() string                             { return "noop" }
func (Noop) Reset()                                   {}
func (Noop) Update(market.PriceBar) market.SignalType { return market.None }

// ByName builds a local strategy from its config name.
func ByName(name string, cross EMACrossConfig) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "noop", "none":
		return Noop{}, nil
	case "ema-cross", "emacross", "ema_cross":
		if cross.FastPeriod == 0 && cross.SlowPeriod == 0 {
			cross.FastPeriod, cross.SlowPeriod = 9, 21
		}
		return NewEMACross(cross)
	case "ema-cross-adx", "ema_cross_adx":
		if cross.FastPeriod == 0 && cross.SlowPeriod == 0 {
			cross.FastPeriod, cross.SlowPeriod = 9, 21
		}
		return NewEMACrossADX(cross, ADXConfig{})
	case "sma-cross", "smacross", "sma_cross", "sma_crossover":
		if cross.FastPeriod == 0 && cross.SlowPeriod == 0 {
			cross.FastPeriod, cross.SlowPeriod = 20, 50
		}
		return NewSMACross(cross)
	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: noop, ema-cross, ema-cross-adx, sma-cross)", name)
	}
}

// Annotate runs s over the feed's bars and labels every bar that does not
// already carry a signal. The signal lists are rebuilt from the bars. It
// returns the number of bars labeled.
func Annotate(f *market.Feed, s Strategy) int {
	s.Reset()

	n := 0
	for i := range f.Bars {
		sig := s.Update(f.Bars[i])
		if sig == market.None || f.Bars[i].Signal != market.None {
			continue
		}
		f.Bars[i].Signal = sig
		n++
	}
	if f.Strategy == "" {
		f.Strategy = s.Name()
	}
	f.RebuildSignals()
	return n
}
