package sim

import (
	"fmt"
	"strings"
)

// RepeatBuyPolicy decides what a BUY does while a position is already open
// and which open position a SELL closes.
type RepeatBuyPolicy int

const (
	// IgnoreRepeatBuy keeps at most one open position; extra BUYs are dropped.
	IgnoreRepeatBuy RepeatBuyPolicy = iota
	// PyramidFIFO opens a position per BUY; SELL closes the oldest.
	PyramidFIFO
	// PyramidLIFO opens a position per BUY; SELL closes the newest.
	PyramidLIFO
)

func (p RepeatBuyPolicy) String() string {
	switch p {
	case PyramidFIFO:
		return "fifo"
	case PyramidLIFO:
		return "lifo"
	default:
		return "ignore"
	}
}

// ParsePolicy maps a config value onto a policy. Empty selects ignore.
func ParsePolicy(s string) (RepeatBuyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ignore", "single":
		return IgnoreRepeatBuy, nil
	case "fifo", "pyramid", "pyramid-fifo":
		return PyramidFIFO, nil
	case "lifo", "pyramid-lifo":
		return PyramidLIFO, nil
	default:
		return IgnoreRepeatBuy, fmt.Errorf("unknown repeat-buy policy %q (supported: ignore, fifo, lifo)", s)
	}
}
