package market

import "time"

// PriceBar is one OHLCV bar of a fetched feed. Key is the canonical timestamp
// produced by NormalizeTimestamp; Time is zero when the raw timestamp could
// not be parsed.
type PriceBar struct {
	Key    Key        `json:"timestamp"`
	Time   time.Time  `json:"time,omitempty"`
	Open   float64    `json:"open"`
	High   float64    `json:"high"`
	Low    float64    `json:"low"`
	Close  float64    `json:"close"`
	Volume float64    `json:"volume"`
	Signal SignalType `json:"signal"`
}

// Before orders bars with a parsed time by that time, ahead of all bars
// without one. Unparsed bars compare by key.
func (b PriceBar) Before(o PriceBar) bool {
	bt, ot := !b.Time.IsZero(), !o.Time.IsZero()
	switch {
	case bt && ot:
		return b.Time.Before(o.Time)
	case bt != ot:
		return bt
	}
	return b.Key < o.Key
}
