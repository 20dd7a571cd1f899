package market

import "sort"

// Feed is a fetched, playable sequence of bars with the backend's signal
// lists and free-form metadata.
type Feed struct {
	Symbol      string         `json:"symbol"`
	Strategy    string         `json:"strategy"`
	Resolution  string         `json:"resolution,omitempty"`
	DataSource  string         `json:"data_source,omitempty"`
	Bars        []PriceBar     `json:"data"`
	BuySignals  []Signal       `json:"buy_signals"`
	SellSignals []Signal       `json:"sell_signals"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Len returns the number of bars.
func (f *Feed) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Bars)
}

// Normalize sorts the bars ascending and copies the BUY/SELL signal lists
// onto the bars they key to. A bar that already carries an inline signal
// keeps it. It returns the number of bars that were annotated from the
// lists.
func (f *Feed) Normalize() int {
	SortBars(f.Bars)

	idx := make(map[Key]int, len(f.Bars))
	for i, b := range f.Bars {
		// keep the first bar of a duplicated timestamp
		if _, ok := idx[b.Key]; !ok {
			idx[b.Key] = i
		}
	}

	n := 0
	apply := func(sigs []Signal, typ SignalType) {
		for _, s := range sigs {
			i, ok := idx[s.Key]
			if !ok || f.Bars[i].Signal != None {
				continue
			}
			f.Bars[i].Signal = typ
			n++
		}
	}
	apply(f.BuySignals, Buy)
	apply(f.SellSignals, Sell)
	return n
}

// RebuildSignals regenerates BuySignals and SellSignals from the bars' inline
// signals.
func (f *Feed) RebuildSignals() {
	f.BuySignals = f.BuySignals[:0]
	f.SellSignals = f.SellSignals[:0]
	for _, b := range f.Bars {
		sig, ok := SignalFromBar(b, f.Strategy, f.Symbol)
		if !ok {
			continue
		}
		if sig.Type == Buy {
			f.BuySignals = append(f.BuySignals, sig)
		} else {
			f.SellSignals = append(f.SellSignals, sig)
		}
	}
}

// Clone returns a deep copy of the bar and signal slices so a cached feed
// can be handed to several sessions.
func (f *Feed) Clone() *Feed {
	if f == nil {
		return nil
	}
	c := *f
	c.Bars = append([]PriceBar(nil), f.Bars...)
	c.BuySignals = append([]Signal(nil), f.BuySignals...)
	c.SellSignals = append([]Signal(nil), f.SellSignals...)
	if f.Metadata != nil {
		c.Metadata = make(map[string]any, len(f.Metadata))
		for k, v := range f.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// SortBars orders bars ascending by timestamp. The sort is stable so bars
// with equal timestamps keep their received order.
func SortBars(bars []PriceBar) {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Before(bars[j])
	})
}
