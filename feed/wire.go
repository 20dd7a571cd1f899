package feed

import (
	"github.com/rustyeddy/tradereplay/market"
)

// wireBar accepts the field spellings the backend endpoints use for a bar.
type wireBar struct {
	Timestamp any     `json:"timestamp"`
	Date      any     `json:"date"`
	Time      any     `json:"time"`
	Datetime  any     `json:"datetime"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Signal    any     `json:"signal"`
}

func (w wireBar) stamp() any {
	for _, v := range []any{w.Timestamp, w.Date, w.Datetime, w.Time} {
		if v != nil {
			return v
		}
	}
	return nil
}

type wireSignal struct {
	Timestamp any     `json:"timestamp"`
	Date      any     `json:"date"`
	Time      any     `json:"time"`
	Price     float64 `json:"price"`
	Strategy  string  `json:"strategy"`
	Symbol    string  `json:"symbol"`
}

func (w wireSignal) stamp() any {
	for _, v := range []any{w.Timestamp, w.Date, w.Time} {
		if v != nil {
			return v
		}
	}
	return nil
}

// wireResponse covers /api/strategy, /api/strategy/live and
// /api/simulator-data. Success is only sent by the simulator.
type wireResponse struct {
	Success     *bool          `json:"success"`
	Error       string         `json:"error"`
	Message     string         `json:"message"`
	Symbol      string         `json:"symbol"`
	Strategy    string         `json:"strategy"`
	DataSource  string         `json:"data_source"`
	Data        []wireBar      `json:"data"`
	BuySignals  []wireSignal   `json:"buy_signals"`
	SellSignals []wireSignal   `json:"sell_signals"`
	Metadata    map[string]any `json:"metadata"`
}

func (w wireResponse) failure() string {
	if w.Error != "" {
		return w.Error
	}
	if w.Message != "" {
		return w.Message
	}
	return "request was not successful"
}

// toFeed converts a decoded response and normalizes it. Bad timestamps and
// unknown signal values never fail the conversion.
func (w wireResponse) toFeed(q Query) *market.Feed {
	f := &market.Feed{
		Symbol:     firstNonEmpty(w.Symbol, q.Symbol),
		Strategy:   firstNonEmpty(w.Strategy, q.Strategy),
		Resolution: string(q.Resolution),
		DataSource: w.DataSource,
		Metadata:   w.Metadata,
		Bars:       make([]market.PriceBar, 0, len(w.Data)),
	}

	for _, b := range w.Data {
		f.Bars = append(f.Bars, b.toBar())
	}
	f.BuySignals = convertSignals(w.BuySignals, market.Buy, f)
	f.SellSignals = convertSignals(w.SellSignals, market.Sell, f)

	normalize(f)
	return f
}

func (w wireBar) toBar() market.PriceBar {
	key, t, err := market.ParseTimestamp(w.stamp())
	if err != nil {
		key = market.NormalizeTimestamp(w.stamp())
	}
	sig, _ := market.ParseSignal(w.Signal)
	return market.PriceBar{
		Key:    key,
		Time:   t,
		Open:   w.Open,
		High:   w.High,
		Low:    w.Low,
		Close:  w.Close,
		Volume: w.Volume,
		Signal: sig,
	}
}

func convertSignals(in []wireSignal, typ market.SignalType, f *market.Feed) []market.Signal {
	out := make([]market.Signal, 0, len(in))
	for _, s := range in {
		key, t, err := market.ParseTimestamp(s.stamp())
		if err != nil {
			key = market.NormalizeTimestamp(s.stamp())
		}
		out = append(out, market.Signal{
			Type:       typ,
			Key:        key,
			Time:       t,
			Price:      s.Price,
			StrategyID: firstNonEmpty(s.Strategy, f.Strategy),
			Symbol:     firstNonEmpty(s.Symbol, f.Symbol),
		})
	}
	return out
}

// normalize sorts the bars, joins the signal lists onto them and rebuilds the
// lists so they describe exactly the bars that will play.
func normalize(f *market.Feed) {
	f.Normalize()
	f.RebuildSignals()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
