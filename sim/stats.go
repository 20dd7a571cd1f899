package sim

import "github.com/shopspring/decimal"

// Stats summarizes the closed positions of a replay.
type Stats struct {
	Trades       int             `json:"trades"`
	Wins         int             `json:"wins"`
	Losses       int             `json:"losses"`
	WinRate      float64         `json:"win_rate"`
	GrossProfit  decimal.Decimal `json:"gross_profit"`
	GrossLoss    decimal.Decimal `json:"gross_loss"`
	ProfitFactor float64         `json:"profit_factor"`
}

// Summarize computes Stats over the closed positions. A flat trade counts
// as neither a win nor a loss.
func Summarize(positions []Position) Stats {
	var s Stats
	s.GrossProfit = decimal.Zero
	s.GrossLoss = decimal.Zero

	for _, p := range positions {
		if p.IsOpen() {
			continue
		}
		s.Trades++
		pl := RealizedPL(p)
		switch {
		case pl.IsPositive():
			s.Wins++
			s.GrossProfit = s.GrossProfit.Add(pl)
		case pl.IsNegative():
			s.Losses++
			s.GrossLoss = s.GrossLoss.Add(pl.Abs())
		}
	}

	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades)
	}
	if s.GrossLoss.IsPositive() {
		s.ProfitFactor = s.GrossProfit.Div(s.GrossLoss).InexactFloat64()
	}
	return s
}
