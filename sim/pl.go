package sim

import "github.com/shopspring/decimal"

// Mark is the price open positions are valued at. The zero Mark means no bar
// has been played yet.
type Mark struct {
	Price float64
	Valid bool
}

// NoMark values open positions at zero.
var NoMark = Mark{}

func MarkAt(price float64) Mark {
	return Mark{Price: price, Valid: true}
}

// PnL is the profit and loss of a ledger at a mark. Total is always
// Realized + Open.
type PnL struct {
	Realized        decimal.Decimal `json:"realized"`
	Open            decimal.Decimal `json:"open"`
	Total           decimal.Decimal `json:"total"`
	OpenPositions   int             `json:"open_positions"`
	ClosedPositions int             `json:"closed_positions"`
}

// Calculate is a pure function of the positions and the mark.
func Calculate(positions []Position, mark Mark) PnL {
	realized := decimal.Zero
	open := decimal.Zero
	var pnl PnL

	for _, p := range positions {
		if p.IsOpen() {
			pnl.OpenPositions++
			if mark.Valid {
				open = open.Add(UnrealizedPL(p, mark.Price))
			}
			continue
		}
		pnl.ClosedPositions++
		realized = realized.Add(RealizedPL(p))
	}

	pnl.Realized = realized
	pnl.Open = open
	pnl.Total = realized.Add(open)
	return pnl
}

// RealizedPL is exit minus entry for a closed position and zero otherwise.
func RealizedPL(p Position) decimal.Decimal {
	if p.Exit == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(p.Exit.Price).Sub(decimal.NewFromFloat(p.EntryPrice))
}

// UnrealizedPL values p at currentPrice.
func UnrealizedPL(p Position, currentPrice float64) decimal.Decimal {
	return decimal.NewFromFloat(currentPrice).Sub(decimal.NewFromFloat(p.EntryPrice))
}
