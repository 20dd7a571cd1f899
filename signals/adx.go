package signals

import (
	"fmt"
	"math"

	"github.com/rustyeddy/tradereplay/market"
)

// ADX is Wilder's Average Directional Index over bar highs and lows. Bars
// without a range (High and Low both zero) are treated as High=Low=Close.
//
// It needs one bar to start, N periods to seed the smoothed TR/+DM/-DM and
// N DX values to seed the ADX itself, so Warmup reports 2N.
type ADX struct {
	n    int
	name string

	prev    market.PriceBar
	hasPrev bool
	periods int
	ready   bool

	// first N periods
	sumTR, sumPlusDM, sumMinusDM float64
	// Wilder smoothed
	smTR, smPlusDM, smMinusDM float64

	dxSum   float64
	dxCount int

	adx, plusDI, minusDI, lastDX float64
}

func NewADX(period int) *ADX {
	if period <= 0 {
		panic("ADX period must be > 0")
	}
	return &ADX{n: period, name: fmt.Sprintf("ADX(%d)", period)}
}

func (a *ADX) Name() string     { return a.name }
func (a *ADX) Warmup() int      { return 2 * a.n }
func (a *ADX) Ready() bool      { return a.ready }
func (a *ADX) Float64() float64 { return a.adx }
func (a *ADX) PlusDI() float64  { return a.plusDI }
func (a *ADX) MinusDI() float64 { return a.minusDI }
func (a *ADX) DX() float64      { return a.lastDX }

func (a *ADX) Reset() {
	*a = ADX{n: a.n, name: a.name}
}

func hiLo(b market.PriceBar) (float64, float64) {
	if b.High == 0 && b.Low == 0 {
		return b.Close, b.Close
	}
	return b.High, b.Low
}

func (a *ADX) Update(b market.PriceBar) {
	if !a.hasPrev {
		a.prev, a.hasPrev = b, true
		return
	}
	defer func() { a.prev = b }()

	prevH, prevL := hiLo(a.prev)
	h, l := hiLo(b)

	tr := math.Max(h-l, math.Max(math.Abs(h-a.prev.Close), math.Abs(l-a.prev.Close)))
	up, down := h-prevH, prevL-l
	var plusDM, minusDM float64
	if up > down && up > 0 {
		plusDM = up
	}
	if down > up && down > 0 {
		minusDM = down
	}

	a.periods++
	nf := float64(a.n)

	if a.periods <= a.n {
		a.sumTR += tr
		a.sumPlusDM += plusDM
		a.sumMinusDM += minusDM
		if a.periods == a.n {
			a.smTR, a.smPlusDM, a.smMinusDM = a.sumTR, a.sumPlusDM, a.sumMinusDM
			a.plusDI, a.minusDI = directional(a.smPlusDM, a.smMinusDM, a.smTR)
			a.lastDX = directionalIndex(a.plusDI, a.minusDI)
			a.dxSum, a.dxCount = a.lastDX, 1
		}
		return
	}

	a.smTR = a.smTR - a.smTR/nf + tr
	a.smPlusDM = a.smPlusDM - a.smPlusDM/nf + plusDM
	a.smMinusDM = a.smMinusDM - a.smMinusDM/nf + minusDM
	a.plusDI, a.minusDI = directional(a.smPlusDM, a.smMinusDM, a.smTR)
	a.lastDX = directionalIndex(a.plusDI, a.minusDI)

	if a.ready {
		a.adx = (a.adx*(nf-1) + a.lastDX) / nf
		return
	}
	a.dxSum += a.lastDX
	a.dxCount++
	if a.dxCount >= a.n {
		a.adx = a.dxSum / nf
		a.ready = true
	}
}

func directional(smPlusDM, smMinusDM, smTR float64) (float64, float64) {
	if smTR <= 0 {
		return 0, 0
	}
	return 100 * smPlusDM / smTR, 100 * smMinusDM / smTR
}

func directionalIndex(plusDI, minusDI float64) float64 {
	den := plusDI + minusDI
	if den <= 0 {
		return 0
	}
	return 100 * math.Abs(plusDI-minusDI) / den
}
