package indicator

import "tripleconfirm/internal/model"

// Vortex holds the VI+ and VI- lines.
type Vortex struct {
	Plus  []model.OptFloat
	Minus []model.OptFloat
}

// CalculateVortex computes the Vortex Indicator over HA candles. For every
// i >= period the sums run over j in [i-period+1, i]:
//
//	VM+ = |high[j] - low[j-1]|
//	VM- = |low[j] - high[j-1]|
//	TR  = max(high[j]-low[j], |high[j]-close[j-1]|, |low[j]-close[j-1]|)
//
// and VI± = sum(VM±) / sum(TR). A zero TR sum leaves both lines invalid.
func CalculateVortex(ha []model.HACandle, period int) Vortex {
	n := len(ha)
	v := Vortex{Plus: make([]model.OptFloat, n), Minus: make([]model.OptFloat, n)}
	if period < 1 || n <= period {
		return v
	}

	vmPlus := make([]float64, n)
	vmMinus := make([]float64, n)
	tr := make([]float64, n)
	for j := 1; j < n; j++ {
		cur, prev := &ha[j], &ha[j-1]
		vmPlus[j] = abs(cur.High - prev.Low)
		vmMinus[j] = abs(cur.Low - prev.High)
		tr[j] = max3(cur.High-cur.Low, abs(cur.High-prev.Close), abs(cur.Low-prev.Close))
	}

	for i := period; i < n; i++ {
		var sp, sm, st float64
		for j := i - period + 1; j <= i; j++ {
			sp += vmPlus[j]
			sm += vmMinus[j]
			st += tr[j]
		}
		if st == 0 {
			continue
		}
		v.Plus[i] = model.Some(sp / st)
		v.Minus[i] = model.Some(sm / st)
	}
	return v
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
