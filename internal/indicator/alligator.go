package indicator

import "tripleconfirm/internal/model"

// Alligator holds the three shifted SMMA lines, one entry per candle.
type Alligator struct {
	Jaw   []model.OptFloat
	Teeth []model.OptFloat
	Lips  []model.OptFloat
}

// CalculateAlligator computes the Williams Alligator over HA closes. Each
// line is shifted forward: jaw[i] = smma(jawPeriod)[i-jawShift], and is
// invalid while i-shift < 0.
func CalculateAlligator(ha []model.HACandle, p Params) Alligator {
	c := closes(ha)
	return Alligator{
		Jaw:   shift(CalculateSMMA(c, p.JawPeriod), p.JawShift),
		Teeth: shift(CalculateSMMA(c, p.TeethPeriod), p.TeethShift),
		Lips:  shift(CalculateSMMA(c, p.LipsPeriod), p.LipsShift),
	}
}

func shift(series []model.OptFloat, n int) []model.OptFloat {
	out := make([]model.OptFloat, len(series))
	if n < 0 {
		n = 0
	}
	for i := n; i < len(series); i++ {
		out[i] = series[i-n]
	}
	return out
}
