// Package indicator computes the Alligator, Stochastic and Vortex series
// (plus ATR and market structure) over a Heikin-Ashi candle window.
//
// Every calculation is a pure batch function: it receives the full window and
// returns one value per candle. Values that cannot be computed yet (warm-up)
// or are undefined (zero-width denominators) are returned as invalid
// model.OptFloat, never as zero.
package indicator

import (
	"math"

	"tripleconfirm/internal/model"
)

// Compute runs every indicator over ha and merges the series into one frame
// per candle. Extreme but finite input can still overflow the running sums;
// any valid value that ends up NaN or Inf fails the whole window with a
// MalformedInputError naming the candle and the indicator.
func Compute(ha []model.HACandle, p Params) ([]model.IndicatorFrame, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	all := CalculateAlligator(ha, p)
	st := CalculateStochastic(ha, p.KPeriod, p.KSmooth, p.DSmooth)
	vx := CalculateVortex(ha, p.VortexPeriod)
	atr := CalculateATR(ha, p.ATRPeriod)

	frames := make([]model.IndicatorFrame, len(ha))
	for i := range frames {
		frames[i] = model.IndicatorFrame{
			Jaw:     all.Jaw[i],
			Teeth:   all.Teeth[i],
			Lips:    all.Lips[i],
			K:       st.K[i],
			D:       st.D[i],
			VIPlus:  vx.Plus[i],
			VIMinus: vx.Minus[i],
			ATR:     atr[i],
		}
		if err := checkFinite(i, &frames[i]); err != nil {
			return nil, err
		}
	}
	return frames, nil
}

func checkFinite(i int, f *model.IndicatorFrame) error {
	fields := []struct {
		name string
		v    model.OptFloat
	}{
		{"jaw", f.Jaw}, {"teeth", f.Teeth}, {"lips", f.Lips},
		{"stoch_k", f.K}, {"stoch_d", f.D},
		{"vi_plus", f.VIPlus}, {"vi_minus", f.VIMinus},
		{"atr", f.ATR},
	}
	for _, fl := range fields {
		if fl.v.Valid && (math.IsNaN(fl.v.Value) || math.IsInf(fl.v.Value, 0)) {
			return &model.MalformedInputError{Index: i, Field: fl.name, Reason: "indicator value is not a finite number"}
		}
	}
	return nil
}

func closes(ha []model.HACandle) []float64 {
	out := make([]float64, len(ha))
	for i := range ha {
		out[i] = ha[i].Close
	}
	return out
}
