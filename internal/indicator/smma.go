package indicator

import "tripleconfirm/internal/model"

// CalculateSMMA returns the smoothed moving average (Wilder smoothing) of
// values. The first period-1 entries are invalid, entry period-1 is the
// plain mean of the first period values, and every later entry is
//
//	smma[i] = (smma[i-1]*(period-1) + values[i]) / period
//
// A period below 1 or a series shorter than period yields all-invalid output.
func CalculateSMMA(values []float64, period int) []model.OptFloat {
	out := make([]model.OptFloat, len(values))
	if period < 1 || len(values) < period {
		return out
	}

	var sum float64
	for _, v := range values[:period] {
		sum += v
	}
	prev := sum / float64(period)
	out[period-1] = model.Some(prev)

	p := float64(period)
	for i := period; i < len(values); i++ {
		prev = (prev*(p-1) + values[i]) / p
		out[i] = model.Some(prev)
	}
	return out
}
