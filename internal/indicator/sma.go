package indicator

import "tripleconfirm/internal/model"

// smaOpt is a simple moving average over a nullable series. A window that
// contains an invalid sample yields an invalid value.
func smaOpt(values []model.OptFloat, period int) []model.OptFloat {
	out := make([]model.OptFloat, len(values))
	if period < 1 {
		return out
	}

	var sum float64
	invalid := 0 // invalid samples inside the current window
	for i, v := range values {
		if v.Valid {
			sum += v.Value
		} else {
			invalid++
		}
		if i >= period {
			old := values[i-period]
			if old.Valid {
				sum -= old.Value
			} else {
				invalid--
			}
		}
		if i >= period-1 && invalid == 0 {
			out[i] = model.Some(sum / float64(period))
		}
	}
	return out
}
