package indicator

import (
	"github.com/markcheno/go-talib"

	"tripleconfirm/internal/model"
)

// CalculateATR returns Wilder's Average True Range over the HA candles.
// Entries before index period are invalid.
func CalculateATR(ha []model.HACandle, period int) []model.OptFloat {
	out := make([]model.OptFloat, len(ha))
	// talib.Atr indexes its SMA seed at [period] and needs period >= 2.
	if period < 2 || len(ha) <= period {
		return out
	}

	highs := make([]float64, len(ha))
	lows := make([]float64, len(ha))
	for i := range ha {
		highs[i] = ha[i].High
		lows[i] = ha[i].Low
	}
	atr := talib.Atr(highs, lows, closes(ha), period)
	for i := period; i < len(atr); i++ {
		out[i] = model.Some(atr[i])
	}
	return out
}
