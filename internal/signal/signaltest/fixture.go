// Package signaltest provides candle windows with a known triple
// confirmation, for tests of the pipeline and its consumers.
package signaltest

import (
	"math"
	"time"

	"tripleconfirm/internal/model"
)

// TriggerIndex is the only index at which the windows fire with the
// default configuration.
const TriggerIndex = 20

// Base is the timestamp of the first candle; candles are hourly.
var Base = time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC)

// triggerCloses is a 25-candle window in which the Alligator, Stochastic
// and Vortex all cross bullish on the Heikin-Ashi series at index 20, and
// the HA bodies at 18..20 grow strictly.
var (
	triggerCloses = []float64{
		103, 106, 109.5, 111, 110.5, 108, 108, 96, 105.5, 107,
		108.5, 109, 110, 110, 101.5, 108, 109, 107.5, 106, 111,
		111.5, 109, 103.5, 99, 107,
	}
	triggerWicks = []float64{
		0, 1.5, 1, 0, 0, 0.5, 0, 0, 1.5, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 1.5,
		0.5, 0.5, 2, 1.5, 2.5,
	}
)

// BullishWindow returns the 25-candle window that fires BUY at TriggerIndex
// with breakout rank 1.
func BullishWindow() []model.Candle {
	out := make([]model.Candle, len(triggerCloses))
	for i, c := range triggerCloses {
		o := triggerCloses[0] - 1
		if i > 0 {
			o = triggerCloses[i-1]
		}
		out[i] = model.Candle{
			TS:     Base.Add(time.Duration(i) * time.Hour),
			Open:   o,
			High:   math.Max(o, c) + triggerWicks[i],
			Low:    math.Min(o, c) - triggerWicks[i],
			Close:  c,
			Volume: 1000 + float64(i),
		}
	}
	return out
}

// BearishWindow mirrors BullishWindow around 220, which flips every
// crossover while keeping bodies and ranges unchanged.
func BearishWindow() []model.Candle {
	out := BullishWindow()
	for i := range out {
		c := out[i]
		out[i].Open, out[i].Close = 220-c.Open, 220-c.Close
		out[i].High, out[i].Low = 220-c.Low, 220-c.High
	}
	return out
}

// Quiet returns n flat-drifting candles that never fire.
func Quiet(n int) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		p := 100 + 0.01*float64(i)
		out[i] = model.Candle{
			TS:   Base.Add(time.Duration(i) * time.Hour),
			Open: p, High: p + 0.5, Low: p - 0.5, Close: p + 0.005, Volume: 10,
		}
	}
	return out
}
