package indicator

import "tripleconfirm/internal/model"

// Stochastic holds the smoothed %K and its %D signal line.
type Stochastic struct {
	K []model.OptFloat
	D []model.OptFloat
}

// CalculateStochastic computes the slow stochastic oscillator over HA
// candles:
//
//	rawK[i] = 100 * (close[i] - lowest) / (highest - lowest)
//
// over the trailing kPeriod candles, %K = SMA(rawK, kSmooth) and
// %D = SMA(%K, dSmooth). A flat window (highest == lowest) leaves rawK
// invalid, which propagates through both averages. Both lines stay invalid
// below kPeriod+kSmooth+dSmooth-3, so %K and %D share one warm-up. Zero is a
// valid reading.
func CalculateStochastic(ha []model.HACandle, kPeriod, kSmooth, dSmooth int) Stochastic {
	raw := make([]model.OptFloat, len(ha))
	if kPeriod >= 1 {
		for i := kPeriod - 1; i < len(ha); i++ {
			lowest, highest := ha[i].Low, ha[i].High
			for j := i - kPeriod + 1; j < i; j++ {
				if ha[j].Low < lowest {
					lowest = ha[j].Low
				}
				if ha[j].High > highest {
					highest = ha[j].High
				}
			}
			if highest == lowest {
				continue
			}
			raw[i] = model.Some(100 * (ha[i].Close - lowest) / (highest - lowest))
		}
	}

	k := smaOpt(raw, kSmooth)
	d := smaOpt(k, dSmooth)
	warmup := kPeriod + kSmooth + dSmooth - 3
	for i := 0; i < warmup && i < len(k); i++ {
		k[i] = model.None
	}
	return Stochastic{K: k, D: d}
}
